// internal/notify/composite_emitter.go
// CompositeEmitter fans engine notifications out to the live WebSocket
// hub (for anything a connected dashboard should see immediately) and
// into an append-only Mongo collection (for anything that should be
// queryable after the fact, independent of who was connected when it
// happened).

package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"tournament-planner/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Hub is the narrow surface CompositeEmitter needs from a WebSocket
// hub. Satisfied by *websocket.Hub without this package importing it.
type Hub interface {
	BroadcastTournamentUpdate(tournamentID string, updateType string, data interface{})
	SendToUser(userID string, messageType string, data interface{})
}

// CompositeEmitter implements Emitter by broadcasting to connected
// dashboards and recording every notification in Mongo.
type CompositeEmitter struct {
	hub    Hub
	audit  *mongo.Collection
	logger *log.Logger
}

// NewCompositeEmitter builds an Emitter backed by a live hub and a
// Mongo audit collection.
func NewCompositeEmitter(hub Hub, db *mongo.Database, logger *log.Logger) *CompositeEmitter {
	return &CompositeEmitter{
		hub:    hub,
		audit:  db.Collection("notifications"),
		logger: logger,
	}
}

func (e *CompositeEmitter) record(ctx context.Context, tournamentID string, kind Kind, payload map[string]interface{}) {
	doc := bson.M{
		"tournament_id": tournamentID,
		"kind":          string(kind),
		"payload":       payload,
		"at":            time.Now(),
	}
	go func() {
		recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := e.audit.InsertOne(recordCtx, doc); err != nil {
			e.logger.Printf("notify: failed to record %s for %s: %v", kind, tournamentID, err)
		}
	}()
	_ = ctx
}

// NotifyAnnouncement broadcasts a tournament-wide update.
func (e *CompositeEmitter) NotifyAnnouncement(ctx context.Context, tournamentID string, kind Kind, payload map[string]interface{}) {
	e.hub.BroadcastTournamentUpdate(tournamentID, string(kind), payload)
	e.record(ctx, tournamentID, kind, payload)
}

// NotifyTO sends an update scoped to the organizer's view. Broadcast
// alongside the announcement channel since there is no separate
// operator-only socket topic; the payload itself carries the
// distinction for the frontend to filter on.
func (e *CompositeEmitter) NotifyTO(ctx context.Context, tournamentID string, kind Kind, payload map[string]interface{}) {
	merged := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		merged[k] = v
	}
	merged["_scope"] = "organizer"
	e.hub.BroadcastTournamentUpdate(tournamentID, string(kind), merged)
	e.record(ctx, tournamentID, kind, merged)
}

// NotifyMatch sends an update scoped to a specific match.
func (e *CompositeEmitter) NotifyMatch(ctx context.Context, match *models.Match, kind Kind, payload map[string]interface{}) {
	merged := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		merged[k] = v
	}
	merged["match_id"] = match.ID
	merged["set"] = match.Set

	tournamentID := ""
	if v, ok := payload["tournament_id"].(string); ok {
		tournamentID = v
	}
	e.hub.BroadcastTournamentUpdate(tournamentID, string(kind), merged)
	e.record(ctx, tournamentID, kind, merged)
}

// NotifyUser sends a direct message to one connected user.
func (e *CompositeEmitter) NotifyUser(ctx context.Context, user models.UserRef, kind Kind, payload map[string]interface{}) {
	merged := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		merged[k] = v
	}
	merged["display_name"] = user.DisplayName
	e.hub.SendToUser(user.ID, string(kind), merged)

	tournamentID := ""
	if v, ok := payload["tournament_id"].(string); ok {
		tournamentID = v
	}
	e.record(ctx, tournamentID, kind, merged)
}

// CreateCategory is not backed by a real chat platform here; it
// returns a synthetic handle so the engine's category-packing logic
// has something stable to key on.
func (e *CompositeEmitter) CreateCategory(ctx context.Context, tournamentID, name string) (string, error) {
	return fmt.Sprintf("%s:%s:%d", tournamentID, name, time.Now().UnixNano()), nil
}

// CreateMatchChannel provisions a synthetic channel handle and
// announces its creation to anyone subscribed to the tournament.
func (e *CompositeEmitter) CreateMatchChannel(ctx context.Context, category string, match *models.Match, allowedUsers []models.UserRef) (models.ChannelHandle, error) {
	handle := models.ChannelHandle(fmt.Sprintf("%s/set-%d", category, match.Set))
	e.hub.BroadcastTournamentUpdate("", string(KindMatchLaunched), map[string]interface{}{
		"match_id": match.ID,
		"channel":  string(handle),
	})
	return handle, nil
}

// DeleteChannel does nothing: the handles from CreateMatchChannel are
// synthetic strings with nothing behind them to tear down. It always
// returns nil.
func (e *CompositeEmitter) DeleteChannel(ctx context.Context, handle models.ChannelHandle) error {
	return nil
}

// ResolveUserByName looks a display name up against recent presence
// recorded via NotifyUser/NotifyAnnouncement. Without a connected
// chat platform to query, resolution falls back to audit history.
func (e *CompositeEmitter) ResolveUserByName(ctx context.Context, tournamentID, name string) (*models.UserRef, bool) {
	filter := bson.M{
		"tournament_id":          tournamentID,
		"payload.display_name": name,
	}
	var doc struct {
		Payload struct {
			DisplayName string `bson:"display_name"`
			UserID      string `bson:"user_id"`
		} `bson:"payload"`
	}
	findCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := e.audit.FindOne(findCtx, filter).Decode(&doc); err != nil {
		return nil, false
	}
	if doc.Payload.UserID == "" {
		return nil, false
	}
	return &models.UserRef{ID: doc.Payload.UserID, DisplayName: doc.Payload.DisplayName}, true
}
