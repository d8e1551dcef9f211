// internal/websocket/hub.go
// WebSocket hub manages client connections and message broadcasting
// for engine notifications. Decoupled from internal/services to avoid
// an import cycle: the engine talks to the hub through the narrow
// notify.Hub interface this type satisfies.

package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains active websocket connections and broadcasts messages.
type Hub struct {
	tournaments map[string]map[*Client]bool
	users       map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message

	logger *log.Logger
	mu     sync.RWMutex
}

// Message represents a WebSocket message.
type Message struct {
	Type         string      `json:"type"`
	TournamentID string      `json:"tournament_id,omitempty"`
	UserID       string      `json:"user_id,omitempty"`
	Data         interface{} `json:"data"`
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		tournaments: make(map[string]map[*Client]bool),
		users:       make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		logger:      logger,
	}
}

// Run starts the hub's main loop. Intended to run in its own goroutine
// for the lifetime of the process.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.userID != "" {
		if existing, exists := h.users[client.userID]; exists {
			existing.close()
			h.removeClient(existing)
		}
		h.users[client.userID] = client
	}

	for _, tournamentID := range client.tournaments {
		if h.tournaments[tournamentID] == nil {
			h.tournaments[tournamentID] = make(map[*Client]bool)
		}
		h.tournaments[tournamentID][client] = true
	}

	h.logger.Printf("client registered: %s (tournaments: %v)", client.userID, client.tournaments)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeClient(client)
	client.close()

	h.logger.Printf("client unregistered: %s", client.userID)
}

func (h *Hub) removeClient(client *Client) {
	if client.userID != "" {
		delete(h.users, client.userID)
	}
	for _, tournamentID := range client.tournaments {
		if clients, exists := h.tournaments[tournamentID]; exists {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.tournaments, tournamentID)
			}
		}
	}
}

func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Printf("failed to marshal message: %v", err)
		return
	}

	if message.TournamentID != "" {
		if clients, exists := h.tournaments[message.TournamentID]; exists {
			for client := range clients {
				select {
				case client.send <- data:
				default:
					h.removeClient(client)
					client.close()
				}
			}
		}
	}

	if message.UserID != "" {
		if client, exists := h.users[message.UserID]; exists {
			select {
			case client.send <- data:
			default:
				h.removeClient(client)
				client.close()
			}
		}
	}
}

// BroadcastTournamentUpdate broadcasts an update to all dashboards
// watching a tournament. Implements notify.Hub.
func (h *Hub) BroadcastTournamentUpdate(tournamentID string, updateType string, data interface{}) {
	h.broadcast <- &Message{Type: updateType, TournamentID: tournamentID, Data: data}
}

// SendToUser sends a message to a specific user. Implements notify.Hub.
func (h *Hub) SendToUser(userID string, messageType string, data interface{}) {
	h.broadcast <- &Message{Type: messageType, UserID: userID, Data: data}
}

// SubscribeToTournament subscribes a client to tournament updates.
func (h *Hub) SubscribeToTournament(client *Client, tournamentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.tournaments = append(client.tournaments, tournamentID)
	if h.tournaments[tournamentID] == nil {
		h.tournaments[tournamentID] = make(map[*Client]bool)
	}
	h.tournaments[tournamentID][client] = true

	h.logger.Printf("client %s subscribed to tournament %s", client.userID, tournamentID)
}

// UnsubscribeFromTournament unsubscribes a client from tournament updates.
func (h *Hub) UnsubscribeFromTournament(client *Client, tournamentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, id := range client.tournaments {
		if id == tournamentID {
			client.tournaments = append(client.tournaments[:i], client.tournaments[i+1:]...)
			break
		}
	}

	if clients, exists := h.tournaments[tournamentID]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.tournaments, tournamentID)
		}
	}

	h.logger.Printf("client %s unsubscribed from tournament %s", client.userID, tournamentID)
}
