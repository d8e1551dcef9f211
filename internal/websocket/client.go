// internal/websocket/client.go
// Per-connection WebSocket client pumps.

package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client represents a single WebSocket connection.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	userID      string
	tournaments []string
	logger      *log.Logger
}

// ClientMessage represents an inbound message from a client.
type ClientMessage struct {
	Type   string          `json:"type"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// NewClient creates a new client bound to a connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, logger *log.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		logger: logger,
	}
}

// Start registers the client with the hub and starts its pumps.
func (c *Client) Start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Printf("websocket read error: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Printf("failed to unmarshal client message: %v", err)
			continue
		}

		switch msg.Type {
		case "subscribe":
			c.handleSubscribe(msg.Data)
		case "unsubscribe":
			c.handleUnsubscribe(msg.Data)
		case "ping":
			c.handlePing()
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleSubscribe(data json.RawMessage) {
	var payload struct {
		TournamentID string `json:"tournament_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.TournamentID == "" {
		return
	}
	c.hub.SubscribeToTournament(c, payload.TournamentID)
}

func (c *Client) handleUnsubscribe(data json.RawMessage) {
	var payload struct {
		TournamentID string `json:"tournament_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.TournamentID == "" {
		return
	}
	c.hub.UnsubscribeFromTournament(c, payload.TournamentID)
}

func (c *Client) handlePing() {
	c.send <- []byte(`{"type":"pong"}`)
}

func (c *Client) close() {
	close(c.send)
}
