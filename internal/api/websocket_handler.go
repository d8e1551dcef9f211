// internal/api/websocket_handler.go
// Upgrades HTTP connections to WebSocket and binds them to the hub.

package api

import (
	"log"
	"net/http"

	ws "tournament-planner/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWebSocketUpgrade upgrades the connection and starts the client.
// OptionalWebSocketAuth should run ahead of this to populate user_id
// from the query-string token, since the browser WebSocket API cannot
// set an Authorization header during the handshake.
func HandleWebSocketUpgrade(hub *ws.Hub, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Printf("websocket upgrade failed: %v", err)
			return
		}

		client := ws.NewClient(hub, conn, userID, logger)
		client.Start()
	}
}

// OptionalWebSocketAuth resolves a user id from a query-string token.
func OptionalWebSocketAuth(authService interface {
	ValidateToken(token string) (string, string, error)
}) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.Next()
			return
		}
		if userID, role, err := authService.ValidateToken(token); err == nil {
			c.Set("user_id", userID)
			c.Set("user_role", role)
			c.Set("authenticated", true)
		}
		c.Next()
	}
}
