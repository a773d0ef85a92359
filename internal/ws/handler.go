package ws

import (
	"context"
	"net/http"

	"duet_backend/internal/logger"
	"duet_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handle upgrades the request and hands the session to the gateway. Auth is
// a JWT in the token query parameter since browsers cannot set headers on
// websocket dials.
func Handle(g *Gateway, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		playerID, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		player, err := g.players.GetByID(c.Request.Context(), playerID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown player"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws: upgrade failed", "player", playerID, "error", err)
			return
		}

		// the request context dies with the handler; the session outlives it
		go g.Serve(context.Background(), player.Ref(), conn)
	}
}
