package middleware

import (
	"net/http"
	"strings"

	"duet_backend/internal/service"

	"github.com/gin-gonic/gin"
)

const playerIDKey = "playerID"

// JWT authenticates the Authorization bearer token and stores the player id
// in the gin context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		playerID, err := service.ParseJWT(strings.TrimPrefix(auth, prefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(playerIDKey, playerID)
		c.Next()
	}
}

// PlayerID returns the authenticated player id set by JWT.
func PlayerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(playerIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
