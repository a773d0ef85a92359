package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AdminAuth guards moderation endpoints with a shared token. An empty
// configured token disables the whole surface.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" || c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

type kickRequest struct {
	PlayerID int64  `json:"player_id" binding:"required"`
	Reason   string `json:"reason"`
}

// Kick force-disconnects a player's live session.
func (h *Handler) Kick(c *gin.Context) {
	var req kickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	st := h.Presence.KickPlayer(c.Request.Context(), req.PlayerID, req.Reason)
	if !st.OK() {
		c.JSON(http.StatusNotFound, gin.H{"status": st})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st})
}

// PlayerOnline reports whether a player currently has a live session.
func (h *Handler) PlayerOnline(c *gin.Context) {
	playerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": h.Presence.IsPlayerOnline(playerID)})
}

// ReportCount returns how many distinct players have reported the given one.
func (h *Handler) ReportCount(c *gin.Context) {
	playerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return
	}

	n, err := h.Reports.CountAgainst(c.Request.Context(), playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"player_id": playerID, "reports": n})
}
