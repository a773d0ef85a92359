package handlers

import (
	"net/http"
	"strconv"

	"duet_backend/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

type friendRequest struct {
	FriendID int64 `json:"friend_id" binding:"required"`
}

// ListFriends returns the caller's friends with their live online flag.
func (h *Handler) ListFriends(c *gin.Context) {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	friends, err := h.Friends.FriendsOf(c.Request.Context(), playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list friends"})
		return
	}

	type friendEntry struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Online   bool   `json:"online"`
	}
	out := make([]friendEntry, 0, len(friends))
	for _, f := range friends {
		out = append(out, friendEntry{
			ID:       f.ID,
			Username: f.Username,
			Online:   h.Presence.IsPlayerOnline(f.ID),
		})
	}

	c.JSON(http.StatusOK, gin.H{"friends": out})
}

// AddFriend links the caller with another player and pushes the friendship
// to both live sessions.
func (h *Handler) AddFriend(c *gin.Context) {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req friendRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FriendID == playerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	self, err := h.Players.GetByID(c.Request.Context(), playerID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	other, err := h.Players.GetByID(c.Request.Context(), req.FriendID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}

	if err := h.Friends.Add(c.Request.Context(), playerID, req.FriendID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add friend"})
		return
	}

	h.Presence.NotifyNewFriendship(self.Ref(), other.Ref())
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RemoveFriend unlinks the pair and pushes the removal to both live sessions.
func (h *Handler) RemoveFriend(c *gin.Context) {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	friendID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friend id"})
		return
	}

	self, err := h.Players.GetByID(c.Request.Context(), playerID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	other, err := h.Players.GetByID(c.Request.Context(), friendID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}

	if err := h.Friends.Remove(c.Request.Context(), playerID, friendID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove friend"})
		return
	}

	h.Presence.NotifyFriendshipEnded(self.Ref(), other.Ref())
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
