package handlers

import (
	"net/http"

	"duet_backend/internal/domain"
	"duet_backend/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

type reportRequest struct {
	ReportedID int64  `json:"reported_id" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
}

// CreateReport files a moderation report against another player.
func (h *Handler) CreateReport(c *gin.Context) {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ReportedID == playerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if _, err := h.Players.GetByID(c.Request.Context(), req.ReportedID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}

	rep := &domain.Report{
		ReporterID: playerID,
		ReportedID: req.ReportedID,
		Reason:     req.Reason,
	}
	if err := h.Reports.Create(c.Request.Context(), rep); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to file report"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"report_id": rep.ID})
}
