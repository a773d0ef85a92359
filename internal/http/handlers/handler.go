package handlers

import (
	"duet_backend/internal/realtime"
	"duet_backend/internal/repository"
)

// Handler bundles the repositories and the presence manager the REST surface
// works against.
type Handler struct {
	Players  *repository.PlayerRepository
	Friends  *repository.FriendRepository
	Scores   *repository.ScoreboardRepository
	Reports  *repository.ReportRepository
	Presence *realtime.PresenceManager
}

func NewHandler(
	players *repository.PlayerRepository,
	friends *repository.FriendRepository,
	scores *repository.ScoreboardRepository,
	reports *repository.ReportRepository,
	presence *realtime.PresenceManager,
) *Handler {
	return &Handler{
		Players:  players,
		Friends:  friends,
		Scores:   scores,
		Reports:  reports,
		Presence: presence,
	}
}
