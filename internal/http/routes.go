package http

import (
	"time"

	"duet_backend/internal/config"
	"duet_backend/internal/http/handlers"
	"duet_backend/internal/http/middleware"
	"duet_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps is everything the route table needs from the composition root.
type Deps struct {
	DB      *pgxpool.Pool
	Config  *config.Config
	Handler *handlers.Handler
	Gateway *ws.Gateway
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	healthHandler := handlers.NewHealthHandler(d.DB)
	h := d.Handler
	cfg := d.Config

	apiWindow := time.Duration(cfg.APIRateWindow) * time.Second
	authWindow := time.Duration(cfg.AuthRateWindow) * time.Second

	// probes, unlimited
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	api := r.Group("/api/v1")
	api.Use(middleware.RedisRateLimit(cfg.APIRateLimit, apiWindow))

	// auth
	authRL := middleware.RedisRateLimit(cfg.AuthRateLimit, authWindow)
	api.POST("/register", authRL, h.Register)
	api.POST("/login", authRL, h.Login)

	// friends
	api.GET("/friends", middleware.JWT(), h.ListFriends)
	api.POST("/friends", middleware.JWT(), h.AddFriend)
	api.DELETE("/friends/:id", middleware.JWT(), h.RemoveFriend)

	// moderation reports
	api.POST("/reports", middleware.JWT(), h.CreateReport)

	// leaderboard
	api.GET("/leaderboard", h.GetLeaderboard)

	// moderation surface
	admin := api.Group("/admin")
	admin.Use(handlers.AdminAuth(cfg.AdminToken))
	{
		admin.POST("/kick", h.Kick)
		admin.GET("/players/:id/online", h.PlayerOnline)
		admin.GET("/players/:id/reports", h.ReportCount)
	}

	// realtime entrypoint
	r.GET("/ws", ws.Handle(d.Gateway, cfg.AllowedOrigin))
}
