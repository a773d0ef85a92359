package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duet_backend/internal/board"
	"duet_backend/internal/config"
	"duet_backend/internal/db"
	httpServer "duet_backend/internal/http"
	"duet_backend/internal/http/handlers"
	"duet_backend/internal/http/middleware"
	"duet_backend/internal/logger"
	"duet_backend/internal/mail"
	"duet_backend/internal/realtime"
	"duet_backend/internal/repository"
	"duet_backend/internal/service"
	"duet_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	playerRepo := repository.NewPlayerRepository(dbPool)
	friendRepo := repository.NewFriendRepository(dbPool)
	scoreRepo := repository.NewScoreboardRepository(dbPool)
	reportRepo := repository.NewReportRepository(dbPool)
	mailer := mail.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom)

	seed := time.Now().UnixNano()
	presence := realtime.NewPresenceManager(friendRepo)
	lobby := realtime.NewLobbyManager(playerRepo, mailer, seed)
	matchmaking := realtime.NewMatchmakingManager(board.NewGenerator(seed))
	orchestrator := realtime.NewMatchOrchestrator(scoreRepo)
	gateway := ws.NewGateway(presence, lobby, matchmaking, orchestrator, playerRepo)

	r := gin.Default()

	// CORS for the browser client on a different domain
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})
	r.Use(middleware.Metrics())

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, httpServer.Deps{
		DB:      dbPool,
		Config:  cfg,
		Handler: handlers.NewHandler(playerRepo, friendRepo, scoreRepo, reportRepo, presence),
		Gateway: gateway,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
