package main

import (
	"context"
	"ctchen222/tictactoe-match/internal/api/controller"
	apirepository "ctchen222/tictactoe-match/internal/api/repository"
	"ctchen222/tictactoe-match/internal/api/service"
	"ctchen222/tictactoe-match/internal/config"
	"ctchen222/tictactoe-match/internal/db"
	"ctchen222/tictactoe-match/internal/logger"
	"ctchen222/tictactoe-match/internal/repository"
	"ctchen222/tictactoe-match/internal/server"
	"ctchen222/tictactoe-match/internal/session"
	"ctchen222/tictactoe-match/internal/telemetry"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "config.yml", "optional YAML config file; environment variables override it")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	if cfg.InsecureJWTSecret() {
		slog.Warn("JWT_SECRET is not set; login tokens are signed with a development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, telemetry.Options{Endpoint: cfg.OTELEndpoint})
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down telemetry", "error", err)
		}
	}()

	// Session store: Redis when configured, memory otherwise.
	var store session.Store
	if cfg.RedisConnString != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisConnString)
		if err != nil {
			log.Fatalf("failed to initialize redis: %v", err)
		}
		defer rdb.Close()
		store = repository.NewSessionRepository(rdb, cfg.SessionTTL)
		slog.Info("Sessions persisted in Redis")
	} else {
		store = repository.NewMemorySessionRepository(cfg.SessionTTL)
		slog.Info("Sessions kept in memory")
	}

	// Initialize SQLite DB
	DB, err := db.Connect(ctx, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to initialize sqlite db: %v", err)
	}
	defer DB.Close()

	userRepo := apirepository.NewUserRepository(DB)
	userService := service.NewUserService(userRepo, cfg.JWTSecret, service.DefaultTokenTTL)

	sessions := session.NewManager(store)
	defer sessions.Close()
	go sessions.RunJanitor(ctx, session.DefaultSweepInterval, cfg.SessionTTL)

	srv := server.NewServer(sessions,
		controller.NewUserController(userService),
		controller.NewSessionController(sessions, userService, cfg.DefaultRoundLimit, cfg.BotDelay),
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("HTTP server started", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ListenAndServe failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}
