package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robertrinh/transcendence-sub001/brackets"
	"github.com/robertrinh/transcendence-sub001/config"
	"github.com/robertrinh/transcendence-sub001/db"
	"github.com/robertrinh/transcendence-sub001/handlers"
	"github.com/robertrinh/transcendence-sub001/notify"
	"github.com/robertrinh/transcendence-sub001/repositories"
	"github.com/robertrinh/transcendence-sub001/routes"
	"github.com/robertrinh/transcendence-sub001/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabasePath, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established", slog.String("path", cfg.DatabasePath))

	if err := db.Migrate(context.Background(), dbConn); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database schema up to date")

	wsHub := notify.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	playerRepo := repositories.NewSQLitePlayerRepository()
	queueRepo := repositories.NewSQLiteQueueRepository()
	gameRepo := repositories.NewSQLiteGameRepository()
	tournamentRepo := repositories.NewSQLiteTournamentRepository()
	participantRepo := repositories.NewSQLiteParticipantRepository()
	logger.Info("repositories initialized")

	gameService := services.NewGameService(dbConn, gameRepo, playerRepo, queueRepo, wsHub, logger)
	matchmakingService := services.NewMatchmakingService(
		dbConn,
		queueRepo,
		playerRepo,
		gameRepo,
		gameService,
		wsHub,
		logger,
	)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		participantRepo,
		gameRepo,
		playerRepo,
		gameService,
		brackets.NewSingleElimination(),
		wsHub,
		logger,
	)
	gameService.SetBracketEngine(tournamentService)
	logger.Info("services initialized")

	reaper := services.NewReaper(
		dbConn,
		queueRepo,
		gameRepo,
		playerRepo,
		gameService,
		wsHub,
		logger,
		cfg.ReapInterval,
	)
	if err := reaper.Start(); err != nil {
		logger.Error("failed to start reaper", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("queue reaper started", slog.Duration("interval", cfg.ReapInterval))

	matchmakingHandler := handlers.NewMatchmakingHandler(matchmakingService)
	gameHandler := handlers.NewGameHandler(gameService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	router := routes.InitRoutes(routes.Handlers{
		Matchmaking: matchmakingHandler,
		Games:       gameHandler,
		Tournaments: tournamentHandler,
		WebSocket:   webSocketHandler,
	}, []byte(cfg.JWTSecretKey))
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		reaper.Stop()
		wsHub.Stop()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
