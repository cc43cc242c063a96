package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ashwinth04/FinHub/internal/config"
	"github.com/Ashwinth04/FinHub/internal/database"
	"github.com/Ashwinth04/FinHub/internal/modules/allocation"
	"github.com/Ashwinth04/FinHub/internal/modules/inference"
	"github.com/Ashwinth04/FinHub/internal/modules/training"
	"github.com/Ashwinth04/FinHub/internal/modules/universe"
	"github.com/Ashwinth04/FinHub/internal/scheduler"
	"github.com/Ashwinth04/FinHub/internal/server"
	"github.com/Ashwinth04/FinHub/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Level: "info", Pretty: true}).
			Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting FinHub allocation engine")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Wire the allocation engine
	universeRepo := universe.NewRepository(db.Conn(), log)
	historyDB := universe.NewHistoryDB(cfg.HistoryDir, log)
	slot := training.NewModelSlot(log)
	svc := allocation.NewService(cfg, db, universeRepo, historyDB, slot, log)
	adapter := inference.NewAdapter(slot, log)

	// Seed the model slot from a persisted checkpoint if one still
	// matches the stored universe.
	if err := svc.RestoreFromCheckpoint(); err != nil {
		log.Info().Err(err).Msg("No usable checkpoint, waiting for first training run")
	}

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	if err := registerJobs(sched, svc, db, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:       cfg.Port,
		Log:        log,
		Config:     cfg,
		Allocation: allocation.NewHandler(svc, adapter, log),
		Service:    svc,
		DevMode:    cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(sched *scheduler.Scheduler, svc *allocation.Service, db *database.DB, cfg *config.Config, log zerolog.Logger) error {
	// Nightly retrain keeps the model current with the latest history.
	if err := sched.AddJob("@midnight", scheduler.NewRetrainJob(svc, 4*time.Hour, log)); err != nil {
		return err
	}

	// Periodic database and checkpoint integrity check, run once up front
	// so a corrupt database surfaces at startup rather than 6 hours in.
	healthCheck := scheduler.NewHealthCheckJob(db, cfg.CheckpointPath, log)
	if err := sched.AddJob("@every 6h", healthCheck); err != nil {
		return err
	}
	if err := sched.RunNow(healthCheck); err != nil {
		log.Warn().Err(err).Msg("Startup health check failed")
	}
	return nil
}
