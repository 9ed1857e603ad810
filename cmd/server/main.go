package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/studyflow/internal/api"
	"github.com/vytor/studyflow/internal/config"
	"github.com/vytor/studyflow/internal/db"
	"github.com/vytor/studyflow/internal/jobs"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/repository/docstore"
	"github.com/vytor/studyflow/internal/scheduler"
	"github.com/vytor/studyflow/internal/services"
	"github.com/vytor/studyflow/internal/store/sqlite"
	"github.com/vytor/studyflow/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("StudyFlow Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("intervals=%v", cfg.Intervals)
	log.Debug("timezone=%s", cfg.Timezone)
	log.Debug("retry_attempts=%d", cfg.RetryAttempts)
	log.Debug("retry_delay=%s", cfg.RetryDelay())
	log.Debug("worker_count=%d", cfg.WorkerCount)
	log.Debug("worker_queue_size=%d", cfg.WorkerQueueSize)

	intervals, err := scheduler.NewIntervalTable(cfg.Intervals...)
	if err != nil {
		log.Error("invalid interval table: %v", err)
		os.Exit(1)
	}
	loc := cfg.Location()

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	// Initialize repositories
	st := sqlite.New(database.DB)
	items := docstore.NewItemRepository(st)
	sessions := docstore.NewSessionRepository(st)

	// Initialize services
	engine := scheduler.New(intervals, loc)
	scheduleService := services.NewScheduleService(docstore.NewSubjectRepository(st), items, engine)
	logService := services.NewLogService(docstore.NewHistoryRepository(st), docstore.NewAchievementRepository(st), loc)

	// Initialize worker pool
	policy := worker.RetryPolicy{Attempts: uint(cfg.RetryAttempts), Delay: cfg.RetryDelay()}
	pool := worker.NewPool(cfg.WorkerCount, cfg.WorkerQueueSize)

	srv := &api.Server{
		Schedule: scheduleService,
		Logs:     logService,
		Sessions: sessions,
		Items:    items,
		Jobs:     jobs.NewWorkerQueue(pool, logService, policy),
		Pool:     pool,
		Retry:    policy,
		DB:       database.DB,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	// Configure HTTP server. WriteTimeout stays unset so event streams are
	// not cut off.
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	// Drain queued log and sync retries before the database closes
	log.Debug("stopping worker pool")
	pool.Stop()

	log.Info("===========================================")
	log.Info("StudyFlow Server Stopped")
	log.Info("===========================================")
}
