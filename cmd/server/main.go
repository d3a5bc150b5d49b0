package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rnr/backend/internal/application/rnrform"
	"github.com/rnr/backend/internal/infrastructure/config"
	"github.com/rnr/backend/internal/infrastructure/event"
	"github.com/rnr/backend/internal/infrastructure/logger"
	"github.com/rnr/backend/internal/infrastructure/persistence"
	"github.com/rnr/backend/internal/infrastructure/scheduler"
	"github.com/rnr/backend/internal/interfaces/http/router"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(rnrform.NewAuditLogHandler(log))
	if err := bus.Start(context.Background()); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}

	repo := persistence.NewGormRnRFormRepository(db.DB)
	notifier := rnrform.NewLogNotifier(log)

	schedulerFactory := func(flush func(ctx context.Context) error) rnrform.FlushScheduler {
		return scheduler.NewAutosaveScheduler(flush, log, scheduler.AutosaveSchedulerConfig{
			Interval:     cfg.Autosave.Interval,
			FlushTimeout: cfg.Autosave.FlushTimeout,
		})
	}

	sessions := rnrform.NewSessionManager(repo, bus, notifier, schedulerFactory, log)

	engine := router.New(router.Config{
		AppConfig: cfg,
		Logger:    log,
		Sessions:  sessions,
	})

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("http server shutdown failed", zap.Error(err))
	}

	// Sessions flush pending edits before the process exits.
	sessions.CloseAll(ctx)

	if err := bus.Stop(ctx); err != nil {
		log.Warn("event bus shutdown failed", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
