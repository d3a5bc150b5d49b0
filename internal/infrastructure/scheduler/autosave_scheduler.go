package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AutosaveScheduler drives the periodic flush of one form-editing
// session. Each tick invokes the session's flush; a flush already in
// progress from another trigger simply serializes behind it.
type AutosaveScheduler struct {
	flush     func(ctx context.Context) error
	logger    *zap.Logger
	config    AutosaveSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// AutosaveSchedulerConfig holds configuration for the autosave scheduler
type AutosaveSchedulerConfig struct {
	// Interval is the delay between flush attempts
	Interval time.Duration

	// FlushTimeout is the maximum time for a single flush
	FlushTimeout time.Duration
}

// DefaultAutosaveSchedulerConfig returns default configuration
func DefaultAutosaveSchedulerConfig() AutosaveSchedulerConfig {
	return AutosaveSchedulerConfig{
		Interval:     10 * time.Second,
		FlushTimeout: 30 * time.Second,
	}
}

// NewAutosaveScheduler creates a new autosave scheduler around a flush
// operation
func NewAutosaveScheduler(
	flush func(ctx context.Context) error,
	logger *zap.Logger,
	config AutosaveSchedulerConfig,
) *AutosaveScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultAutosaveSchedulerConfig().Interval
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = DefaultAutosaveSchedulerConfig().FlushTimeout
	}
	return &AutosaveScheduler{
		flush:  flush,
		logger: logger,
		config: config,
	}
}

// Start starts the recurring flush loop. Starting twice is a no-op.
func (s *AutosaveScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Debug("autosave scheduler started",
		zap.Duration("interval", s.config.Interval),
	)

	return nil
}

// Stop cancels the flush loop and waits for it to drain. Stopping an
// already-stopped scheduler is a no-op.
func (s *AutosaveScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Debug("autosave scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("autosave scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *AutosaveScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.executeFlush(ctx)
		}
	}
}

func (s *AutosaveScheduler) executeFlush(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(ctx, s.config.FlushTimeout)
	defer cancel()

	if err := s.flush(flushCtx); err != nil {
		// The flush reports the failure itself; the loop keeps ticking
		// so the next attempt retries.
		s.logger.Debug("scheduled flush failed", zap.Error(err))
	}
}
