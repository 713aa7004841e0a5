package worker

import (
	"context"
	"sync"
	"time"

	"github.com/joacominatel/facade/internal/infrastructure/logging"
)

// Purger deletes notes older than maxAge. Each call must manage its own unit
// of work, since the worker runs outside any request.
type Purger interface {
	Execute(ctx context.Context, maxAge time.Duration) (int64, error)
}

// MetricsRecorder abstracts prometheus metrics for the retention worker.
// keeps worker decoupled from metrics package.
type MetricsRecorder interface {
	RecordRetentionRun(purged int64, durationSeconds float64)
}

// RetentionWorkerConfig holds configuration for the retention worker.
type RetentionWorkerConfig struct {
	// MaxAge is how long a note is kept.
	MaxAge time.Duration

	// Interval is the time between runs.
	Interval time.Duration

	// RunTimeout bounds a single run.
	RunTimeout time.Duration
}

// DefaultRetentionWorkerConfig returns sensible defaults.
func DefaultRetentionWorkerConfig() RetentionWorkerConfig {
	return RetentionWorkerConfig{
		MaxAge:     30 * 24 * time.Hour,
		Interval:   time.Hour,
		RunTimeout: time.Minute,
	}
}

// RetentionWorker periodically purges expired notes.
type RetentionWorker struct {
	purger  Purger
	config  RetentionWorkerConfig
	logger  *logging.Logger
	metrics MetricsRecorder

	wg       sync.WaitGroup
	stopOnce sync.Once
	quit     chan struct{}
	stopped  chan struct{}
}

// NewRetentionWorker creates a new retention worker.
func NewRetentionWorker(purger Purger, config RetentionWorkerConfig, logger *logging.Logger) *RetentionWorker {
	defaults := DefaultRetentionWorkerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = defaults.RunTimeout
	}
	if config.MaxAge <= 0 {
		config.MaxAge = defaults.MaxAge
	}
	return &RetentionWorker{
		purger:  purger,
		config:  config,
		logger:  logger.WithComponent("retention_worker"),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// WithMetrics sets the metrics recorder for observability.
func (w *RetentionWorker) WithMetrics(m MetricsRecorder) *RetentionWorker {
	w.metrics = m
	return w
}

// Start begins the worker goroutine. the first run happens after one interval.
func (w *RetentionWorker) Start(ctx context.Context) {
	w.logger.Info("retention worker starting",
		"max_age", w.config.MaxAge.String(),
		"interval", w.config.Interval.String(),
	)

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop shuts down the worker, waiting for an in-flight run to finish.
func (w *RetentionWorker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("retention worker stopping")
		close(w.quit)
		w.wg.Wait()
		close(w.stopped)
		w.logger.Info("retention worker stopped")
	})
}

// Stopped returns a channel that closes when the worker has fully stopped.
func (w *RetentionWorker) Stopped() <-chan struct{} {
	return w.stopped
}

func (w *RetentionWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-w.quit:
			return
		case <-ctx.Done():
			w.logger.Debug("worker exiting on context cancel")
			return
		}
	}
}

// RunOnce performs a single purge and returns how many notes went.
// failures are logged, the next tick tries again.
func (w *RetentionWorker) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, w.config.RunTimeout)
	defer cancel()

	start := time.Now()
	purged, err := w.purger.Execute(ctx, w.config.MaxAge)
	duration := time.Since(start)

	if err != nil {
		w.logger.Error("retention run failed",
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return 0
	}

	if w.metrics != nil {
		w.metrics.RecordRetentionRun(purged, duration.Seconds())
	}
	w.logger.Debug("retention run completed",
		"purged", purged,
		"duration_ms", duration.Milliseconds(),
	)
	return purged
}
