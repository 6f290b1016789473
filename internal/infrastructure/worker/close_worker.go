package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gsblab/gsb-frais/internal/domain/period"
)

// SystemActor attributes lifecycle events raised by background jobs
const SystemActor = "system"

// ReportCloser closes open reports left behind in past months
type ReportCloser interface {
	CloseMonthsBefore(ctx context.Context, month, actor string) (int, error)
}

// CloseWorkerConfig holds configuration for the month close worker
type CloseWorkerConfig struct {
	Interval time.Duration
	Clock    func() time.Time
}

// CloseWorker periodically closes open reports of months before the current one,
// so accountants can review them even when the visitor never starts a new month.
type CloseWorker struct {
	config CloseWorkerConfig
	closer ReportCloser
	logger *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	sweeps    int
	closed    int
}

// NewCloseWorker creates a new month close worker
func NewCloseWorker(config CloseWorkerConfig, closer ReportCloser, logger *zap.Logger) *CloseWorker {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &CloseWorker{config: config, closer: closer, logger: logger}
}

// Start runs a first sweep immediately, then one per interval
func (w *CloseWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("close worker already running")
	}

	var runCtx context.Context
	runCtx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("CloseWorker started", zap.Duration("interval", w.config.Interval))
	go w.loop(runCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (w *CloseWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.mu.Lock()
	sweeps, closed := w.sweeps, w.closed
	w.mu.Unlock()
	w.logger.Info("CloseWorker stopped", zap.Int("sweeps", sweeps), zap.Int("closed", closed))
	return nil
}

// Name returns the worker name for identification
func (w *CloseWorker) Name() string {
	return "CloseWorker"
}

func (w *CloseWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep closes the open reports of every month before the current one
func (w *CloseWorker) sweep(ctx context.Context) {
	month := period.FromTime(w.config.Clock()).String()

	count, err := w.closer.CloseMonthsBefore(ctx, month, SystemActor)
	if err != nil {
		w.logger.Error("Month close sweep failed", zap.String("mois", month), zap.Error(err))
	}

	w.mu.Lock()
	w.sweeps++
	w.closed += count
	w.mu.Unlock()

	if count > 0 {
		w.logger.Info("Closed reports of past months",
			zap.String("before", month),
			zap.Int("count", count))
	}
}
