package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/reportflow/reportflow/internal/domain/event"
)

// StateApplier applies a state-change event to the report store
type StateApplier interface {
	Apply(ctx context.Context, evt *event.Event) error
}

// StateChangeWorkerConfig holds configuration for the state change worker
type StateChangeWorkerConfig struct {
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	ApplyTimeout time.Duration
}

// DefaultStateChangeWorkerConfig returns default configuration
func DefaultStateChangeWorkerConfig() StateChangeWorkerConfig {
	return StateChangeWorkerConfig{
		QueueSize:    256,
		MaxAttempts:  3,
		RetryBackoff: 200 * time.Millisecond,
		ApplyTimeout: 5 * time.Second,
	}
}

// StateChangeWorker drains queued state-change events and applies them to
// the report store. Report state is eventually consistent with the engine:
// handlers respond before the worker has applied the event, so reads right
// after a signal may still see the previous state.
type StateChangeWorker struct {
	config  StateChangeWorkerConfig
	applier StateApplier
	logger  *zap.Logger

	queue chan *event.Event

	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	isRunning    bool
	wg           sync.WaitGroup
	appliedCount int
	failedCount  int
	lastError    error
}

// NewStateChangeWorker creates a new state change worker
func NewStateChangeWorker(config StateChangeWorkerConfig, applier StateApplier, logger *zap.Logger) *StateChangeWorker {
	return &StateChangeWorker{
		config:  config,
		applier: applier,
		logger:  logger,
		queue:   make(chan *event.Event, config.QueueSize),
	}
}

// Enqueue hands an event to the worker. Returns an error when the queue is
// full or the worker is not running rather than blocking the caller.
func (w *StateChangeWorker) Enqueue(evt *event.Event) error {
	w.mu.RLock()
	running := w.isRunning
	w.mu.RUnlock()

	if !running {
		return fmt.Errorf("state change worker not running")
	}

	select {
	case w.queue <- evt:
		return nil
	default:
		w.logger.Error("State change queue full, dropping event",
			zap.String("event_id", evt.ID),
			zap.Int64("report_id", evt.ReportID))
		return fmt.Errorf("state change queue full")
	}
}

// Start begins the worker drain loop
func (w *StateChangeWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("state change worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("StateChangeWorker started",
		zap.Int("queue_size", w.config.QueueSize),
		zap.Int("max_attempts", w.config.MaxAttempts))

	w.wg.Add(1)
	go w.drainLoop()

	return nil
}

// Stop gracefully terminates the worker after the in-flight event finishes
func (w *StateChangeWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	w.logger.Info("StateChangeWorker stopped",
		zap.Int("applied_count", w.appliedCount),
		zap.Int("failed_count", w.failedCount))

	return nil
}

// Name returns the worker name for identification
func (w *StateChangeWorker) Name() string {
	return "StateChangeWorker"
}

func (w *StateChangeWorker) drainLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Drain loop context cancelled")
			return

		case evt := <-w.queue:
			if err := w.applyWithRetry(evt); err != nil {
				w.mu.Lock()
				w.failedCount++
				w.lastError = err
				w.mu.Unlock()

				w.logger.Error("Giving up on state change event",
					zap.String("event_id", evt.ID),
					zap.Int64("report_id", evt.ReportID),
					zap.String("new_state", evt.NewState.String()),
					zap.Int("attempts", w.config.MaxAttempts),
					zap.Error(err))
			} else {
				w.mu.Lock()
				w.appliedCount++
				w.mu.Unlock()
			}
		}
	}
}

// applyWithRetry applies one event with bounded retries. The applier is
// idempotent, so re-applying after a partial failure is safe.
func (w *StateChangeWorker) applyWithRetry(evt *event.Event) error {
	var lastErr error

	for attempt := 1; attempt <= w.config.MaxAttempts; attempt++ {
		applyCtx, cancel := context.WithTimeout(w.ctx, w.config.ApplyTimeout)
		err := w.applier.Apply(applyCtx, evt)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		w.logger.Warn("Failed to apply state change, will retry",
			zap.String("event_id", evt.ID),
			zap.Int64("report_id", evt.ReportID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < w.config.MaxAttempts {
			select {
			case <-w.ctx.Done():
				return lastErr
			case <-time.After(w.config.RetryBackoff * time.Duration(attempt)):
			}
		}
	}

	return lastErr
}
