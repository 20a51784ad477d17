package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reportflow/reportflow/internal/domain/event"
	"github.com/reportflow/reportflow/internal/domain/workflow"
)

// MockStateApplier records applied events and can fail a fixed number of
// times before succeeding.
type MockStateApplier struct {
	mu           sync.Mutex
	applied      []*event.Event
	callCount    int
	failuresLeft int
	applyDelay   time.Duration
}

func (m *MockStateApplier) Apply(ctx context.Context, evt *event.Event) error {
	if m.applyDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.applyDelay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.failuresLeft > 0 {
		m.failuresLeft--
		return errors.New("transient store error")
	}
	m.applied = append(m.applied, evt)
	return nil
}

func (m *MockStateApplier) AppliedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}

func (m *MockStateApplier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func testWorkerConfig() StateChangeWorkerConfig {
	return StateChangeWorkerConfig{
		QueueSize:    4,
		MaxAttempts:  3,
		RetryBackoff: 5 * time.Millisecond,
		ApplyTimeout: time.Second,
	}
}

func TestStateChangeWorker_AppliesQueuedEvents(t *testing.T) {
	applier := &MockStateApplier{}
	w := NewStateChangeWorker(testWorkerConfig(), applier, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	evt := event.NewStateChanged(1, 2, workflow.StateReviewed)
	require.NoError(t, w.Enqueue(evt))

	waitFor(t, time.Second, func() bool { return applier.AppliedCount() == 1 })

	applier.mu.Lock()
	defer applier.mu.Unlock()
	assert.Equal(t, evt.ID, applier.applied[0].ID)
}

func TestStateChangeWorker_RetriesUntilSuccess(t *testing.T) {
	applier := &MockStateApplier{failuresLeft: 2}
	w := NewStateChangeWorker(testWorkerConfig(), applier, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, w.Enqueue(event.NewStateChanged(1, 2, workflow.StateReviewed)))

	waitFor(t, time.Second, func() bool { return applier.AppliedCount() == 1 })
	assert.Equal(t, 3, applier.CallCount())
}

func TestStateChangeWorker_GivesUpAfterMaxAttempts(t *testing.T) {
	applier := &MockStateApplier{failuresLeft: 10}
	w := NewStateChangeWorker(testWorkerConfig(), applier, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, w.Enqueue(event.NewStateChanged(1, 2, workflow.StateReviewed)))

	waitFor(t, time.Second, func() bool { return applier.CallCount() == 3 })

	// Give the worker a beat to confirm it does not keep retrying
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 3, applier.CallCount())
	assert.Zero(t, applier.AppliedCount())
}

func TestStateChangeWorker_EnqueueBeforeStartFails(t *testing.T) {
	w := NewStateChangeWorker(testWorkerConfig(), &MockStateApplier{}, zap.NewNop())

	err := w.Enqueue(event.NewStateChanged(1, 2, workflow.StateReviewed))

	assert.Error(t, err)
}

func TestStateChangeWorker_EnqueueAfterStopFails(t *testing.T) {
	w := NewStateChangeWorker(testWorkerConfig(), &MockStateApplier{}, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())

	err := w.Enqueue(event.NewStateChanged(1, 2, workflow.StateReviewed))

	assert.Error(t, err)
}

func TestStateChangeWorker_FullQueueRejectsInsteadOfBlocking(t *testing.T) {
	cfg := testWorkerConfig()
	cfg.QueueSize = 1

	// A slow applier keeps the drain loop busy so the queue stays full
	applier := &MockStateApplier{applyDelay: 200 * time.Millisecond}
	w := NewStateChangeWorker(cfg, applier, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	var failed bool
	for i := 0; i < 5; i++ {
		if err := w.Enqueue(event.NewStateChanged(int64(i), 2, workflow.StateReviewed)); err != nil {
			failed = true
			break
		}
	}

	assert.True(t, failed, "expected an enqueue to be rejected once the queue filled")
}

func TestStateChangeWorker_DoubleStartFails(t *testing.T) {
	w := NewStateChangeWorker(testWorkerConfig(), &MockStateApplier{}, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestStateChangeWorker_StopIsIdempotent(t *testing.T) {
	w := NewStateChangeWorker(testWorkerConfig(), &MockStateApplier{}, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestManager(t *testing.T) {
	t.Run("starts and stops registered workers", func(t *testing.T) {
		m := NewManager(zap.NewNop())
		w := NewStateChangeWorker(testWorkerConfig(), &MockStateApplier{}, zap.NewNop())
		m.Register(w)

		require.Equal(t, 1, m.WorkerCount())
		require.NoError(t, m.StartAll(context.Background()))
		assert.True(t, m.IsRunning())

		require.NoError(t, m.StopAll())
		assert.False(t, m.IsRunning())
	})
}
