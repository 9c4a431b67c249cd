package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksheet-backend/internal/models"
)

type flakyWriter struct {
	mu       sync.Mutex
	failures map[uuid.UUID]int
	attempts map[uuid.UUID]int
	written  []uuid.UUID
}

func newFlakyWriter() *flakyWriter {
	return &flakyWriter{failures: map[uuid.UUID]int{}, attempts: map[uuid.UUID]int{}}
}

func (w *flakyWriter) Record(_ context.Context, e *models.GenerationEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[e.ID]++
	if w.attempts[e.ID] <= w.failures[e.ID] {
		return errors.New("connection refused")
	}
	w.written = append(w.written, e.ID)
	return nil
}

func (w *flakyWriter) snapshot() ([]uuid.UUID, map[uuid.UUID]int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	attempts := make(map[uuid.UUID]int, len(w.attempts))
	for k, v := range w.attempts {
		attempts[k] = v
	}
	return append([]uuid.UUID(nil), w.written...), attempts
}

func event() *models.GenerationEvent {
	return &models.GenerationEvent{ID: uuid.New(), ClientID: "c", Outcome: models.OutcomeSuccess}
}

func TestPool_WritesAndRetries(t *testing.T) {
	writer := newFlakyWriter()
	pool := NewPool(writer, 2, 10)
	pool.backoff = time.Millisecond

	ok, flaky, doomed := event(), event(), event()
	writer.failures[flaky.ID] = 2
	writer.failures[doomed.ID] = 5

	pool.Start()
	for _, e := range []*models.GenerationEvent{ok, flaky, doomed} {
		require.NoError(t, pool.Record(context.Background(), e))
	}
	pool.Stop()

	written, attempts := writer.snapshot()
	assert.ElementsMatch(t, []uuid.UUID{ok.ID, flaky.ID}, written)
	assert.Equal(t, 1, attempts[ok.ID])
	assert.Equal(t, 3, attempts[flaky.ID])
	assert.Equal(t, 3, attempts[doomed.ID], "gives up after max retries")
}

func TestPool_QueueFullAndStopped(t *testing.T) {
	pool := NewPool(newFlakyWriter(), 1, 1)

	require.NoError(t, pool.Record(context.Background(), event()))
	assert.ErrorIs(t, pool.Record(context.Background(), event()), ErrQueueFull)

	pool.Start()
	pool.Stop()
	assert.ErrorIs(t, pool.Record(context.Background(), event()), ErrStopped)
}
