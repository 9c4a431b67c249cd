package usage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksheet-backend/internal/models"
)

const client = "c0ffee00-0000-4000-8000-000000000001"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type brokenStore struct {
	loadErr error
	saveErr error
	saved   int
}

func (s *brokenStore) Load(context.Context, string) (string, bool, error) {
	if s.loadErr != nil {
		return "", false, s.loadErr
	}
	return "", false, nil
}

func (s *brokenStore) Save(context.Context, string, string) error {
	s.saved++
	return s.saveErr
}

func newTestLimiter(store Store, limit int, clock *fakeClock) *Limiter {
	return NewLimiter(store, limit, WithClock(clock.Now), WithLocation(time.UTC))
}

func storedRecord(t *testing.T, store *MemoryStore) models.UsageRecord {
	t.Helper()
	raw, found, err := store.Load(context.Background(), Key(client))
	require.NoError(t, err)
	require.True(t, found)
	var rec models.UsageRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func seed(t *testing.T, store *MemoryStore, value string) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), Key(client), value))
}

func TestCheckAndConsume_AllowsUpToLimit(t *testing.T) {
	for _, limit := range []int{1, 3, 10, 15} {
		store := NewMemoryStore()
		clock := &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
		l := newTestLimiter(store, limit, clock)
		ctx := context.Background()

		for i := 1; i <= limit; i++ {
			require.True(t, l.CheckAndConsume(ctx, client), "call %d of %d", i, limit)
			assert.LessOrEqual(t, storedRecord(t, store).Count, limit)
		}
		assert.False(t, l.CheckAndConsume(ctx, client), "call %d must be refused", limit+1)

		rec := storedRecord(t, store)
		assert.Equal(t, limit, rec.Count)
		assert.Equal(t, "2026-03-14", rec.Date)
	}
}

func TestCheckAndConsume_LastSlot(t *testing.T) {
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	l := newTestLimiter(store, 10, clock)
	seed(t, store, `{"date":"2026-03-14","count":9}`)

	assert.True(t, l.CheckAndConsume(context.Background(), client))
	assert.Equal(t, 10, storedRecord(t, store).Count)

	assert.False(t, l.CheckAndConsume(context.Background(), client))
	assert.Equal(t, 10, storedRecord(t, store).Count)
}

func TestCheckAndConsume_StaleDayResets(t *testing.T) {
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)}
	l := newTestLimiter(store, 10, clock)
	seed(t, store, `{"date":"2026-03-14","count":10}`)

	assert.True(t, l.CheckAndConsume(context.Background(), client))

	rec := storedRecord(t, store)
	assert.Equal(t, 1, rec.Count)
	assert.Equal(t, "2026-03-15", rec.Date)
}

func TestCheckAndConsume_MidnightIsANewDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 14, 23, 59, 0, 0, loc)}
	l := NewLimiter(store, 1, WithClock(clock.Now), WithLocation(loc))

	assert.True(t, l.CheckAndConsume(context.Background(), client))
	assert.False(t, l.CheckAndConsume(context.Background(), client))

	clock.t = time.Date(2026, 3, 15, 0, 1, 0, 0, loc)
	assert.True(t, l.CheckAndConsume(context.Background(), client))
	assert.Equal(t, "2026-03-15", storedRecord(t, store).Date)
}

func TestCheckAndConsume_UsesLimiterLocation(t *testing.T) {
	// 20:00 UTC on the 14th is already the 15th in IST.
	loc := time.FixedZone("IST", 5*3600+1800)
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)}
	l := NewLimiter(store, 5, WithClock(clock.Now), WithLocation(loc))

	require.True(t, l.CheckAndConsume(context.Background(), client))
	assert.Equal(t, "2026-03-15", storedRecord(t, store).Date)
}

func TestCheckAndConsume_CorruptRecordFailsOpen(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "not-json{"},
		{"json array", `[1,2,3]`},
		{"null", `null`},
		{"missing date", `{"count":3}`},
		{"bad date", `{"date":"yesterday","count":3}`},
		{"negative count", `{"date":"2026-03-14","count":-4}`},
		{"wrong types", `{"date":20260314,"count":"3"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := NewMemoryStore()
			clock := &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
			l := newTestLimiter(store, 2, clock)
			seed(t, store, tc.value)

			assert.NotPanics(t, func() {
				assert.True(t, l.CheckAndConsume(context.Background(), client))
			})
			assert.Equal(t, models.UsageRecord{Date: "2026-03-14", Count: 1}, storedRecord(t, store))
		})
	}
}

func TestCheckAndConsume_MissingRecord(t *testing.T) {
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	l := newTestLimiter(store, 2, clock)

	assert.True(t, l.CheckAndConsume(context.Background(), client))
	assert.Equal(t, 1, storedRecord(t, store).Count)
}

func TestCheckAndConsume_StorageUnavailableFailsOpen(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}

	loadFails := &brokenStore{loadErr: errors.New("connection refused")}
	l := newTestLimiter(loadFails, 1, clock)
	for i := 0; i < 5; i++ {
		assert.True(t, l.CheckAndConsume(context.Background(), client))
	}
	assert.Zero(t, loadFails.saved, "nothing is written when the record cannot be read")

	saveFails := &brokenStore{saveErr: errors.New("read-only replica")}
	l = newTestLimiter(saveFails, 1, clock)
	assert.True(t, l.CheckAndConsume(context.Background(), client))

	assert.True(t, NewLimiter(nil, 0).CheckAndConsume(context.Background(), client))
}

func TestCheckAndConsume_ClientsAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	l := newTestLimiter(store, 1, clock)

	assert.True(t, l.CheckAndConsume(context.Background(), "a"))
	assert.False(t, l.CheckAndConsume(context.Background(), "a"))
	assert.True(t, l.CheckAndConsume(context.Background(), "b"))
}

func TestUsage(t *testing.T) {
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	l := newTestLimiter(store, 10, clock)

	used, limit := l.Usage(context.Background(), client)
	assert.Equal(t, 0, used)
	assert.Equal(t, 10, limit)

	l.CheckAndConsume(context.Background(), client)
	l.CheckAndConsume(context.Background(), client)
	used, _ = l.Usage(context.Background(), client)
	assert.Equal(t, 2, used)

	clock.t = clock.t.Add(24 * time.Hour)
	used, _ = l.Usage(context.Background(), client)
	assert.Equal(t, 0, used, "yesterday's record does not count")

	seed(t, store, "garbage")
	used, _ = l.Usage(context.Background(), client)
	assert.Equal(t, 0, used)
}
