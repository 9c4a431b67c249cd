package usage

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"worksheet-backend/internal/models"
)

const (
	keyPrefix  = "worksheet_usage:"
	dateLayout = "2006-01-02"
)

// Limiter caps worksheet generations per client per calendar day. It is a
// soft, client-trusted quota: every storage problem lets the request through.
type Limiter struct {
	store Store
	limit int
	loc   *time.Location
	now   func() time.Time
}

type Option func(*Limiter)

// WithLocation sets the timezone whose calendar day the quota resets on.
func WithLocation(loc *time.Location) Option {
	return func(l *Limiter) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func NewLimiter(store Store, limit int, opts ...Option) *Limiter {
	l := &Limiter{
		store: store,
		limit: limit,
		loc:   time.Local,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Limit() int { return l.limit }

func Key(clientID string) string { return keyPrefix + clientID }

func (l *Limiter) today() string {
	return l.now().In(l.loc).Format(dateLayout)
}

// CheckAndConsume counts one generation for today and reports whether it is
// allowed. A refused call leaves the stored record untouched. Two concurrent
// calls for one client can both pass on the same stale count.
func (l *Limiter) CheckAndConsume(ctx context.Context, clientID string) bool {
	if l.store == nil {
		return true
	}

	key := Key(clientID)
	today := l.today()

	raw, found, err := l.store.Load(ctx, key)
	if err != nil {
		log.Printf("usage: load %s failed, allowing request: %v", key, err)
		return true
	}

	rec := models.UsageRecord{Date: today}
	if found {
		if prev, ok := decodeRecord(raw); ok && prev.Date == today {
			rec.Count = prev.Count
		}
	}

	if rec.Count >= l.limit {
		return false
	}

	rec.Count++
	data, _ := json.Marshal(rec)
	if err := l.store.Save(ctx, key, string(data)); err != nil {
		log.Printf("usage: save %s failed, allowing request: %v", key, err)
	}
	return true
}

// Usage returns how many generations the client has used today. Unreadable
// state counts as none.
func (l *Limiter) Usage(ctx context.Context, clientID string) (used, limit int) {
	if l.store == nil {
		return 0, l.limit
	}
	raw, found, err := l.store.Load(ctx, Key(clientID))
	if err != nil || !found {
		return 0, l.limit
	}
	rec, ok := decodeRecord(raw)
	if !ok || rec.Date != l.today() {
		return 0, l.limit
	}
	return rec.Count, l.limit
}

// decodeRecord accepts only the {date, count} shape with a real date and a
// non-negative count. Anything else is treated as absent.
func decodeRecord(raw string) (models.UsageRecord, bool) {
	var rec models.UsageRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return models.UsageRecord{}, false
	}
	if rec.Count < 0 {
		return models.UsageRecord{}, false
	}
	if _, err := time.Parse(dateLayout, rec.Date); err != nil {
		return models.UsageRecord{}, false
	}
	return rec, true
}
