package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrForbidden = errors.New("session belongs to another client")
)

type entry struct {
	sess     *Session
	lastSeen time.Time
}

// Store keeps sessions in memory. Sessions idle for longer than ttl are
// evicted by a background sweep; nothing survives a restart.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

func NewStore(ttl time.Duration) *Store {
	s := &Store{
		sessions: make(map[uuid.UUID]*entry),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	// Cleanup goroutine
	go func() {
		ticker := time.NewTicker(sweepInterval(ttl))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.Evict(); n > 0 {
					log.Printf("session: evicted %d idle sessions", n)
				}
			case <-s.stop:
				return
			}
		}
	}()

	return s
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}
	if d := ttl / 4; d >= time.Second {
		return d
	}
	return time.Second
}

func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) Add(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = &entry{sess: sess, lastSeen: s.now()}
	s.mu.Unlock()
}

// Get returns the session if it exists and is owned by clientID.
func (s *Store) Get(id uuid.UUID, clientID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.sess.ClientID != clientID {
		return nil, ErrForbidden
	}
	e.lastSeen = s.now()
	return e.sess, nil
}

func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict removes sessions not touched within ttl and reports how many went.
func (s *Store) Evict() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
