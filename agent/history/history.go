// Package history keeps per-session conversation logs. Sessions are created
// lazily on first access and live for the process lifetime unless a TTL is
// configured.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/codcoz/chefia/agent/contract"
)

// Store is the history contract used by the flow controller.
type Store interface {
	// GetOrCreate returns the session for the id, creating it on first
	// access. Calling it twice with the same id yields the same session.
	GetOrCreate(sessionID string) *Session
	// Append adds one message to the session's log, creating the session if
	// needed. Insertion order is preserved.
	Append(sessionID string, msg contractx.Message)
}

// Session is one conversation's append-only message log. Lock/Unlock guard a
// whole turn so concurrent turns against the same session serialize; Append
// has its own lock and stays safe either way.
type Session struct {
	id string

	turnMu sync.Mutex

	mu       sync.Mutex
	messages []contractx.Message
	touched  time.Time
}

func (s *Session) ID() string { return s.id }

// Lock serializes a full turn against this session.
func (s *Session) Lock() { s.turnMu.Lock() }

func (s *Session) Unlock() { s.turnMu.Unlock() }

func (s *Session) Append(msg contractx.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	s.messages = append(s.messages, msg)
	s.touched = time.Now()
}

// Messages returns a copy of the log; callers never see internal state.
func (s *Session) Messages() []contractx.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contractx.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) lastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// StoreOption customizes MemoryStore.
type StoreOption func(*MemoryStore)

// WithTTL enables idle eviction. Zero keeps sessions forever (the default).
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) GetOrCreate(sessionID string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}
	sess = &Session{id: sessionID, touched: time.Now()}
	s.sessions[sessionID] = sess
	return sess
}

func (s *MemoryStore) Append(sessionID string, msg contractx.Message) {
	s.GetOrCreate(sessionID).Append(msg)
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunJanitor sweeps idle sessions on the interval until the context ends.
// It is a no-op when no TTL is configured.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(time.Now()); n > 0 {
				log.Debug().Int("evicted", n).Msg("history janitor sweep")
			}
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastTouched()) <= s.ttl {
			continue
		}
		// A held turn lock means a turn is still in flight against this
		// session; it gets another sweep interval.
		if !sess.turnMu.TryLock() {
			continue
		}
		delete(s.sessions, id)
		sess.turnMu.Unlock()
		evicted++
	}
	return evicted
}
