// Package session tracks per-conversation state in memory.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Exchange is one completed question/answer turn.
type Exchange struct {
	Query  string
	Answer string
}

// Session is one conversation. State lives only in process memory and is
// lost on restart.
type Session struct {
	ID         string
	History    []Exchange
	CreatedAt  time.Time
	LastActive time.Time
}

// Store manages session lifecycle. Implementations must be safe for
// concurrent use by HTTP handlers.
type Store interface {
	// NewSession creates a session with a fresh unique identifier.
	NewSession() *Session
	// GetOrCreate returns the session with the given id, creating it if
	// unknown. A request carrying an unseen session id starts a fresh
	// conversation under that id rather than failing.
	GetOrCreate(id string) *Session
	// AppendExchange records a completed turn for the session.
	AppendExchange(id string, ex Exchange)
	// History returns a copy of the session's recorded turns, newest last.
	History(id string) []Exchange
	// Len returns the number of live sessions.
	Len() int
}

// MemoryStore is a mutex-guarded in-memory Store with optional TTL eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store. Sessions idle longer than ttl are removed
// by the sweeper; ttl of 0 disables expiry (memory then grows with session
// churn, acceptable only for short-lived deployments).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// NewSession creates a session under a fresh UUID.
func (s *MemoryStore) NewSession() *Session {
	return s.GetOrCreate(uuid.NewString())
}

// GetOrCreate returns the session for id, creating it if absent.
func (s *MemoryStore) GetOrCreate(id string) *Session {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.LastActive = now
		return sess
	}
	sess := &Session{ID: id, CreatedAt: now, LastActive: now}
	s.sessions[id] = sess
	return sess
}

// AppendExchange records a turn; unknown ids create the session first.
func (s *MemoryStore) AppendExchange(id string, ex Exchange) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{ID: id, CreatedAt: now}
		s.sessions[id] = sess
	}
	sess.History = append(sess.History, ex)
	sess.LastActive = now
}

// History returns a copy of the session's turns; nil for unknown ids.
func (s *MemoryStore) History(id string) []Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || len(sess.History) == 0 {
		return nil
	}
	out := make([]Exchange, len(sess.History))
	copy(out, sess.History)
	return out
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle longer than the TTL and returns how many were
// evicted. No-op when TTL is disabled.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// StartSweeper runs Sweep at the given interval until ctx is cancelled.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}
