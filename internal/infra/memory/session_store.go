package memory

import (
	"context"
	"sync"
	"time"

	"quiz-bot/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository keyed by user.
// A positive idleTimeout makes sessions without events for that long behave as absent.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*app.Session
	idleTimeout time.Duration
	clock       func() time.Time
}

func NewSessionStore(idleTimeout time.Duration) *SessionStore {
	return NewSessionStoreWithClock(idleTimeout, time.Now)
}

// NewSessionStoreWithClock is used by tests to control expiry.
func NewSessionStoreWithClock(idleTimeout time.Duration, clock func() time.Time) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*app.Session),
		idleTimeout: idleTimeout,
		clock:       clock,
	}
}

func (s *SessionStore) Replace(_ context.Context, userID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.sessions[userID]; ok {
		old.Close()
	}
	session := app.NewSessionWithClock(userID, s.clock)
	s.sessions[userID] = session
	return session
}

func (s *SessionStore) Get(_ context.Context, userID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok || session.IsClosed() {
		return nil, false
	}
	if s.expired(session) {
		session.Close()
		s.remove(userID, session)
		return nil, false
	}
	return session, true
}

// Save is a no-op: the map already holds the live session.
func (s *SessionStore) Save(context.Context, *app.Session) {}

func (s *SessionStore) Delete(_ context.Context, userID string, session *app.Session) {
	s.remove(userID, session)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	if s.idleTimeout <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for userID, session := range s.sessions {
		if session.IsClosed() || s.expired(session) {
			session.Close()
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(session *app.Session) bool {
	return s.idleTimeout > 0 && session.IdleFor(s.clock()) > s.idleTimeout
}

func (s *SessionStore) remove(userID string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[userID]; ok && current == session {
		delete(s.sessions, userID)
	}
}
