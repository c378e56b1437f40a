package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-bot/internal/app"
	"quiz-bot/internal/domain"
)

// SessionStore is a Redis-backed implementation of app.SessionRepository.
// Notes:
//   - Live sessions stay in a local map so every event of a user mutates the same
//     *app.Session under its mutex.
//   - Each mutation snapshots the session into Redis with a TTL, so an attempt
//     survives a restart and is dropped after ttl without events.
//   - A local miss hydrates from the snapshot.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	log      *slog.Logger
	mu       sync.Mutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, log *slog.Logger) *SessionStore {
	if log == nil {
		log = slog.Default()
	}
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		log:      log,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Replace(ctx context.Context, userID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.sessions[userID]; ok {
		old.Close()
	}
	session := app.NewSession(userID)
	s.sessions[userID] = session
	return session
}

func (s *SessionStore) Get(ctx context.Context, userID string) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[userID]; ok && !session.IsClosed() {
		// the local copy is authoritative, but the key expiring means the user went idle
		if s.ttl > 0 {
			n, err := s.client.Exists(ctx, s.key(userID)).Result()
			if err == nil && n == 0 {
				session.Close()
				delete(s.sessions, userID)
				return nil, false
			}
		}
		return session, true
	}

	session, err := s.hydrate(ctx, userID)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("session snapshot unreadable", "user", userID, "err", err)
		}
		return nil, false
	}
	s.sessions[userID] = session
	return session, true
}

// Save writes the session snapshot with a fresh TTL. Failures are logged; the
// in-process session keeps working. A session that is closed or no longer the
// user's current one is not written, so a late Save cannot revive it.
func (s *SessionStore) Save(ctx context.Context, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[session.UserID()]; !ok || current != session || session.IsClosed() {
		return
	}

	raw, err := json.Marshal(session.Snapshot())
	if err != nil {
		s.log.Warn("encode session snapshot", "user", session.UserID(), "err", err)
		return
	}
	if err := s.client.Set(ctx, s.key(session.UserID()), raw, s.ttl).Err(); err != nil {
		s.log.Warn("store session snapshot", "user", session.UserID(), "err", err)
	}
}

func (s *SessionStore) Delete(ctx context.Context, userID string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[userID]
	if ok && current != session {
		return
	}
	delete(s.sessions, userID)
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		s.log.Warn("delete session snapshot", "user", userID, "err", err)
	}
}

func (s *SessionStore) hydrate(ctx context.Context, userID string) (*app.Session, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		return nil, err
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return app.RestoreSession(snap, time.Now), nil
}

func (s *SessionStore) key(userID string) string {
	return "quiz:session:" + userID
}
