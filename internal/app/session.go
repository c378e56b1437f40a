package app

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-bot/internal/domain"
)

const idle = -1

// tokenLen is how much of the session id is echoed back by chat buttons.
const tokenLen = 8

// position pins an operation to one attempt and question. The zero value
// matches whatever question the session is on.
type position struct {
	pinned  bool
	attempt string
	index   int
}

func at(attempt string, index int) position {
	return position{pinned: true, attempt: attempt, index: index}
}

// Session is one user's in-progress attempt. All mutations go through its mutex,
// which serializes events of the same user.
type Session struct {
	id        string
	userID    string
	now       func() time.Time
	mu        sync.Mutex
	current   int
	answers   domain.AttemptAnswers
	startedAt time.Time
	updatedAt time.Time
	closed    bool
}

// NewSession creates a session positioned at the first question.
func NewSession(userID string) *Session {
	return NewSessionWithClock(userID, time.Now)
}

// NewSessionWithClock is used by stores and tests that need deterministic timestamps.
func NewSessionWithClock(userID string, now func() time.Time) *Session {
	started := now()
	return &Session{
		id:        uuid.NewString(),
		userID:    userID,
		now:       now,
		current:   0,
		answers:   make(domain.AttemptAnswers),
		startedAt: started,
		updatedAt: started,
	}
}

// RestoreSession rebuilds a session from a stored snapshot.
func RestoreSession(snap domain.SessionSnapshot, now func() time.Time) *Session {
	answers := snap.Answers.Clone()
	return &Session{
		id:        snap.ID,
		userID:    snap.UserID,
		now:       now,
		current:   snap.Current,
		answers:   answers,
		startedAt: snap.StartedAt,
		updatedAt: snap.UpdatedAt,
	}
}

// ID is a random identifier of this attempt, used for log correlation.
func (s *Session) ID() string {
	return s.id
}

// UserID returns the owner of the session.
func (s *Session) UserID() string {
	return s.userID
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IdleFor reports how long the session has gone without an event.
func (s *Session) IdleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.updatedAt)
}

// Close marks the session as no longer usable. Further operations fail with ErrInvalidState.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// IsClosed reports whether the session was replaced, cancelled or finished.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		ID:        s.id,
		UserID:    s.userID,
		Current:   s.current,
		Answers:   s.answers.Clone(),
		StartedAt: s.startedAt,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) activeLocked(catalog domain.Catalog) bool {
	return !s.closed && s.current >= 0 && s.current < catalog.Len()
}

// answerPicker resolves the submitted value against the current question.
type answerPicker func(question domain.Question) (string, bool)

func byText(answer string) answerPicker {
	return func(q domain.Question) (string, bool) {
		return answer, contains(q.Answers, answer)
	}
}

func byIndex(idx int) answerPicker {
	return func(q domain.Question) (string, bool) {
		if idx < 0 || idx >= len(q.Answers) {
			return "", false
		}
		return q.Answers[idx], true
	}
}

// Token is the short attempt identifier adapters embed in buttons.
func (s *Session) Token() string {
	if len(s.id) < tokenLen {
		return s.id
	}
	return s.id[:tokenLen]
}

// onLocked reports whether the session is active and matches pos.
func (s *Session) onLocked(catalog domain.Catalog, pos position) bool {
	if !s.activeLocked(catalog) {
		return false
	}
	if !pos.pinned {
		return true
	}
	return pos.attempt != "" && pos.attempt == s.Token() && pos.index == s.current
}

// record appends the picked answer to the current question's selection unless it
// is already there.
func (s *Session) record(catalog domain.Catalog, pos position, pick answerPicker) (domain.AnswerProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.onLocked(catalog, pos) {
		return domain.AnswerProgress{}, domain.ErrInvalidState
	}

	question := catalog.Questions[s.current]
	answer, ok := pick(question)
	if !ok {
		return domain.AnswerProgress{}, domain.ErrUnknownAnswer
	}

	selected := s.answers[question.ID]
	if !contains(selected, answer) {
		s.answers[question.ID] = append(selected, answer)
	}
	s.updatedAt = s.now()

	return s.progressLocked(question), nil
}

// progress describes the current question without mutating anything.
func (s *Session) progress(catalog domain.Catalog) (domain.Question, domain.AnswerProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.activeLocked(catalog) {
		return domain.Question{}, domain.AnswerProgress{}, domain.ErrInvalidState
	}
	question := catalog.Questions[s.current]
	return question, s.progressLocked(question), nil
}

func (s *Session) progressLocked(question domain.Question) domain.AnswerProgress {
	selected := append([]string(nil), s.answers[question.ID]...)
	remaining := make([]string, 0, len(question.Answers))
	for _, candidate := range question.Answers {
		if !contains(selected, candidate) {
			remaining = append(remaining, candidate)
		}
	}
	return domain.AnswerProgress{
		Attempt:    s.Token(),
		QuestionID: question.ID,
		Index:      s.current,
		Selected:   selected,
		Remaining:  remaining,
	}
}

// advance moves the pointer forward. When the catalog is exhausted the session is
// closed and the final answers are returned with finished=true.
func (s *Session) advance(catalog domain.Catalog, pos position) (next int, answers domain.AttemptAnswers, finished bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.onLocked(catalog, pos) {
		return idle, nil, false, domain.ErrInvalidState
	}

	s.updatedAt = s.now()
	if s.current+1 < catalog.Len() {
		s.current++
		return s.current, nil, false, nil
	}

	s.current = idle
	s.closed = true
	return idle, s.answers.Clone(), true, nil
}

func contains(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
