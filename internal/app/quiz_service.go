package app

import (
	"context"
	"log/slog"

	"quiz-bot/internal/domain"
)

// SessionRepository abstracts how in-progress sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	// Replace starts a fresh session for userID, closing any previous one.
	Replace(ctx context.Context, userID string) *Session
	// Get returns the user's open session.
	Get(ctx context.Context, userID string) (*Session, bool)
	// Save is called after every mutation so durable stores can snapshot the state.
	Save(ctx context.Context, session *Session)
	// Delete drops session if it is still the user's current one.
	Delete(ctx context.Context, userID string, session *Session)
}

// QuizService contains the quiz use cases the chat adapters call into.
type QuizService struct {
	catalog  domain.Catalog
	sessions SessionRepository
	results  *ResultsStore
	observer Observer
	log      *slog.Logger
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithObserver attaches lifecycle observers.
func WithObserver(o Observer) Option {
	return func(s *QuizService) { s.observer = o }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *QuizService) { s.log = l }
}

func NewQuizService(catalog domain.Catalog, sessions SessionRepository, results *ResultsStore, opts ...Option) *QuizService {
	s := &QuizService{
		catalog:  catalog,
		sessions: sessions,
		results:  results,
		observer: NopObserver{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the read-only question catalog.
func (s *QuizService) Catalog() domain.Catalog {
	return s.catalog
}

// StartQuiz begins (or restarts) the user's attempt and returns the first question.
func (s *QuizService) StartQuiz(ctx context.Context, userID string) (domain.Question, error) {
	if s.catalog.Len() == 0 {
		return domain.Question{}, domain.ErrEmptyCatalog
	}

	session := s.sessions.Replace(ctx, userID)
	s.sessions.Save(ctx, session)

	s.log.Info("quiz started", "user", userID, "session", session.ID())
	s.observer.QuizStarted(ctx, userID)
	return s.catalog.Questions[0], nil
}

// SubmitAnswer records answer for the current question. Selecting an answer twice is a no-op.
func (s *QuizService) SubmitAnswer(ctx context.Context, userID, answer string) (domain.AnswerProgress, error) {
	return s.submit(ctx, userID, position{}, byText(answer))
}

// SubmitAnswerIndex records the candidate answer at idx of the current question.
func (s *QuizService) SubmitAnswerIndex(ctx context.Context, userID string, idx int) (domain.AnswerProgress, error) {
	return s.submit(ctx, userID, position{}, byIndex(idx))
}

// SubmitAnswerAt records the candidate answer at idx of question questionIdx of
// the attempt identified by token (see AnswerProgress.Attempt). It fails with
// ErrInvalidState unless that attempt is open and on that question, so a button
// left on an older message cannot answer the current one.
func (s *QuizService) SubmitAnswerAt(ctx context.Context, userID, token string, questionIdx, idx int) (domain.AnswerProgress, error) {
	return s.submit(ctx, userID, at(token, questionIdx), byIndex(idx))
}

func (s *QuizService) submit(ctx context.Context, userID string, pos position, pick answerPicker) (domain.AnswerProgress, error) {
	session, err := s.lookup(ctx, userID)
	if err != nil {
		return domain.AnswerProgress{}, err
	}

	progress, err := session.record(s.catalog, pos, pick)
	if err != nil {
		s.log.Debug("answer rejected", "user", userID, "err", err)
		return domain.AnswerProgress{}, err
	}
	s.sessions.Save(ctx, session)

	s.observer.AnswerRecorded(ctx, userID, progress.QuestionID)
	return progress, nil
}

// Current returns the question the user is on and what has been selected so far.
func (s *QuizService) Current(ctx context.Context, userID string) (domain.Question, domain.AnswerProgress, error) {
	session, err := s.lookup(ctx, userID)
	if err != nil {
		return domain.Question{}, domain.AnswerProgress{}, err
	}
	return session.progress(s.catalog)
}

// Advance moves to the next question. Past the last question the attempt is scored,
// persisted and the session cleared; the finished result is returned even when
// persisting fails (Persisted is false in that case).
func (s *QuizService) Advance(ctx context.Context, userID string) (domain.AdvanceResult, error) {
	return s.advance(ctx, userID, position{})
}

// AdvanceFrom is Advance pinned to one attempt and question like SubmitAnswerAt;
// a mismatch returns ErrInvalidState and leaves the session untouched.
func (s *QuizService) AdvanceFrom(ctx context.Context, userID, token string, questionIdx int) (domain.AdvanceResult, error) {
	return s.advance(ctx, userID, at(token, questionIdx))
}

func (s *QuizService) advance(ctx context.Context, userID string, pos position) (domain.AdvanceResult, error) {
	session, err := s.lookup(ctx, userID)
	if err != nil {
		return domain.AdvanceResult{}, err
	}

	next, answers, finished, err := session.advance(s.catalog, pos)
	if err != nil {
		return domain.AdvanceResult{}, err
	}

	if !finished {
		s.sessions.Save(ctx, session)
		question := s.catalog.Questions[next]
		return domain.AdvanceResult{Attempt: session.Token(), Next: &question, Index: next}, nil
	}

	s.sessions.Delete(ctx, userID, session)
	result := s.finish(ctx, userID, answers)
	s.log.Info("quiz finished", "user", userID, "session", session.ID(), "score", result.Score, "persisted", result.Persisted)
	return domain.AdvanceResult{Index: idle, Finished: &result}, nil
}

func (s *QuizService) finish(ctx context.Context, userID string, answers domain.AttemptAnswers) domain.AttemptResult {
	score, err := s.results.SaveAttempt(ctx, userID, answers)
	result := domain.AttemptResult{
		UserID:    userID,
		Answers:   answers,
		Grades:    Grade(answers, s.catalog),
		Score:     score,
		Total:     s.catalog.Len(),
		Persisted: err == nil,
	}
	if err != nil {
		s.log.Error("results not saved", "user", userID, "score", score, "answers", answers, "err", err)
		s.observer.PersistenceFailed(ctx, userID, err)
	}
	s.observer.QuizFinished(ctx, result)
	return result
}

// Cancel discards the user's attempt without scoring it. It reports whether a
// session was active.
func (s *QuizService) Cancel(ctx context.Context, userID string) bool {
	session, ok := s.sessions.Get(ctx, userID)
	if !ok {
		return false
	}
	session.Close()
	s.sessions.Delete(ctx, userID, session)

	s.log.Info("quiz cancelled", "user", userID, "session", session.ID())
	s.observer.QuizCancelled(ctx, userID)
	return true
}

// GetResults returns the user's latest stored attempt and the aggregate statistics.
// domain.ErrResultsUnavailable is propagated; adapters decide whether it means "empty".
func (s *QuizService) GetResults(ctx context.Context, userID string) (domain.UserResults, error) {
	answers, ok, aggregate, err := s.results.UserAttempt(ctx, userID)
	if err != nil {
		return domain.UserResults{}, err
	}

	out := domain.UserResults{Aggregate: aggregate}
	if ok {
		out.Attempt = &domain.AttemptResult{
			UserID:    userID,
			Answers:   answers,
			Grades:    Grade(answers, s.catalog),
			Score:     CountScore(answers, s.catalog),
			Total:     s.catalog.Len(),
			Persisted: true,
		}
	}
	return out, nil
}

// AggregateStats exposes the results aggregate for reporting surfaces.
func (s *QuizService) AggregateStats(ctx context.Context) (domain.AggregateStats, error) {
	return s.results.AggregateStats(ctx)
}

// Document returns the reference document with the given id.
func (s *QuizService) Document(documentID string) (domain.Document, error) {
	doc, ok := s.catalog.Document(documentID)
	if !ok {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *QuizService) lookup(ctx context.Context, userID string) (*Session, error) {
	session, ok := s.sessions.Get(ctx, userID)
	if !ok {
		return nil, domain.ErrInvalidState
	}
	return session, nil
}
