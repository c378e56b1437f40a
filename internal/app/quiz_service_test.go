package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-bot/internal/app"
	"quiz-bot/internal/domain"
	"quiz-bot/internal/infra/memory"
)

func TestQuizFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	service, results, _ := newTestService()

	q, err := service.StartQuiz(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "q1", q.ID)

	progress, err := service.SubmitAnswer(ctx, "u", "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, progress.Selected)
	assert.Equal(t, []string{"B", "C"}, progress.Remaining)

	adv, err := service.Advance(ctx, "u")
	require.NoError(t, err)
	require.NotNil(t, adv.Next)
	assert.Equal(t, "q2", adv.Next.ID)
	assert.Nil(t, adv.Finished)

	_, err = service.SubmitAnswer(ctx, "u", "Y")
	require.NoError(t, err)
	progress, err = service.SubmitAnswer(ctx, "u", "X")
	require.NoError(t, err)
	assert.Equal(t, []string{"Y", "X"}, progress.Selected)

	adv, err = service.Advance(ctx, "u")
	require.NoError(t, err)
	require.NotNil(t, adv.Finished)
	assert.Nil(t, adv.Next)
	assert.Equal(t, 1, adv.Finished.Score)
	assert.Equal(t, 2, adv.Finished.Total)
	assert.True(t, adv.Finished.Persisted)
	assert.Equal(t, domain.AttemptAnswers{"q1": {"A"}, "q2": {"Y", "X"}}, adv.Finished.Answers)

	stored, err := results.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Totals["u"])
	assert.Equal(t, domain.AttemptAnswers{"q1": {"A"}, "q2": {"Y", "X"}}, stored.Results["u"])

	// the session is gone after finishing
	_, err = service.Advance(ctx, "u")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSubmitAnswerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()

	_, err := service.StartQuiz(ctx, "u")
	require.NoError(t, err)

	_, err = service.SubmitAnswer(ctx, "u", "B")
	require.NoError(t, err)
	progress, err := service.SubmitAnswer(ctx, "u", "B")
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, progress.Selected)
}

func TestSubmitAnswerIndex(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()

	_, err := service.StartQuiz(ctx, "u")
	require.NoError(t, err)

	progress, err := service.SubmitAnswerIndex(ctx, "u", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, progress.Selected)

	_, err = service.SubmitAnswerIndex(ctx, "u", 7)
	assert.ErrorIs(t, err, domain.ErrUnknownAnswer)
}

func TestSubmitUnknownAnswerDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()

	_, err := service.StartQuiz(ctx, "u")
	require.NoError(t, err)

	_, err = service.SubmitAnswer(ctx, "u", "not offered")
	assert.ErrorIs(t, err, domain.ErrUnknownAnswer)

	_, progress, err := service.Current(ctx, "u")
	require.NoError(t, err)
	assert.Empty(t, progress.Selected)
}

func TestOperationsWithoutSessionAreInvalid(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()

	_, err := service.SubmitAnswer(ctx, "nobody", "A")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = service.Advance(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, _, err = service.Current(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	assert.False(t, service.Cancel(ctx, "nobody"))
}

func TestCancelDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	service, results, _ := newTestService()

	_, err := service.StartQuiz(ctx, "u")
	require.NoError(t, err)
	_, err = service.SubmitAnswer(ctx, "u", "A")
	require.NoError(t, err)

	assert.True(t, service.Cancel(ctx, "u"))

	stored, err := results.ReadAll(ctx)
	require.NoError(t, err)
	assert.NotContains(t, stored.Results, "u")
	assert.NotContains(t, stored.Totals, "u")

	_, err = service.Advance(ctx, "u")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestStartQuizResetsProgress(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()

	_, err := service.StartQuiz(ctx, "u")
	require.NoError(t, err)
	_, err = service.SubmitAnswer(ctx, "u", "A")
	require.NoError(t, err)
	_, err = service.Advance(ctx, "u")
	require.NoError(t, err)

	q, err := service.StartQuiz(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "q1", q.ID)

	current, progress, err := service.Current(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "q1", current.ID)
	assert.Empty(t, progress.Selected)
}

func TestAdvanceWithoutAnswersScoresZero(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()

	_, err := service.StartQuiz(ctx, "u")
	require.NoError(t, err)
	_, err = service.Advance(ctx, "u")
	require.NoError(t, err)
	adv, err := service.Advance(ctx, "u")
	require.NoError(t, err)

	require.NotNil(t, adv.Finished)
	assert.Equal(t, 0, adv.Finished.Score)
	assert.Empty(t, adv.Finished.Answers)
}

func TestFinishSurvivesPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	service, results, observer := newTestService()
	results.Err = errors.New("disk full")

	_, err := service.StartQuiz(ctx, "u")
	require.NoError(t, err)
	_, err = service.SubmitAnswer(ctx, "u", "A")
	require.NoError(t, err)
	_, err = service.Advance(ctx, "u")
	require.NoError(t, err)

	adv, err := service.Advance(ctx, "u")
	require.NoError(t, err)
	require.NotNil(t, adv.Finished)
	assert.False(t, adv.Finished.Persisted)
	assert.Equal(t, 1, adv.Finished.Score)

	require.Len(t, observer.failures, 1)
	assert.ErrorIs(t, observer.failures[0], domain.ErrPersistenceWrite)
	assert.Equal(t, 1, observer.finished)

	_, err = service.Advance(ctx, "u")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestGetResults(t *testing.T) {
	ctx := context.Background()
	service, results, _ := newTestService()

	res, err := service.GetResults(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, res.Attempt)
	assert.False(t, res.Aggregate.HasParticipants())

	require.NoError(t, results.Put(ctx, "u1", domain.AttemptAnswers{"q1": {"A"}}, 2))
	require.NoError(t, results.Put(ctx, "u2", domain.AttemptAnswers{"q1": {"B"}}, 4))

	res, err = service.GetResults(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, res.Attempt)
	assert.Equal(t, 1, res.Attempt.Score)
	assert.Equal(t, 2, res.Aggregate.ParticipantCount)
	assert.InDelta(t, 3.0, res.Aggregate.MeanScore, 1e-9)
}

func TestGetResultsPropagatesUnavailable(t *testing.T) {
	ctx := context.Background()
	service, results, _ := newTestService()
	results.Err = domain.ErrResultsUnavailable

	_, err := service.GetResults(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrResultsUnavailable)
}

func TestDocumentLookup(t *testing.T) {
	service, _, _ := newTestService()

	doc, err := service.Document("theory_1")
	require.NoError(t, err)
	assert.Equal(t, "theory_1.pdf", doc.Path)

	_, err = service.Document("missing")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestConcurrentUsersDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	service, results, _ := newTestService()

	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	var wg sync.WaitGroup
	for _, user := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, _ = service.StartQuiz(ctx, user)
			_, _ = service.SubmitAnswer(ctx, user, "A")
			_, _ = service.Advance(ctx, user)
			_, _ = service.SubmitAnswer(ctx, user, "X")
			_, _ = service.SubmitAnswer(ctx, user, "Y")
			_, _ = service.Advance(ctx, user)
		}(user)
	}
	wg.Wait()

	stored, err := results.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored.Totals, len(users))
	for _, user := range users {
		assert.Equal(t, 2, stored.Totals[user])
	}
}

type recordingObserver struct {
	app.NopObserver
	mu       sync.Mutex
	finished int
	failures []error
}

func (o *recordingObserver) QuizFinished(context.Context, domain.AttemptResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished++
}

func (o *recordingObserver) PersistenceFailed(_ context.Context, _ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, err)
}

func TestPinnedOperationsRejectOtherAttemptsAndQuestions(t *testing.T) {
	ctx := context.Background()
	service, results, _ := newTestService()

	_, err := service.StartQuiz(ctx, "u")
	require.NoError(t, err)
	_, first, err := service.Current(ctx, "u")
	require.NoError(t, err)
	require.NotEmpty(t, first.Attempt)

	adv, err := service.AdvanceFrom(ctx, "u", first.Attempt, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, adv.Index)
	assert.Equal(t, first.Attempt, adv.Attempt)

	// still on question 2 of the first attempt: question 1 buttons are stale
	_, err = service.SubmitAnswerAt(ctx, "u", first.Attempt, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = service.StartQuiz(ctx, "u")
	require.NoError(t, err)
	_, second, err := service.Current(ctx, "u")
	require.NoError(t, err)
	assert.NotEqual(t, first.Attempt, second.Attempt)

	_, err = service.SubmitAnswerAt(ctx, "u", first.Attempt, 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = service.SubmitAnswerAt(ctx, "u", first.Attempt, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "same question index, older attempt")
	_, err = service.AdvanceFrom(ctx, "u", first.Attempt, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = service.SubmitAnswerAt(ctx, "u", "", 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, progress, err := service.Current(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Index)
	assert.Empty(t, progress.Selected)

	progress, err = service.SubmitAnswerAt(ctx, "u", second.Attempt, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, progress.Selected)

	stored, err := results.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored.Totals)
}

func newTestService() (*app.QuizService, *memory.ResultsRepository, *recordingObserver) {
	catalog := sampleCatalog()
	results := memory.NewResultsRepository()
	observer := &recordingObserver{}
	service := app.NewQuizService(
		catalog,
		memory.NewSessionStore(0),
		app.NewResultsStore(results, catalog),
		app.WithObserver(observer),
	)
	return service, results, observer
}
