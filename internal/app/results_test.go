package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-bot/internal/app"
	"quiz-bot/internal/domain"
	"quiz-bot/internal/infra/memory"
)

func TestAggregate(t *testing.T) {
	empty := app.Aggregate(nil)
	assert.False(t, empty.HasParticipants())
	assert.Zero(t, empty.MeanScore)

	stats := app.Aggregate(map[string]int{"u1": 2, "u2": 4})
	assert.Equal(t, 2, stats.ParticipantCount)
	assert.InDelta(t, 3.0, stats.MeanScore, 1e-9)
}

func TestSaveAttemptOverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewResultsRepository()
	store := app.NewResultsStore(repo, sampleCatalog())

	score, err := store.SaveAttempt(ctx, "u", domain.AttemptAnswers{"q1": {"A"}})
	require.NoError(t, err)
	assert.Equal(t, 1, score)

	score, err = store.SaveAttempt(ctx, "u", domain.AttemptAnswers{"q1": {"B"}})
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	stats, err := store.AggregateStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ParticipantCount)
	assert.Zero(t, stats.MeanScore)
}

func TestSaveAttemptWrapsWriteFailure(t *testing.T) {
	repo := memory.NewResultsRepository()
	repo.Err = errors.New("boom")
	store := app.NewResultsStore(repo, sampleCatalog())

	score, err := store.SaveAttempt(context.Background(), "u", domain.AttemptAnswers{"q1": {"A"}})
	assert.Equal(t, 1, score)
	assert.ErrorIs(t, err, domain.ErrPersistenceWrite)
}

func TestConcurrentSaveAttemptKeepsEveryUser(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewResultsRepository()
	store := app.NewResultsStore(repo, sampleCatalog())

	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.SaveAttempt(ctx, fmt.Sprintf("user-%d", i), domain.AttemptAnswers{"q1": {"A"}})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	results, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, results.Results, users)
	assert.Len(t, results.Totals, users)
}

// stallingRepo snapshots the inner repository and then blocks the first ReadAll
// until release is closed.
type stallingRepo struct {
	inner   *memory.ResultsRepository
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (r *stallingRepo) ReadAll(ctx context.Context) (domain.Results, error) {
	snapshot, err := r.inner.ReadAll(ctx)
	if r.calls.Add(1) == 1 {
		close(r.entered)
		<-r.release
	}
	return snapshot, err
}

func (r *stallingRepo) Put(ctx context.Context, userID string, answers domain.AttemptAnswers, score int) error {
	return r.inner.Put(ctx, userID, answers, score)
}

func TestReadAfterSaveSeesTheAttempt(t *testing.T) {
	ctx := context.Background()
	repo := &stallingRepo{
		inner:   memory.NewResultsRepository(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := app.NewResultsStore(repo, sampleCatalog())
	defer close(repo.release)

	go func() { _, _ = store.ReadAll(ctx) }()
	<-repo.entered

	_, err := store.SaveAttempt(ctx, "u", domain.AttemptAnswers{"q1": {"A"}})
	require.NoError(t, err)

	type attempt struct {
		answers domain.AttemptAnswers
		ok      bool
		err     error
	}
	got := make(chan attempt, 1)
	go func() {
		answers, ok, _, err := store.UserAttempt(ctx, "u")
		got <- attempt{answers, ok, err}
	}()

	select {
	case a := <-got:
		require.NoError(t, a.err)
		assert.True(t, a.ok)
		assert.Equal(t, []string{"A"}, a.answers["q1"])
	case <-time.After(2 * time.Second):
		t.Fatal("read after save joined a read that started before the save")
	}
}

type ctxCheckingRepo struct {
	*memory.ResultsRepository
}

func (r ctxCheckingRepo) ReadAll(ctx context.Context) (domain.Results, error) {
	if err := ctx.Err(); err != nil {
		return domain.Results{}, err
	}
	return r.ResultsRepository.ReadAll(ctx)
}

func TestReadAllIgnoresCallerCancellation(t *testing.T) {
	repo := ctxCheckingRepo{memory.NewResultsRepository()}
	require.NoError(t, repo.Put(context.Background(), "u", domain.AttemptAnswers{}, 1))
	store := app.NewResultsStore(repo, sampleCatalog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, results.Totals["u"])
}
