package telegram

import (
	"context"
	"errors"
	"hash/fnv"
	"io/fs"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"quiz-bot/internal/domain"
)

// QuizService is what the bot needs from the application layer.
type QuizService interface {
	Catalog() domain.Catalog
	StartQuiz(ctx context.Context, userID string) (domain.Question, error)
	Current(ctx context.Context, userID string) (domain.Question, domain.AnswerProgress, error)
	SubmitAnswerAt(ctx context.Context, userID, attempt string, questionIdx, idx int) (domain.AnswerProgress, error)
	AdvanceFrom(ctx context.Context, userID, attempt string, questionIdx int) (domain.AdvanceResult, error)
	Cancel(ctx context.Context, userID string) bool
	GetResults(ctx context.Context, userID string) (domain.UserResults, error)
	Document(documentID string) (domain.Document, error)
}

// Options tune the polling loop.
type Options struct {
	// PollTimeout is the long-polling wait passed to getUpdates.
	PollTimeout time.Duration
	// Workers is the number of per-user queues. Updates of one user always land
	// on the same worker and are handled in arrival order.
	Workers int
	// QueueSize bounds each worker's backlog.
	QueueSize int
}

// Bot turns Telegram updates into quiz operations.
type Bot struct {
	client  Client
	service QuizService
	assets  fs.FS
	log     *slog.Logger
	opts    Options

	offset int
}

// NewBot creates a bot. assets holds document and image files referenced by the catalog.
func NewBot(client Client, service QuizService, assets fs.FS, log *slog.Logger, opts Options) *Bot {
	if log == nil {
		log = slog.Default()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	return &Bot{
		client:  client,
		service: service,
		assets:  assets,
		log:     log,
		opts:    opts,
	}
}

// Run long-polls until ctx is cancelled, then drains the queued updates.
func (b *Bot) Run(ctx context.Context) error {
	queues := make([]chan Update, b.opts.Workers)
	for i := range queues {
		queues[i] = make(chan Update, b.opts.QueueSize)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range queues {
		queue := queues[i]
		g.Go(func() error {
			for update := range queue {
				b.HandleUpdate(context.WithoutCancel(gctx), update)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, queue := range queues {
				close(queue)
			}
		}()
		return b.poll(gctx, queues)
	})

	b.log.Info("bot started", "workers", b.opts.Workers, "poll_timeout", b.opts.PollTimeout)
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *Bot) poll(ctx context.Context, queues []chan Update) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := b.client.GetUpdates(ctx, b.offset, int(b.opts.PollTimeout/time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Warn("get updates failed", "err", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, update := range updates {
			b.offset = update.UpdateID + 1
			queue := queues[b.shard(update)]
			select {
			case queue <- update:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (b *Bot) shard(update Update) int {
	userID, ok := senderID(update)
	if !ok || b.opts.Workers <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(userID, 10)))
	return int(h.Sum32() % uint32(b.opts.Workers))
}

func senderID(update Update) (int64, bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID, true
	}
	return 0, false
}
