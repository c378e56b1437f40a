package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quiz-bot/internal/app"
	"quiz-bot/internal/catalog"
	"quiz-bot/internal/config"
	"quiz-bot/internal/domain"
	"quiz-bot/internal/infra/amqp"
	"quiz-bot/internal/infra/file"
	"quiz-bot/internal/infra/memory"
	"quiz-bot/internal/infra/metrics"
	mongorepo "quiz-bot/internal/infra/mongo"
	"quiz-bot/internal/infra/postgres"
	redisstore "quiz-bot/internal/infra/redis"
	"quiz-bot/internal/infra/sqlite"
	"quiz-bot/internal/logging"
)

// components is everything a running process owns. close releases them in reverse order.
type components struct {
	catalog domain.Catalog
	service *app.QuizService
	results *app.ResultsStore
	metrics *metrics.Metrics
	sweeper *memory.SessionStore
	redis   *redis.Client
	closers []func()
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Color, os.Stderr)
}

func loadCatalog(cfg config.Config) (domain.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.Catalog.Path)
}

// buildResults opens only the results backend; used by the stats command too.
func buildResults(ctx context.Context, cfg config.Config, cat domain.Catalog, log *slog.Logger, c *components) error {
	repo, err := openResultsRepository(ctx, cfg, log, c)
	if err != nil {
		return err
	}
	c.catalog = cat
	c.results = app.NewResultsStore(repo, cat)
	return nil
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*components, error) {
	c := &components{}
	ok := false
	defer func() {
		if !ok {
			c.close()
		}
	}()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	if err := buildResults(ctx, cfg, cat, log, c); err != nil {
		return nil, err
	}

	sessions, err := openSessionStore(cfg, log, c)
	if err != nil {
		return nil, err
	}

	c.metrics = metrics.New()
	observers := app.Observers{c.metrics}
	if cfg.AMQP.URL != "" {
		publisher, err := amqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			log.Warn("amqp unavailable, events disabled", "err", err)
		} else {
			observers = append(observers, publisher)
			c.closers = append(c.closers, publisher.Close)
		}
	}

	c.service = app.NewQuizService(cat, sessions, c.results,
		app.WithObserver(observers),
		app.WithLogger(log),
	)
	log.Info("quiz ready",
		"questions", cat.Len(),
		"documents", len(cat.Documents),
		"results_backend", cfg.Results.Backend,
		"session_backend", cfg.Session.Backend,
	)
	ok = true
	return c, nil
}

func openResultsRepository(ctx context.Context, cfg config.Config, log *slog.Logger, c *components) (app.ResultsRepository, error) {
	switch cfg.Results.Backend {
	case config.BackendFile, "":
		return file.NewResultsRepository(cfg.Results.Path), nil
	case config.BackendMemory:
		return memory.NewResultsRepository(), nil
	case config.BackendSQLite:
		repo, err := sqlite.NewResultsRepository(cfg.Results.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		c.closers = append(c.closers, func() { _ = repo.Close() })
		return repo, nil
	case config.BackendRedis:
		client, err := redisClient(cfg, c)
		if err != nil {
			return nil, err
		}
		return redisstore.NewResultsRepository(client), nil
	case config.BackendPostgres:
		if err := runMigrations(ctx, cfg, log); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		return postgres.NewResultsRepository(pool), nil
	case config.BackendMongo:
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("mongo uri not configured")
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		c.closers = append(c.closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(shutdownCtx)
		})
		return mongorepo.NewResultsRepository(client.Database(cfg.Mongo.Database)), nil
	default:
		return nil, fmt.Errorf("unknown results backend %q", cfg.Results.Backend)
	}
}

func openSessionStore(cfg config.Config, log *slog.Logger, c *components) (app.SessionRepository, error) {
	idle := config.TTLDuration(cfg.Session.IdleTimeout, 0)
	switch cfg.Session.Backend {
	case config.BackendMemory, "":
		store := memory.NewSessionStore(idle)
		c.sweeper = store
		return store, nil
	case config.BackendRedis:
		client, err := redisClient(cfg, c)
		if err != nil {
			return nil, err
		}
		ttl := idle
		if ttl == 0 {
			ttl = config.TTLDuration(cfg.Redis.TTL, 0)
		}
		return redisstore.NewSessionStore(client, ttl, log), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// redisClient lazily creates the one client shared by the Redis backends.
func redisClient(cfg config.Config, c *components) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr not configured")
	}
	if c.redis != nil {
		return c.redis, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	c.redis = client
	c.closers = append(c.closers, func() { _ = client.Close() })
	return client, nil
}
