package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiz-bot/internal/config"
	transport "quiz-bot/internal/transport/http"
	"quiz-bot/internal/transport/telegram"
)

// NewStartCmd builds the CLI subcommand that runs the bot and the HTTP server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", "", "HTTP port (overrides config)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.close()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.RouterConfig{
			Service: c.service,
			Metrics: c.metrics.Handler(),
			Log:     log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if c.sweeper != nil && config.TTLDuration(cfg.Session.IdleTimeout, 0) > 0 {
		g.Go(func() error {
			runJanitor(gctx, c, config.TTLDuration(cfg.Session.IdleTimeout, 0))
			return nil
		})
	}

	if cfg.Telegram.Token == "" {
		log.Warn("telegram token not set, bot disabled")
	} else {
		bot := telegram.NewBot(
			telegram.NewHTTPClient(cfg.Telegram.APIURL, cfg.Telegram.Token),
			c.service,
			os.DirFS(assetsDir(cfg)),
			log,
			telegram.Options{
				PollTimeout: config.TTLDuration(cfg.Telegram.PollTimeout, 30*time.Second),
				Workers:     cfg.Telegram.Workers,
			},
		)
		g.Go(func() error {
			log.Info("telegram bot polling", "workers", cfg.Telegram.Workers)
			return bot.Run(gctx)
		})
	}

	return g.Wait()
}

// runJanitor sweeps idle sessions so abandoned quizzes don't pin memory.
func runJanitor(ctx context.Context, c *components, idle time.Duration) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.sweeper.Sweep(); n > 0 {
				c.metrics.SessionsExpired(n)
			}
		}
	}
}

func assetsDir(cfg config.Config) string {
	if cfg.Catalog.AssetsDir == "" {
		return "."
	}
	return cfg.Catalog.AssetsDir
}
