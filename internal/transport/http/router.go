package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quiz-bot/internal/app"
	"quiz-bot/internal/domain"
)

type RouterConfig struct {
	Service *app.QuizService
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Log     *slog.Logger
}

// NewRouter mounts health, metrics, aggregate stats and the websocket adapter.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	r.Get("/stats", statsHandler(cfg.Service))
	r.Get("/ws", NewWSHandler(cfg.Service, cfg.Log).ServeWS)
	return r
}

func statsHandler(service *app.QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := service.AggregateStats(r.Context())
		if errors.Is(err, domain.ErrResultsUnavailable) {
			stats, err = domain.AggregateStats{}, nil
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats)
	}
}
