// Package metrics exposes quiz lifecycle counters in Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quiz-bot/internal/domain"
)

// Metrics is an app.Observer backed by its own registry.
type Metrics struct {
	registry *prometheus.Registry

	started             prometheus.Counter
	answers             prometheus.Counter
	cancelled           prometheus.Counter
	finished            *prometheus.CounterVec
	persistenceFailures prometheus.Counter
	scores              prometheus.Histogram
	activeSessions      prometheus.Gauge
	expired             prometheus.Counter
}

// New registers the quiz collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		started: factory.NewCounter(prometheus.CounterOpts{
			Name: "quiz_started_total",
			Help: "Total number of started quiz attempts",
		}),
		answers: factory.NewCounter(prometheus.CounterOpts{
			Name: "quiz_answers_recorded_total",
			Help: "Total number of recorded answer selections",
		}),
		cancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "quiz_cancelled_total",
			Help: "Total number of cancelled attempts",
		}),
		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_finished_total",
			Help: "Total number of finished attempts",
		}, []string{"persisted"}),
		persistenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "quiz_results_persistence_failures_total",
			Help: "Finished attempts whose results could not be written",
		}),
		scores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_score",
			Help:    "Score of finished attempts",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_active_sessions",
			Help: "Attempts started and not yet finished or cancelled",
		}),
		expired: factory.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_expired_total",
			Help: "Sessions dropped after the idle timeout",
		}),
	}
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) QuizStarted(context.Context, string) {
	m.started.Inc()
	m.activeSessions.Inc()
}

func (m *Metrics) AnswerRecorded(context.Context, string, string) {
	m.answers.Inc()
}

func (m *Metrics) QuizCancelled(context.Context, string) {
	m.cancelled.Inc()
	m.activeSessions.Dec()
}

func (m *Metrics) QuizFinished(_ context.Context, result domain.AttemptResult) {
	m.finished.WithLabelValues(strconv.FormatBool(result.Persisted)).Inc()
	m.scores.Observe(float64(result.Score))
	m.activeSessions.Dec()
}

func (m *Metrics) PersistenceFailed(context.Context, string, error) {
	m.persistenceFailures.Inc()
}

// SessionsExpired records n sessions removed by the idle sweeper.
func (m *Metrics) SessionsExpired(n int) {
	m.expired.Add(float64(n))
	m.activeSessions.Sub(float64(n))
}
