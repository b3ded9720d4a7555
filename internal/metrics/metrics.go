package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives authentication and token events.
type Recorder interface {
	RecordAuthOutcome(kind string, duration time.Duration)
	RecordTokenIssued(success bool)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	AuthOutcomesTotal *prometheus.CounterVec
	AuthDuration      *prometheus.HistogramVec
	TokensIssuedTotal *prometheus.CounterVec
	gatherer          prometheus.Gatherer
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns Prometheus-backed metrics registered on the default registry,
// or a no-op recorder when disabled. Registration happens once per process.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultMetrics
}

// New registers the collectors on reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuthOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goberus_auth_outcomes_total",
				Help: "Authentication attempts by outcome kind",
			},
			[]string{"kind"},
		),
		AuthDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goberus_auth_duration_seconds",
				Help:    "Time spent in one Authenticate call, by outcome kind",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),
		TokensIssuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goberus_tokens_issued_total",
				Help: "Access tokens issued",
			},
			[]string{"result"},
		),
		gatherer: gatherer,
	}
}

func (m *Metrics) RecordAuthOutcome(kind string, duration time.Duration) {
	m.AuthOutcomesTotal.WithLabelValues(kind).Inc()
	m.AuthDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *Metrics) RecordTokenIssued(success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	m.TokensIssuedTotal.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
