// Package metrics exposes the collaborator backend's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Feed page sources
const (
	SourceCache = "cache"
	SourceStore = "store"
)

// Metrics holds the counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FeedPages          *prometheus.CounterVec
	Boosts             prometheus.Counter
	InvestmentsCreated *prometheus.CounterVec
	DueDiligence       prometheus.Counter
	CacheErrors        prometheus.Counter
}

// New creates the counters on a private registry together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FeedPages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchfeed_feed_pages_total",
				Help: "Feed pages served, by source",
			},
			[]string{"source"},
		),
		Boosts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pitchfeed_boosts_total",
				Help: "Boosts applied to posts",
			},
		),
		InvestmentsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchfeed_investments_created_total",
				Help: "Investments created, by initial status",
			},
			[]string{"status"},
		),
		DueDiligence: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pitchfeed_due_diligence_attached_total",
				Help: "Due diligence notes attached to investments",
			},
		),
		CacheErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pitchfeed_feed_cache_errors_total",
				Help: "Feed cache operations that failed and fell through to the store",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FeedPages,
		m.Boosts,
		m.InvestmentsCreated,
		m.DueDiligence,
		m.CacheErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) FeedPageServed(source string) {
	if m != nil {
		m.FeedPages.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) PostBoosted() {
	if m != nil {
		m.Boosts.Inc()
	}
}

func (m *Metrics) InvestmentCreated(status string) {
	if m != nil {
		m.InvestmentsCreated.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) DueDiligenceAttached() {
	if m != nil {
		m.DueDiligence.Inc()
	}
}

func (m *Metrics) CacheError() {
	if m != nil {
		m.CacheErrors.Inc()
	}
}
