// Package metrics exposes library activity as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/photo-library/internal/facematch"
	"github.com/kozaktomas/photo-library/internal/library"
)

// Metrics holds the collectors of one library instance on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	commits  prometheus.Counter
	changes  *prometheus.CounterVec
	failures *prometheus.CounterVec
	verifies *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photo_library_commits_total",
			Help: "Total committed library commands",
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photo_library_changes_total",
			Help: "Entity writes by kind and operation, cascades included",
		}, []string{"kind", "op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photo_library_command_failures_total",
			Help: "Rejected library commands by error kind",
		}, []string{"reason"}),
		verifies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photo_library_verify_runs_total",
			Help: "Index verification runs by result",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.commits,
		m.changes,
		m.failures,
		m.verifies,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// OnCommit counts a commit and each of its changes.
func (m *Metrics) OnCommit(c library.Commit) {
	m.commits.Inc()
	for _, ch := range c.Changes {
		m.changes.WithLabelValues(string(ch.Kind), string(ch.Op)).Inc()
	}
}

// ObserveFailure counts a failed command by its error kind.
func (m *Metrics) ObserveFailure(err error) {
	if err == nil {
		return
	}
	m.failures.WithLabelValues(Reason(err)).Inc()
}

// ObserveVerify counts one index verification run.
func (m *Metrics) ObserveVerify(err error) {
	result := "ok"
	if err != nil {
		result = "drift"
	}
	m.verifies.WithLabelValues(result).Inc()
}

// WatchLibrary exports entity counts of lib as gauges, read at scrape time.
func (m *Metrics) WatchLibrary(lib *library.Library) {
	kinds := map[library.Kind]func(library.Stats) int{
		library.KindPhoto:  func(s library.Stats) int { return s.Photos },
		library.KindPerson: func(s library.Stats) int { return s.Persons },
		library.KindAlbum:  func(s library.Stats) int { return s.Albums },
		library.KindFace:   func(s library.Stats) int { return s.Faces },
	}
	for kind, pick := range kinds {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "photo_library_entities",
			Help:        "Number of stored entities by kind",
			ConstLabels: prometheus.Labels{"kind": string(kind)},
		}, func() float64 { return float64(pick(lib.Stats())) }))
	}
}

// WatchGauge exports an arbitrary value, such as the persistence backlog, read at scrape time.
func (m *Metrics) WatchGauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

// WatchCounter registers a counter read from fn at scrape time. fn must never decrease.
func (m *Metrics) WatchCounter(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, fn))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Reason maps an error to a stable label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, facematch.ErrInvalidGeometry):
		return "invalid_geometry"
	case errors.Is(err, library.ErrValidation):
		return "validation"
	case errors.Is(err, library.ErrNotFound):
		return "not_found"
	case errors.Is(err, library.ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
