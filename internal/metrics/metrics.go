// Package metrics exposes Prometheus instrumentation for segmentation,
// normalization, ingestion jobs and the HTTP API. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/mdsplit/internal/section"
)

const (
	Namespace = "mdsplit"

	subsystemSegment   = "segment"
	subsystemNormalize = "normalize"
	subsystemPipeline  = "pipeline"
	subsystemAPI       = "api"
)

type Metrics struct {
	registry *prometheus.Registry

	documentsTotal  *prometheus.CounterVec
	sectionsTotal   *prometheus.CounterVec
	normalizedTotal *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
	apiTime         *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.documentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemSegment,
		Name:      "documents_total",
		Help:      "Documents segmented, by entry point.",
	}, []string{"source"})

	m.sectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemSegment,
		Name:      "sections_total",
		Help:      "Sections emitted, by header level.",
	}, []string{"level"})

	m.normalizedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemNormalize,
		Name:      "sections_total",
		Help:      "Sections passed through a normalizer, by outcome.",
	}, []string{"normalizer", "result"})

	m.jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemPipeline,
		Name:      "jobs_total",
		Help:      "Ingestion jobs finished, by final status.",
	}, []string{"status"})

	m.apiTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystemAPI,
		Name:      "time_seconds",
		Help:      "Time to execute the api handler.",
	}, []string{"handler", "method", "status_code"})

	m.registry.MustRegister(m.documentsTotal, m.sectionsTotal, m.normalizedTotal, m.jobsTotal, m.apiTime)
	return m
}

// Registry returns the registry all collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSections counts one segmented document and its sections.
func (m *Metrics) ObserveSections(source string, sections []section.Section) {
	if m == nil {
		return
	}
	m.documentsTotal.WithLabelValues(source).Inc()
	for _, s := range sections {
		m.sectionsTotal.WithLabelValues(strconv.Itoa(s.Level())).Inc()
	}
}

// ObserveNormalized counts normalization outcomes.
func (m *Metrics) ObserveNormalized(ns []section.Normalized) {
	if m == nil {
		return
	}
	for _, n := range ns {
		result := "ok"
		if n.Meta.Error != "" {
			result = "error"
		}
		m.normalizedTotal.WithLabelValues(n.Meta.Normalizer, result).Inc()
	}
}

func (m *Metrics) ObserveJob(status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveAPIEndpointDuration(handler, method, statusCode string, elapsed float64) {
	if m == nil {
		return
	}
	m.apiTime.WithLabelValues(handler, method, statusCode).Observe(elapsed)
}
