// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the vector store and RAG services.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdfrag"

// Metrics holds the collectors registered on its own registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	vectorStoreOps      *prometheus.CounterVec
	vectorStoreDuration *prometheus.HistogramVec
	chunksIndexed       prometheus.Counter
	ragQueries          *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		vectorStoreOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vector_store_operations_total",
				Help:      "Total number of vector store operations",
			},
			[]string{"operation", "status"}, // status: success, error
		),
		vectorStoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "vector_store_operation_duration_seconds",
				Help:      "Duration of vector store operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		chunksIndexed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_indexed_total",
				Help:      "Total number of document chunks written to the vector store",
			},
		),
		ragQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rag_queries_total",
				Help:      "Total number of RAG queries by outcome",
			},
			[]string{"outcome"}, // outcome: answered, no_match, error
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest records one served HTTP request. route is the matched
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordVectorStoreOp records a vector store operation
func (m *Metrics) RecordVectorStoreOp(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.vectorStoreOps.WithLabelValues(operation, status).Inc()
	m.vectorStoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// AddChunksIndexed counts chunks successfully upserted
func (m *Metrics) AddChunksIndexed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.chunksIndexed.Add(float64(n))
}

// RecordRAGQuery counts a RAG query by outcome
func (m *Metrics) RecordRAGQuery(outcome string) {
	if m == nil {
		return
	}
	m.ragQueries.WithLabelValues(outcome).Inc()
}
