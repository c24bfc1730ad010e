// Package metrics exposes Prometheus instrumentation for shadowguard.
//
// Endpoint: GET /metrics on 127.0.0.1:9091 (configurable).
// Format: Prometheus text exposition format (OpenMetrics compatible).
// Bind: loopback only by default — no external exposure.
//
// Metric naming convention: shadowguard_<subsystem>_<name>_<unit>
//
// All metrics are registered on a dedicated prometheus.Registry (not the
// default global registry), grounded on
// octoreflex/internal/observability/metrics.go, re-scoped from agent
// process-containment counters to the pipeline's components.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus metric descriptor for shadowguard.
type Metrics struct {
	registry *prometheus.Registry

	// ─── Event broker ──────────────────────────────────────────────────

	// EventsPublishedTotal counts flow events published to the broker, by topic.
	EventsPublishedTotal *prometheus.CounterVec

	// EventsDroppedTotal counts events dropped due to a full subscriber queue.
	EventsDroppedTotal *prometheus.CounterVec

	// ─── Analyzer pipeline ─────────────────────────────────────────────

	// PipelineEventsProcessedTotal counts flow events the pipeline finished
	// analyzing, by outcome (ok, malformed, capture_skipped).
	PipelineEventsProcessedTotal *prometheus.CounterVec

	// PipelineEventLatency records end-to-end per-event analysis latency.
	PipelineEventLatency prometheus.Histogram

	// ─── Graph store ───────────────────────────────────────────────────

	// GraphNodes is the current node count in the network graph.
	GraphNodes prometheus.Gauge

	// GraphEdges is the current edge count in the network graph.
	GraphEdges prometheus.Gauge

	// ─── DLP scanner ───────────────────────────────────────────────────

	// DLPMatchesTotal counts DLP rule hits, by rule name.
	DLPMatchesTotal *prometheus.CounterVec

	// ─── Anomaly detector ──────────────────────────────────────────────

	// AnomaliesDetectedTotal counts anomalous flows, by reason category.
	AnomaliesDetectedTotal *prometheus.CounterVec

	// ─── Alert store ───────────────────────────────────────────────────

	// AlertsGeneratedTotal counts alerts raised, by severity.
	AlertsGeneratedTotal *prometheus.CounterVec

	// AlertStoreSize is the current number of alerts retained in the ring buffer.
	AlertStoreSize prometheus.Gauge

	// ─── Quarantine registry ───────────────────────────────────────────

	// QuarantineActionsTotal counts quarantine/release actions, by action and outcome.
	QuarantineActionsTotal *prometheus.CounterVec

	// QuarantinedActive is the current number of actively quarantined hosts.
	QuarantinedActive prometheus.Gauge

	// ─── Audit ledger ──────────────────────────────────────────────────

	// AuditEntriesTotal counts audit entries appended.
	AuditEntriesTotal prometheus.Counter

	// AuditWriteLatency records ledger append latency.
	AuditWriteLatency prometheus.Histogram

	// ─── SOAR engine ───────────────────────────────────────────────────

	// SOARActionsTotal counts playbook-triggered actions, by playbook and outcome.
	SOARActionsTotal *prometheus.CounterVec

	// ─── Process ────────────────────────────────────────────────────────

	// UptimeSeconds is the number of seconds since the process started.
	UptimeSeconds prometheus.Gauge

	startTime time.Time
}

// New creates and registers every shadowguard Prometheus metric on a
// dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		EventsPublishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shadowguard",
			Subsystem: "broker",
			Name:      "events_published_total",
			Help:      "Total events published to the broker, by topic.",
		}, []string{"topic"}),

		EventsDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shadowguard",
			Subsystem: "broker",
			Name:      "events_dropped_total",
			Help:      "Total events dropped due to a full subscriber queue, by topic.",
		}, []string{"topic"}),

		PipelineEventsProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shadowguard",
			Subsystem: "pipeline",
			Name:      "events_processed_total",
			Help:      "Total flow events processed by the analyzer pipeline, by outcome.",
		}, []string{"outcome"}),

		PipelineEventLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shadowguard",
			Subsystem: "pipeline",
			Name:      "event_latency_seconds",
			Help:      "End-to-end per-event analysis latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),

		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shadowguard",
			Subsystem: "graph",
			Name:      "nodes",
			Help:      "Current number of nodes in the network graph.",
		}),

		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shadowguard",
			Subsystem: "graph",
			Name:      "edges",
			Help:      "Current number of edges in the network graph.",
		}),

		DLPMatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shadowguard",
			Subsystem: "dlp",
			Name:      "matches_total",
			Help:      "Total DLP rule matches, by rule name.",
		}, []string{"rule"}),

		AnomaliesDetectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shadowguard",
			Subsystem: "anomaly",
			Name:      "detections_total",
			Help:      "Total anomalous flows detected, by reason category.",
		}, []string{"reason"}),

		AlertsGeneratedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shadowguard",
			Subsystem: "alert",
			Name:      "generated_total",
			Help:      "Total alerts generated, by severity.",
		}, []string{"severity"}),

		AlertStoreSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shadowguard",
			Subsystem: "alert",
			Name:      "store_size",
			Help:      "Current number of alerts retained in the ring buffer.",
		}),

		QuarantineActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shadowguard",
			Subsystem: "quarantine",
			Name:      "actions_total",
			Help:      "Total quarantine/release actions, by action and outcome.",
		}, []string{"action", "outcome"}),

		QuarantinedActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shadowguard",
			Subsystem: "quarantine",
			Name:      "active",
			Help:      "Current number of actively quarantined hosts.",
		}),

		AuditEntriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shadowguard",
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit entries appended to the ledger.",
		}),

		AuditWriteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shadowguard",
			Subsystem: "audit",
			Name:      "write_latency_seconds",
			Help:      "Audit ledger append latency in seconds, including fsync.",
			Buckets:   prometheus.DefBuckets,
		}),

		SOARActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shadowguard",
			Subsystem: "soar",
			Name:      "actions_total",
			Help:      "Total SOAR playbook actions executed, by playbook and outcome.",
		}, []string{"playbook", "outcome"}),

		UptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shadowguard",
			Subsystem: "process",
			Name:      "uptime_seconds",
			Help:      "Number of seconds since the process started.",
		}),
	}

	reg.MustRegister(
		m.EventsPublishedTotal,
		m.EventsDroppedTotal,
		m.PipelineEventsProcessedTotal,
		m.PipelineEventLatency,
		m.GraphNodes,
		m.GraphEdges,
		m.DLPMatchesTotal,
		m.AnomaliesDetectedTotal,
		m.AlertsGeneratedTotal,
		m.AlertStoreSize,
		m.QuarantineActionsTotal,
		m.QuarantinedActive,
		m.AuditEntriesTotal,
		m.AuditWriteLatency,
		m.SOARActionsTotal,
		m.UptimeSeconds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Serve starts the metrics HTTP server on addr, blocking until ctx is
// cancelled or the server fails. Serves GET /metrics and GET /healthz.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go m.updateUptime(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}

func (m *Metrics) updateUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.UptimeSeconds.Set(time.Since(m.startTime).Seconds())
		case <-ctx.Done():
			return
		}
	}
}
