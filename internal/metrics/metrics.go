// Package metrics exposes Prometheus instrumentation for the ingest
// pipeline, the ML detector and the endpoint agent.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActivitiesIngestedTotal counts activities accepted by the ingest
	// service, labeled by activity kind.
	ActivitiesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderwatch_activities_ingested_total",
			Help: "Total number of activities persisted by the ingest service",
		},
		[]string{"kind"},
	)

	// IngestRejectedTotal counts activities rejected at ingest, labeled by
	// reason (e.g. "unknown_user").
	IngestRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderwatch_ingest_rejected_total",
			Help: "Total number of activities rejected at ingest",
		},
		[]string{"reason"},
	)

	// IngestResponseStatusTotal counts ingest responses that went through
	// escalation, by result status (alert_generated, anomaly_alert_created,
	// suppressed, already_escalated); plain "ok" responses are not counted.
	IngestResponseStatusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderwatch_ingest_response_status_total",
			Help: "Total number of ingest responses by status",
		},
		[]string{"status"},
	)

	// DetectorScoreDuration measures per-event detector scoring latency.
	DetectorScoreDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "insiderwatch_detector_score_duration_seconds",
		Help:    "Duration of ML detector scoring calls",
		Buckets: prometheus.DefBuckets,
	})

	// DetectorScoreValue observes the emitted ml_score distribution.
	DetectorScoreValue = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "insiderwatch_detector_score_value",
		Help:    "Distribution of ml_score values emitted by the detector",
		Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.75, 0.8, 0.9, 0.95, 1.0},
	})

	// ITSScoreValue observes the emitted ITS score distribution.
	ITSScoreValue = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "insiderwatch_its_score_value",
		Help:    "Distribution of insider threat scores (0-100)",
		Buckets: []float64{0, 5, 10, 20, 30, 40, 50, 60, 65, 70, 80, 90, 100},
	})

	// EscalationTransitionsTotal counts escalation state transitions,
	// labeled by from/to tier.
	EscalationTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderwatch_escalation_transitions_total",
			Help: "Total number of escalation state machine transitions",
		},
		[]string{"from", "to"},
	)

	// FingerprintCacheHitTotal / FingerprintCacheMissTotal track the
	// read-through fingerprint cache hit rate.
	FingerprintCacheHitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "insiderwatch_fingerprint_cache_hits_total",
		Help: "Total number of fingerprint cache hits",
	})
	FingerprintCacheMissTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "insiderwatch_fingerprint_cache_misses_total",
		Help: "Total number of fingerprint cache misses",
	})

	// AgentQueueDepth is the current number of events in the agent's
	// offline/send queue.
	AgentQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "insiderwatch_agent_queue_depth",
			Help: "Current number of events queued in the agent",
		},
		[]string{"queue"}, // "send" or "offline"
	)

	// AgentUploadTotal counts agent upload attempts by outcome
	// (success, retryable_failure, dropped).
	AgentUploadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderwatch_agent_upload_total",
			Help: "Total number of agent upload attempts by outcome",
		},
		[]string{"outcome"},
	)

	// AgentObserverEventsTotal counts events produced by each observer.
	AgentObserverEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderwatch_agent_observer_events_total",
			Help: "Total number of events produced by each platform observer",
		},
		[]string{"observer"},
	)
)
