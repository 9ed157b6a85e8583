package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NLU
	ClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botcore_classifications_total",
		Help: "Classified utterances by outcome",
	}, []string{"bot", "outcome"})

	ClassificationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "botcore_classification_latency_seconds",
		Help:    "Time spent scoring an utterance",
		Buckets: prometheus.DefBuckets,
	})

	EmbeddingFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botcore_embedding_failures_total",
		Help: "Embedding calls that failed or were rejected by the breaker",
	}, []string{"embedder"})

	// Training
	TrainingRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botcore_training_runs_total",
		Help: "Training runs by result",
	}, []string{"bot", "result"})

	TrainingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "botcore_training_duration_seconds",
		Help:    "Wall time of a training run",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	ModelVersion = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "botcore_model_version",
		Help: "Currently served model version per bot",
	}, []string{"bot"})

	// Dialogue
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botcore_turns_total",
		Help: "Processed conversation turns by source",
	}, []string{"bot", "source"})

	TurnLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "botcore_turn_latency_seconds",
		Help:    "End-to-end latency of a chat turn",
		Buckets: prometheus.DefBuckets,
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "botcore_active_sessions",
		Help: "Sessions held by the in-memory store",
	})

	SessionStoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botcore_session_store_errors_total",
		Help: "Session store failures by operation",
	}, []string{"op"})

	SessionConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botcore_session_conflicts_total",
		Help: "Compare-and-swap conflicts on session writes",
	})
)
