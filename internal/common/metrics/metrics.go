// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_completed_total",
			Help: "Total number of conversation turns completed per stage",
		},
		[]string{"stage"},
	)

	TurnsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_failed_total",
			Help: "Total number of conversation turns that hit the retained-stage error path",
		},
		[]string{"stage", "error_code"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "conversation_turn_duration_seconds",
			Help: "Duration of turn processing in seconds",
		},
		[]string{"stage"},
	)

	DecisionsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_decisions_total",
			Help: "Total number of underwriting decisions issued",
		},
		[]string{"status"},
	)

	DocumentsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_ingested_total",
			Help: "Total number of documents received per type tag",
		},
		[]string{"doc_type"},
	)
)
