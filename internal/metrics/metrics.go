package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConsultationsTotal counts completed tool invocations, labeled by tool and status.
	ConsultationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consultant_consultations_total",
		Help: "The total number of consultation tool calls",
	}, []string{"tool", "status"}) // status: success, error

	// ConsultationDuration measures end-to-end tool call time (report + both phases).
	ConsultationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consultant_consultation_duration_seconds",
		Help:    "Time taken to serve one consultation tool call",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"tool"})

	// PhaseDuration measures one model call including retries, per workflow phase.
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consultant_phase_duration_seconds",
		Help:    "Time taken by one workflow phase including retries",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"workflow", "phase"}) // phase: 1, 2

	// TransportAttempts counts individual model requests, labeled by outcome.
	TransportAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consultant_transport_attempts_total",
		Help: "The total number of model request attempts",
	}, []string{"outcome"}) // outcome: success, failure

	// KeyRotations counts credential draws from the key pool.
	KeyRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consultant_key_rotations_total",
		Help: "The total number of API key rotations",
	})

	// ReportDuration measures codebase report generation time.
	ReportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "consultant_report_generation_seconds",
		Help:    "Time taken to generate a codebase report",
		Buckets: prometheus.DefBuckets,
	})

	// ReportTruncations counts reports cut down to the character budget.
	ReportTruncations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consultant_report_truncations_total",
		Help: "The total number of codebase reports truncated to the character budget",
	})
)
