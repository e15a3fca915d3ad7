package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollsTotal tracks status polls by result
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_health_polls_total",
			Help: "Total number of status endpoint polls",
		},
		[]string{"result"},
	)

	// ConsecutivePollFailures tracks the current failure streak
	ConsecutivePollFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sahayak_consecutive_poll_failures",
			Help: "Current number of consecutive poll failures",
		},
	)

	// ServiceHealthy tracks per-service health (1 healthy, 0 unhealthy)
	ServiceHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sahayak_service_healthy",
			Help: "Whether a service is currently considered healthy",
		},
		[]string{"service"},
	)

	// RecoveryAttempts tracks per-service recovery attempts by result
	RecoveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_recovery_attempts_total",
			Help: "Total number of per-service recovery attempts",
		},
		[]string{"service", "result"},
	)

	// SystemRecoveries tracks orchestrated all-service recoveries by outcome
	SystemRecoveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_system_recoveries_total",
			Help: "Total number of orchestrated system recoveries",
		},
		[]string{"outcome"},
	)

	// BackendRequests tracks upstream backend calls per endpoint
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_backend_requests_total",
			Help: "Total number of upstream backend requests",
		},
		[]string{"endpoint", "result"},
	)

	// BackendLatency tracks upstream backend call latency
	BackendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sahayak_backend_latency_seconds",
			Help:    "Upstream backend request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// FramesChecked tracks webcam frames submitted for face detection
	FramesChecked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_frames_checked_total",
			Help: "Total number of webcam frames submitted for face detection",
		},
		[]string{"result"},
	)

	// FacePresent tracks whether a face is currently detected
	FacePresent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sahayak_face_present",
			Help: "Whether a face is currently detected in the webcam feed",
		},
	)

	// ActiveNotices tracks the number of notices currently shown to the user
	ActiveNotices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sahayak_active_notices",
			Help: "Number of user-visible notices currently active",
		},
	)
)
