package domain

import (
	"encoding/json"
	"time"
)

// StatusTier represents the aggregate health of the assistant.
type StatusTier string

const (
	TierHealthy  StatusTier = "healthy"
	TierDegraded StatusTier = "degraded"
	TierCritical StatusTier = "critical"
)

// ServiceHealthRecord holds the last observed health of a single service.
// Records are updated in place on every poll or recovery attempt and are
// never removed.
type ServiceHealthRecord struct {
	Healthy   bool            `json:"healthy"`
	LastCheck time.Time       `json:"last_check"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// SystemStatus is the full client-side view of assistant health.
//
// Overall is "healthy" iff every record is healthy, "critical" when the
// healthy count is at most half of the total, and "degraded" otherwise.
type SystemStatus struct {
	Overall             StatusTier                           `json:"overall"`
	Services            map[ServiceName]*ServiceHealthRecord `json:"services"`
	LastRecoveryAttempt time.Time                            `json:"last_recovery_attempt,omitempty"`
	RecoveryCount       int                                  `json:"recovery_count"`
}

// HealthCheckState tracks the polling loop itself.
type HealthCheckState struct {
	LastCheck           time.Time     `json:"last_check"`
	Interval            time.Duration `json:"interval"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	MaxFailures         int           `json:"max_failures"`
}
