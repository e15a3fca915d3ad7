// Package health implements the status polling and classification loop.
package health

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
	"github.com/sahayak-ai/sahayak/internal/monitor/metrics"
)

// Store owns the system status and polling state. The poller, classifier
// and recovery components all mutate health through this one object; the
// mutex makes that safe across their goroutines.
type Store struct {
	mu     sync.RWMutex
	status domain.SystemStatus
	state  domain.HealthCheckState
	now    func() time.Time
}

// NewStore creates a store with the given poll interval and failure threshold.
func NewStore(interval time.Duration, maxFailures int) *Store {
	if interval == 0 {
		interval = 30 * time.Second
	}
	if maxFailures == 0 {
		maxFailures = 3
	}

	// One record per known service from the start, so the aggregate tier
	// is always computed over the full set. Services the status endpoint
	// never mentions (conversation is client-side only) still count.
	services := make(map[domain.ServiceName]*domain.ServiceHealthRecord, len(domain.AllServices()))
	for _, svc := range domain.AllServices() {
		services[svc] = &domain.ServiceHealthRecord{Healthy: true}
	}

	return &Store{
		status: domain.SystemStatus{
			Overall:  domain.TierHealthy,
			Services: services,
		},
		state: domain.HealthCheckState{
			Interval:    interval,
			MaxFailures: maxFailures,
		},
		now: time.Now,
	}
}

// Upsert records the observed health of one service. Records are created on
// first sight and updated in place afterwards, never removed.
func (s *Store) Upsert(name domain.ServiceName, healthy bool, details json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.status.Services[name]
	if !ok {
		rec = &domain.ServiceHealthRecord{}
		s.status.Services[name] = rec
	}
	rec.Healthy = healthy
	rec.LastCheck = s.now()
	rec.Details = details

	if healthy {
		metrics.ServiceHealthy.WithLabelValues(string(name)).Set(1)
	} else {
		metrics.ServiceHealthy.WithLabelValues(string(name)).Set(0)
	}
}

// MarkRecovered flips a service healthy after a successful recovery and
// updates the recovery bookkeeping.
func (s *Store) MarkRecovered(name domain.ServiceName) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.status.Services[name]
	if !ok {
		rec = &domain.ServiceHealthRecord{}
		s.status.Services[name] = rec
	}
	rec.Healthy = true
	rec.LastCheck = s.now()
	s.status.LastRecoveryAttempt = s.now()
	s.status.RecoveryCount++
	metrics.ServiceHealthy.WithLabelValues(string(name)).Set(1)
}

// RecomputeOverall derives the aggregate tier from the known records:
// all healthy means healthy, more than half healthy means degraded,
// anything else is critical. Returns the new tier together with the
// healthy and total counts.
func (s *Store) RecomputeOverall() (domain.StatusTier, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.status.Services)
	healthy := 0
	for _, rec := range s.status.Services {
		if rec.Healthy {
			healthy++
		}
	}

	tier := domain.TierHealthy
	switch {
	case healthy == total:
		tier = domain.TierHealthy
	case healthy*2 > total:
		tier = domain.TierDegraded
	default:
		tier = domain.TierCritical
	}
	s.status.Overall = tier
	return tier, healthy, total
}

// Record returns a copy of the record for one service.
func (s *Store) Record(name domain.ServiceName) (domain.ServiceHealthRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.status.Services[name]
	if !ok {
		return domain.ServiceHealthRecord{}, false
	}
	return *rec, true
}

// Snapshot returns a deep copy of the current system status.
func (s *Store) Snapshot() domain.SystemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := domain.SystemStatus{
		Overall:             s.status.Overall,
		Services:            make(map[domain.ServiceName]*domain.ServiceHealthRecord, len(s.status.Services)),
		LastRecoveryAttempt: s.status.LastRecoveryAttempt,
		RecoveryCount:       s.status.RecoveryCount,
	}
	for name, rec := range s.status.Services {
		cp := *rec
		out.Services[name] = &cp
	}
	return out
}

// RecordPollSuccess resets the failure streak and stamps the last check.
func (s *Store) RecordPollSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastCheck = s.now()
	s.state.ConsecutiveFailures = 0
	metrics.ConsecutivePollFailures.Set(0)
}

// RecordPollFailure increments the failure streak and returns its new value.
func (s *Store) RecordPollFailure() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ConsecutiveFailures++
	metrics.ConsecutivePollFailures.Set(float64(s.state.ConsecutiveFailures))
	return s.state.ConsecutiveFailures
}

// ResetFailures zeroes the failure streak. Called by the orchestrator after
// a system recovery so the next streak counts from zero.
func (s *Store) ResetFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ConsecutiveFailures = 0
	metrics.ConsecutivePollFailures.Set(0)
}

// MaxFailures returns the escalation threshold.
func (s *Store) MaxFailures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.MaxFailures
}

// PollState returns a copy of the polling state.
func (s *Store) PollState() domain.HealthCheckState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
