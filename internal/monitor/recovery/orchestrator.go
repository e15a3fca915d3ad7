package recovery

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
	"github.com/sahayak-ai/sahayak/internal/monitor/metrics"
)

// Notifier surfaces recovery progress and outcomes to the user.
type Notifier interface {
	// Info shows a transient informational notice.
	Info(text string, ttl time.Duration) string
	// Success shows a notice auto-dismissed after ttl.
	Success(text string, ttl time.Duration) string
	// Warning shows a sticky notice kept until manually dismissed.
	Warning(text string) string
	// Error shows a sticky error notice.
	Error(text string) string
	// Dismiss removes a notice by id.
	Dismiss(id string)
}

// FailureResetter zeroes the consecutive poll failure streak.
type FailureResetter interface {
	ResetFailures()
}

// Result is the outcome of one service's recovery attempt.
type Result struct {
	Service   domain.ServiceName `json:"service"`
	Recovered bool               `json:"recovered"`
}

// Orchestrator runs recovery for every registered service when polling
// itself has failed repeatedly.
type Orchestrator struct {
	dispatcher *Dispatcher
	services   []domain.ServiceName
	failures   FailureResetter
	notifier   Notifier
	log        *slog.Logger

	// successTTL is how long the all-recovered notice stays visible.
	successTTL time.Duration
}

// NewOrchestrator creates an orchestrator over the given service set.
func NewOrchestrator(dispatcher *Dispatcher, services []domain.ServiceName, failures FailureResetter, notifier Notifier, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		dispatcher: dispatcher,
		services:   services,
		failures:   failures,
		notifier:   notifier,
		log:        log,
		successTTL: 3 * time.Second,
	}
}

// RecoverSystem runs every service's recovery concurrently and reports the
// aggregate outcome to the user. All attempts are dispatched before any is
// awaited; one service's failure or panic never aborts the others. The
// failure streak is always reset afterwards so polling resumes cleanly.
func (o *Orchestrator) RecoverSystem(ctx context.Context) []Result {
	o.log.Warn("initiating system recovery", "services", len(o.services))
	recovering := o.notifier.Info("Assistant services are recovering…", 0)

	results := make([]Result, len(o.services))
	var wg sync.WaitGroup
	for i, svc := range o.services {
		wg.Add(1)
		go func(i int, svc domain.ServiceName) {
			defer wg.Done()
			results[i] = Result{
				Service:   svc,
				Recovered: o.dispatcher.Recover(ctx, svc),
			}
		}(i, svc)
	}
	wg.Wait()

	o.notifier.Dismiss(recovering)

	var failed []string
	for _, r := range results {
		if !r.Recovered {
			failed = append(failed, string(r.Service))
		}
	}

	switch {
	case len(failed) == 0:
		metrics.SystemRecoveries.WithLabelValues("success").Inc()
		o.notifier.Success("All assistant services recovered.", o.successTTL)
		o.log.Info("system recovery succeeded")
	case len(failed) < len(results):
		metrics.SystemRecoveries.WithLabelValues("partial").Inc()
		o.notifier.Warning("Partial recovery. Degraded: " + strings.Join(failed, ", "))
		o.log.Warn("system recovery partial", "degraded", failed)
	default:
		metrics.SystemRecoveries.WithLabelValues("failure").Inc()
		o.notifier.Error("Recovery failed. Please reload the assistant.")
		o.log.Error("system recovery failed")
	}

	o.failures.ResetFailures()
	return results
}
