package recovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
	"github.com/sahayak-ai/sahayak/internal/monitor/metrics"
)

// StatusStore is the slice of health state the dispatcher updates on a
// successful recovery.
type StatusStore interface {
	MarkRecovered(name domain.ServiceName)
}

// Dispatcher resolves a service name to its recovery strategy and runs it.
type Dispatcher struct {
	strategies Strategies
	store      StatusStore
	log        *slog.Logger
}

// NewDispatcher creates a dispatcher over the closed strategy set.
func NewDispatcher(strategies Strategies, store StatusStore, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		strategies: strategies,
		store:      store,
		log:        log,
	}
}

// Registered reports whether a strategy exists for the service.
func (d *Dispatcher) Registered(name domain.ServiceName) bool {
	return d.strategies.For(name) != nil
}

// Recover runs the strategy for name and reports success. A missing
// strategy is a logged no-op, not an error. A strategy error or panic is
// contained here and converted to failure; it never propagates to the
// polling loop.
func (d *Dispatcher) Recover(ctx context.Context, name domain.ServiceName) bool {
	strategy := d.strategies.For(name)
	if strategy == nil {
		d.log.Info("no recovery strategy registered", "service", name)
		return false
	}

	d.log.Info("attempting service recovery", "service", name)
	if err := runStrategy(ctx, strategy); err != nil {
		metrics.RecoveryAttempts.WithLabelValues(string(name), "failure").Inc()
		d.log.Warn("service recovery failed", "service", name, "error", err)
		return false
	}

	d.store.MarkRecovered(name)
	metrics.RecoveryAttempts.WithLabelValues(string(name), "success").Inc()
	d.log.Info("service recovery succeeded", "service", name)
	return true
}

func runStrategy(ctx context.Context, s Strategy) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovery strategy panicked: %v", r)
		}
	}()
	return s.Recover(ctx)
}
