package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
)

// RecoveryDispatcher runs the recovery strategy for one service.
type RecoveryDispatcher interface {
	// Registered reports whether a strategy exists for the service.
	Registered(name domain.ServiceName) bool

	// Recover runs the strategy and reports success.
	Recover(ctx context.Context, name domain.ServiceName) bool
}

// Classifier interprets a raw status payload into per-service health records
// and schedules recovery attempts for unhealthy services.
type Classifier struct {
	store      *Store
	dispatcher RecoveryDispatcher
	delay      time.Duration
	log        *slog.Logger

	onProcessed func(domain.SystemStatus)
	tasks       sync.WaitGroup
}

// NewClassifier creates a classifier. delay is how long a scheduled recovery
// waits before firing, so it never races the poll cycle that requested it.
func NewClassifier(store *Store, dispatcher RecoveryDispatcher, delay time.Duration, log *slog.Logger) *Classifier {
	if delay == 0 {
		delay = time.Second
	}
	return &Classifier{
		store:      store,
		dispatcher: dispatcher,
		delay:      delay,
		log:        log,
	}
}

// SetOnProcessed registers a callback invoked with a status snapshot after
// each processed payload. Used to push status updates to the UI.
func (c *Classifier) SetOnProcessed(fn func(domain.SystemStatus)) {
	c.onProcessed = fn
}

// Process classifies every recognized service in the payload, then
// recomputes the aggregate tier. Classification of all services completes
// before the aggregate is recomputed; recovery attempts fire strictly after
// the configured delay.
func (c *Classifier) Process(ctx context.Context, payload *domain.StatusPayload) domain.StatusTier {
	for wireName, raw := range payload.Services {
		svc, ok := domain.ParseServiceName(wireName)
		if !ok {
			c.log.Debug("ignoring unknown service in status payload", "service", wireName)
			continue
		}

		healthy := domain.ServiceAvailability(raw)
		c.store.Upsert(svc, healthy, raw)

		if !healthy && c.dispatcher != nil && c.dispatcher.Registered(svc) {
			c.scheduleRecovery(ctx, svc)
		}
	}

	tier, healthy, total := c.store.RecomputeOverall()
	c.log.Info("service status processed", "healthy", healthy, "total", total, "overall", tier)

	if c.onProcessed != nil {
		c.onProcessed(c.store.Snapshot())
	}
	return tier
}

func (c *Classifier) scheduleRecovery(ctx context.Context, svc domain.ServiceName) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.delay):
		}
		c.dispatcher.Recover(ctx, svc)
	}()
}

// Wait blocks until all scheduled recovery tasks have finished. Called on
// teardown after the context is cancelled.
func (c *Classifier) Wait() {
	c.tasks.Wait()
}
