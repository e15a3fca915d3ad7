package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
	"github.com/sahayak-ai/sahayak/internal/monitor/metrics"
	"github.com/sahayak-ai/sahayak/internal/monitor/recovery"
)

// StatusFetcher issues one status request against the upstream backend.
type StatusFetcher interface {
	Status(ctx context.Context) (*domain.StatusPayload, error)
}

// SystemRecoverer runs the escalated all-services recovery. Implementations
// must reset the failure streak before returning.
type SystemRecoverer interface {
	RecoverSystem(ctx context.Context) []recovery.Result
}

// PollerConfig holds polling timing parameters.
type PollerConfig struct {
	// Interval between polls. Default 30s.
	Interval time.Duration
	// StartupDelay before the first poll, so polling does not race
	// application initialization. Default 5s.
	StartupDelay time.Duration
	// Timeout bounds one status request. Default 10s.
	Timeout time.Duration
}

func (c *PollerConfig) applyDefaults() {
	if c.Interval == 0 {
		c.Interval = 30 * time.Second
	}
	if c.StartupDelay == 0 {
		c.StartupDelay = 5 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// Poller periodically checks the upstream status endpoint, feeding results
// to the classifier and escalating repeated failures to the recoverer.
type Poller struct {
	cfg        PollerConfig
	fetcher    StatusFetcher
	classifier *Classifier
	recoverer  SystemRecoverer
	store      *Store
	log        *slog.Logger
	extra      chan time.Duration
}

// NewPoller creates a poller.
func NewPoller(cfg PollerConfig, fetcher StatusFetcher, classifier *Classifier, recoverer SystemRecoverer, store *Store, log *slog.Logger) *Poller {
	cfg.applyDefaults()
	return &Poller{
		cfg:        cfg,
		fetcher:    fetcher,
		classifier: classifier,
		recoverer:  recoverer,
		store:      store,
		log:        log,
		extra:      make(chan time.Duration, 4),
	}
}

// Run polls until ctx is cancelled. The first poll fires after the startup
// delay, then on the fixed interval. Cancelling ctx stops the loop and is
// the only way to release its timers.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("health poller starting",
		"interval", p.cfg.Interval,
		"startup_delay", p.cfg.StartupDelay,
		"max_failures", p.store.MaxFailures(),
	)

	startup := time.NewTimer(p.cfg.StartupDelay)
	defer startup.Stop()
	select {
	case <-ctx.Done():
		return
	case <-startup.C:
	}
	p.poll(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("health poller stopping")
			return
		case <-ticker.C:
			p.poll(ctx)
		case delay := <-p.extra:
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			p.poll(ctx)
		}
	}
}

// CheckSoon schedules one extra health check after delay. Used by the
// network-online and tab-foreground transitions; the regular interval is
// unaffected.
func (p *Poller) CheckSoon(delay time.Duration) {
	select {
	case p.extra <- delay:
	default:
		// A check is already queued; one is enough.
	}
}

func (p *Poller) poll(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	payload, err := p.fetcher.Status(callCtx)
	if err != nil {
		metrics.PollsTotal.WithLabelValues("failure").Inc()
		failures := p.store.RecordPollFailure()
		p.log.Warn("health check failed", "error", err, "consecutive_failures", failures)

		if failures >= p.store.MaxFailures() && p.recoverer != nil {
			// The recoverer resets the streak, so the next failure
			// starts counting from zero and this fires once per streak.
			p.recoverer.RecoverSystem(ctx)
		}
		return
	}

	metrics.PollsTotal.WithLabelValues("success").Inc()
	p.store.RecordPollSuccess()
	p.classifier.Process(ctx, payload)
}
