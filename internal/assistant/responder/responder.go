// Package responder generates assistant replies, falling back from a remote
// generator to rule-based and emergency responses.
package responder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Generator produces a reply for user input.
type Generator interface {
	Generate(ctx context.Context, input, sessionID string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, input, sessionID string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, input, sessionID string) (string, error) {
	return f(ctx, input, sessionID)
}

// Responder chains remote generation with the rule-based and emergency
// fallbacks. It never fails: some reply always comes back.
type Responder struct {
	remote      Generator
	rules       RuleSet
	minInterval time.Duration
	log         *slog.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

// New creates a responder. remote may be nil, in which case only the
// fallbacks are used. minInterval rate limits remote calls.
func New(remote Generator, minInterval time.Duration, log *slog.Logger) *Responder {
	return &Responder{
		remote:      remote,
		rules:       RuleSet{},
		minInterval: minInterval,
		log:         log,
	}
}

// Rules exposes the rule-based fallback for the recovery canary check.
func (r *Responder) Rules() RuleSet {
	return r.rules
}

// Respond returns a reply for input. Remote failure falls back to the rule
// set, then to an emergency reply.
func (r *Responder) Respond(ctx context.Context, input, sessionID string) string {
	if r.remote != nil {
		if err := r.throttle(ctx); err == nil {
			reply, err := r.remote.Generate(ctx, input, sessionID)
			if err == nil && reply != "" {
				return reply
			}
			if err != nil {
				r.log.Warn("remote generation failed, falling back", "error", err)
			}
		}
	}

	if reply := r.rules.Respond(input); reply != "" {
		r.log.Info("using rule-based reply")
		return reply
	}

	r.log.Warn("no rule matched, using emergency reply")
	return Emergency()
}

// throttle waits out the minimum interval between remote calls.
func (r *Responder) throttle(ctx context.Context) error {
	if r.minInterval == 0 {
		return nil
	}

	r.mu.Lock()
	wait := r.minInterval - time.Since(r.lastRequest)
	if wait < 0 {
		wait = 0
	}
	r.lastRequest = time.Now().Add(wait)
	r.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
