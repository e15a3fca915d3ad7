// Package recovery maps unhealthy services to recovery actions and runs the
// escalated all-services recovery when polling itself keeps failing.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
)

// Strategy restores one service to a usable state from the client's point
// of view.
type Strategy interface {
	Recover(ctx context.Context) error
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(ctx context.Context) error

func (f StrategyFunc) Recover(ctx context.Context) error { return f(ctx) }

// Strategies is the closed set of per-service recovery actions. A nil field
// means no strategy is registered for that service.
type Strategies struct {
	Transcription      Strategy
	ResponseGeneration Strategy
	TTS                Strategy
	FaceDetection      Strategy
	Conversation       Strategy
}

// For resolves the strategy for a service name.
func (s Strategies) For(name domain.ServiceName) Strategy {
	switch name {
	case domain.ServiceTranscription:
		return s.Transcription
	case domain.ServiceResponseGeneration:
		return s.ResponseGeneration
	case domain.ServiceTTS:
		return s.TTS
	case domain.ServiceFaceDetection:
		return s.FaceDetection
	case domain.ServiceConversation:
		return s.Conversation
	default:
		return nil
	}
}

// HandleStore caches client handles to upstream services. The transcription
// and TTS strategies discard and re-probe handles through it.
type HandleStore interface {
	Invalidate(name domain.ServiceName)
	Probe(ctx context.Context) error
	Usable(name domain.ServiceName) bool
}

// FallbackGenerator produces a rule-based reply without touching the network.
type FallbackGenerator interface {
	Respond(input string) string
}

// DetectionLoop controls the face-detection polling loop.
type DetectionLoop interface {
	Stop()
	Restart(ctx context.Context) error
	HasSource() bool
}

// Session is the local conversation state the conversation strategy resets.
type Session interface {
	Reset()
}

// NewTranscriptionStrategy discards the cached transcription handle,
// re-probes upstream availability and succeeds iff a usable handle exists
// afterwards. It never performs an actual transcription call.
func NewTranscriptionStrategy(handles HandleStore) Strategy {
	return StrategyFunc(func(ctx context.Context) error {
		handles.Invalidate(domain.ServiceTranscription)
		if err := handles.Probe(ctx); err != nil {
			return fmt.Errorf("probe transcription service: %w", err)
		}
		if !handles.Usable(domain.ServiceTranscription) {
			return errors.New("transcription service unavailable after probe")
		}
		return nil
	})
}

// responseCanary is the input the response_generation strategy feeds the
// rule-based fallback to confirm it still produces output.
const responseCanary = "नमस्ते"

// NewResponseGenerationStrategy verifies the local rule-based fallback still
// answers a canary greeting. It never depends on network availability.
func NewResponseGenerationStrategy(fallback FallbackGenerator) Strategy {
	return StrategyFunc(func(ctx context.Context) error {
		if fallback.Respond(responseCanary) == "" {
			return errors.New("rule-based fallback produced no output")
		}
		return nil
	})
}

// NewTTSStrategy discards the cached speech-synthesis handle and re-probes.
// It always succeeds: a text-only fallback is available regardless of TTS
// health, so the probe result is advisory.
func NewTTSStrategy(handles HandleStore) Strategy {
	return StrategyFunc(func(ctx context.Context) error {
		handles.Invalidate(domain.ServiceTTS)
		if err := handles.Probe(ctx); err != nil {
			// Text-only mode still works; nothing to fail on.
			return nil
		}
		return nil
	})
}

// NewFaceDetectionStrategy stops the detection loop, waits for the settle
// delay, then restarts it only when a live camera stream is still present.
func NewFaceDetectionStrategy(loop DetectionLoop, settle time.Duration) Strategy {
	if settle == 0 {
		settle = 2 * time.Second
	}
	return StrategyFunc(func(ctx context.Context) error {
		loop.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settle):
		}
		if !loop.HasSource() {
			return errors.New("no live camera stream to restart detection with")
		}
		return loop.Restart(ctx)
	})
}

// NewConversationStrategy resets the conversation state machine. A pure
// local reset with no external dependency; it always succeeds.
func NewConversationStrategy(session Session) Strategy {
	return StrategyFunc(func(ctx context.Context) error {
		session.Reset()
		return nil
	})
}
