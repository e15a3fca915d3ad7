package recovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubStore records MarkRecovered calls.
type stubStore struct {
	mu        sync.Mutex
	recovered []domain.ServiceName
}

func (s *stubStore) MarkRecovered(name domain.ServiceName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recovered = append(s.recovered, name)
}

func (s *stubStore) recoveredServices() []domain.ServiceName {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ServiceName, len(s.recovered))
	copy(out, s.recovered)
	return out
}

func TestDispatcher_Success(t *testing.T) {
	store := &stubStore{}
	d := NewDispatcher(Strategies{
		TTS: StrategyFunc(func(ctx context.Context) error { return nil }),
	}, store, discardLogger())

	if !d.Recover(context.Background(), domain.ServiceTTS) {
		t.Error("expected recovery to succeed")
	}

	recovered := store.recoveredServices()
	if len(recovered) != 1 || recovered[0] != domain.ServiceTTS {
		t.Errorf("MarkRecovered calls = %v, want [tts]", recovered)
	}
}

func TestDispatcher_Failure(t *testing.T) {
	store := &stubStore{}
	d := NewDispatcher(Strategies{
		Transcription: StrategyFunc(func(ctx context.Context) error {
			return errors.New("still unreachable")
		}),
	}, store, discardLogger())

	if d.Recover(context.Background(), domain.ServiceTranscription) {
		t.Error("expected recovery to fail")
	}
	if len(store.recoveredServices()) != 0 {
		t.Error("failed recovery must not mark the service recovered")
	}
}

func TestDispatcher_UnregisteredIsNoOp(t *testing.T) {
	store := &stubStore{}
	d := NewDispatcher(Strategies{}, store, discardLogger())

	if d.Registered(domain.ServiceConversation) {
		t.Error("empty strategy set should register nothing")
	}
	if d.Recover(context.Background(), domain.ServiceConversation) {
		t.Error("missing strategy should report failure, not panic")
	}
}

func TestDispatcher_PanicContained(t *testing.T) {
	store := &stubStore{}
	d := NewDispatcher(Strategies{
		FaceDetection: StrategyFunc(func(ctx context.Context) error {
			panic("nil camera stream")
		}),
	}, store, discardLogger())

	// Must not propagate the panic
	if d.Recover(context.Background(), domain.ServiceFaceDetection) {
		t.Error("panicking strategy should report failure")
	}
	if len(store.recoveredServices()) != 0 {
		t.Error("panicking strategy must not mark the service recovered")
	}
}

func TestStrategies_ClosedSet(t *testing.T) {
	s := Strategies{
		Conversation: StrategyFunc(func(ctx context.Context) error { return nil }),
	}

	if s.For(domain.ServiceConversation) == nil {
		t.Error("registered strategy should resolve")
	}
	if s.For(domain.ServiceTTS) != nil {
		t.Error("unset strategy should resolve to nil")
	}
	if s.For(domain.ServiceName("unknown")) != nil {
		t.Error("unknown name should resolve to nil")
	}
}
