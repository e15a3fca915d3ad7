package control

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sahayak-ai/sahayak/internal/core/config"
	"github.com/sahayak-ai/sahayak/internal/core/domain"
	"github.com/sahayak-ai/sahayak/internal/infra/backend"
	"github.com/sahayak-ai/sahayak/internal/monitor/notice"
)

func testConfig(backendURL string) Config {
	return Config{
		Port:    0, // Random port
		Backend: backend.Config{BaseURL: backendURL, Timeout: time.Second},
		Monitor: config.MonitorConfig{
			PollInterval:  50 * time.Millisecond,
			StartupDelay:  time.Millisecond,
			PollTimeout:   time.Second,
			MaxFailures:   3,
			RecoveryDelay: 10 * time.Millisecond,
			SettleDelay:   10 * time.Millisecond,
		},
		Responder: config.ResponderConfig{Provider: "backend", MinInterval: time.Millisecond},
		Camera:    config.CameraConfig{FrameInterval: 50 * time.Millisecond, LiveWindow: time.Second},
	}
}

func TestAssistant_Lifecycle(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"services": {"speech_to_text": {"available": true}}}`))
	}))
	defer upstream.Close()

	app, err := NewAssistant(testConfig(upstream.URL))
	if err != nil {
		t.Fatalf("NewAssistant failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let the first poll land: the seeded record gets its first check stamp
	deadline := time.After(time.Second)
	for {
		rec, ok := app.store.Record(domain.ServiceTranscription)
		if ok && !rec.LastCheck.IsZero() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("poller never recorded a service check")
		case <-time.After(5 * time.Millisecond):
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestAssistant_OpenAIProviderRequiresKey(t *testing.T) {
	cfg := testConfig("http://localhost:1")
	cfg.Responder.Provider = "openai"

	if _, err := NewAssistant(cfg); err == nil {
		t.Error("openai provider without a key should fail fast")
	}
}

func TestAssistant_HandleTurn(t *testing.T) {
	audio := make([]byte, 4096)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/transcribe":
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "transcription": "नमस्ते", "confidence": 0.9})
		case "/api/generate-response":
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "success", "response": "नमस्ते! कैसे हैं?"})
		case "/api/text-to-speech":
			_, _ = w.Write(audio)
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	app, err := NewAssistant(testConfig(upstream.URL))
	if err != nil {
		t.Fatalf("NewAssistant failed: %v", err)
	}

	result, err := app.HandleTurn(context.Background(), []byte("opus"), "webm")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if result.Transcript != "नमस्ते" {
		t.Errorf("transcript = %q", result.Transcript)
	}
	if !result.Welcome {
		t.Error("first turn should carry the welcome flag")
	}
	if len(result.Audio) == 0 {
		t.Error("expected synthesized audio")
	}
	if app.conv.Step() != domain.StepIdle {
		t.Errorf("conversation ended at %s, want idle", app.conv.Step())
	}

	// Second turn is not a welcome turn
	result, err = app.HandleTurn(context.Background(), []byte("opus"), "webm")
	if err != nil {
		t.Fatalf("second HandleTurn failed: %v", err)
	}
	if result.Welcome {
		t.Error("second turn should not carry the welcome flag")
	}
}

func TestAssistant_HandleTurnTranscriptionFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stt offline", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	app, err := NewAssistant(testConfig(upstream.URL))
	if err != nil {
		t.Fatalf("NewAssistant failed: %v", err)
	}

	if _, err := app.HandleTurn(context.Background(), []byte("opus"), "webm"); err == nil {
		t.Fatal("expected an error when transcription fails")
	}
	if app.conv.Step() != domain.StepError {
		t.Errorf("conversation ended at %s, want error", app.conv.Step())
	}
	if app.conv.ErrorCount() != 1 {
		t.Errorf("error count = %d, want 1", app.conv.ErrorCount())
	}
}

func TestAssistant_HandleTurnTTSFailureIsTolerated(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/transcribe":
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "transcription": "धन्यवाद"})
		case "/api/generate-response":
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "success", "response": "स्वागत है"})
		case "/api/text-to-speech":
			http.Error(w, "tts offline", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	app, err := NewAssistant(testConfig(upstream.URL))
	if err != nil {
		t.Fatalf("NewAssistant failed: %v", err)
	}

	result, err := app.HandleTurn(context.Background(), []byte("opus"), "webm")
	if err != nil {
		t.Fatalf("turn should survive a tts failure: %v", err)
	}
	if result.Reply == "" {
		t.Error("expected a text reply")
	}
	if len(result.Audio) != 0 {
		t.Error("expected no audio after tts failure")
	}
	if app.conv.Step() != domain.StepIdle {
		t.Errorf("conversation ended at %s, want idle", app.conv.Step())
	}
}

func countingUpstream(t *testing.T, polls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/status" {
			atomic.AddInt32(polls, 1)
		}
		_, _ = w.Write([]byte(`{"services": {"speech_to_text": {"available": true}}}`))
	}))
}

func TestAssistant_OfflineOnline(t *testing.T) {
	var polls int32
	upstream := countingUpstream(t, &polls)
	defer upstream.Close()

	cfg := testConfig(upstream.URL)
	cfg.Monitor.PollInterval = time.Hour // only startup and extra checks can fire
	app, err := NewAssistant(cfg)
	if err != nil {
		t.Fatalf("NewAssistant failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	// Wait for the startup poll
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&polls) < 1 {
		select {
		case <-deadline:
			t.Fatal("startup poll never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
	base := atomic.LoadInt32(&polls)

	// Offline: one sticky warning, no extra poll, and no duplicate notice
	// when a second tab reports the same transition
	app.OnOffline()
	app.OnOffline()

	active := app.notices.Active()
	if len(active) != 1 {
		t.Fatalf("got %d notices after going offline twice, want 1", len(active))
	}
	if !active[0].Sticky || active[0].Level != notice.LevelWarning {
		t.Errorf("offline notice = %+v, want a sticky warning", active[0])
	}

	time.Sleep(150 * time.Millisecond)
	if got := atomic.LoadInt32(&polls); got != base {
		t.Errorf("offline scheduled a poll: count went %d -> %d", base, got)
	}

	// Online: the notice is dismissed and one extra check is scheduled
	app.OnOnline()

	if len(app.notices.Active()) != 0 {
		t.Error("offline notice should be dismissed on the online transition")
	}

	deadline = time.After(3 * time.Second)
	for atomic.LoadInt32(&polls) <= base {
		select {
		case <-deadline:
			t.Fatal("online transition never triggered a health check")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// recordingHandler captures log records for assertions.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool { return true }

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(name string) slog.Handler       { return h }

func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.records))
	for _, r := range h.records {
		out = append(out, r.Message)
	}
	return out
}

func TestAssistant_CleanShutdownLogsNoServerError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"services": {}}`))
	}))
	defer upstream.Close()

	handler := &recordingHandler{}
	prev := slog.Default()
	slog.SetDefault(slog.New(handler))
	defer slog.SetDefault(prev)

	app, err := NewAssistant(testConfig(upstream.URL))
	if err != nil {
		t.Fatalf("NewAssistant failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	for _, msg := range handler.messages() {
		if msg == "HTTP server failed" {
			t.Error("clean shutdown must not log a server failure")
		}
	}
}
