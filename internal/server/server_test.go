package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubStatus returns a fixed snapshot.
type stubStatus struct {
	overall domain.StatusTier
}

func (s *stubStatus) Snapshot() domain.SystemStatus {
	return domain.SystemStatus{
		Overall: s.overall,
		Services: map[domain.ServiceName]*domain.ServiceHealthRecord{
			domain.ServiceTranscription: {Healthy: s.overall == domain.TierHealthy},
		},
	}
}

// stubTurns records one HandleTurn call.
type stubTurns struct {
	result *TurnResult
	err    error
	audio  []byte
	format string
}

func (s *stubTurns) HandleTurn(ctx context.Context, audio []byte, format string) (*TurnResult, error) {
	s.audio = audio
	s.format = format
	return s.result, s.err
}

func newTestServer(status StatusSource, turns TurnHandler) *Server {
	hub := NewHub(nil, NewFrameBuffer(0), nil, discardLogger())
	return New(status, hub, turns, 0)
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(&stubStatus{overall: domain.TierHealthy}, nil)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "healthy" {
		t.Errorf("body status = %q", body["status"])
	}
}

func TestServer_HealthCritical(t *testing.T) {
	s := newTestServer(&stubStatus{overall: domain.TierCritical}, nil)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestServer_HealthDetailed(t *testing.T) {
	s := newTestServer(&stubStatus{overall: domain.TierDegraded}, nil)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status domain.SystemStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Overall != domain.TierDegraded {
		t.Errorf("overall = %s, want degraded", status.Overall)
	}
	if len(status.Services) != 1 {
		t.Errorf("got %d services, want 1", len(status.Services))
	}
}

func turnRequest(t *testing.T, filename string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(audio); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/voice-turn", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestServer_VoiceTurn(t *testing.T) {
	turns := &stubTurns{result: &TurnResult{
		SessionID:  "s1",
		Transcript: "नमस्ते",
		Reply:      "नमस्ते! आप कैसे हैं?",
	}}
	s := newTestServer(&stubStatus{overall: domain.TierHealthy}, turns)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, turnRequest(t, "clip.ogg", []byte("opus")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if turns.format != "ogg" {
		t.Errorf("format = %q, want ogg from the filename", turns.format)
	}
	if !bytes.Equal(turns.audio, []byte("opus")) {
		t.Error("audio bytes not passed through")
	}

	var result TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Reply != "नमस्ते! आप कैसे हैं?" {
		t.Errorf("reply = %q", result.Reply)
	}
}

func TestServer_VoiceTurnDefaultsFormat(t *testing.T) {
	turns := &stubTurns{result: &TurnResult{}}
	s := newTestServer(&stubStatus{overall: domain.TierHealthy}, turns)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, turnRequest(t, "recording", []byte("x")))

	if turns.format != "webm" {
		t.Errorf("format = %q, want webm default", turns.format)
	}
}

func TestServer_VoiceTurnErrors(t *testing.T) {
	s := newTestServer(&stubStatus{overall: domain.TierHealthy}, &stubTurns{err: errors.New("backend down")})

	// Wrong method
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/voice-turn", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}

	// Missing audio part
	rec = httptest.NewRecorder()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "no audio here")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/voice-turn", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing audio status = %d, want 400", rec.Code)
	}

	// Handler failure surfaces as 502
	rec = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, turnRequest(t, "clip.webm", []byte("x")))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("failed turn status = %d, want 502", rec.Code)
	}
}
