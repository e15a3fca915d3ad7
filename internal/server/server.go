package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
)

// StatusSource provides the current system status snapshot.
type StatusSource interface {
	Snapshot() domain.SystemStatus
}

// TurnResult is the outcome of one voice turn.
type TurnResult struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
	Reply      string `json:"reply"`
	Audio      []byte `json:"audio,omitempty"`
	Welcome    bool   `json:"welcome"`
}

// TurnHandler drives a full voice turn: transcribe, respond, synthesize.
type TurnHandler interface {
	HandleTurn(ctx context.Context, audio []byte, format string) (*TurnResult, error)
}

// Server exposes the daemon's HTTP surface: health and metrics endpoints,
// the browser websocket and the voice-turn upload.
type Server struct {
	status StatusSource
	hub    *Hub
	turns  TurnHandler
	server *http.Server
}

// New creates the HTTP server.
func New(status StatusSource, hub *Hub, turns TurnHandler, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		status: status,
		hub:    hub,
		turns:  turns,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", hub.HandleWS)
	mux.HandleFunc("/api/voice-turn", s.handleVoiceTurn)

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := s.status.Snapshot()

	response := map[string]string{"status": string(snapshot.Overall)}
	w.Header().Set("Content-Type", "application/json")

	if snapshot.Overall == domain.TierCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	snapshot := s.status.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// maxTurnUpload bounds a voice-turn recording to 50MB, matching the
// upstream backend's limit.
const maxTurnUpload = 50 << 20

func (s *Server) handleVoiceTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.turns == nil {
		http.Error(w, "voice turns unavailable", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxTurnUpload)
	if err := r.ParseMultipartForm(maxTurnUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no audio file provided")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio")
		return
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "empty audio file")
		return
	}

	format := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	if format == "" {
		format = "webm"
	}

	result, err := s.turns.HandleTurn(r.Context(), audio, format)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": msg,
	})
}
