// Package backend is the HTTP client for the upstream assistant backend.
//
// The backend hosts the heavy AI services (speech-to-text, response
// generation, text-to-speech, face detection); this client is thin glue:
// each method wraps one endpoint and records availability so the recovery
// strategies can ask whether a service handle is still usable.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
	"github.com/sahayak-ai/sahayak/internal/monitor/metrics"
)

// Config holds upstream backend connection settings.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	GRPCURL string        `yaml:"grpc_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client talks to the upstream backend over HTTP JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	probe      *GRPCProbe
	log        *slog.Logger

	mu      sync.RWMutex
	handles map[domain.ServiceName]time.Time
}

// NewClient creates a backend client. Timeout bounds every individual call.
func NewClient(cfg Config, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("backend breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker: breaker,
		log:     log,
		handles: make(map[domain.ServiceName]time.Time),
	}
}

// SetGRPCProbe attaches an optional gRPC health probe. When present, Probe
// checks services over the standard gRPC health protocol instead of HTTP.
func (c *Client) SetGRPCProbe(p *GRPCProbe) {
	c.probe = p
}

// Status fetches the upstream service status payload. A missing "services"
// object is not fatal; it yields an empty payload and the classifier treats
// the affected services as unhealthy.
func (c *Client) Status(ctx context.Context) (*domain.StatusPayload, error) {
	body, err := c.do(ctx, "status", http.MethodGet, "/api/status", "", nil)
	if err != nil {
		return nil, err
	}

	var payload domain.StatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	if payload.Services == nil {
		payload.Services = make(map[string]json.RawMessage)
	}

	c.refreshHandles(&payload)
	return &payload, nil
}

// Probe re-runs the upstream availability check, refreshing cached handles.
func (c *Client) Probe(ctx context.Context) error {
	if c.probe != nil {
		return c.probeGRPC(ctx)
	}
	_, err := c.Status(ctx)
	return err
}

func (c *Client) probeGRPC(ctx context.Context) error {
	// Network calls happen before the lock so Usable and Invalidate are
	// never blocked behind a slow probe.
	type outcome struct {
		svc     domain.ServiceName
		serving bool
	}
	var results []outcome
	var firstErr error
	for _, svc := range []domain.ServiceName{domain.ServiceTranscription, domain.ServiceTTS} {
		serving, err := c.probe.Check(ctx, string(svc))
		if err != nil && firstErr == nil {
			firstErr = err
		}
		results = append(results, outcome{svc: svc, serving: err == nil && serving})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range results {
		if !r.serving {
			delete(c.handles, r.svc)
			continue
		}
		if _, ok := c.handles[r.svc]; !ok {
			c.handles[r.svc] = time.Now()
		}
	}
	return firstErr
}

// Invalidate discards the cached handle for a service.
func (c *Client) Invalidate(name domain.ServiceName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handles, name)
}

// Usable reports whether a live handle to the service exists.
func (c *Client) Usable(name domain.ServiceName) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.handles[name]
	return ok
}

func (c *Client) refreshHandles(payload *domain.StatusPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for wireName, raw := range payload.Services {
		svc, ok := domain.ParseServiceName(wireName)
		if !ok {
			continue
		}
		if domain.ServiceAvailability(raw) {
			if _, exists := c.handles[svc]; !exists {
				c.handles[svc] = time.Now()
			}
		} else {
			delete(c.handles, svc)
		}
	}
}

// Transcribe uploads recorded audio and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "recording."+format)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	body, err := c.do(ctx, "transcribe", http.MethodPost, "/api/transcribe", mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return "", err
	}

	var resp struct {
		Status        string  `json:"status"`
		Transcription string  `json:"transcription"`
		Confidence    float64 `json:"confidence"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode transcribe response: %w", err)
	}
	if resp.Status != "success" || resp.Transcription == "" {
		return "", errors.New("transcription unavailable")
	}
	return resp.Transcription, nil
}

// GenerateResponse asks the backend for a reply to the given text.
func (c *Client) GenerateResponse(ctx context.Context, text, sessionID string) (string, error) {
	reqBody, err := json.Marshal(map[string]string{
		"text":       text,
		"session_id": sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.do(ctx, "generate_response", http.MethodPost, "/api/generate-response", "application/json", reqBody)
	if err != nil {
		return "", err
	}

	var resp struct {
		Status   string `json:"status"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "success" || resp.Response == "" {
		return "", errors.New("empty generated response")
	}
	return resp.Response, nil
}

// Synthesize converts text to speech and returns MP3 audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	reqBody, err := json.Marshal(map[string]any{
		"text":     text,
		"language": "hi",
		"slow":     false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	audio, err := c.do(ctx, "text_to_speech", http.MethodPost, "/api/text-to-speech", "application/json", reqBody)
	if err != nil {
		return nil, err
	}
	if len(audio) < 100 {
		return nil, errors.New("generated audio too small")
	}
	return audio, nil
}

// FaceResult is the outcome of one face detection call.
type FaceResult struct {
	FaceDetected bool `json:"face_detected"`
	FaceCount    int  `json:"face_count"`
}

// DetectFace submits one webcam frame (JPEG bytes) for face detection.
func (c *Client) DetectFace(ctx context.Context, frame []byte, sessionID string) (*FaceResult, error) {
	reqBody, err := json.Marshal(map[string]string{
		"image":      base64.StdEncoding.EncodeToString(frame),
		"session_id": sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.do(ctx, "detect_face", http.MethodPost, "/api/detect-face", "application/json", reqBody)
	if err != nil {
		return nil, err
	}

	var result FaceResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode detect-face response: %w", err)
	}
	return &result, nil
}

// Close releases the optional gRPC probe connection.
func (c *Client) Close() error {
	if c.probe != nil {
		return c.probe.Close()
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path, contentType string, reqBody []byte) ([]byte, error) {
	start := time.Now()

	result, err := c.breaker.Execute(func() (any, error) {
		var bodyReader io.Reader
		if reqBody != nil {
			bodyReader = bytes.NewReader(reqBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("backend call: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("backend returned status %d", resp.StatusCode)
		}
		return body, nil
	})

	metrics.BackendLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, "failure").Inc()
		return nil, err
	}
	metrics.BackendRequests.WithLabelValues(endpoint, "success").Inc()
	return result.([]byte), nil
}
