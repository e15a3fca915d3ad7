// Package control wires the assistant components together and manages their
// lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sahayak-ai/sahayak/internal/assistant/conversation"
	"github.com/sahayak-ai/sahayak/internal/assistant/facecam"
	"github.com/sahayak-ai/sahayak/internal/assistant/responder"
	"github.com/sahayak-ai/sahayak/internal/core/config"
	"github.com/sahayak-ai/sahayak/internal/core/domain"
	"github.com/sahayak-ai/sahayak/internal/infra/backend"
	"github.com/sahayak-ai/sahayak/internal/monitor/health"
	"github.com/sahayak-ai/sahayak/internal/monitor/notice"
	"github.com/sahayak-ai/sahayak/internal/monitor/recovery"
	"github.com/sahayak-ai/sahayak/internal/server"
)

// Config holds the application configuration.
type Config struct {
	Port      int
	Backend   backend.Config
	Monitor   config.MonitorConfig
	Responder config.ResponderConfig
	Camera    config.CameraConfig
}

// Assistant is the main application struct. It owns every component and
// manages start/stop of the monitoring loop, the detection loop and the
// browser-facing server.
type Assistant struct {
	cfg Config

	client       *backend.Client
	store        *health.Store
	classifier   *health.Classifier
	poller       *health.Poller
	dispatcher   *recovery.Dispatcher
	orchestrator *recovery.Orchestrator
	notices      *notice.Center
	conv         *conversation.Manager
	respond      *responder.Responder
	detector     *facecam.Detector
	frames       *server.FrameBuffer
	hub          *server.Hub
	httpServer   *server.Server
	log          *slog.Logger

	cancel context.CancelFunc

	// offlineNotice is the sticky notice shown while the browser reports
	// being offline; dismissed when connectivity returns. Guarded by envMu
	// since the hub invokes the env handlers from per-connection goroutines.
	envMu         sync.Mutex
	offlineNotice string
}

// NewAssistant creates an Assistant with all dependencies initialized.
func NewAssistant(cfg Config) (*Assistant, error) {
	log := slog.Default()

	a := &Assistant{
		cfg: cfg,
		log: log,
	}

	// 1. Notices and upstream client
	a.notices = notice.NewCenter(log)
	a.client = backend.NewClient(cfg.Backend, log)

	if cfg.Backend.GRPCURL != "" {
		probe, err := backend.NewGRPCProbe(context.Background(), cfg.Backend.GRPCURL)
		if err != nil {
			return nil, fmt.Errorf("failed to init grpc probe: %w", err)
		}
		a.client.SetGRPCProbe(probe)
		log.Info("using gRPC health probe", "endpoint", cfg.Backend.GRPCURL)
	}

	// 2. Health state
	a.store = health.NewStore(cfg.Monitor.PollInterval, cfg.Monitor.MaxFailures)

	// 3. Conversation and response generation
	a.conv = conversation.NewManager(log)

	var remote responder.Generator
	switch cfg.Responder.Provider {
	case "openai":
		if cfg.Responder.OpenAIKey == "" {
			return nil, fmt.Errorf("responder provider is openai but no API key configured")
		}
		remote = responder.NewOpenAIGenerator(cfg.Responder.OpenAIKey)
		log.Info("using direct OpenAI response generation")
	default:
		remote = responder.GeneratorFunc(a.client.GenerateResponse)
	}
	a.respond = responder.New(remote, cfg.Responder.MinInterval, log)

	// 4. Face detection
	a.frames = server.NewFrameBuffer(cfg.Camera.LiveWindow)
	a.detector = facecam.NewDetector(
		func(ctx context.Context, frame []byte) (bool, error) {
			result, err := a.client.DetectFace(ctx, frame, a.conv.SessionID())
			if err != nil {
				return false, err
			}
			return result.FaceDetected, nil
		},
		cfg.Camera.FrameInterval,
		log,
	)
	a.detector.SetSource(a.frames)

	// 5. Recovery
	strategies := recovery.Strategies{
		Transcription:      recovery.NewTranscriptionStrategy(a.client),
		ResponseGeneration: recovery.NewResponseGenerationStrategy(a.respond.Rules()),
		TTS:                recovery.NewTTSStrategy(a.client),
		FaceDetection:      recovery.NewFaceDetectionStrategy(a.detector, cfg.Monitor.SettleDelay),
		Conversation:       recovery.NewConversationStrategy(a.conv),
	}
	a.dispatcher = recovery.NewDispatcher(strategies, a.store, log)
	a.orchestrator = recovery.NewOrchestrator(a.dispatcher, domain.AllServices(), a.store, a.notices, log)

	// 6. Polling
	a.classifier = health.NewClassifier(a.store, a.dispatcher, cfg.Monitor.RecoveryDelay, log)
	a.poller = health.NewPoller(
		health.PollerConfig{
			Interval:     cfg.Monitor.PollInterval,
			StartupDelay: cfg.Monitor.StartupDelay,
			Timeout:      cfg.Monitor.PollTimeout,
		},
		a.client,
		a.classifier,
		a.orchestrator,
		a.store,
		log,
	)

	// 7. Browser-facing surfaces
	a.hub = server.NewHub(a, a.frames, a.notices.Dismiss, log)
	a.notices.SetOnChange(a.hub.BroadcastNotices)
	a.classifier.SetOnProcessed(a.hub.BroadcastStatus)
	a.httpServer = server.New(a.store, a.hub, a, cfg.Port)

	return a, nil
}

// Start launches the HTTP server, the health poller and the face-detection
// loop.
func (a *Assistant) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		if err := a.httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	go a.poller.Run(runCtx)

	if err := a.detector.Start(runCtx); err != nil {
		a.log.Warn("face detection not started", "error", err)
	}

	a.log.Info("assistant started", "port", a.cfg.Port, "backend", a.cfg.Backend.BaseURL)
	return nil
}

// Stop shuts everything down: cancels the polling and detection loops,
// waits for outstanding recovery tasks, closes the notice timers and stops
// the HTTP server.
func (a *Assistant) Stop(ctx context.Context) error {
	a.log.Info("stopping assistant...")

	if a.cancel != nil {
		a.cancel()
	}
	a.detector.Stop()
	a.classifier.Wait()
	a.notices.Close()

	if err := a.client.Close(); err != nil {
		a.log.Warn("failed to close backend client", "error", err)
	}

	return a.httpServer.Stop(ctx)
}

// HandleTurn drives one full voice turn: transcribe the recording, generate
// a reply, synthesize speech. Implements server.TurnHandler.
func (a *Assistant) HandleTurn(ctx context.Context, audio []byte, format string) (*server.TurnResult, error) {
	if err := a.conv.Advance(domain.StepRecording, "turn received"); err != nil {
		return nil, fmt.Errorf("conversation busy: %w", err)
	}
	if err := a.conv.Advance(domain.StepTranscribing, "audio uploaded"); err != nil {
		return nil, fmt.Errorf("conversation busy: %w", err)
	}

	transcript, err := a.client.Transcribe(ctx, audio, format)
	if err != nil {
		_ = a.conv.Advance(domain.StepError, "transcription failed")
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	if err := a.conv.Advance(domain.StepThinking, "transcript ready"); err != nil {
		return nil, err
	}

	reply := a.respond.Respond(ctx, transcript, a.conv.SessionID())
	welcome := a.conv.FirstTurn()
	if welcome {
		reply = "नमस्ते! मैं आपका हिंदी AI सहायक हूं। " + reply
	}

	if err := a.conv.Advance(domain.StepSpeaking, "reply ready"); err != nil {
		return nil, err
	}

	// TTS failure falls back to text-only; the turn still succeeds.
	speech, err := a.client.Synthesize(ctx, reply)
	if err != nil {
		a.log.Warn("speech synthesis failed, replying text-only", "error", err)
		speech = nil
	}

	if err := a.conv.Advance(domain.StepIdle, "turn complete"); err != nil {
		return nil, err
	}

	return &server.TurnResult{
		SessionID:  a.conv.SessionID(),
		Transcript: transcript,
		Reply:      reply,
		Audio:      speech,
		Welcome:    welcome,
	}, nil
}

// OnOnline handles the browser reporting network connectivity restored:
// one immediate health check is scheduled. Implements server.EnvHandler.
func (a *Assistant) OnOnline() {
	a.log.Info("network online, scheduling health check")

	a.envMu.Lock()
	id := a.offlineNotice
	a.offlineNotice = ""
	a.envMu.Unlock()

	if id != "" {
		a.notices.Dismiss(id)
	}
	a.poller.CheckSoon(time.Second)
}

// OnOffline shows an offline notice. No poll is scheduled; the regular
// interval keeps running and will fail harmlessly until connectivity
// returns.
func (a *Assistant) OnOffline() {
	a.log.Warn("network offline reported by browser")

	a.envMu.Lock()
	defer a.envMu.Unlock()
	if a.offlineNotice == "" {
		a.offlineNotice = a.notices.Warning("You appear to be offline. The assistant will resume automatically.")
	}
}

// OnForeground handles the tab returning to the foreground.
func (a *Assistant) OnForeground() {
	a.log.Debug("tab foregrounded, scheduling health check")
	a.poller.CheckSoon(2 * time.Second)
}

// OnBackground handles the tab being hidden.
func (a *Assistant) OnBackground() {
	a.log.Debug("tab backgrounded")
}
