package conversation

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
)

// RecordingStopper stops an in-progress audio capture.
type RecordingStopper interface {
	StopRecording()
}

// State is a snapshot of the conversation for the UI.
type State struct {
	SessionID    string `json:"session_id"`
	Step         Step   `json:"step"`
	ErrorCount   int    `json:"error_count"`
	InputEnabled bool   `json:"input_enabled"`
	Loading      bool   `json:"loading"`
	LastError    string `json:"last_error,omitempty"`
}

// Manager owns the conversation state for one session.
type Manager struct {
	mu           sync.Mutex
	sessionID    string
	step         Step
	errorCount   int
	inputEnabled bool
	loading      bool
	lastError    string
	recording    RecordingStopper
	welcomed     bool
	onTransition func(Transition)
	log          *slog.Logger
}

// NewManager creates a manager in the idle step with a fresh session id.
func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		sessionID:    uuid.New().String(),
		step:         domain.StepIdle,
		inputEnabled: true,
		log:          log,
	}
}

// SessionID returns the session identifier.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Step returns the current step.
func (m *Manager) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// SetOnTransition registers a callback invoked after each step change.
func (m *Manager) SetOnTransition(fn func(Transition)) {
	m.mu.Lock()
	m.onTransition = fn
	m.mu.Unlock()
}

// Advance moves to the next step, validating against the transition table.
// UI flags follow the step: processing steps disable input and show the
// loading indicator, idle re-enables input, error records the reason.
func (m *Manager) Advance(to Step, reason string) error {
	m.mu.Lock()
	from := m.step
	if !CanTransition(from, to) {
		m.mu.Unlock()
		m.log.Warn("rejected conversation transition", "from", from, "to", to, "reason", reason)
		return ErrInvalidTransition
	}
	m.step = to

	switch to {
	case domain.StepRecording:
		m.loading = false
		m.inputEnabled = true
	case domain.StepTranscribing, domain.StepThinking:
		m.loading = true
		m.inputEnabled = false
	case domain.StepSpeaking:
		m.loading = false
		m.inputEnabled = false
	case domain.StepIdle:
		m.loading = false
		m.inputEnabled = true
		m.lastError = ""
	case domain.StepError:
		m.errorCount++
		m.lastError = reason
		m.loading = false
		m.inputEnabled = true
	}

	fn := m.onTransition
	m.mu.Unlock()

	t := NewTransition(from, to, reason)
	m.log.Debug("conversation transition", "from", from, "to", to, "reason", reason)
	if fn != nil {
		fn(t)
	}
	return nil
}

// SetRecording attaches the active recording so Reset can stop it. Pass nil
// when recording finishes.
func (m *Manager) SetRecording(r RecordingStopper) {
	m.mu.Lock()
	m.recording = r
	m.mu.Unlock()
}

// FirstTurn reports whether this is the session's first conversation turn,
// flipping the welcome flag as a side effect.
func (m *Manager) FirstTurn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.welcomed {
		return false
	}
	m.welcomed = true
	return true
}

// ErrorCount returns the number of error transitions this session.
func (m *Manager) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCount
}

// InputEnabled reports whether user input controls are enabled.
func (m *Manager) InputEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputEnabled
}

// Snapshot returns the current state for the UI.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		SessionID:    m.sessionID,
		Step:         m.step,
		ErrorCount:   m.errorCount,
		InputEnabled: m.inputEnabled,
		Loading:      m.loading,
		LastError:    m.lastError,
	}
}

// Reset forces the conversation back to idle: stops any in-progress
// recording, zeroes the error counter, clears loading and error state and
// re-enables input. This is the conversation recovery action and bypasses
// the transition table.
func (m *Manager) Reset() {
	m.mu.Lock()
	rec := m.recording
	m.recording = nil
	m.step = domain.StepIdle
	m.errorCount = 0
	m.loading = false
	m.lastError = ""
	m.inputEnabled = true
	m.mu.Unlock()

	if rec != nil {
		rec.StopRecording()
	}
	m.log.Info("conversation state reset")
}
