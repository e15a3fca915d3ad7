// Package conversation owns the client-side conversation loop state.
package conversation

import (
	"errors"
	"time"

	"github.com/sahayak-ai/sahayak/internal/core/domain"
)

// Step is an alias for domain.ConversationStep for internal use.
type Step = domain.ConversationStep

// ErrInvalidTransition is returned when an invalid step transition is attempted.
var ErrInvalidTransition = errors.New("invalid conversation transition")

// validTransitions defines allowed step transitions. Key is the current
// step, value is the list of valid next steps. Reset bypasses this table.
var validTransitions = map[Step][]Step{
	domain.StepIdle:         {domain.StepRecording},
	domain.StepRecording:    {domain.StepTranscribing, domain.StepIdle},
	domain.StepTranscribing: {domain.StepThinking, domain.StepError},
	domain.StepThinking:     {domain.StepSpeaking, domain.StepError},
	domain.StepSpeaking:     {domain.StepIdle, domain.StepError},
	domain.StepError:        {domain.StepIdle, domain.StepRecording},
}

// CanTransition checks if a transition between two steps is valid.
func CanTransition(from, to Step) bool {
	for _, target := range validTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Transition records one step change with metadata.
type Transition struct {
	From      Step
	To        Step
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a transition record.
func NewTransition(from, to Step, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}
