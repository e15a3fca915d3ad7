package domain

// ConversationStep is one step of the client-side conversation loop.
type ConversationStep string

const (
	StepIdle         ConversationStep = "idle"
	StepRecording    ConversationStep = "recording"
	StepTranscribing ConversationStep = "transcribing"
	StepThinking     ConversationStep = "thinking"
	StepSpeaking     ConversationStep = "speaking"
	StepError        ConversationStep = "error"
)
