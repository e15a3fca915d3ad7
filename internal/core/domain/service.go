// Package domain defines shared types used across internal packages.
package domain

import "encoding/json"

// ServiceName identifies one assistant capability whose availability is
// tracked independently.
type ServiceName string

const (
	ServiceTranscription      ServiceName = "transcription"
	ServiceResponseGeneration ServiceName = "response_generation"
	ServiceTTS                ServiceName = "tts"
	ServiceFaceDetection      ServiceName = "face_detection"
	ServiceConversation       ServiceName = "conversation"
)

// AllServices returns every known service in a stable order.
func AllServices() []ServiceName {
	return []ServiceName{
		ServiceTranscription,
		ServiceResponseGeneration,
		ServiceTTS,
		ServiceFaceDetection,
		ServiceConversation,
	}
}

// statusAliases maps the names the upstream status endpoint uses to canonical
// service names. The upstream backend reports "speech_to_text" where we say
// "transcription", and so on.
var statusAliases = map[string]ServiceName{
	"transcription":       ServiceTranscription,
	"speech_to_text":      ServiceTranscription,
	"response_generation": ServiceResponseGeneration,
	"response_generator":  ServiceResponseGeneration,
	"tts":                 ServiceTTS,
	"text_to_speech":      ServiceTTS,
	"face_detection":      ServiceFaceDetection,
	"conversation":        ServiceConversation,
}

// ParseServiceName resolves a wire-level service name to its canonical form.
func ParseServiceName(s string) (ServiceName, bool) {
	name, ok := statusAliases[s]
	return name, ok
}

// StatusPayload is the wire shape of GET /api/status. Each service entry is
// kept opaque; only the "available" flag is interpreted.
type StatusPayload struct {
	Services map[string]json.RawMessage `json:"services"`
}

// ServiceAvailability extracts the availability flag from one service entry.
// A missing, malformed or non-boolean flag means unavailable.
func ServiceAvailability(raw json.RawMessage) bool {
	var v struct {
		Available bool `json:"available"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return v.Available
}
