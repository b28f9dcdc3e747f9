// Package models defines the data structures shared across the service.
package models

// TranscriptEvent is a finalized speech transcript. Interim results are
// never surfaced, so IsFinal is always true for emitted events.
type TranscriptEvent struct {
	EventType string `json:"eventType" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
	TurnID    string `json:"turnId" validate:"required"`
	Text      string `json:"text" validate:"required"`
	IsFinal   bool   `json:"isFinal"`
	Timestamp int64  `json:"timestamp" validate:"gt=0"`
}

// TranslationEvent announces a translation record to downstream consumers.
type TranslationEvent struct {
	EventType string            `json:"eventType"`
	Source    string            `json:"source"` // endpoint, dictionary, synthetic, manual
	Record    TranslationRecord `json:"record"`
	Timestamp int64             `json:"timestamp"`
}

const (
	EventTypeTranscriptFinal    = "speech.transcript.final"
	EventTypeTranslationCreated = "translation.created"
)
