package entity

import (
	"time"

	"github.com/google/uuid"
)

// VoiceConversation records one completed call between a lead and the voice agent.
// Rows are written once by webhook ingestion and read-only afterwards.
type VoiceConversation struct {
	ID              uuid.UUID `json:"id"`
	LeadID          uuid.UUID `json:"lead_id"`
	Transcript      *string   `json:"transcript,omitempty"`
	Summary         *string   `json:"summary,omitempty"`
	Sentiment       *string   `json:"sentiment,omitempty"`
	IntentDetected  *string   `json:"intent_detected,omitempty"`
	Outcome         *string   `json:"outcome,omitempty"`
	CallBooked      bool      `json:"call_booked"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
