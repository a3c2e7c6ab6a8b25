package dto

import "time"

// LeadFilter contains query parameters for lead listing and batch selection.
type LeadFilter struct {
	Status          string
	Qualified       *bool
	Source          string
	ExcludeStatuses []string
	MinScore        *int
	NeverScored     bool
	ScoredBefore    *time.Time
	Sort            string
	Limit           int
	Offset          int
}

// CreateLeadRequest is the manual intake payload.
type CreateLeadRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	BusinessName    string `json:"business_name"`
	BusinessType    string `json:"business_type"`
	Website         string `json:"website"`
	VideoGoals      string `json:"video_goals"`
	Timeline        string `json:"timeline"`
	BudgetRange     string `json:"budget_range"`
	BudgetAllocated string `json:"budget_allocated"`
	PackageInterest string `json:"package_interest"`
	Source          string `json:"source"`
}

// BatchScoreRequest optionally narrows a batch run to specific leads.
type BatchScoreRequest struct {
	LeadIDs []string `json:"lead_ids"`
}

// VoiceConversationPayload is one completed call reported by the voice-agent vendor.
type VoiceConversationPayload struct {
	Transcript      string `json:"transcript"`
	Summary         string `json:"summary"`
	Sentiment       string `json:"sentiment"`
	IntentDetected  string `json:"intent_detected"`
	Outcome         string `json:"outcome"`
	CallBooked      bool   `json:"call_booked"`
	DurationSeconds *int   `json:"duration_seconds"`
}

// VoiceWebhookRequest is the ingestion payload posted after a voice-agent call.
// Contact fields identify or create the lead the conversation belongs to.
type VoiceWebhookRequest struct {
	LeadID       string                   `json:"lead_id"`
	Email        string                   `json:"email"`
	Phone        string                   `json:"phone"`
	FullName     string                   `json:"full_name"`
	BusinessName string                   `json:"business_name"`
	Conversation VoiceConversationPayload `json:"conversation"`
}
