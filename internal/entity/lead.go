package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Lead lifecycle states. WON and LOST are terminal; closed leads are never rescored.
const (
	LeadStatusNew          = "NEW"
	LeadStatusContacted    = "CONTACTED"
	LeadStatusQualified    = "QUALIFIED"
	LeadStatusProposalSent = "PROPOSAL_SENT"
	LeadStatusWon          = "WON"
	LeadStatusLost         = "LOST"
)

// Lead represents a prospective customer captured from intake or a voice-agent call.
type Lead struct {
	ID              uuid.UUID       `json:"id"`
	FullName        *string         `json:"full_name,omitempty"`
	Email           *string         `json:"email,omitempty"`
	Phone           *string         `json:"phone,omitempty"`
	BusinessName    *string         `json:"business_name,omitempty"`
	BusinessType    *string         `json:"business_type,omitempty"`
	Website         *string         `json:"website,omitempty"`
	VideoGoals      *string         `json:"video_goals,omitempty"`
	Timeline        *string         `json:"timeline,omitempty"`
	BudgetRange     *string         `json:"budget_range,omitempty"`
	BudgetAllocated *string         `json:"budget_allocated,omitempty"`
	PackageInterest *string         `json:"package_interest,omitempty"`
	Source          *string         `json:"source,omitempty"`
	Status          string          `json:"status"`
	Score           int             `json:"score"`
	ScoreBreakdown  json.RawMessage `json:"score_breakdown,omitempty"`
	IsQualified     bool            `json:"is_qualified"`
	QualifiedAt     *time.Time      `json:"qualified_at,omitempty"`
	LastScoredAt    *time.Time      `json:"last_scored_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsClosed reports whether the lead reached a terminal status.
func (l *Lead) IsClosed() bool {
	return l.Status == LeadStatusWon || l.Status == LeadStatusLost
}
