package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/reelworks/crm-api/internal/dto"
	"github.com/reelworks/crm-api/internal/entity"
	"github.com/reelworks/crm-api/internal/repository"
)

// ErrUnresolvedLead indicates a webhook payload that names no usable lead.
var ErrUnresolvedLead = errors.New("payload resolves to no lead: missing id and contact info")

const sourceVoiceAgent = "voice_agent"

// IngestResult reports what a webhook ingestion did to the lead.
type IngestResult struct {
	Lead          *entity.Lead `json:"lead"`
	LeadCreated   bool         `json:"lead_created"`
	AutoQualified bool         `json:"auto_qualified"`
	StatusChanged bool         `json:"status_changed"`
}

// VoiceIngestService attaches completed voice-agent calls to leads and
// triggers a scoring pass. Transcript extraction happens upstream at the
// vendor; the payload arrives with intent and outcome already derived.
type VoiceIngestService struct {
	repo   repository.LeadsRepository
	intake *LeadIntake
	scores *LeadScoreService
}

// NewVoiceIngestService wires the ingestion service.
func NewVoiceIngestService(repo repository.LeadsRepository, intake *LeadIntake, scores *LeadScoreService) *VoiceIngestService {
	return &VoiceIngestService{repo: repo, intake: intake, scores: scores}
}

// IngestConversation resolves the lead, stores the conversation and rescores.
// Unknown contacts create a new lead sourced from the voice agent.
func (s *VoiceIngestService) IngestConversation(ctx context.Context, req dto.VoiceWebhookRequest) (*IngestResult, error) {
	lead, created, err := s.resolveLead(ctx, req)
	if err != nil {
		return nil, err
	}

	conversation := &entity.VoiceConversation{
		LeadID:          lead.ID,
		Transcript:      optionalText(req.Conversation.Transcript),
		Summary:         optionalText(req.Conversation.Summary),
		Sentiment:       optionalText(req.Conversation.Sentiment),
		IntentDetected:  optionalText(req.Conversation.IntentDetected),
		Outcome:         optionalText(req.Conversation.Outcome),
		CallBooked:      req.Conversation.CallBooked,
		DurationSeconds: req.Conversation.DurationSeconds,
	}
	if err := s.repo.InsertConversation(ctx, conversation); err != nil {
		return nil, fmt.Errorf("store conversation: %w", err)
	}

	updated, err := s.scores.UpdateLeadScore(ctx, lead.ID)
	if err != nil {
		return nil, fmt.Errorf("rescore lead after ingestion: %w", err)
	}

	return &IngestResult{
		Lead:          updated,
		LeadCreated:   created,
		AutoQualified: !lead.IsQualified && updated.IsQualified,
		StatusChanged: lead.Status != updated.Status,
	}, nil
}

func (s *VoiceIngestService) resolveLead(ctx context.Context, req dto.VoiceWebhookRequest) (*entity.Lead, bool, error) {
	if req.LeadID != "" {
		id, err := uuid.Parse(req.LeadID)
		if err != nil {
			return nil, false, ValidationError{Field: "lead_id", Message: "invalid identifier"}
		}
		lead, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return lead, false, nil
	}

	email, phone := s.intake.CleanContact(ctx, req.Email, req.Phone)
	if email == "" && phone == "" {
		return nil, false, ErrUnresolvedLead
	}

	lead, err := s.repo.FindByContact(ctx, email, phone)
	if err == nil {
		return lead, false, nil
	}
	if !errors.Is(err, repository.ErrLeadNotFound) {
		return nil, false, err
	}

	source := sourceVoiceAgent
	lead = &entity.Lead{
		FullName:     optionalText(req.FullName),
		Email:        optionalText(email),
		Phone:        optionalText(phone),
		BusinessName: optionalText(req.BusinessName),
		Source:       &source,
		Status:       entity.LeadStatusNew,
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, false, fmt.Errorf("create lead from webhook: %w", err)
	}

	return lead, true, nil
}
