package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/reelworks/crm-api/internal/dto"
	"github.com/reelworks/crm-api/internal/entity"
	"github.com/reelworks/crm-api/internal/repository"
	"github.com/reelworks/crm-api/internal/service/scoring"
)

// DefaultStaleDays is how long a stored score stays fresh.
const DefaultStaleDays = 7

// DefaultHighValueMinScore is the threshold for the high-value lead list.
const DefaultHighValueMinScore = 60

var closedStatuses = []string{entity.LeadStatusWon, entity.LeadStatusLost}

// BatchItemError records one failed lead inside a batch run.
type BatchItemError struct {
	LeadID string `json:"lead_id"`
	Error  string `json:"error"`
}

// BatchResult summarises a batch scoring run. Processed counts every attempt,
// Updated only successful writes.
type BatchResult struct {
	Processed int              `json:"processed"`
	Updated   int              `json:"updated"`
	Errors    []BatchItemError `json:"errors"`
}

// ScoringStats aggregates score health across open leads.
type ScoringStats struct {
	TotalLeads         int                   `json:"total_leads"`
	AverageScore       float64               `json:"average_score"`
	GradeDistribution  map[scoring.Grade]int `json:"grade_distribution"`
	AutoQualifiedCount int                   `json:"auto_qualified_count"`
	NeedsReview        int                   `json:"needs_review"`
}

// LeadScore pairs a lead with its live (not yet persisted) breakdown.
type LeadScore struct {
	Lead          *entity.Lead
	Conversations []entity.VoiceConversation
	Live          scoring.Breakdown
	NeedsUpdate   bool
}

// LeadScoreService orchestrates scoring passes over the lead store.
type LeadScoreService struct {
	repo      repository.LeadsRepository
	staleDays int
	now       func() time.Time
}

// NewLeadScoreService wires a score service. staleDays <= 0 falls back to the
// default staleness window.
func NewLeadScoreService(repo repository.LeadsRepository, staleDays int) *LeadScoreService {
	if staleDays <= 0 {
		staleDays = DefaultStaleDays
	}
	return &LeadScoreService{repo: repo, staleDays: staleDays, now: time.Now}
}

// GetLeadScore computes the live breakdown for a lead without persisting it.
func (s *LeadScoreService) GetLeadScore(ctx context.Context, leadID uuid.UUID) (*LeadScore, error) {
	lead, conversations, err := s.repo.GetWithConversations(ctx, leadID)
	if err != nil {
		return nil, err
	}

	live := scoring.Calculate(lead, conversations)

	needsUpdate := lead.LastScoredAt == nil ||
		lead.Score != live.Total ||
		s.now().Sub(*lead.LastScoredAt) > time.Duration(s.staleDays)*24*time.Hour

	return &LeadScore{
		Lead:          lead,
		Conversations: conversations,
		Live:          live,
		NeedsUpdate:   needsUpdate,
	}, nil
}

// UpdateLeadScore recomputes a lead's score and persists the result in a
// single write. Qualification is monotonic: a lead that qualified once stays
// qualified, and an existing qualifiedAt timestamp is never overwritten. A NEW
// lead that auto-qualifies advances to QUALIFIED.
func (s *LeadScoreService) UpdateLeadScore(ctx context.Context, leadID uuid.UUID) (*entity.Lead, error) {
	lead, conversations, err := s.repo.GetWithConversations(ctx, leadID)
	if err != nil {
		return nil, err
	}

	breakdown := scoring.Calculate(lead, conversations)

	raw, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("marshal score breakdown: %w", err)
	}

	now := s.now()
	update := repository.ScoreUpdate{
		Score:        breakdown.Total,
		Breakdown:    raw,
		LastScoredAt: now,
		IsQualified:  lead.IsQualified,
		QualifiedAt:  lead.QualifiedAt,
		Status:       lead.Status,
	}

	if breakdown.ShouldAutoQualify && !lead.IsQualified {
		update.IsQualified = true
		if update.QualifiedAt == nil {
			ts := now
			update.QualifiedAt = &ts
		}
		if lead.Status == entity.LeadStatusNew {
			update.Status = entity.LeadStatusQualified
		}
	}

	return s.repo.UpdateScore(ctx, leadID, update)
}

// LeadsNeedingUpdate returns open leads that were never scored or whose score
// is older than daysOld days, newest first.
func (s *LeadScoreService) LeadsNeedingUpdate(ctx context.Context, daysOld int) ([]entity.Lead, error) {
	if daysOld <= 0 {
		daysOld = s.staleDays
	}
	cutoff := s.now().AddDate(0, 0, -daysOld)

	return s.repo.List(ctx, dto.LeadFilter{
		ExcludeStatuses: closedStatuses,
		NeverScored:     true,
		ScoredBefore:    &cutoff,
	})
}

// BatchUpdateScores rescores the given leads, or every lead when no ids are
// supplied. Leads are processed sequentially; one failure never aborts the
// rest of the batch.
func (s *LeadScoreService) BatchUpdateScores(ctx context.Context, leadIDs []uuid.UUID) (BatchResult, error) {
	result := BatchResult{Errors: []BatchItemError{}}

	ids := leadIDs
	if len(ids) == 0 {
		leads, err := s.repo.List(ctx, dto.LeadFilter{})
		if err != nil {
			return result, fmt.Errorf("list leads for batch: %w", err)
		}
		ids = make([]uuid.UUID, 0, len(leads))
		for _, lead := range leads {
			ids = append(ids, lead.ID)
		}
	}

	for _, id := range ids {
		result.Processed++
		if _, err := s.UpdateLeadScore(ctx, id); err != nil {
			result.Errors = append(result.Errors, BatchItemError{LeadID: id.String(), Error: err.Error()})
			continue
		}
		result.Updated++
	}

	return result, nil
}

// HighValueLeads returns open leads at or above minScore, best first.
func (s *LeadScoreService) HighValueLeads(ctx context.Context, minScore int) ([]entity.Lead, error) {
	if minScore <= 0 {
		minScore = DefaultHighValueMinScore
	}

	return s.repo.List(ctx, dto.LeadFilter{
		ExcludeStatuses: closedStatuses,
		MinScore:        &minScore,
		Sort:            "score",
	})
}

// ScoringStats aggregates scoring health over all open leads.
func (s *LeadScoreService) ScoringStats(ctx context.Context) (ScoringStats, error) {
	stats := ScoringStats{
		GradeDistribution: map[scoring.Grade]int{
			scoring.GradeA: 0,
			scoring.GradeB: 0,
			scoring.GradeC: 0,
			scoring.GradeD: 0,
		},
	}

	leads, err := s.repo.List(ctx, dto.LeadFilter{ExcludeStatuses: closedStatuses})
	if err != nil {
		return stats, fmt.Errorf("list leads for stats: %w", err)
	}

	stats.TotalLeads = len(leads)
	if stats.TotalLeads == 0 {
		return stats, nil
	}

	sum := 0
	for _, lead := range leads {
		sum += lead.Score
		stats.GradeDistribution[scoring.GradeFor(lead.Score)]++
		if lead.IsQualified {
			stats.AutoQualifiedCount++
		}
		if lead.LastScoredAt == nil {
			stats.NeedsReview++
		}
	}

	stats.AverageScore = math.Round(float64(sum)/float64(stats.TotalLeads)*10) / 10

	return stats, nil
}
