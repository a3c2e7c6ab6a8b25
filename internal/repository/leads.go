package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reelworks/crm-api/internal/dto"
	"github.com/reelworks/crm-api/internal/entity"
)

// ErrLeadNotFound indicates there is no lead row for the given identifier.
var ErrLeadNotFound = errors.New("lead not found")

// ScoreUpdate carries the fields written back after a scoring pass.
type ScoreUpdate struct {
	Score        int
	Breakdown    json.RawMessage
	LastScoredAt time.Time
	IsQualified  bool
	QualifiedAt  *time.Time
	Status       string
}

// LeadsRepository describes persistence operations for leads and their
// voice conversations. Conversations are insert-only from this side.
type LeadsRepository interface {
	Create(ctx context.Context, lead *entity.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Lead, error)
	GetWithConversations(ctx context.Context, id uuid.UUID) (*entity.Lead, []entity.VoiceConversation, error)
	FindByContact(ctx context.Context, email, phone string) (*entity.Lead, error)
	List(ctx context.Context, filter dto.LeadFilter) ([]entity.Lead, error)
	UpdateScore(ctx context.Context, id uuid.UUID, update ScoreUpdate) (*entity.Lead, error)
	InsertConversation(ctx context.Context, conversation *entity.VoiceConversation) error
}

// PGXLeadsRepository implements LeadsRepository using pgx.
type PGXLeadsRepository struct {
	pool pgxPool
}

// NewPGXLeadsRepository wires a pgx backed repository.
func NewPGXLeadsRepository(pool *pgxpool.Pool) *PGXLeadsRepository {
	return &PGXLeadsRepository{pool: pool}
}

const leadColumns = `
            id,
            full_name,
            email,
            phone,
            business_name,
            business_type,
            website,
            video_goals,
            timeline,
            budget_range,
            budget_allocated,
            package_interest,
            source,
            status,
            score,
            score_breakdown,
            is_qualified,
            qualified_at,
            last_scored_at,
            created_at,
            updated_at`

// Create inserts a new lead with a fresh identifier.
func (r *PGXLeadsRepository) Create(ctx context.Context, lead *entity.Lead) error {
	if lead == nil {
		return fmt.Errorf("lead payload is nil")
	}
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Status == "" {
		lead.Status = entity.LeadStatusNew
	}

	query := `
        INSERT INTO leads (
            id, full_name, email, phone, business_name, business_type, website,
            video_goals, timeline, budget_range, budget_allocated, package_interest,
            source, status, score, is_qualified, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW(),NOW())
    `

	_, err := r.pool.Exec(ctx, query,
		lead.ID,
		lead.FullName,
		lead.Email,
		lead.Phone,
		lead.BusinessName,
		lead.BusinessType,
		lead.Website,
		lead.VideoGoals,
		lead.Timeline,
		lead.BudgetRange,
		lead.BudgetAllocated,
		lead.PackageInterest,
		lead.Source,
		lead.Status,
		lead.Score,
		lead.IsQualified,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}

	return nil
}

// GetByID fetches a single lead.
func (r *PGXLeadsRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Lead, error) {
	query := "SELECT" + leadColumns + " FROM leads WHERE id = $1"

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query lead: %w", err)
	}
	defer rows.Close()

	leads, err := scanLeads(rows)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, ErrLeadNotFound
	}
	return &leads[0], nil
}

// GetWithConversations fetches a lead together with its full conversation
// history, newest call first.
func (r *PGXLeadsRepository) GetWithConversations(ctx context.Context, id uuid.UUID) (*entity.Lead, []entity.VoiceConversation, error) {
	lead, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	query := `
        SELECT id, lead_id, transcript, summary, sentiment, intent_detected, outcome,
               call_booked, duration_seconds, created_at
        FROM voice_conversations
        WHERE lead_id = $1
        ORDER BY created_at DESC
    `

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	conversations, err := scanConversations(rows)
	if err != nil {
		return nil, nil, err
	}

	return lead, conversations, nil
}

// FindByContact looks a lead up by email or phone, preferring the most recent
// match. Used by webhook ingestion to attach conversations to existing leads.
func (r *PGXLeadsRepository) FindByContact(ctx context.Context, email, phone string) (*entity.Lead, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return nil, ErrLeadNotFound
	}

	var (
		clauses []string
		args    []any
		idx     = 1
	)
	if email != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(email) = LOWER($%d)", idx))
		args = append(args, email)
		idx++
	}
	if phone != "" {
		clauses = append(clauses, fmt.Sprintf("phone = $%d", idx))
		args = append(args, phone)
		idx++
	}

	query := "SELECT" + leadColumns + " FROM leads WHERE " + strings.Join(clauses, " OR ") +
		" ORDER BY created_at DESC LIMIT 1"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lead by contact: %w", err)
	}
	defer rows.Close()

	leads, err := scanLeads(rows)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, ErrLeadNotFound
	}
	return &leads[0], nil
}

// List retrieves leads matching the provided filter.
func (r *PGXLeadsRepository) List(ctx context.Context, filter dto.LeadFilter) ([]entity.Lead, error) {
	baseQuery := strings.Builder{}
	baseQuery.WriteString("SELECT" + leadColumns + " FROM leads")

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", idx))
		args = append(args, filter.Status)
		idx++
	}
	if filter.Qualified != nil {
		clauses = append(clauses, fmt.Sprintf("is_qualified = $%d", idx))
		args = append(args, *filter.Qualified)
		idx++
	}
	if filter.Source != "" {
		clauses = append(clauses, fmt.Sprintf("source = $%d", idx))
		args = append(args, filter.Source)
		idx++
	}
	if len(filter.ExcludeStatuses) > 0 {
		clauses = append(clauses, fmt.Sprintf("status != ALL($%d)", idx))
		args = append(args, filter.ExcludeStatuses)
		idx++
	}
	if filter.MinScore != nil {
		clauses = append(clauses, fmt.Sprintf("score >= $%d", idx))
		args = append(args, *filter.MinScore)
		idx++
	}
	if filter.NeverScored && filter.ScoredBefore != nil {
		clauses = append(clauses, fmt.Sprintf("(last_scored_at IS NULL OR last_scored_at < $%d)", idx))
		args = append(args, *filter.ScoredBefore)
		idx++
	} else if filter.NeverScored {
		clauses = append(clauses, "last_scored_at IS NULL")
	} else if filter.ScoredBefore != nil {
		clauses = append(clauses, fmt.Sprintf("last_scored_at < $%d", idx))
		args = append(args, *filter.ScoredBefore)
		idx++
	}

	if len(clauses) > 0 {
		baseQuery.WriteString(" WHERE ")
		baseQuery.WriteString(strings.Join(clauses, " AND "))
	}

	orderClause := "created_at DESC"
	if strings.EqualFold(filter.Sort, "score") {
		orderClause = "score DESC, created_at DESC"
	}
	baseQuery.WriteString(" ORDER BY ")
	baseQuery.WriteString(orderClause)

	if filter.Limit > 0 {
		baseQuery.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1))
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, baseQuery.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows)
}

// UpdateScore persists the outcome of a scoring pass and returns the updated row.
func (r *PGXLeadsRepository) UpdateScore(ctx context.Context, id uuid.UUID, update ScoreUpdate) (*entity.Lead, error) {
	breakdown := update.Breakdown
	if len(breakdown) == 0 {
		breakdown = json.RawMessage("{}")
	}

	query := `
        UPDATE leads SET
            score = $2,
            score_breakdown = $3::jsonb,
            last_scored_at = $4,
            is_qualified = $5,
            qualified_at = $6,
            status = $7,
            updated_at = NOW()
        WHERE id = $1
        RETURNING` + leadColumns

	rows, err := r.pool.Query(ctx, query,
		id,
		update.Score,
		string(breakdown),
		update.LastScoredAt,
		update.IsQualified,
		update.QualifiedAt,
		update.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("update lead score: %w", err)
	}
	defer rows.Close()

	leads, err := scanLeads(rows)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, ErrLeadNotFound
	}
	return &leads[0], nil
}

// InsertConversation stores one completed voice-agent call.
func (r *PGXLeadsRepository) InsertConversation(ctx context.Context, conversation *entity.VoiceConversation) error {
	if conversation == nil {
		return fmt.Errorf("conversation payload is nil")
	}
	if conversation.ID == uuid.Nil {
		conversation.ID = uuid.New()
	}

	query := `
        INSERT INTO voice_conversations (
            id, lead_id, transcript, summary, sentiment, intent_detected, outcome,
            call_booked, duration_seconds, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
    `

	_, err := r.pool.Exec(ctx, query,
		conversation.ID,
		conversation.LeadID,
		conversation.Transcript,
		conversation.Summary,
		conversation.Sentiment,
		conversation.IntentDetected,
		conversation.Outcome,
		conversation.CallBooked,
		conversation.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}

	return nil
}

func scanLeads(rows pgx.Rows) ([]entity.Lead, error) {
	var leads []entity.Lead
	for rows.Next() {
		var (
			l               entity.Lead
			fullName        sql.NullString
			email           sql.NullString
			phone           sql.NullString
			businessName    sql.NullString
			businessType    sql.NullString
			website         sql.NullString
			videoGoals      sql.NullString
			timeline        sql.NullString
			budgetRange     sql.NullString
			budgetAllocated sql.NullString
			packageInterest sql.NullString
			source          sql.NullString
			breakdown       []byte
			qualifiedAt     sql.NullTime
			lastScoredAt    sql.NullTime
		)

		err := rows.Scan(
			&l.ID,
			&fullName,
			&email,
			&phone,
			&businessName,
			&businessType,
			&website,
			&videoGoals,
			&timeline,
			&budgetRange,
			&budgetAllocated,
			&packageInterest,
			&source,
			&l.Status,
			&l.Score,
			&breakdown,
			&l.IsQualified,
			&qualifiedAt,
			&lastScoredAt,
			&l.CreatedAt,
			&l.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}

		l.FullName = nullStringToPtr(fullName)
		l.Email = nullStringToPtr(email)
		l.Phone = nullStringToPtr(phone)
		l.BusinessName = nullStringToPtr(businessName)
		l.BusinessType = nullStringToPtr(businessType)
		l.Website = nullStringToPtr(website)
		l.VideoGoals = nullStringToPtr(videoGoals)
		l.Timeline = nullStringToPtr(timeline)
		l.BudgetRange = nullStringToPtr(budgetRange)
		l.BudgetAllocated = nullStringToPtr(budgetAllocated)
		l.PackageInterest = nullStringToPtr(packageInterest)
		l.Source = nullStringToPtr(source)
		if len(breakdown) > 0 {
			l.ScoreBreakdown = json.RawMessage(breakdown)
		}
		if qualifiedAt.Valid {
			ts := qualifiedAt.Time
			l.QualifiedAt = &ts
		}
		if lastScoredAt.Valid {
			ts := lastScoredAt.Time
			l.LastScoredAt = &ts
		}

		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

func scanConversations(rows pgx.Rows) ([]entity.VoiceConversation, error) {
	var conversations []entity.VoiceConversation
	for rows.Next() {
		var (
			c          entity.VoiceConversation
			transcript sql.NullString
			summary    sql.NullString
			sentiment  sql.NullString
			intent     sql.NullString
			outcome    sql.NullString
			duration   sql.NullInt64
		)

		err := rows.Scan(
			&c.ID,
			&c.LeadID,
			&transcript,
			&summary,
			&sentiment,
			&intent,
			&outcome,
			&c.CallBooked,
			&duration,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}

		c.Transcript = nullStringToPtr(transcript)
		c.Summary = nullStringToPtr(summary)
		c.Sentiment = nullStringToPtr(sentiment)
		c.IntentDetected = nullStringToPtr(intent)
		c.Outcome = nullStringToPtr(outcome)
		if duration.Valid {
			cast := int(duration.Int64)
			c.DurationSeconds = &cast
		}

		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return conversations, nil
}

func nullStringToPtr(value sql.NullString) *string {
	if value.Valid {
		val := value.String
		return &val
	}
	return nil
}
