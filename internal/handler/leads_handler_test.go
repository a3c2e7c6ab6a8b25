package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/reelworks/crm-api/internal/dto"
	"github.com/reelworks/crm-api/internal/entity"
	"github.com/reelworks/crm-api/internal/repository"
	"github.com/reelworks/crm-api/internal/service"
)

type stubLeadsRepo struct {
	lastFilter         dto.LeadFilter
	create             func(ctx context.Context, lead *entity.Lead) error
	getByID            func(ctx context.Context, id uuid.UUID) (*entity.Lead, error)
	getWith            func(ctx context.Context, id uuid.UUID) (*entity.Lead, []entity.VoiceConversation, error)
	findByContact      func(ctx context.Context, email, phone string) (*entity.Lead, error)
	list               func(ctx context.Context, filter dto.LeadFilter) ([]entity.Lead, error)
	updateScore        func(ctx context.Context, id uuid.UUID, update repository.ScoreUpdate) (*entity.Lead, error)
	insertConversation func(ctx context.Context, conversation *entity.VoiceConversation) error
}

func (s *stubLeadsRepo) Create(ctx context.Context, lead *entity.Lead) error {
	if s.create != nil {
		return s.create(ctx, lead)
	}
	return errors.New("not implemented")
}

func (s *stubLeadsRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Lead, error) {
	if s.getByID != nil {
		return s.getByID(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (s *stubLeadsRepo) GetWithConversations(ctx context.Context, id uuid.UUID) (*entity.Lead, []entity.VoiceConversation, error) {
	if s.getWith != nil {
		return s.getWith(ctx, id)
	}
	return nil, nil, errors.New("not implemented")
}

func (s *stubLeadsRepo) FindByContact(ctx context.Context, email, phone string) (*entity.Lead, error) {
	if s.findByContact != nil {
		return s.findByContact(ctx, email, phone)
	}
	return nil, errors.New("not implemented")
}

func (s *stubLeadsRepo) List(ctx context.Context, filter dto.LeadFilter) ([]entity.Lead, error) {
	s.lastFilter = filter
	if s.list != nil {
		return s.list(ctx, filter)
	}
	return nil, errors.New("not implemented")
}

func (s *stubLeadsRepo) UpdateScore(ctx context.Context, id uuid.UUID, update repository.ScoreUpdate) (*entity.Lead, error) {
	if s.updateScore != nil {
		return s.updateScore(ctx, id, update)
	}
	return nil, errors.New("not implemented")
}

func (s *stubLeadsRepo) InsertConversation(ctx context.Context, conversation *entity.VoiceConversation) error {
	if s.insertConversation != nil {
		return s.insertConversation(ctx, conversation)
	}
	return errors.New("not implemented")
}

func newLeadsHandler(repo repository.LeadsRepository) *LeadsHandler {
	intake := service.NewLeadIntake("US")
	scores := service.NewLeadScoreService(repo, 0)
	return NewLeadsHandler(repo, intake, scores, 0)
}

func TestLeadsHandler_List_FilterParsing(t *testing.T) {
	repo := &stubLeadsRepo{
		list: func(ctx context.Context, filter dto.LeadFilter) ([]entity.Lead, error) {
			return []entity.Lead{{ID: uuid.New()}}, nil
		},
	}
	handler := newLeadsHandler(repo)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/leads?status=NEW&qualified=true&min_score=40&sort=score&limit=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if repo.lastFilter.Status != "NEW" {
		t.Fatalf("expected status filter applied, got %q", repo.lastFilter.Status)
	}
	if repo.lastFilter.Qualified == nil || !*repo.lastFilter.Qualified {
		t.Fatalf("expected qualified filter parsed, got %v", repo.lastFilter.Qualified)
	}
	if repo.lastFilter.MinScore == nil || *repo.lastFilter.MinScore != 40 {
		t.Fatalf("expected min_score parsed, got %v", repo.lastFilter.MinScore)
	}
	if repo.lastFilter.Limit != 10 {
		t.Fatalf("expected limit 10, got %d", repo.lastFilter.Limit)
	}

	var payload APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Status != "success" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestLeadsHandler_List_BadQualified(t *testing.T) {
	handler := newLeadsHandler(&stubLeadsRepo{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/leads?qualified=maybe", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = handler.List(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLeadsHandler_Create(t *testing.T) {
	e := echo.New()

	t.Run("missing contact info", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"full_name": "No Contact"})
		req := httptest.NewRequest(http.MethodPost, "/leads", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_ = newLeadsHandler(&stubLeadsRepo{}).Create(c)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"email": "nope"})
		req := httptest.NewRequest(http.MethodPost, "/leads", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_ = newLeadsHandler(&stubLeadsRepo{}).Create(c)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("success scores the new lead", func(t *testing.T) {
		var stored *entity.Lead
		repo := &stubLeadsRepo{
			create: func(ctx context.Context, lead *entity.Lead) error {
				lead.ID = uuid.New()
				stored = lead
				return nil
			},
			getWith: func(ctx context.Context, id uuid.UUID) (*entity.Lead, []entity.VoiceConversation, error) {
				return stored, nil, nil
			},
			updateScore: func(ctx context.Context, id uuid.UUID, update repository.ScoreUpdate) (*entity.Lead, error) {
				updated := *stored
				updated.Score = update.Score
				ts := update.LastScoredAt
				updated.LastScoredAt = &ts
				return &updated, nil
			},
		}

		body, _ := json.Marshal(map[string]string{"email": "new@acme.com", "business_name": "Acme"})
		req := httptest.NewRequest(http.MethodPost, "/leads", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := newLeadsHandler(repo).Create(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if stored == nil || stored.Email == nil || *stored.Email != "new@acme.com" {
			t.Fatalf("lead not persisted as expected: %+v", stored)
		}
	})
}

func TestLeadsHandler_Get(t *testing.T) {
	e := echo.New()

	t.Run("bad id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/leads/nope", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("nope")

		_ = newLeadsHandler(&stubLeadsRepo{}).Get(c)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		repo := &stubLeadsRepo{
			getByID: func(ctx context.Context, gotID uuid.UUID) (*entity.Lead, error) {
				return nil, repository.ErrLeadNotFound
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/leads/"+id.String(), nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(id.String())

		_ = newLeadsHandler(repo).Get(c)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("found", func(t *testing.T) {
		id := uuid.New()
		repo := &stubLeadsRepo{
			getByID: func(ctx context.Context, gotID uuid.UUID) (*entity.Lead, error) {
				return &entity.Lead{ID: gotID, Status: entity.LeadStatusNew}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/leads/"+id.String(), nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(id.String())

		if err := newLeadsHandler(repo).Get(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestLeadsHandler_HighValue(t *testing.T) {
	scored := time.Now()
	repo := &stubLeadsRepo{
		list: func(ctx context.Context, filter dto.LeadFilter) ([]entity.Lead, error) {
			return []entity.Lead{{ID: uuid.New(), Score: 88, LastScoredAt: &scored}}, nil
		},
	}
	handler := newLeadsHandler(repo)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/leads/high-value", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.HighValue(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if repo.lastFilter.MinScore == nil || *repo.lastFilter.MinScore != service.DefaultHighValueMinScore {
		t.Fatalf("expected default threshold, got %v", repo.lastFilter.MinScore)
	}
	if repo.lastFilter.Sort != "score" {
		t.Fatalf("expected score ordering, got %q", repo.lastFilter.Sort)
	}
}

func TestLeadsHandler_HighValue_ConfiguredThreshold(t *testing.T) {
	repo := &stubLeadsRepo{
		list: func(ctx context.Context, filter dto.LeadFilter) ([]entity.Lead, error) {
			return nil, nil
		},
	}
	intake := service.NewLeadIntake("US")
	scores := service.NewLeadScoreService(repo, 0)
	handler := NewLeadsHandler(repo, intake, scores, 90)

	e := echo.New()

	// no query param: the configured threshold applies
	req := httptest.NewRequest(http.MethodGet, "/leads/high-value", nil)
	rec := httptest.NewRecorder()
	if err := handler.HighValue(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastFilter.MinScore == nil || *repo.lastFilter.MinScore != 90 {
		t.Fatalf("expected configured threshold 90, got %v", repo.lastFilter.MinScore)
	}

	// explicit min_score overrides the configured threshold
	req = httptest.NewRequest(http.MethodGet, "/leads/high-value?min_score=45", nil)
	rec = httptest.NewRecorder()
	if err := handler.HighValue(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastFilter.MinScore == nil || *repo.lastFilter.MinScore != 45 {
		t.Fatalf("expected explicit threshold 45, got %v", repo.lastFilter.MinScore)
	}
}

func TestLeadsHandler_HighValue_BadMinScore(t *testing.T) {
	e := echo.New()

	for name, query := range map[string]string{
		"not a number": "min_score=abc",
		"zero":         "min_score=0",
		"negative":     "min_score=-5",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/leads/high-value?"+query, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			_ = newLeadsHandler(&stubLeadsRepo{}).HighValue(c)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}
