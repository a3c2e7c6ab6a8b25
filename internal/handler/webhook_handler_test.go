package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/reelworks/crm-api/internal/entity"
	"github.com/reelworks/crm-api/internal/repository"
	"github.com/reelworks/crm-api/internal/service"
)

func newWebhookHandler(repo repository.LeadsRepository) *WebhookHandler {
	intake := service.NewLeadIntake("US")
	scores := service.NewLeadScoreService(repo, 0)
	return NewWebhookHandler(service.NewVoiceIngestService(repo, intake, scores))
}

func TestWebhookHandler_VoiceAgent(t *testing.T) {
	e := echo.New()

	t.Run("no lead reference", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"conversation": map[string]any{"transcript": "hello"},
		})
		req := httptest.NewRequest(http.MethodPost, "/webhooks/voice-agent", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_ = newWebhookHandler(&stubLeadsRepo{}).VoiceAgent(c)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown lead id", func(t *testing.T) {
		repo := &stubLeadsRepo{
			getByID: func(ctx context.Context, id uuid.UUID) (*entity.Lead, error) {
				return nil, repository.ErrLeadNotFound
			},
		}

		body, _ := json.Marshal(map[string]any{
			"lead_id":      uuid.New().String(),
			"conversation": map[string]any{"transcript": "hello"},
		})
		req := httptest.NewRequest(http.MethodPost, "/webhooks/voice-agent", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_ = newWebhookHandler(repo).VoiceAgent(c)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("new contact creates a lead", func(t *testing.T) {
		var created *entity.Lead
		repo := &stubLeadsRepo{
			findByContact: func(ctx context.Context, email, phone string) (*entity.Lead, error) {
				return nil, repository.ErrLeadNotFound
			},
			create: func(ctx context.Context, lead *entity.Lead) error {
				lead.ID = uuid.New()
				created = lead
				return nil
			},
			insertConversation: func(ctx context.Context, conversation *entity.VoiceConversation) error {
				return nil
			},
			getWith: func(ctx context.Context, id uuid.UUID) (*entity.Lead, []entity.VoiceConversation, error) {
				return created, nil, nil
			},
			updateScore: func(ctx context.Context, id uuid.UUID, update repository.ScoreUpdate) (*entity.Lead, error) {
				return applyUpdate(*created, update), nil
			},
		}

		body, _ := json.Marshal(map[string]any{
			"email":     "caller@acme.com",
			"full_name": "Casey Caller",
			"conversation": map[string]any{
				"transcript":  "thinking about it",
				"call_booked": false,
			},
		})
		req := httptest.NewRequest(http.MethodPost, "/webhooks/voice-agent", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := newWebhookHandler(repo).VoiceAgent(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 for a new lead, got %d", rec.Code)
		}
		if created == nil || created.Source == nil || *created.Source != "voice_agent" {
			t.Fatalf("expected voice_agent lead, got %+v", created)
		}
	})
}
