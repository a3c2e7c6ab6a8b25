package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reelworks/crm-api/internal/dto"
	"github.com/reelworks/crm-api/internal/repository"
	"github.com/reelworks/crm-api/internal/service"
)

// WebhookHandler receives voice-agent callbacks.
type WebhookHandler struct {
	ingest *service.VoiceIngestService
}

// NewWebhookHandler creates a new handler instance.
func NewWebhookHandler(ingest *service.VoiceIngestService) *WebhookHandler {
	return &WebhookHandler{ingest: ingest}
}

// VoiceAgent handles POST /webhooks/voice-agent requests.
func (h *WebhookHandler) VoiceAgent(c echo.Context) error {
	var req dto.VoiceWebhookRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	result, err := h.ingest.IngestConversation(c.Request().Context(), req)
	if err != nil {
		var vErr service.ValidationError
		switch {
		case errors.As(err, &vErr):
			return Error(c, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, service.ErrUnresolvedLead):
			return Error(c, http.StatusBadRequest, "payload names no lead: provide lead_id, email or phone")
		case errors.Is(err, repository.ErrLeadNotFound):
			return Error(c, http.StatusNotFound, "lead not found")
		default:
			return Error(c, http.StatusInternalServerError, "failed to ingest conversation")
		}
	}

	status := http.StatusOK
	if result.LeadCreated {
		status = http.StatusCreated
	}

	return Success(c, status, "conversation ingested", result)
}
