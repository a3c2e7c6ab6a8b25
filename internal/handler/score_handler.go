package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/reelworks/crm-api/internal/entity"
	"github.com/reelworks/crm-api/internal/repository"
	"github.com/reelworks/crm-api/internal/service"
	"github.com/reelworks/crm-api/internal/service/scoring"
)

// ScoreHandler exposes per-lead scoring endpoints.
type ScoreHandler struct {
	scores *service.LeadScoreService
}

// NewScoreHandler creates a new handler instance.
func NewScoreHandler(scores *service.LeadScoreService) *ScoreHandler {
	return &ScoreHandler{scores: scores}
}

type leadScoreResponse struct {
	Lead        *entity.Lead      `json:"lead"`
	Live        scoring.Breakdown `json:"live_breakdown"`
	NeedsUpdate bool              `json:"needs_update"`
}

type rescoreResponse struct {
	Lead          *entity.Lead `json:"lead"`
	AutoQualified bool         `json:"auto_qualified"`
	StatusChanged bool         `json:"status_changed"`
}

// Get handles GET /leads/:id/score requests. The breakdown is computed live;
// the stored score on the lead may lag behind it.
func (h *ScoreHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid lead id")
	}

	score, err := h.scores.GetLeadScore(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return Error(c, http.StatusNotFound, "lead not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to compute score")
	}

	return Success(c, http.StatusOK, "score computed", leadScoreResponse{
		Lead:        score.Lead,
		Live:        score.Live,
		NeedsUpdate: score.NeedsUpdate,
	})
}

// Rescore handles POST /leads/:id/score requests: recompute and persist.
func (h *ScoreHandler) Rescore(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid lead id")
	}

	ctx := c.Request().Context()

	before, err := h.scores.GetLeadScore(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return Error(c, http.StatusNotFound, "lead not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to rescore lead")
	}

	updated, err := h.scores.UpdateLeadScore(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return Error(c, http.StatusNotFound, "lead not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to rescore lead")
	}

	return Success(c, http.StatusOK, "lead rescored", rescoreResponse{
		Lead:          updated,
		AutoQualified: !before.Lead.IsQualified && updated.IsQualified,
		StatusChanged: before.Lead.Status != updated.Status,
	})
}
