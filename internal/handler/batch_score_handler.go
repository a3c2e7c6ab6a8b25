package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/reelworks/crm-api/internal/dto"
	"github.com/reelworks/crm-api/internal/entity"
	"github.com/reelworks/crm-api/internal/service"
)

// BatchScoreHandler exposes batch scoring and score-health endpoints.
type BatchScoreHandler struct {
	scores *service.LeadScoreService
}

// NewBatchScoreHandler creates a new handler instance.
func NewBatchScoreHandler(scores *service.LeadScoreService) *BatchScoreHandler {
	return &BatchScoreHandler{scores: scores}
}

type scoreHealthResponse struct {
	Stats         service.ScoringStats `json:"stats"`
	NeedingUpdate []entity.Lead        `json:"needing_update"`
}

// Overview handles GET /leads/score/batch requests: aggregate stats plus the
// leads whose stored score is stale or missing.
func (h *BatchScoreHandler) Overview(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.scores.ScoringStats(ctx)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to compute scoring stats")
	}

	daysOld := parseIntDefault(c.QueryParam("days_old"), 0)
	needing, err := h.scores.LeadsNeedingUpdate(ctx, daysOld)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list stale leads")
	}

	return Success(c, http.StatusOK, "scoring overview", scoreHealthResponse{
		Stats:         stats,
		NeedingUpdate: needing,
	})
}

// Run handles POST /leads/score/batch requests. An empty body rescores every
// lead; lead_ids narrows the run.
func (h *BatchScoreHandler) Run(c echo.Context) error {
	var req dto.BatchScoreRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	ids := make([]uuid.UUID, 0, len(req.LeadIDs))
	for _, raw := range req.LeadIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Error(c, http.StatusBadRequest, "invalid lead id: "+raw)
		}
		ids = append(ids, id)
	}

	result, err := h.scores.BatchUpdateScores(c.Request().Context(), ids)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "batch scoring failed")
	}

	return Success(c, http.StatusOK, "batch scoring complete", result)
}
