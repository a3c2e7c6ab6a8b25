package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/reelworks/crm-api/internal/dto"
	"github.com/reelworks/crm-api/internal/repository"
	"github.com/reelworks/crm-api/internal/service"
)

// LeadsHandler exposes lead intake and listing endpoints.
type LeadsHandler struct {
	repo         repository.LeadsRepository
	intake       *service.LeadIntake
	scores       *service.LeadScoreService
	highValueMin int
}

// NewLeadsHandler creates a new handler instance. highValueMin is the
// threshold used by HighValue when the request does not name one.
func NewLeadsHandler(repo repository.LeadsRepository, intake *service.LeadIntake, scores *service.LeadScoreService, highValueMin int) *LeadsHandler {
	if highValueMin <= 0 {
		highValueMin = service.DefaultHighValueMinScore
	}
	return &LeadsHandler{repo: repo, intake: intake, scores: scores, highValueMin: highValueMin}
}

// List handles GET /leads requests.
func (h *LeadsHandler) List(c echo.Context) error {
	filter := dto.LeadFilter{
		Status: strings.TrimSpace(c.QueryParam("status")),
		Source: strings.TrimSpace(c.QueryParam("source")),
		Sort:   strings.TrimSpace(c.QueryParam("sort")),
		Limit:  parseIntDefault(c.QueryParam("limit"), 50),
		Offset: parseIntDefault(c.QueryParam("offset"), 0),
	}

	if qualifiedStr := strings.TrimSpace(c.QueryParam("qualified")); qualifiedStr != "" {
		qualified, err := strconv.ParseBool(qualifiedStr)
		if err != nil {
			return Error(c, http.StatusBadRequest, "invalid qualified (use true/false)")
		}
		filter.Qualified = &qualified
	}

	if minScoreStr := strings.TrimSpace(c.QueryParam("min_score")); minScoreStr != "" {
		minScore, err := strconv.Atoi(minScoreStr)
		if err != nil {
			return Error(c, http.StatusBadRequest, "invalid min_score")
		}
		filter.MinScore = &minScore
	}

	leads, err := h.repo.List(c.Request().Context(), filter)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list leads")
	}

	return Success(c, http.StatusOK, "leads retrieved", leads)
}

// Create handles POST /leads requests.
func (h *LeadsHandler) Create(c echo.Context) error {
	var req dto.CreateLeadRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	lead, err := h.intake.BuildLead(c.Request().Context(), req)
	if err != nil {
		var vErr service.ValidationError
		switch {
		case errors.As(err, &vErr):
			return Error(c, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, service.ErrNoContactInfo):
			return Error(c, http.StatusBadRequest, "email or phone is required")
		default:
			return Error(c, http.StatusInternalServerError, "unable to create lead")
		}
	}

	if err := h.repo.Create(c.Request().Context(), lead); err != nil {
		return Error(c, http.StatusInternalServerError, "unable to create lead")
	}

	// score the fresh lead so it never sits unscored
	if updated, err := h.scores.UpdateLeadScore(c.Request().Context(), lead.ID); err == nil {
		lead = updated
	}

	return Success(c, http.StatusCreated, "lead created", lead)
}

// Get handles GET /leads/:id requests.
func (h *LeadsHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid lead id")
	}

	lead, err := h.repo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return Error(c, http.StatusNotFound, "lead not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to fetch lead")
	}

	return Success(c, http.StatusOK, "lead retrieved", lead)
}

// HighValue handles GET /leads/high-value requests. The threshold comes from
// HIGH_VALUE_MIN_SCORE unless the request overrides it with min_score.
func (h *LeadsHandler) HighValue(c echo.Context) error {
	minScore := h.highValueMin
	if raw := strings.TrimSpace(c.QueryParam("min_score")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return Error(c, http.StatusBadRequest, "min_score must be a positive integer")
		}
		minScore = parsed
	}

	leads, err := h.scores.HighValueLeads(c.Request().Context(), minScore)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list high-value leads")
	}

	return Success(c, http.StatusOK, "high-value leads retrieved", leads)
}

func parseIntDefault(input string, fallback int) int {
	if input == "" {
		return fallback
	}
	if value, err := strconv.Atoi(input); err == nil {
		return value
	}
	return fallback
}
