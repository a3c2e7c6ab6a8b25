package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"google.golang.org/api/idtoken"

	"github.com/reelworks/crm-api/internal/service"
)

// TokenValidator verifies a Google-signed OIDC token against an audience.
// Cloud Scheduler attaches these tokens to its invocations.
type TokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// CronHandler runs scheduled maintenance invoked by Cloud Scheduler.
type CronHandler struct {
	scores   *service.LeadScoreService
	audience string
	validate TokenValidator
}

// NewCronHandler creates a new handler instance. An empty audience disables
// token verification, for local runs only.
func NewCronHandler(scores *service.LeadScoreService, audience string, validate TokenValidator) *CronHandler {
	if validate == nil {
		validate = idtoken.Validate
	}
	return &CronHandler{scores: scores, audience: audience, validate: validate}
}

// Rescore handles POST /cron/rescore requests: rescore every lead whose score
// is stale or missing.
func (h *CronHandler) Rescore(c echo.Context) error {
	if h.audience != "" {
		token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if token == "" {
			return Error(c, http.StatusUnauthorized, "missing bearer token")
		}
		if _, err := h.validate(c.Request().Context(), token, h.audience); err != nil {
			return Error(c, http.StatusUnauthorized, "invalid scheduler token")
		}
	}

	ctx := c.Request().Context()

	daysOld := parseIntDefault(c.QueryParam("days_old"), 0)
	stale, err := h.scores.LeadsNeedingUpdate(ctx, daysOld)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list stale leads")
	}

	// an empty id list would rescore the whole table, so stop here instead
	if len(stale) == 0 {
		return Success(c, http.StatusOK, "scheduled rescore complete", service.BatchResult{Errors: []service.BatchItemError{}})
	}

	ids := make([]uuid.UUID, 0, len(stale))
	for _, lead := range stale {
		ids = append(ids, lead.ID)
	}

	result, err := h.scores.BatchUpdateScores(ctx, ids)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "scheduled rescore failed")
	}

	return Success(c, http.StatusOK, "scheduled rescore complete", result)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
