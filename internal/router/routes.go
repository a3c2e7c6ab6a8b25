package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reelworks/crm-api/internal/auth"
	"github.com/reelworks/crm-api/internal/config"
	"github.com/reelworks/crm-api/internal/entity"
	"github.com/reelworks/crm-api/internal/handler"
	middlewarepkg "github.com/reelworks/crm-api/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Auth    *handler.AuthHandler
	Users   *handler.UserAdminHandler
	Leads   *handler.LeadsHandler
	Score   *handler.ScoreHandler
	Batch   *handler.BatchScoreHandler
	Webhook *handler.WebhookHandler
	Cron    *handler.CronHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	e.POST("/auth/register", handlers.Auth.Register)
	e.POST("/auth/login", handlers.Auth.Login)

	// one limiter instance so the cron and dashboard batch routes drain the same bucket
	batchLimiter := middlewarepkg.BatchScoreRateLimiter(cfg.RateLimitBatch)

	// vendor callbacks and the scheduler authenticate out of band, not via JWT
	e.POST("/webhooks/voice-agent", handlers.Webhook.VoiceAgent)
	e.POST("/cron/rescore", handlers.Cron.Rescore, batchLimiter)

	secured := e.Group("")
	secured.Use(middlewarepkg.JWT(jwtManager))

	secured.GET("/leads", handlers.Leads.List)
	secured.POST("/leads", handlers.Leads.Create)
	secured.GET("/leads/high-value", handlers.Leads.HighValue)
	secured.GET("/leads/score/batch", handlers.Batch.Overview)
	// whole-table rescores are not for sales reps
	secured.POST("/leads/score/batch", handlers.Batch.Run,
		middlewarepkg.RequireRole(entity.RoleAdmin, entity.RoleManager), batchLimiter)
	secured.GET("/leads/:id", handlers.Leads.Get)
	secured.GET("/leads/:id/score", handlers.Score.Get)
	secured.POST("/leads/:id/score", handlers.Score.Rescore)
	secured.PUT("/leads/:id/score", handlers.Score.Rescore)

	admin := secured.Group("/admin", middlewarepkg.RequireRole(entity.RoleAdmin))
	admin.GET("/users", handlers.Users.List)
	admin.POST("/users", handlers.Users.Create)
	admin.PATCH("/users/:id", handlers.Users.Update)
	admin.DELETE("/users/:id", handlers.Users.Delete)
}
