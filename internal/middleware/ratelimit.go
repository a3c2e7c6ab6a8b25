package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/reelworks/crm-api/internal/config"
)

// batch scoring walks the whole lead table, so its endpoints share one bucket
var batchScorePaths = map[string]bool{
	"/leads/score/batch": true,
	"/cron/rescore":      true,
}

// BatchScoreRateLimiter applies a token bucket limiter to batch rescore runs.
func BatchScoreRateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Interval <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return next(c)
			}
		}
	}

	perRequest := cfg.Interval / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}

	limiter := rate.NewLimiter(rate.Every(perRequest), cfg.Requests)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !batchScorePaths[c.Path()] || c.Request().Method != http.MethodPost {
				return next(c)
			}

			if !limiter.Allow() {
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "batch scoring rate limit exceeded"})
			}

			return next(c)
		}
	}
}
