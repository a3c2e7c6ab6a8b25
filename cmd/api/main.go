package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/reelworks/crm-api/internal/auth"
	"github.com/reelworks/crm-api/internal/config"
	"github.com/reelworks/crm-api/internal/database"
	"github.com/reelworks/crm-api/internal/handler"
	middlewarepkg "github.com/reelworks/crm-api/internal/middleware"
	"github.com/reelworks/crm-api/internal/repository"
	"github.com/reelworks/crm-api/internal/router"
	"github.com/reelworks/crm-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer pool.Close()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	usersRepo := repository.NewPGXUsersRepository(pool)
	leadsRepo := repository.NewPGXLeadsRepository(pool)

	authService := service.NewAuthService(usersRepo, jwtManager)
	userService := service.NewUserService(usersRepo)
	intake := service.NewLeadIntake(cfg.PhoneRegion)
	scoreService := service.NewLeadScoreService(leadsRepo, cfg.ScoreStaleDays)
	ingestService := service.NewVoiceIngestService(leadsRepo, intake, scoreService)

	handlers := router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Users:   handler.NewUserAdminHandler(userService),
		Leads:   handler.NewLeadsHandler(leadsRepo, intake, scoreService, cfg.HighValueMinScore),
		Score:   handler.NewScoreHandler(scoreService),
		Batch:   handler.NewBatchScoreHandler(scoreService),
		Webhook: handler.NewWebhookHandler(ingestService),
		Cron:    handler.NewCronHandler(scoreService, cfg.CronAudience, nil),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging())
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, jwtManager, handlers)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
