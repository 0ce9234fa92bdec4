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
	"go.uber.org/zap"

	"github.com/octobees/contact-enricher/internal/auth"
	"github.com/octobees/contact-enricher/internal/config"
	"github.com/octobees/contact-enricher/internal/database"
	"github.com/octobees/contact-enricher/internal/handler"
	middlewarepkg "github.com/octobees/contact-enricher/internal/middleware"
	"github.com/octobees/contact-enricher/internal/repository"
	"github.com/octobees/contact-enricher/internal/router"
	"github.com/octobees/contact-enricher/internal/service/enrichment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := config.InitLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	var store repository.EnrichmentsRepository
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err == nil {
			err = database.EnsureSchema(ctx, pool)
		}
		cancel()
		if err != nil {
			logger.Fatal("failed to prepare database", zap.Error(err))
		}
		defer pool.Close()
		store = repository.NewPGXEnrichmentsRepository(pool)
	} else {
		logger.Info("DATABASE_URL not set, results are not persisted")
	}

	var callback handler.CallbackPoster
	if cfg.CallbackBaseURL != "" {
		callback = handler.NewCallbackClient(nil, cfg.CallbackBaseURL)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	enricher := enrichment.NewFromConfig(cfg, logger)
	enrichHandler := handler.NewEnrichHandler(enricher, store, callback, logger.Named("http"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(logger.Named("access")))
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, jwtManager, router.Handlers{Enrich: enrichHandler}, store != nil)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("port", cfg.Port))
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
