package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/vivulocal/marketplace-api/docs"
	"github.com/vivulocal/marketplace-api/internal/api"
	"github.com/vivulocal/marketplace-api/internal/api/metrics"
	"github.com/vivulocal/marketplace-api/internal/core/service"
	"github.com/vivulocal/marketplace-api/internal/infrastructure/ai"
	mongodb "github.com/vivulocal/marketplace-api/internal/infrastructure/db/mongo"
	redisdb "github.com/vivulocal/marketplace-api/internal/infrastructure/db/redis"
	"github.com/vivulocal/marketplace-api/internal/infrastructure/oauth"
	"github.com/vivulocal/marketplace-api/internal/infrastructure/queue"
	"github.com/vivulocal/marketplace-api/internal/infrastructure/scheduler"
	"github.com/vivulocal/marketplace-api/internal/infrastructure/storage"
	"github.com/vivulocal/marketplace-api/internal/pkg/config"
	"github.com/vivulocal/marketplace-api/pkg/logger"
)

// @title       ViVuLocal Marketplace API
// @version     1.0
// @description Accounts, buddy/partner approval and live page guards for ViVuLocal.
// @BasePath    /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "vivulocal-api: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "vivulocal-api",
	})

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	identities := mongodb.NewIdentityRepository(db)
	requests := mongodb.NewApprovalRepository(db)
	if err := mongodb.EnsureIndexes(ctx, identities, requests); err != nil {
		return err
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}()

	feed := redisdb.NewChangeFeed(rdb, logger.For("change_feed"))
	persister := redisdb.NewSessionPersister(rdb)
	submitGuard := redisdb.NewSubmitGuard(rdb)
	throttle := redisdb.NewLoginThrottle(rdb, cfg.Throttle.LoginAttempts, cfg.Throttle.LoginWindow)

	// Writes are published through the dispatcher so each identity's changes
	// reach the feed in order.
	dispatcher := queue.NewDispatcher(cfg.Publisher.Workers, feed, logger.For("dispatcher"))
	dispatcher.OnDepth(metrics.ChangeQueueDepth.Add)
	dispatcher.Start(ctx)

	uploader, err := storage.NewMinIOUploader(ctx, storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
		PublicURL: cfg.MinIO.PublicURL,
		MaxSize:   cfg.MinIO.MaxSize,
	}, logger.For("storage"))
	if err != nil {
		return err
	}

	backend, err := ai.NewGeminiBackend(ctx, cfg.Gemini.APIKey)
	if err != nil {
		return err
	}

	google := oauth.NewGoogleProvider(oauth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})

	// --- Services ---
	authService := service.NewAuthService(identities, throttle, cfg.JWTSecret, cfg.TokenTTL, logger.For("auth"))
	profileService := service.NewProfileService(identities, dispatcher, logger.For("profile"))
	approvalService := service.NewApprovalService(requests, identities, submitGuard, logger.For("approval"))
	decisionService := service.NewDecisionService(requests, identities, dispatcher, logger.For("decision"))

	assistantService := service.NewAssistantService(backend, cfg.Gemini.Models, cfg.Gemini.SystemContext, logger.For("assistant"))
	assistantService.OnFallback(func(model string) {
		metrics.AssistantFallbacksTotal.WithLabelValues(model).Inc()
	})

	recovery, err := scheduler.NewRecovery(cfg.RecoverySchedule, decisionService, logger.For("recovery"))
	if err != nil {
		return err
	}
	recovery.OnResumed(func(n int) { metrics.DecisionsRecoveredTotal.Add(float64(n)) })
	recovery.RunOnce(ctx)
	recovery.Start()

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		JWTSecret:         cfg.JWTSecret,
		FrontendURL:       cfg.Google.FrontendURL,
		NavigationTimeout: cfg.NavigationTimeout,
		UploadMaxBytes:    cfg.MinIO.MaxSize,
		Log:               logger.For("http"),
		Auth:              authService,
		Profiles:          profileService,
		Approvals:         approvalService,
		Decisions:         decisionService,
		Assistant:         assistantService,
		Uploader:          uploader,
		Google:            google,
		Feed:              feed,
		Persister:         persister,
		DB:                db,
		Redis:             rdb,
		Storage:           uploader,
	})

	serveErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	recovery.Stop(sctx)
	log.Info().Msg("server stopped")
	return nil
}
