package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/fabriqd/fabriq/internal/cache"
	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dispatch"
	"github.com/fabriqd/fabriq/internal/health"
	"github.com/fabriqd/fabriq/internal/job"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/fabriqd/fabriq/internal/outbox"
	"github.com/fabriqd/fabriq/internal/storage/postgres"
	"github.com/fabriqd/fabriq/internal/webhook"
	"github.com/fabriqd/fabriq/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to init logger:", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx := context.Background()
	dbCfg, err := postgres.LoadConfigFromEnv(ctx)
	if err != nil {
		sugar.Fatalw("load db config", "error", err)
	}

	db, err := postgres.ConnectDB(ctx, dbCfg)
	if err != nil {
		sugar.Fatalw("connect db", "error", err)
	}

	if err := postgres.MigrateModels(db,
		&models.Job{}, &models.WebhookLogEntry{}, &models.OutboxEvent{},
		&models.Design{}, &models.Asset{}, &models.Render{}, &models.RenderProgress{},
		&models.Order{}, &models.Product{}, &models.Brand{}, &models.QualityReport{},
	); err != nil {
		sugar.Fatalw("migrate models", "error", err)
	}

	healthCfg, err := config.LoadHealthConfig(ctx)
	if err != nil {
		sugar.Fatalw("load health config", "error", err)
	}

	cacheCfg, err := config.LoadCacheConfig(ctx)
	if err != nil {
		sugar.Fatalw("load cache config", "error", err)
	}
	resultCache := cache.New(cacheCfg, sugar)
	defer resultCache.Close()
	resultsHandler := cache.NewResultsHandler(resultCache)

	jobRepo := postgres.NewJobRepository(db)
	webhookRepo := postgres.NewWebhookLogRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	registry := dispatch.DefaultRegistry()
	dispatcher := dispatch.NewDispatcher(registry, jobRepo, sugar)

	jobService := job.NewJobService(dispatcher, jobRepo)
	jobHandler := job.NewJobHandler(jobService)

	// Inbound tenant webhooks become durable domain events; downstream
	// consumers pick them up from the outbox.
	publisher := outbox.NewPublisher(outboxRepo, sugar)
	webhookService := webhook.NewService(
		webhookRepo,
		webhook.NewValidator(config.DefaultWebhookMaxAge),
		func(ctx context.Context, tenantID string, payload json.RawMessage) (json.RawMessage, error) {
			if err := publisher.Emit(ctx, "tenant."+tenantID+".event", payload); err != nil {
				return nil, err
			}
			return json.Marshal(map[string]any{"accepted": true})
		},
		sugar,
	)
	webhookHandler := webhook.NewWebhookHandler(webhookService)

	aggregator := health.NewAggregator(dispatcher, registry.Names(), healthCfg, sugar)
	healthHandler := health.NewHealthHandler(aggregator)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go aggregator.RunSweeper(sweepCtx)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.ErrorHandler())

	router.POST("/jobs", jobHandler.Create)
	router.GET("/jobs", jobHandler.List)
	router.GET("/jobs/:id", jobHandler.Get)
	router.GET("/results/:kind/:id", resultsHandler.Get)
	router.DELETE("/results/:kind/:id", resultsHandler.Invalidate)
	router.GET("/health/queues", healthHandler.Queues)
	router.POST("/webhooks/:tenant", webhookHandler.Receive)
	router.POST("/webhooks/:tenant/replay/:key", webhookHandler.Replay)

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	sugar.Infow("api listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		sugar.Fatalw("api server stopped", "error", err)
	}
}
