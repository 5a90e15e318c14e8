package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fabriqd/fabriq/internal/cache"
	"github.com/fabriqd/fabriq/internal/collab"
	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dispatch"
	"github.com/fabriqd/fabriq/internal/outbox"
	"github.com/fabriqd/fabriq/internal/pool"
	"github.com/fabriqd/fabriq/internal/storage/postgres"
	"github.com/fabriqd/fabriq/internal/worker"
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

	workerCfg, err := config.LoadWorkerConfig(ctx)
	if err != nil {
		sugar.Fatalw("load worker config", "error", err)
	}
	cacheCfg, err := config.LoadCacheConfig(ctx)
	if err != nil {
		sugar.Fatalw("load cache config", "error", err)
	}

	jobRepo := postgres.NewJobRepository(db)
	recordRepo := postgres.NewRecordRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	registry := dispatch.DefaultRegistry()
	dispatcher := dispatch.NewDispatcher(registry, jobRepo, sugar)

	resultCache := cache.New(cacheCfg, sugar)
	defer resultCache.Close()

	backend := collab.NewSimulatedBackend(sugar)
	moderator := collab.NewSimulatedModerator()
	objectStore := collab.NewSimulatedObjectStore(os.Getenv("OBJECT_STORE_BASE_URL"), sugar)
	factory := collab.NewSimulatedFactoryClient(sugar)

	publisher := outbox.NewPublisher(outboxRepo, sugar)
	relay := outbox.NewRelay(outboxRepo, outbox.NewLogSink(sugar), 50, sugar)

	handlers := map[config.QueueName]worker.Handler{
		config.QueueDesignGeneration:     worker.NewDesignFamily(recordRepo, backend, moderator, objectStore, publisher, resultCache, sugar),
		config.QueueRenderProcessing:     worker.NewRenderFamily(recordRepo, objectStore, publisher, resultCache, sugar),
		config.QueueProductionProcessing: worker.NewProductionFamily(recordRepo, objectStore, dispatcher, publisher, sugar),
		config.QueueNotifications:        worker.NewNotifyFamily(factory, relay, sugar),
	}

	workerPool := pool.NewWorkerPool(jobRepo, handlers, registry.Names(), workerCfg, sugar)
	workerPool.Start()
	sugar.Infow("worker pool active", "workers", workerCfg.MaxWorkers, "queues", registry.Names())

	// The outbox relay is itself queue-driven; keep a publish-outbox job
	// flowing so pending events drain even when nothing else runs.
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := dispatcher.Enqueue(relayCtx, config.QueueNotifications, config.JobPublishOutbox,
					map[string]any{}, dispatch.EnqueueOptions{Priority: config.PriorityLow}); err != nil {
					sugar.Errorw("enqueue outbox drain", "error", err)
				}
			case <-relayCtx.Done():
				return
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	stopRelay()
	workerPool.Stop()
	sugar.Infow("shutdown complete")
}
