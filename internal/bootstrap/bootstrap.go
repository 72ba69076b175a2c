package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smarteducator/aidetector/internal/config"
	"github.com/smarteducator/aidetector/internal/core/ports"
	"github.com/smarteducator/aidetector/internal/core/usecase"
	"github.com/smarteducator/aidetector/internal/infrastructure/extractor"
	"github.com/smarteducator/aidetector/internal/infrastructure/queue/nats"
	"github.com/smarteducator/aidetector/internal/infrastructure/repository/memory"
	"github.com/smarteducator/aidetector/internal/infrastructure/repository/mongodb"
	"github.com/smarteducator/aidetector/internal/infrastructure/repository/postgres"
	"github.com/smarteducator/aidetector/internal/infrastructure/resilience"
	"github.com/smarteducator/aidetector/internal/infrastructure/storage"
	"github.com/smarteducator/aidetector/internal/infrastructure/storage/gcs"
	"github.com/smarteducator/aidetector/internal/infrastructure/storage/localfs"
	"github.com/smarteducator/aidetector/internal/observability/metrics"
)

const mongoCloseTimeout = 5 * time.Second

type App struct {
	Config config.Config
	Logger *slog.Logger

	Records ports.RecordStore
	Blobs   ports.BlobStore

	IngestUC  *usecase.BatchIngestUseCase
	StatusUC  *usecase.BatchStatusUseCase
	Processor *usecase.BatchProcessorUseCase

	ProcessorMetrics *metrics.ProcessorMetrics

	closers []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	records, err := app.openRecordStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Records = records

	blobs, err := app.openBlobStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Blobs = blobs

	processorOpts := []usecase.ProcessorOption{usecase.WithLogger(logger)}

	app.ProcessorMetrics = metrics.NewProcessorMetrics("worker")
	processorOpts = append(processorOpts, usecase.WithMetrics(app.ProcessorMetrics))

	if cfg.EventsNATSURL != "" {
		publisher, err := nats.NewPublisher(cfg.EventsNATSURL, cfg.EventsNATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig(), logger),
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		app.closers = append(app.closers, publisher.Close)
		processorOpts = append(processorOpts, usecase.WithEventPublisher(publisher))
	}

	app.IngestUC = usecase.NewBatchIngestUseCase(records, blobs, logger)
	app.StatusUC = usecase.NewBatchStatusUseCase(records)
	app.Processor = usecase.NewBatchProcessorUseCase(
		records,
		blobs,
		extractor.NewDefault(),
		processorConfig(cfg),
		processorOpts...,
	)

	return app, nil
}

func (a *App) openRecordStore(ctx context.Context) (ports.RecordStore, error) {
	switch a.Config.RecordStore {
	case config.RecordStorePostgres:
		db, err := postgres.OpenDB(a.Config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		store := postgres.NewStore(db)
		a.closers = append(a.closers, func() { _ = store.Close() })
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil

	case config.RecordStoreMongoDB:
		client, err := mongodb.Connect(ctx, a.Config.MongoDBURI)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		store := mongodb.NewStore(client, a.Config.MongoDBDatabase)
		a.closers = append(a.closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
			defer cancel()
			_ = store.Close(closeCtx)
		})
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return store, nil

	case config.RecordStoreMemory:
		a.Logger.Warn("record_store_in_memory", "hint", "records are lost on restart and not shared between processes")
		return memory.NewStore(), nil

	default:
		return nil, fmt.Errorf("unknown record store %q", a.Config.RecordStore)
	}
}

func (a *App) openBlobStore(ctx context.Context) (ports.BlobStore, error) {
	var next ports.BlobStore
	switch a.Config.BlobStore {
	case config.BlobStoreLocalFS:
		fs, err := localfs.New(a.Config.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		next = fs

	case config.BlobStoreGCS:
		if a.Config.GCSBucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET is required for blob store %q", config.BlobStoreGCS)
		}
		bucket, err := gcs.New(ctx, a.Config.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		a.closers = append(a.closers, func() { _ = bucket.Close() })
		next = bucket

	default:
		return nil, fmt.Errorf("unknown blob store %q", a.Config.BlobStore)
	}

	policy := resilience.DefaultConfig()
	policy.RetryMaxAttempts = a.Config.BlobRetryMaxAttempts
	policy.RetryInitialBackoff = a.Config.BlobRetryInitialBackoff
	policy.RetryMaxBackoff = a.Config.BlobRetryMaxBackoff
	policy.BreakerEnabled = a.Config.BlobBreakerEnabled

	return storage.NewResilientBlobStore(next, resilience.NewExecutor(policy, a.Logger)), nil
}

func processorConfig(cfg config.Config) usecase.ProcessorConfig {
	out := usecase.DefaultProcessorConfig()
	if cfg.BatchPollInterval > 0 {
		out.PollInterval = cfg.BatchPollInterval
	}
	if cfg.BatchPollMaxInterval > 0 {
		out.PollMaxInterval = cfg.BatchPollMaxInterval
	}
	if cfg.BatchPollBackoff > 0 {
		out.PollBackoff = cfg.BatchPollBackoff
	}
	out.DocumentRate = cfg.DocumentRatePerSec
	out.DocumentTimeout = cfg.DocumentTimeout
	return out
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
