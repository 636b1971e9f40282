package main

import (
	"context"
	"net/http"

	"github.com/septivank/ecobee-sync/internal/config"
	"github.com/septivank/ecobee-sync/internal/credentials"
	"github.com/septivank/ecobee-sync/internal/db"
	"github.com/septivank/ecobee-sync/internal/ecobee"
	"github.com/septivank/ecobee-sync/internal/influx"
	"github.com/septivank/ecobee-sync/internal/metrics"
	"github.com/septivank/ecobee-sync/internal/mq"
	"github.com/septivank/ecobee-sync/internal/repository"
	"github.com/septivank/ecobee-sync/internal/runtimesync"
	"github.com/septivank/ecobee-sync/internal/service"
	"github.com/septivank/ecobee-sync/internal/snapshot"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PointStore is the time-series backend shared by the runtime syncer and the pipeline
type PointStore interface {
	runtimesync.LatestPointReader
	service.PointWriter
}

// registerRun runs the pipeline once after startup and shuts the app down
// with exit code 0 on success and 1 on failure.
func registerRun(lc fx.Lifecycle, shutdowner fx.Shutdowner, pipeline *service.Pipeline, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				exitCode := 0
				if _, err := pipeline.Run(ctx); err != nil {
					logger.Error("critical: sync run aborted", zap.Error(err))
					exitCode = 1
				}
				if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
					logger.Error("failed to request shutdown", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
			logger.Info("sync job stopped")
			return nil
		},
	})
}

// ProvideHTTPClient creates the vendor API HTTP client
func ProvideHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout()}
}

// ProvideEcobeeClient creates a new ecobee API client
func ProvideEcobeeClient(cfg *config.Config, httpClient *http.Client, logger *zap.Logger) (*ecobee.Client, error) {
	return ecobee.NewClient(cfg.Ecobee.BaseURL, cfg.Ecobee.APIKey, httpClient, logger)
}

// ProvideTokenStore creates the refresh token file store
func ProvideTokenStore(cfg *config.Config) (*credentials.FileStore, error) {
	return credentials.NewFileStore(cfg.Ecobee.TokenFile)
}

// ProvideCredentialManager creates a new credential manager
func ProvideCredentialManager(store *credentials.FileStore, client *ecobee.Client, logger *zap.Logger) *credentials.Manager {
	return credentials.NewManager(store, client, logger)
}

// ProvideSnapshotFetcher creates a new snapshot fetcher
func ProvideSnapshotFetcher(client *ecobee.Client, logger *zap.Logger) *snapshot.Fetcher {
	return snapshot.NewFetcher(client, logger)
}

// ProvidePointStore creates the configured time-series backend
func ProvidePointStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (PointStore, error) {
	if cfg.Store.Backend == config.BackendPostgres {
		pool, err := db.NewPool(lc, logger, db.PoolOptions{
			URL:             cfg.Database.URL,
			ApplicationName: cfg.ServiceName,
			ConnectTimeout:  cfg.HTTPTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return repository.NewRepository(pool), nil
	}

	store := influx.NewStore(influx.Options{
		URL:       cfg.InfluxURL(),
		Token:     cfg.Influx.Token,
		Org:       cfg.Influx.Org,
		Bucket:    cfg.Influx.Database,
		VerifyTLS: cfg.Influx.VerifyTLS,
	}, logger)
	store.RegisterLifecycle(lc, cfg.InfluxURL())
	return store, nil
}

// ProvideSyncer creates a new runtime syncer
func ProvideSyncer(cfg *config.Config, store PointStore, client *ecobee.Client, logger *zap.Logger) (*runtimesync.Syncer, error) {
	loc, err := cfg.ReportLocation()
	if err != nil {
		return nil, err
	}
	return runtimesync.NewSyncer(store, client, runtimesync.Config{
		ThresholdMinutes: cfg.Runtime.DifferenceMinutes,
		Location:         loc,
	}, logger), nil
}

// ProvideNotifier publishes run events to RabbitMQ when RABBITMQ_URL is set
func ProvideNotifier(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (service.Notifier, error) {
	if cfg.RabbitMQ.URL == "" {
		logger.Debug("RABBITMQ_URL not set, run events disabled")
		return service.NopNotifier{}, nil
	}

	conn, err := mq.NewConnection(lc, logger, cfg.RabbitMQ.URL, cfg.ServiceName)
	if err != nil {
		return nil, err
	}
	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}

// ProvideMetrics creates the Pushgateway recorder
func ProvideMetrics(cfg *config.Config, logger *zap.Logger) *metrics.Recorder {
	return metrics.New(cfg.Metrics.PushgatewayURL, cfg.ServiceName, logger)
}

// ProvidePipeline creates the sync pipeline
func ProvidePipeline(
	manager *credentials.Manager,
	fetcher *snapshot.Fetcher,
	syncer *runtimesync.Syncer,
	store PointStore,
	notifier service.Notifier,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *service.Pipeline {
	return service.NewPipeline(service.PipelineDeps{
		Credentials: manager,
		Snapshots:   fetcher,
		Runtime:     syncer,
		Store:       store,
		Notifier:    notifier,
		Metrics:     recorder,
		Logger:      logger,
	})
}
