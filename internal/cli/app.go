package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"idsync/internal/directory/store"
	"idsync/internal/platform/config"
	"idsync/internal/platform/kafka"
	"idsync/internal/platform/lock"
	"idsync/internal/platform/logger"
	"idsync/internal/platform/metrics"
	"idsync/internal/platform/postgres"
	redisclient "idsync/internal/platform/redis"
	reconcilemetrics "idsync/internal/reconcile/metrics"
	"idsync/internal/reconcile/service"
	registryclient "idsync/internal/registry/client"
	"idsync/internal/report/publisher"
	reportstore "idsync/internal/report/store"
	"idsync/migrations"
)

// app holds the wired dependencies of one process.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sqlx.DB
	redis    *redisclient.Client
	kafka    *kgo.Client
	registry *prometheus.Registry
	runner   *service.Runner
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp connects every configured backend and builds the runner. Without
// a database the directory and report live in memory, which is only useful
// for a dry run against the registry.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger.New(cfg.Log.Level, cfg.Log.Format),
		registry: metrics.NewRegistry(),
	}

	var (
		directory service.DirectoryStore
		reports   []reportstore.ReportStore
	)
	memory := reportstore.NewInMemory()
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		directory = store.NewPostgres(db)
		reports = append(reports, reportstore.NewPostgres(db))
	} else {
		a.logger.WarnContext(ctx, "database not configured, directory and reports are kept in memory")
		directory = store.NewInMemory()
		reports = append(reports, memory)
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.redis = rc

	kc, err := kafka.New(cfg.Kafka)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.kafka = kc

	opts := []service.Option{
		service.WithLogger(a.logger),
		service.WithMetrics(reconcilemetrics.New(a.registry)),
	}

	if rc != nil {
		redisStore := reportstore.NewRedis(rc.Client, cfg.Redis.PayloadTTL)
		reports = append(reports, redisStore)
		opts = append(opts,
			service.WithPayloadStore(redisStore),
			service.WithLocker(lock.NewRedis(rc.Client)),
		)
	} else {
		a.logger.WarnContext(ctx, "redis not configured, cycle lock is process-local and payloads are kept in memory")
		opts = append(opts,
			service.WithPayloadStore(memory),
			service.WithLocker(lock.NewLocal()),
		)
	}
	opts = append(opts, service.WithReportStore(reportstore.NewMulti(reports...)))

	if kc != nil {
		if err := kafka.EnsureTopic(ctx, kc, cfg.Kafka.ReportTopic); err != nil {
			a.logger.WarnContext(ctx, "could not ensure report topic", "topic", cfg.Kafka.ReportTopic, "error", err)
		}
		opts = append(opts, service.WithPublisher(
			publisher.New(kc, cfg.Kafka.ReportTopic, publisher.WithLogger(a.logger)),
		))
	}

	registry := registryclient.New(cfg.Registry, registryclient.WithLogger(a.logger))
	a.runner = service.New(registry, directory, cfg.Sync, opts...)
	return a, nil
}

// Close releases every backend connection.
func (a *app) Close() {
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("closing redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing postgres", "error", err)
		}
	}
}

// openDatabase connects without building the rest of the app.
func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	return postgres.Open(ctx, cfg.Database)
}

func applyMigrations(ctx context.Context, db *sqlx.DB) error {
	return migrations.Apply(ctx, db)
}
