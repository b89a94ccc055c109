package appServer

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ds124wfegd/imgenhance/config"
	"github.com/ds124wfegd/imgenhance/internal/database"
	redisCache "github.com/ds124wfegd/imgenhance/internal/database/redis"
	"github.com/ds124wfegd/imgenhance/internal/pipeline"
	"github.com/ds124wfegd/imgenhance/internal/pkg/postgres"
	"github.com/ds124wfegd/imgenhance/internal/pkg/rabbitmq"
	"github.com/ds124wfegd/imgenhance/internal/upscaler"
	"github.com/sirupsen/logrus"
)

func setupLogger(cfg config.LogConfig) {
	if strings.EqualFold(cfg.Format, "text") {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// newOrchestrator builds the pipeline with its model registry. A preload
// failure is not fatal: the affected model reports MODEL_ERROR per request.
func newOrchestrator(cfg *config.Config) *pipeline.Orchestrator {
	registry := upscaler.NewRegistry(upscaler.BuiltinLoader)
	if cfg.Models.Preload {
		start := time.Now()
		if err := registry.Preload(); err != nil {
			logrus.WithError(err).Warn("Model preload failed")
		} else {
			logrus.WithField("duration", time.Since(start)).Info("Models preloaded")
		}
	}

	probe := upscaler.NewProbe(cfg.Models.GPU)
	logrus.WithFields(logrus.Fields{
		"gpu_mode":      cfg.Models.GPU,
		"gpu_available": probe.GPUAvailable(),
	}).Info("Device probe configured")

	up := upscaler.New(registry, probe, upscaler.Config{
		MaxDimension: cfg.Models.MaxDimension,
		GPUSlots:     cfg.Models.GPUSlots,
		CPUSlots:     cfg.Models.CPUSlots,
	})
	return pipeline.NewOrchestrator(up, cfg.Pipeline.Budget)
}

// backends holds the optional stores. Every field may be nil.
type backends struct {
	db      *sql.DB
	cache   *redisCache.CacheRepository
	closers []func() error
}

func openBackends(ctx context.Context, cfg *config.Config) *backends {
	b := &backends{}

	if cfg.Redis.Enabled {
		client, err := redisCache.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logrus.WithError(err).Warn("Redis unavailable, continuing without cache")
		} else {
			b.closers = append(b.closers, client.Close)
			cache, err := redisCache.NewCacheRepository(client, cfg.Redis.TTL, cfg.Redis.JobTTL)
			if err != nil {
				logrus.WithError(err).Warn("Failed to initialize cache")
			} else {
				b.cache = cache
				b.closers = append(b.closers, cache.Close)
				logrus.WithField("addr", cfg.Redis.Addr).Info("Redis cache initialized")
			}
		}
	}

	if cfg.Database.Enabled {
		db, err := postgres.NewPostgresDB(&cfg.Database)
		if err != nil {
			logrus.WithError(err).Error("PostgreSQL unavailable, async jobs disabled")
		} else if err := postgres.RunMigrations(db); err != nil {
			logrus.WithError(err).Error("Failed to run migrations, async jobs disabled")
			db.Close()
		} else {
			b.db = db
			b.closers = append(b.closers, db.Close)
		}
	}
	return b
}

func (b *backends) resultCache() database.ResultCache {
	if b.cache == nil {
		return nil
	}
	return b.cache
}

func (b *backends) jobCache() database.JobCache {
	if b.cache == nil {
		return nil
	}
	return b.cache
}

func (b *backends) jobRepository() database.JobRepository {
	if b.db == nil {
		return nil
	}
	return database.NewJobRepository(b.db)
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logrus.WithError(err).Warn("Failed to close backend")
		}
	}
}

func newEventPublisher(cfg config.RabbitMQConfig) rabbitmq.Publisher {
	if !cfg.Enabled {
		return rabbitmq.NoopPublisher{}
	}
	rmq, err := rabbitmq.NewRabbitMQ(rabbitmq.RabbitMQConfig{URL: cfg.URL, QueueName: cfg.QueueName})
	if err != nil {
		logrus.WithError(err).Warn("RabbitMQ unavailable, job events will not be published")
		return rabbitmq.NoopPublisher{}
	}
	logrus.WithField("queue", cfg.QueueName).Info("RabbitMQ publisher initialized")
	return rmq
}
