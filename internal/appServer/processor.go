package appServer

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ds124wfegd/imgenhance/config"
	"github.com/ds124wfegd/imgenhance/internal/database"
	"github.com/ds124wfegd/imgenhance/internal/pkg/kafka"
	"github.com/ds124wfegd/imgenhance/internal/pkg/processor"
	"github.com/ds124wfegd/imgenhance/internal/pkg/storage"
	"github.com/ds124wfegd/imgenhance/internal/worker"
	"github.com/sirupsen/logrus"
)

// RunProcessor consumes queued jobs until SIGINT or SIGTERM.
func RunProcessor(cfg *config.Config) {

	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores := openBackends(ctx, cfg)
	defer stores.Close()

	jobRepo := stores.jobRepository()
	if jobRepo == nil {
		logrus.Fatal("Processor requires PostgreSQL, set database.enabled")
	}

	events := newEventPublisher(cfg.RabbitMQ)
	defer events.Close()

	imgRepo := database.NewImageRepository(storage.NewFileStorage(cfg.Storage.BasePath))
	imgProcessor := processor.NewImageProcessor(jobRepo, imgRepo, stores.jobCache(), newOrchestrator(cfg), events, cfg.Pipeline.MaxInputPixels)

	if cfg.Storage.Retention > 0 && cfg.Storage.CleanupInterval > 0 {
		cleanupWorker := worker.NewJobCleanupWorker(jobRepo, imgRepo, stores.jobCache(), cfg.Storage.Retention, cfg.Storage.CleanupInterval)
		go cleanupWorker.Start(ctx)
	}

	logrus.WithFields(logrus.Fields{
		"brokers": cfg.Kafka.Brokers,
		"topic":   cfg.Kafka.Topic,
		"group":   cfg.Kafka.GroupID,
		"workers": cfg.Kafka.Workers,
	}).Info("Image processor started")

	err := kafka.Consume(ctx, kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
		Workers: cfg.Kafka.Workers,
	}, imgProcessor.Process)
	if err != nil {
		logrus.WithError(err).Error("Consumer stopped with error")
	}

	logrus.Print("Image processor stopped")
}
