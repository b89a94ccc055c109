package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

type TaskHandler func(ctx context.Context, task entity.ProcessingTask) error

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Workers int
}

// Consume reads processing tasks until ctx is cancelled. At most Workers
// tasks run at once; the loop waits for a free slot before fetching more.
// Malformed messages are logged and skipped.
func Consume(ctx context.Context, cfg ConsumerConfig, handle TaskHandler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	defer reader.Close()

	workers := int64(cfg.Workers)
	if workers <= 0 {
		workers = 1
	}
	slots := semaphore.NewWeighted(workers)

	logrus.WithFields(logrus.Fields{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
		"group":   cfg.GroupID,
		"workers": workers,
	}).Info("Enhancement consumer started")

	for {
		if err := slots.Acquire(ctx, 1); err != nil {
			break
		}
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			slots.Release(1)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			logrus.WithError(err).Error("Error reading message from Kafka")
			continue
		}

		task, err := DecodeTask(msg.Value)
		if err != nil {
			slots.Release(1)
			logrus.WithError(err).WithField("offset", msg.Offset).Error("Failed to parse task")
			continue
		}

		// in-flight tasks finish even when the consumer is stopping
		go func(t entity.ProcessingTask) {
			defer slots.Release(1)
			if err := handle(context.WithoutCancel(ctx), t); err != nil {
				logrus.WithError(err).WithField("job_id", t.JobID).Error("Processing failed")
				return
			}
			logrus.WithField("job_id", t.JobID).Info("Successfully processed job")
		}(task)
	}

	// drain in-flight tasks
	_ = slots.Acquire(context.Background(), workers)
	logrus.Info("Enhancement consumer stopped")
	return nil
}

func DecodeTask(data []byte) (entity.ProcessingTask, error) {
	var task entity.ProcessingTask
	if err := json.Unmarshal(data, &task); err != nil {
		return task, err
	}
	if task.JobID == "" {
		return task, errors.New("task has no job_id")
	}
	return task, nil
}
