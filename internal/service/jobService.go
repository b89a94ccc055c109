package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ds124wfegd/imgenhance/internal/codec"
	"github.com/ds124wfegd/imgenhance/internal/database"
	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/ds124wfegd/imgenhance/internal/pkg/kafka"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type jobService struct {
	jobs      database.JobRepository
	images    database.ImageRepository
	cache     database.JobCache
	producer  kafka.Producer
	maxPixels int
}

// NewJobService builds the asynchronous API. cache may be nil.
func NewJobService(jobs database.JobRepository, images database.ImageRepository, cache database.JobCache,
	producer kafka.Producer, maxPixels int) JobService {
	if maxPixels <= 0 {
		maxPixels = codec.DefaultMaxPixels
	}
	return &jobService{
		jobs:      jobs,
		images:    images,
		cache:     cache,
		producer:  producer,
		maxPixels: maxPixels,
	}
}

func (s *jobService) Submit(ctx context.Context, req *entity.EnhanceRequest) (*entity.SubmitResponse, error) {
	params, err := ValidateEnhanceRequest(req)
	if err != nil {
		return nil, err
	}
	raw, err := codec.DecodePayload(req.ImageData)
	if err != nil {
		return nil, err
	}
	// Reject what the processor could not decode before queueing it.
	if _, _, err := codec.Decode(raw, s.maxPixels); err != nil {
		return nil, err
	}

	id := uuid.New().String()

	// Сохраняем оригинальное изображение
	if err := s.images.SaveOriginal(id, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("save original: %w", err)
	}

	// Создаем запись о задаче
	now := time.Now().UTC()
	job := &entity.Job{
		ID:        id,
		Status:    entity.JobQueued,
		Preset:    params.Preset,
		Scale:     params.Scale,
		Strength:  params.Strength,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	// Отправляем в Kafka для обработки
	task := entity.ProcessingTask{JobID: id, Preset: params.Preset, Scale: params.Scale, Strength: params.Strength}
	if err := s.producer.SendMessage(ctx, id, task); err != nil {
		if ferr := s.jobs.Fail(ctx, id, entity.CodeModelError, "failed to queue job"); ferr != nil {
			logrus.WithError(ferr).WithField("job_id", id).Error("Failed to mark unqueued job")
		}
		return nil, fmt.Errorf("queue job: %w", err)
	}

	logrus.WithFields(logrus.Fields{"job_id": id, "preset": params.Preset, "scale": params.Scale}).Info("Job queued")
	return &entity.SubmitResponse{ID: id, Status: entity.JobQueued}, nil
}

func (s *jobService) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	if s.cache != nil {
		job, ok, err := s.cache.GetJob(ctx, id)
		if err != nil {
			logrus.WithError(err).WithField("job_id", id).Warn("Job cache lookup failed")
		}
		if ok {
			return job, nil
		}
	}

	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJob(ctx, job); err != nil {
			logrus.WithError(err).WithField("job_id", id).Warn("Job cache store failed")
		}
	}
	return job, nil
}

func (s *jobService) Result(ctx context.Context, id string) (io.ReadCloser, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != entity.JobCompleted {
		return nil, fmt.Errorf("job %s is %s: %w", id, job.Status, entity.ErrJobNotReady)
	}
	return s.images.Result(id)
}
