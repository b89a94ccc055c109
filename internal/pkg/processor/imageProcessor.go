package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/ds124wfegd/imgenhance/internal/codec"
	"github.com/ds124wfegd/imgenhance/internal/database"
	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/ds124wfegd/imgenhance/internal/pipeline"
	"github.com/sirupsen/logrus"
)

type Enhancer interface {
	Enhance(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, message interface{}) error
}

// ImageProcessor runs queued enhancement jobs to completion.
type ImageProcessor interface {
	Process(ctx context.Context, task entity.ProcessingTask) error
}

type imageProcessor struct {
	jobs      database.JobRepository
	images    database.ImageRepository
	cache     database.JobCache
	enhancer  Enhancer
	events    EventPublisher
	maxPixels int
}

// NewImageProcessor wires a processor. cache may be nil.
func NewImageProcessor(jobs database.JobRepository, images database.ImageRepository, cache database.JobCache,
	enhancer Enhancer, events EventPublisher, maxPixels int) ImageProcessor {
	return &imageProcessor{
		jobs:      jobs,
		images:    images,
		cache:     cache,
		enhancer:  enhancer,
		events:    events,
		maxPixels: maxPixels,
	}
}

func (p *imageProcessor) Process(ctx context.Context, task entity.ProcessingTask) error {
	log := logrus.WithField("job_id", task.JobID)

	if err := p.jobs.MarkProcessing(ctx, task.JobID); err != nil {
		if errors.Is(err, entity.ErrJobNotFound) {
			log.Warn("Job is unknown or already finished, skipping")
			return nil
		}
		return fmt.Errorf("mark job processing: %w", err)
	}
	p.invalidate(ctx, task.JobID)
	log.Info("Processing job")

	meta, err := p.enhance(ctx, task)
	if err != nil {
		code := entity.CodeOf(err)
		if ferr := p.jobs.Fail(ctx, task.JobID, code, entity.MessageOf(err)); ferr != nil {
			return fmt.Errorf("mark job failed: %w", ferr)
		}
		p.invalidate(ctx, task.JobID)
		p.publish(ctx, entity.JobEvent{JobID: task.JobID, Status: entity.JobFailed, ErrorCode: code, FinishedAt: time.Now().UTC()})
		return err
	}

	// Обновляем статус
	if err := p.jobs.Complete(ctx, task.JobID, meta); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	p.invalidate(ctx, task.JobID)
	p.publish(ctx, entity.JobEvent{JobID: task.JobID, Status: entity.JobCompleted, FinishedAt: time.Now().UTC()})

	log.WithField("stages", meta.EnhancementsApplied).Info("Completed job")
	return nil
}

func (p *imageProcessor) enhance(ctx context.Context, task entity.ProcessingTask) (*entity.Metadata, error) {
	start := time.Now()

	// Загружаем оригинальное изображение
	r, err := p.images.Original(task.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load original: %w", err)
	}
	raw, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read original: %w", err)
	}

	img, _, err := codec.Decode(raw, p.maxPixels)
	if err != nil {
		return nil, err
	}

	res, err := p.enhancer.Enhance(ctx, pipeline.Request{
		ID:       task.JobID,
		Image:    pipeline.NewBuffer(img),
		Preset:   task.Preset,
		Scale:    task.Scale,
		Strength: task.Strength,
	})
	if err != nil {
		return nil, err
	}

	// Сохраняем результат
	data, err := codec.EncodePNG(res.Image)
	if err != nil {
		return nil, err
	}
	if err := p.images.SaveResult(task.JobID, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}
	meta := res.Metadata
	meta.ProcessingTime = math.Round(time.Since(start).Seconds()*1000) / 1000
	return &meta, nil
}

func (p *imageProcessor) invalidate(ctx context.Context, id string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.DeleteJob(ctx, id); err != nil {
		logrus.WithError(err).WithField("job_id", id).Warn("Failed to invalidate cached job")
	}
}

func (p *imageProcessor) publish(ctx context.Context, event entity.JobEvent) {
	if err := p.events.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithField("job_id", event.JobID).Error("Failed to publish job event")
	}
}
