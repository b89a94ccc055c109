package database

import (
	"context"
	"io"
	"time"

	"github.com/ds124wfegd/imgenhance/internal/entity"
)

// ImageRepository keeps the binary artifacts of async jobs.
type ImageRepository interface {
	SaveOriginal(id string, data io.Reader) error
	Original(id string) (io.ReadCloser, error)
	SaveResult(id string, data io.Reader) error
	Result(id string) (io.ReadCloser, error)
	Delete(id string) error
}

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	GetByID(ctx context.Context, id string) (*entity.Job, error)
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, meta *entity.Metadata) error
	Fail(ctx context.Context, id string, code entity.ErrorCode, message string) error
	// PurgeFinished removes completed and failed jobs last updated before
	// the given time and returns their ids.
	PurgeFinished(ctx context.Context, before time.Time) ([]string, error)
}

// ResultCache stores finished synchronous responses. A miss is (nil, false, nil).
type ResultCache interface {
	GetResult(ctx context.Context, key string) (*entity.EnhanceResponse, bool, error)
	SetResult(ctx context.Context, key string, resp *entity.EnhanceResponse) error
}

type JobCache interface {
	GetJob(ctx context.Context, id string) (*entity.Job, bool, error)
	SetJob(ctx context.Context, job *entity.Job) error
	DeleteJob(ctx context.Context, id string) error
}
