package service

import (
	"context"
	"io"

	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/ds124wfegd/imgenhance/internal/pipeline"
)

type EnhanceService interface {
	Enhance(ctx context.Context, req *entity.EnhanceRequest) (*entity.EnhanceResponse, error)
	Analyze(ctx context.Context, req *entity.AnalyzeRequest) (*entity.AnalyzeResponse, error)
	Filter(ctx context.Context, req *entity.FilterRequest) (*entity.ProcessedImageResponse, error)
	BackgroundBlur(ctx context.Context, req *entity.BackgroundBlurRequest) (*entity.ProcessedImageResponse, error)
}

type JobService interface {
	Submit(ctx context.Context, req *entity.EnhanceRequest) (*entity.SubmitResponse, error)
	GetJob(ctx context.Context, id string) (*entity.Job, error)
	Result(ctx context.Context, id string) (io.ReadCloser, error)
}

// Enhancer is satisfied by *pipeline.Orchestrator.
type Enhancer interface {
	Enhance(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}
