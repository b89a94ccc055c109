package service

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/ds124wfegd/imgenhance/internal/codec"
	"github.com/ds124wfegd/imgenhance/internal/database"
	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/ds124wfegd/imgenhance/internal/pipeline"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

type Options struct {
	Budget         time.Duration
	MaxConcurrent  int64
	MaxInputPixels int
}

type enhanceService struct {
	enhancer  Enhancer
	cache     database.ResultCache
	pool      *semaphore.Weighted
	budget    time.Duration
	maxPixels int
}

// NewEnhanceService builds the synchronous API. cache may be nil.
func NewEnhanceService(enhancer Enhancer, cache database.ResultCache, opts Options) EnhanceService {
	if opts.Budget <= 0 {
		opts.Budget = pipeline.DefaultBudget
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.MaxInputPixels <= 0 {
		opts.MaxInputPixels = codec.DefaultMaxPixels
	}
	return &enhanceService{
		enhancer:  enhancer,
		cache:     cache,
		pool:      semaphore.NewWeighted(opts.MaxConcurrent),
		budget:    opts.Budget,
		maxPixels: opts.MaxInputPixels,
	}
}

func (s *enhanceService) Enhance(ctx context.Context, req *entity.EnhanceRequest) (*entity.EnhanceResponse, error) {
	start := time.Now()
	params, err := ValidateEnhanceRequest(req)
	if err != nil {
		return nil, err
	}
	raw, err := codec.DecodePayload(req.ImageData)
	if err != nil {
		return nil, err
	}

	key := CacheKey(raw, params)
	if cached := s.lookup(ctx, key); cached != nil {
		return cached, nil
	}

	img, _, err := codec.Decode(raw, s.maxPixels)
	if err != nil {
		return nil, err
	}

	// Waiting for a worker is part of the request budget.
	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	var res *pipeline.Result
	err = s.withWorker(ctx, func() error {
		var err error
		res, err = s.enhancer.Enhance(ctx, pipeline.Request{
			ID:       uuid.New().String(),
			Image:    pipeline.NewBuffer(img),
			Preset:   params.Preset,
			Scale:    params.Scale,
			Strength: params.Strength,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	encoded, err := codec.EncodeBase64PNG(res.Image)
	if err != nil {
		return nil, entity.NewError(entity.CodeModelError, "failed to encode result", err)
	}

	meta := res.Metadata
	meta.ProcessingTime = seconds(time.Since(start))
	resp := &entity.EnhanceResponse{Success: true, EnhancedImage: encoded, Metadata: &meta}
	s.store(ctx, key, resp)
	return resp, nil
}

func (s *enhanceService) Analyze(ctx context.Context, req *entity.AnalyzeRequest) (*entity.AnalyzeResponse, error) {
	buf, err := s.decode(req.ImageData)
	if err != nil {
		return nil, err
	}
	metrics := pipeline.Analyze(buf)
	return &entity.AnalyzeResponse{
		Success:        true,
		QualityMetrics: &metrics,
		Dimensions:     pipeline.Dimensions(buf),
	}, nil
}

func (s *enhanceService) Filter(ctx context.Context, req *entity.FilterRequest) (*entity.ProcessedImageResponse, error) {
	if req.FilterType == "" {
		return nil, entity.InvalidInput("filter_type is required")
	}
	return s.process(ctx, req.ImageData, func(img *image.NRGBA) (*image.NRGBA, error) {
		return pipeline.ApplyFilter(img, req.FilterType)
	})
}

func (s *enhanceService) BackgroundBlur(ctx context.Context, req *entity.BackgroundBlurRequest) (*entity.ProcessedImageResponse, error) {
	strength := req.BlurStrength
	if strength == 0 {
		strength = pipeline.DefaultBackgroundBlur
	}
	if strength < 1 || strength > pipeline.MaxBackgroundBlur {
		return nil, entity.InvalidInput("blur_strength must be between 1 and %d, got %d", pipeline.MaxBackgroundBlur, strength)
	}
	return s.process(ctx, req.ImageData, func(img *image.NRGBA) (*image.NRGBA, error) {
		return pipeline.BackgroundBlur(img, strength), nil
	})
}

func (s *enhanceService) process(ctx context.Context, data string, fn func(*image.NRGBA) (*image.NRGBA, error)) (*entity.ProcessedImageResponse, error) {
	start := time.Now()
	buf, err := s.decode(data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	var out *image.NRGBA
	if err := s.withWorker(ctx, func() error {
		var err error
		out, err = fn(buf)
		return err
	}); err != nil {
		return nil, err
	}

	encoded, err := codec.EncodeBase64PNG(out)
	if err != nil {
		return nil, entity.NewError(entity.CodeModelError, "failed to encode result", err)
	}
	return &entity.ProcessedImageResponse{
		Success:        true,
		ProcessedImage: encoded,
		ProcessingTime: seconds(time.Since(start)),
	}, nil
}

func (s *enhanceService) decode(data string) (*image.NRGBA, error) {
	img, _, err := codec.DecodeBase64(data, s.maxPixels)
	if err != nil {
		return nil, err
	}
	return pipeline.NewBuffer(img), nil
}

func (s *enhanceService) withWorker(ctx context.Context, fn func() error) error {
	if err := s.pool.Acquire(ctx, 1); err != nil {
		return entity.NewError(entity.CodeTimeout, "timed out waiting for a free worker", err)
	}
	defer s.pool.Release(1)
	return fn()
}

func (s *enhanceService) lookup(ctx context.Context, key string) *entity.EnhanceResponse {
	if s.cache == nil {
		return nil
	}
	resp, ok, err := s.cache.GetResult(ctx, key)
	if err != nil {
		logrus.WithError(err).Warn("Result cache lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	logrus.WithField("key", key[:16]).Debug("Result served from cache")
	return resp
}

func (s *enhanceService) store(ctx context.Context, key string, resp *entity.EnhanceResponse) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.cache.SetResult(ctx, key, resp); err != nil {
		logrus.WithError(err).Warn("Result cache store failed")
	}
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
