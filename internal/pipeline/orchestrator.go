package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/ds124wfegd/imgenhance/internal/upscaler"
	"github.com/sirupsen/logrus"
)

type State string

const (
	StateReceived        State = "received"
	StateAnalyzing       State = "analyzing"
	StateDenoising       State = "denoising"
	StateColorCorrecting State = "color_correcting"
	StateUpscaling       State = "upscaling"
	StateSharpening      State = "sharpening"
	StateDetailEnhancing State = "detail_enhancing"
	StateBlending        State = "blending"
	StateCompleted       State = "completed"
	StateTimedOut        State = "timed_out"
	StateFailed          State = "failed"
)

const DefaultBudget = 60 * time.Second

type Upscaler interface {
	Upscale(ctx context.Context, img *image.NRGBA, preset entity.Preset, scale int) (upscaler.Result, error)
}

// Request is a validated enhancement request. Image is never modified.
type Request struct {
	ID       string
	Image    *image.NRGBA
	Preset   entity.Preset
	Scale    int
	Strength int
}

type Result struct {
	Image    *image.NRGBA
	Metadata entity.Metadata
}

type Orchestrator struct {
	upscaler Upscaler
	budget   time.Duration
}

func NewOrchestrator(up Upscaler, budget time.Duration) *Orchestrator {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Orchestrator{upscaler: up, budget: budget}
}

func (o *Orchestrator) Budget() time.Duration { return o.budget }

// Enhance runs the full pipeline within the wall-clock budget. On expiry it
// returns TIMEOUT at once; the worker goroutine notices the cancelled context
// at its next stage boundary and its result is dropped.
func (o *Orchestrator) Enhance(ctx context.Context, req Request) (*Result, error) {
	if req.Image == nil {
		return nil, entity.InvalidInput("image is required")
	}
	if !req.Preset.Valid() {
		return nil, entity.InvalidInput("unknown preset %q", req.Preset)
	}
	if !entity.ValidScale(req.Scale) {
		return nil, entity.InvalidInput("scale must be 1, 2 or 4, got %d", req.Scale)
	}
	if req.Strength < 0 || req.Strength > 100 {
		return nil, entity.InvalidInput("strength must be within 0..100, got %d", req.Strength)
	}

	ctx, cancel := context.WithTimeout(ctx, o.budget)
	defer cancel()

	log := logrus.WithFields(logrus.Fields{
		"request_id": req.ID,
		"preset":     req.Preset,
		"scale":      req.Scale,
		"strength":   req.Strength,
	})

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: entity.NewError(entity.CodeModelError, "enhancement pipeline failed", fmt.Errorf("panic: %v", r))}
			}
		}()
		res, err := o.run(ctx, req, log)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, o.fail(ctx, out.err, log)
		}
		return out.res, nil
	case <-ctx.Done():
		log.WithField("state", StateTimedOut).Warn("Enhancement budget exceeded")
		return nil, entity.NewError(entity.CodeTimeout, "enhancement processing timed out", ctx.Err())
	}
}

func (o *Orchestrator) fail(ctx context.Context, err error, log *logrus.Entry) error {
	code := entity.CodeOf(err)
	if code == entity.CodeTimeout || ctx.Err() != nil {
		log.WithField("state", StateTimedOut).Warn("Enhancement budget exceeded")
		return entity.NewError(entity.CodeTimeout, "enhancement processing timed out", err)
	}
	log.WithField("state", StateFailed).WithError(err).Error("Enhancement failed")
	var classified *entity.Error
	if errors.As(err, &classified) {
		return err
	}
	return entity.NewError(code, "enhancement pipeline failed", err)
}

type stageFunc func(img *image.NRGBA, intensity float64) *image.NRGBA

func (o *Orchestrator) run(ctx context.Context, req Request, log *logrus.Entry) (*Result, error) {
	start := time.Now()
	state := StateReceived
	enter := func(next State) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"from": state, "state": next}).Debug("Pipeline transition")
		state = next
		return nil
	}

	if err := enter(StateAnalyzing); err != nil {
		return nil, err
	}
	metrics := Analyze(req.Image)
	plan := Decide(metrics, req.Preset, req.Strength)

	current := req.Image
	applied := make([]string, 0, 5)
	stage := func(next State, name string, d StageDecision, fn stageFunc) error {
		if !d.Apply {
			return nil
		}
		if err := enter(next); err != nil {
			return err
		}
		current = fn(current, d.Intensity)
		applied = append(applied, name)
		return nil
	}

	if err := stage(StateDenoising, StageDenoise, plan.Denoise, Denoise); err != nil {
		return nil, err
	}
	if err := stage(StateColorCorrecting, StageColorCorrection, plan.ColorCorrect, func(img *image.NRGBA, _ float64) *image.NRGBA {
		return Correct(img)
	}); err != nil {
		return nil, err
	}

	if err := enter(StateUpscaling); err != nil {
		return nil, err
	}
	up, err := o.upscaler.Upscale(ctx, current, req.Preset, req.Scale)
	if err != nil {
		return nil, err
	}
	current = up.Image
	if up.ModelUsed != "" {
		applied = append(applied, StageUpscale)
	}

	if err := stage(StateSharpening, StageSharpen, plan.Sharpen, Sharpen); err != nil {
		return nil, err
	}
	if err := stage(StateDetailEnhancing, StageDetail, plan.DetailEnhance, EnhanceDetail); err != nil {
		return nil, err
	}

	if err := enter(StateBlending); err != nil {
		return nil, err
	}
	out := Blend(req.Image, current, req.Strength)
	if err := enter(StateCompleted); err != nil {
		return nil, err
	}

	meta := entity.Metadata{
		ProcessingTime:      math.Round(time.Since(start).Seconds()*1000) / 1000,
		OriginalDimensions:  Dimensions(req.Image),
		OutputDimensions:    Dimensions(out),
		QualityMetrics:      metrics,
		EnhancementsApplied: applied,
		Preset:              req.Preset,
		Scale:               req.Scale,
		Strength:            req.Strength,
		Device:              string(up.Device),
		DeviceFallback:      up.Fallback,
		DimensionCapped:     up.Capped,
		Warnings:            up.Warnings,
	}
	if up.ModelUsed != "" {
		model := up.ModelUsed
		meta.ModelUsed = &model
	}

	log.WithFields(logrus.Fields{
		"stages":  applied,
		"elapsed": time.Since(start).String(),
	}).Info("Enhancement completed")
	return &Result{Image: out, Metadata: meta}, nil
}
