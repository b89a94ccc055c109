package upscaler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const DefaultMaxDimension = 4096

type Config struct {
	MaxDimension int
	GPUSlots     int64
	CPUSlots     int64
}

type Result struct {
	Image *image.NRGBA
	// ModelUsed is "<model-id>@<device>", empty when no model ran.
	ModelUsed string
	Device    Device
	Fallback  bool
	Capped    bool
	Warnings  []string
}

type Upscaler struct {
	registry *Registry
	probe    DeviceProbe
	gpu      *semaphore.Weighted
	cpu      *semaphore.Weighted
	maxDim   int
}

func New(registry *Registry, probe DeviceProbe, cfg Config) *Upscaler {
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = DefaultMaxDimension
	}
	if cfg.GPUSlots <= 0 {
		cfg.GPUSlots = 1
	}
	if cfg.CPUSlots <= 0 {
		cfg.CPUSlots = 1
	}
	return &Upscaler{
		registry: registry,
		probe:    probe,
		gpu:      semaphore.NewWeighted(cfg.GPUSlots),
		cpu:      semaphore.NewWeighted(cfg.CPUSlots),
		maxDim:   cfg.MaxDimension,
	}
}

// Upscale enlarges img by scale with the model registered for preset. Scale 1
// is a pass-through. Outputs beyond the dimension cap are fitted back inside
// it, keeping the aspect ratio.
func (u *Upscaler) Upscale(ctx context.Context, img *image.NRGBA, preset entity.Preset, scale int) (Result, error) {
	if scale == 1 {
		return Result{Image: img}, nil
	}
	if !entity.ValidScale(scale) {
		return Result{}, entity.InvalidInput("scale must be 1, 2 or 4, got %d", scale)
	}

	model, err := u.registry.Resolve(preset, scale)
	if err != nil {
		return Result{}, entity.NewError(entity.CodeModelError, "upscaling model unavailable", err)
	}

	out, device, fallback, err := u.infer(ctx, model, img, scale)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Image:     out,
		ModelUsed: fmt.Sprintf("%s@%s", model.ID(), device),
		Device:    device,
		Fallback:  fallback,
	}
	if fallback {
		res.Warnings = append(res.Warnings, "GPU memory exhausted, upscaling ran on CPU")
	}

	w, h := out.Rect.Dx(), out.Rect.Dy()
	if cw, ch, capped := CappedDimensions(w, h, u.maxDim); capped {
		res.Image = imaging.Resize(out, cw, ch, imaging.Lanczos)
		res.Capped = true
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("output %dx%d exceeds %d px, resized to %dx%d", w, h, u.maxDim, cw, ch))
		logrus.WithFields(logrus.Fields{
			"width":  w,
			"height": h,
			"capped": fmt.Sprintf("%dx%d", cw, ch),
		}).Warn("Upscaled output capped")
	}
	return res, nil
}

// infer runs the GPU attempt when a GPU is present and retries on CPU only on
// resource exhaustion. Context errors are returned unchanged.
func (u *Upscaler) infer(ctx context.Context, model Model, img *image.NRGBA, scale int) (*image.NRGBA, Device, bool, error) {
	fallback := false
	if u.probe.GPUAvailable() {
		out, err := u.attempt(ctx, model, img, scale, DeviceGPU)
		switch {
		case err == nil:
			return out, DeviceGPU, false, nil
		case isContextErr(err):
			return nil, DeviceGPU, false, err
		case errors.Is(err, ErrResourceExhausted):
			logrus.WithFields(logrus.Fields{
				"model": model.ID(),
				"scale": scale,
			}).WithError(err).Warn("GPU exhausted, falling back to CPU")
			fallback = true
		default:
			return nil, DeviceGPU, false, entity.NewError(entity.CodeModelError, "upscaling failed on gpu", err)
		}
	}

	out, err := u.attempt(ctx, model, img, scale, DeviceCPU)
	if err != nil {
		if isContextErr(err) {
			return nil, DeviceCPU, fallback, err
		}
		return nil, DeviceCPU, fallback, entity.NewError(entity.CodeModelError, "upscaling failed on cpu", err)
	}
	return out, DeviceCPU, fallback, nil
}

// attempt holds the device slot for exactly one inference call.
func (u *Upscaler) attempt(ctx context.Context, model Model, img *image.NRGBA, scale int, device Device) (*image.NRGBA, error) {
	sem := u.cpu
	if device == DeviceGPU {
		sem = u.gpu
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer sem.Release(1)

	out, err := model.Infer(ctx, img, scale, device)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("model %s returned no image", model.ID())
	}
	return out, nil
}

// CappedDimensions fits w×h inside limit×limit. The bool reports whether any
// resizing is needed.
func CappedDimensions(w, h, limit int) (int, int, bool) {
	if w <= limit && h <= limit {
		return w, h, false
	}
	ratio := math.Min(float64(limit)/float64(w), float64(limit)/float64(h))
	nw := int(math.Round(float64(w) * ratio))
	nh := int(math.Round(float64(h) * ratio))
	return clampDim(nw, limit), clampDim(nh, limit), true
}

func clampDim(v, limit int) int {
	if v < 1 {
		return 1
	}
	if v > limit {
		return limit
	}
	return v
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
