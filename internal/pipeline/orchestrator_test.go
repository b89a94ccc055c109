package pipeline

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/ds124wfegd/imgenhance/internal/upscaler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpscaler struct {
	delay  time.Duration
	err    error
	panics bool
}

func (f *fakeUpscaler) Upscale(ctx context.Context, img *image.NRGBA, _ entity.Preset, scale int) (upscaler.Result, error) {
	if f.panics {
		panic("inference crashed")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return upscaler.Result{}, ctx.Err()
		}
	}
	if f.err != nil {
		return upscaler.Result{}, f.err
	}
	if scale == 1 {
		return upscaler.Result{Image: img}, nil
	}
	out := imaging.Resize(img, img.Rect.Dx()*scale, img.Rect.Dy()*scale, imaging.NearestNeighbor)
	return upscaler.Result{Image: out, ModelUsed: "fake@cpu", Device: upscaler.DeviceCPU}, nil
}

func newBuiltinOrchestrator(gpu bool) *Orchestrator {
	up := upscaler.New(upscaler.NewRegistry(upscaler.BuiltinLoader), upscaler.StaticProbe(gpu), upscaler.Config{})
	return NewOrchestrator(up, time.Minute)
}

func TestEnhanceUniformGray(t *testing.T) {
	orch := newBuiltinOrchestrator(false)
	img := grayImage(100, 100, 128)
	before := copyPix(img)

	res, err := orch.Enhance(context.Background(), Request{Image: img, Preset: entity.PresetGeneral, Scale: 1, Strength: 80})

	require.NoError(t, err)
	assert.Equal(t, [2]int{100, 100}, res.Metadata.OutputDimensions)
	assert.Equal(t, [2]int{100, 100}, res.Metadata.OriginalDimensions)
	assert.Contains(t, res.Metadata.EnhancementsApplied, StageColorCorrection)
	assert.Contains(t, res.Metadata.EnhancementsApplied, StageSharpen)
	assert.NotContains(t, res.Metadata.EnhancementsApplied, StageUpscale)
	assert.Nil(t, res.Metadata.ModelUsed)
	assert.True(t, res.Metadata.QualityMetrics.NeedsEnhancement)
	assert.NotEqual(t, img.Pix, res.Image.Pix)
	assert.Equal(t, before, img.Pix)
}

func TestEnhanceStrengthZeroIsIdentity(t *testing.T) {
	orch := newBuiltinOrchestrator(false)
	img := noisyGray(40, 30, 11)

	for _, preset := range []entity.Preset{entity.PresetGeneral, entity.PresetPortrait, entity.PresetLandscape} {
		res, err := orch.Enhance(context.Background(), Request{Image: img, Preset: preset, Scale: 1, Strength: 0})

		require.NoError(t, err)
		assert.Equal(t, img.Pix, res.Image.Pix)
		assert.Empty(t, res.Metadata.EnhancementsApplied)
	}
}

func TestEnhanceHealthyImageSkipsCorrection(t *testing.T) {
	orch := newBuiltinOrchestrator(false)
	img := checkerboard(32, 32, 64, 192)

	res, err := orch.Enhance(context.Background(), Request{Image: img, Preset: entity.PresetGeneral, Scale: 1, Strength: 80})

	require.NoError(t, err)
	assert.False(t, res.Metadata.QualityMetrics.NeedsEnhancement)
	assert.NotContains(t, res.Metadata.EnhancementsApplied, StageDenoise)
	assert.NotContains(t, res.Metadata.EnhancementsApplied, StageColorCorrection)
	assert.Equal(t, []string{StageSharpen, StageDetail}, res.Metadata.EnhancementsApplied)
}

// TestEnhanceUpscale проверяет выбор модели и итоговые размеры
func TestEnhanceUpscale(t *testing.T) {
	tests := []struct {
		name   string
		preset entity.Preset
		scale  int
		model  string
	}{
		{name: "general x2", preset: entity.PresetGeneral, scale: 2, model: "realesrgan-x2plus@cpu"},
		{name: "landscape x4", preset: entity.PresetLandscape, scale: 4, model: "realesrgan-x4plus@cpu"},
		{name: "portrait without gpu", preset: entity.PresetPortrait, scale: 2, model: "gfpgan-v1.4@cpu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := newBuiltinOrchestrator(false)
			img := checkerboard(24, 16, 60, 180)

			res, err := orch.Enhance(context.Background(), Request{Image: img, Preset: tt.preset, Scale: tt.scale, Strength: 50})

			require.NoError(t, err)
			assert.Equal(t, [2]int{24 * tt.scale, 16 * tt.scale}, res.Metadata.OutputDimensions)
			assert.Equal(t, [2]int{24 * tt.scale, 16 * tt.scale}, Dimensions(res.Image))
			require.NotNil(t, res.Metadata.ModelUsed)
			assert.Equal(t, tt.model, *res.Metadata.ModelUsed)
			assert.Contains(t, res.Metadata.EnhancementsApplied, StageUpscale)
			assert.Equal(t, "cpu", res.Metadata.Device)
			assert.False(t, res.Metadata.DeviceFallback)
		})
	}
}

func TestEnhanceStrengthZeroStillUpscales(t *testing.T) {
	orch := NewOrchestrator(&fakeUpscaler{}, time.Minute)
	img := grayImage(10, 10, 128)

	res, err := orch.Enhance(context.Background(), Request{Image: img, Preset: entity.PresetGeneral, Scale: 2, Strength: 0})

	require.NoError(t, err)
	assert.Equal(t, [2]int{20, 20}, Dimensions(res.Image))
	assert.Equal(t, []string{StageUpscale}, res.Metadata.EnhancementsApplied)
}

func TestEnhanceTimeout(t *testing.T) {
	orch := NewOrchestrator(&fakeUpscaler{delay: 5 * time.Second}, 50*time.Millisecond)
	img := grayImage(16, 16, 128)

	start := time.Now()
	res, err := orch.Enhance(context.Background(), Request{Image: img, Preset: entity.PresetGeneral, Scale: 2, Strength: 50})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, entity.CodeTimeout, entity.CodeOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEnhanceFailures(t *testing.T) {
	tests := []struct {
		name string
		up   *fakeUpscaler
		code entity.ErrorCode
	}{
		{
			name: "model error is passed through",
			up:   &fakeUpscaler{err: entity.NewError(entity.CodeModelError, "upscaling failed on cpu", errors.New("bad weights"))},
			code: entity.CodeModelError,
		},
		{
			name: "unclassified error becomes model error",
			up:   &fakeUpscaler{err: errors.New("something odd")},
			code: entity.CodeModelError,
		},
		{
			name: "panic becomes model error",
			up:   &fakeUpscaler{panics: true},
			code: entity.CodeModelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := NewOrchestrator(tt.up, time.Minute)

			_, err := orch.Enhance(context.Background(), Request{Image: grayImage(8, 8, 50), Preset: entity.PresetGeneral, Scale: 2, Strength: 50})

			require.Error(t, err)
			assert.Equal(t, tt.code, entity.CodeOf(err))
		})
	}
}

func TestEnhanceRejectsInvalidRequests(t *testing.T) {
	orch := NewOrchestrator(&fakeUpscaler{}, time.Minute)
	img := grayImage(8, 8, 50)

	tests := []struct {
		name string
		req  Request
		msg  string
	}{
		{name: "strength above range", req: Request{Image: img, Preset: entity.PresetGeneral, Scale: 1, Strength: 150}, msg: "strength"},
		{name: "unknown preset", req: Request{Image: img, Preset: "vintage", Scale: 1, Strength: 50}, msg: "preset"},
		{name: "unsupported scale", req: Request{Image: img, Preset: entity.PresetGeneral, Scale: 3, Strength: 50}, msg: "scale"},
		{name: "missing image", req: Request{Preset: entity.PresetGeneral, Scale: 1, Strength: 50}, msg: "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orch.Enhance(context.Background(), tt.req)

			require.Error(t, err)
			assert.Equal(t, entity.CodeInvalidInput, entity.CodeOf(err))
			assert.True(t, strings.Contains(entity.MessageOf(err), tt.msg))
		})
	}
}
