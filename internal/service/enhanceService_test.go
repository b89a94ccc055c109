package service

import (
	"context"
	"encoding/base64"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ds124wfegd/imgenhance/internal/codec"
	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/ds124wfegd/imgenhance/internal/pipeline"
	"github.com/ds124wfegd/imgenhance/internal/upscaler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuiltinService() EnhanceService {
	up := upscaler.New(upscaler.NewRegistry(upscaler.BuiltinLoader), upscaler.StaticProbe(false), upscaler.Config{})
	return NewEnhanceService(pipeline.NewOrchestrator(up, time.Minute), nil, Options{MaxConcurrent: 2})
}

func decodeResult(t *testing.T, data string) (w, h int, at func(x, y int) color.NRGBA) {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(data)
	require.NoError(t, err)
	img, format, err := codec.Decode(raw, 0)
	require.NoError(t, err)
	require.Equal(t, "png", format)
	b := img.Bounds()
	return b.Dx(), b.Dy(), func(x, y int) color.NRGBA {
		return color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
	}
}

func TestEnhanceEndToEnd(t *testing.T) {
	svc := newBuiltinService()

	resp, err := svc.Enhance(context.Background(), enhanceRequest(b64(checkerPNG(t, 24, 16)), "portrait", 2, 60))

	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Metadata)
	assert.Equal(t, [2]int{24, 16}, resp.Metadata.OriginalDimensions)
	assert.Equal(t, [2]int{48, 32}, resp.Metadata.OutputDimensions)
	assert.GreaterOrEqual(t, resp.Metadata.ProcessingTime, 0.0)

	w, h, _ := decodeResult(t, resp.EnhancedImage)
	assert.Equal(t, 48, w)
	assert.Equal(t, 32, h)
}

func TestEnhanceStrengthZeroReturnsOriginal(t *testing.T) {
	src := checkerPNG(t, 12, 12)
	original, _, err := codec.Decode(src, 0)
	require.NoError(t, err)

	resp, err := newBuiltinService().Enhance(context.Background(), enhanceRequest(b64(src), "general", 1, 0))
	require.NoError(t, err)

	w, h, at := decodeResult(t, resp.EnhancedImage)
	require.Equal(t, 12, w)
	require.Equal(t, 12, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := color.NRGBAModel.Convert(original.At(x, y)).(color.NRGBA)
			require.Equal(t, want, at(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestEnhanceRejectsBeforePipeline(t *testing.T) {
	enhancer := &countingEnhancer{}
	svc := NewEnhanceService(enhancer, nil, Options{})

	tests := []struct {
		name string
		req  *entity.EnhanceRequest
	}{
		{"strength 150", enhanceRequest(b64(checkerPNG(t, 4, 4)), "general", 2, 150)},
		{"scale 3", enhanceRequest(b64(checkerPNG(t, 4, 4)), "general", 3, 50)},
		{"not base64", enhanceRequest("%%%", "general", 2, 50)},
		{"not an image", enhanceRequest(b64([]byte("plain text")), "general", 2, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Enhance(context.Background(), tt.req)
			assert.Nil(t, resp)
			require.Error(t, err)
			assert.Equal(t, entity.CodeInvalidInput, entity.CodeOf(err))
		})
	}
	assert.Zero(t, atomic.LoadInt32(&enhancer.calls))
}

func TestEnhanceRejectsOversizedInput(t *testing.T) {
	enhancer := &countingEnhancer{}
	svc := NewEnhanceService(enhancer, nil, Options{MaxInputPixels: 100})

	_, err := svc.Enhance(context.Background(), enhanceRequest(b64(checkerPNG(t, 20, 20)), "general", 1, 50))

	require.Error(t, err)
	assert.Equal(t, entity.CodeInvalidInput, entity.CodeOf(err))
	assert.ErrorIs(t, err, entity.ErrImageTooLarge)
	assert.Zero(t, atomic.LoadInt32(&enhancer.calls))
}

func TestEnhanceServesRepeatsFromCache(t *testing.T) {
	enhancer := &countingEnhancer{}
	cache := newMemoryResultCache()
	svc := NewEnhanceService(enhancer, cache, Options{})
	data := b64(checkerPNG(t, 8, 8))

	first, err := svc.Enhance(context.Background(), enhanceRequest(data, "general", 1, 40))
	require.NoError(t, err)
	second, err := svc.Enhance(context.Background(), enhanceRequest("data:image/png;base64,"+data, "general", 1, 40))
	require.NoError(t, err)
	_, err = svc.Enhance(context.Background(), enhanceRequest(data, "general", 1, 41))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&enhancer.calls))
	assert.Len(t, cache.items, 2)
}

func TestEnhanceTimesOutWaitingForWorker(t *testing.T) {
	enhancer := &blockingEnhancer{started: make(chan struct{}, 1)}
	svc := NewEnhanceService(enhancer, nil, Options{Budget: 100 * time.Millisecond, MaxConcurrent: 1})
	data := b64(checkerPNG(t, 4, 4))

	done := make(chan error, 1)
	go func() {
		_, err := svc.Enhance(context.Background(), enhanceRequest(data, "general", 1, 50))
		done <- err
	}()
	<-enhancer.started

	_, err := svc.Enhance(context.Background(), enhanceRequest(data, "general", 1, 50))
	require.Error(t, err)
	assert.Equal(t, entity.CodeTimeout, entity.CodeOf(err))

	first := <-done
	assert.Equal(t, entity.CodeTimeout, entity.CodeOf(first))
	assert.Equal(t, int32(1), atomic.LoadInt32(&enhancer.calls))
}

func TestAnalyze(t *testing.T) {
	svc := NewEnhanceService(&countingEnhancer{}, nil, Options{})

	resp, err := svc.Analyze(context.Background(), &entity.AnalyzeRequest{ImageData: b64(checkerPNG(t, 10, 6))})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, [2]int{10, 6}, resp.Dimensions)
	require.NotNil(t, resp.QualityMetrics)
	assert.Greater(t, resp.QualityMetrics.Brightness, 0.0)

	_, err = svc.Analyze(context.Background(), &entity.AnalyzeRequest{})
	assert.Equal(t, entity.CodeInvalidInput, entity.CodeOf(err))
}

func TestFilter(t *testing.T) {
	svc := NewEnhanceService(&countingEnhancer{}, nil, Options{})
	data := b64(checkerPNG(t, 10, 10))

	tests := []struct {
		name    string
		filter  string
		wantErr bool
	}{
		{"sharpen", pipeline.FilterSharpen, false},
		{"blur", pipeline.FilterBlur, false},
		{"unknown", "sepia", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Filter(context.Background(), &entity.FilterRequest{ImageData: data, FilterType: tt.filter})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, entity.CodeInvalidInput, entity.CodeOf(err))
				return
			}
			require.NoError(t, err)
			w, h, _ := decodeResult(t, resp.ProcessedImage)
			assert.Equal(t, 10, w)
			assert.Equal(t, 10, h)
		})
	}
}

func TestBackgroundBlurStrengthRange(t *testing.T) {
	svc := NewEnhanceService(&countingEnhancer{}, nil, Options{})
	data := b64(checkerPNG(t, 16, 16))

	tests := []struct {
		strength int
		wantErr  bool
	}{
		{0, false},
		{1, false},
		{30, false},
		{31, true},
		{-2, true},
	}

	for _, tt := range tests {
		resp, err := svc.BackgroundBlur(context.Background(), &entity.BackgroundBlurRequest{ImageData: data, BlurStrength: tt.strength})
		if tt.wantErr {
			assert.Equal(t, entity.CodeInvalidInput, entity.CodeOf(err), "strength %d", tt.strength)
			continue
		}
		require.NoError(t, err, "strength %d", tt.strength)
		assert.True(t, resp.Success)
	}
}
