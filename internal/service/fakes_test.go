package service

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ds124wfegd/imgenhance/internal/codec"
	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/ds124wfegd/imgenhance/internal/pipeline"
	"github.com/stretchr/testify/require"
)

// countingEnhancer echoes the input image and counts calls.
type countingEnhancer struct {
	calls int32
}

func (e *countingEnhancer) Enhance(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	atomic.AddInt32(&e.calls, 1)
	return &pipeline.Result{
		Image:    req.Image,
		Metadata: entity.Metadata{Preset: req.Preset, Scale: req.Scale, Strength: req.Strength},
	}, nil
}

// blockingEnhancer holds its worker until the request context ends.
type blockingEnhancer struct {
	started chan struct{}
	calls   int32
}

func (e *blockingEnhancer) Enhance(ctx context.Context, _ pipeline.Request) (*pipeline.Result, error) {
	atomic.AddInt32(&e.calls, 1)
	e.started <- struct{}{}
	<-ctx.Done()
	return nil, entity.NewError(entity.CodeTimeout, "budget exceeded", ctx.Err())
}

type memoryResultCache struct {
	mu    sync.Mutex
	items map[string]*entity.EnhanceResponse
}

func newMemoryResultCache() *memoryResultCache {
	return &memoryResultCache{items: make(map[string]*entity.EnhanceResponse)}
}

func (c *memoryResultCache) GetResult(_ context.Context, key string) (*entity.EnhanceResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.items[key]
	return resp, ok, nil
}

func (c *memoryResultCache) SetResult(_ context.Context, key string, resp *entity.EnhanceResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = resp
	return nil
}

type memoryJobs struct {
	mu   sync.Mutex
	jobs map[string]*entity.Job
	gets int
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: make(map[string]*entity.Job)}
}

func (m *memoryJobs) Create(_ context.Context, job *entity.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memoryJobs) GetByID(_ context.Context, id string) (*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	j, ok := m.jobs[id]
	if !ok {
		return nil, entity.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memoryJobs) MarkProcessing(_ context.Context, id string) error {
	return m.set(id, func(j *entity.Job) { j.Status = entity.JobProcessing })
}

func (m *memoryJobs) Complete(_ context.Context, id string, meta *entity.Metadata) error {
	return m.set(id, func(j *entity.Job) { j.Status, j.Metadata = entity.JobCompleted, meta })
}

func (m *memoryJobs) Fail(_ context.Context, id string, code entity.ErrorCode, message string) error {
	return m.set(id, func(j *entity.Job) { j.Status, j.ErrorCode, j.Error = entity.JobFailed, code, message })
}

func (m *memoryJobs) set(id string, fn func(*entity.Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return entity.ErrJobNotFound
	}
	fn(j)
	return nil
}

type memoryJobCache struct {
	mu   sync.Mutex
	jobs map[string]*entity.Job
}

func (c *memoryJobCache) GetJob(_ context.Context, id string) (*entity.Job, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[id]
	return j, ok, nil
}

func (c *memoryJobCache) SetJob(_ context.Context, job *entity.Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jobs == nil {
		c.jobs = make(map[string]*entity.Job)
	}
	c.jobs[job.ID] = job
	return nil
}

func (c *memoryJobCache) DeleteJob(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.jobs, id)
	return nil
}

func (m *memoryJobs) PurgeFinished(_ context.Context, before time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, j := range m.jobs {
		if (j.Status == entity.JobCompleted || j.Status == entity.JobFailed) && j.UpdatedAt.Before(before) {
			ids = append(ids, id)
			delete(m.jobs, id)
		}
	}
	return ids, nil
}

type recordingProducer struct {
	mu       sync.Mutex
	keys     []string
	messages []interface{}
	err      error
}

func (p *recordingProducer) SendMessage(_ context.Context, key string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.messages = append(p.messages, message)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

var errBrokerDown = errors.New("broker down")

func checkerPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(60 + (x/2+y/2)%2*120)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	data, err := codec.EncodePNG(img)
	require.NoError(t, err)
	return data
}

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func strPtr(s string) *string { return &s }
func numPtr(f float64) *float64 { return &f }

func enhanceRequest(data string, preset string, scale, strength float64) *entity.EnhanceRequest {
	return &entity.EnhanceRequest{
		ImageData: data,
		Preset:    strPtr(preset),
		Scale:     numPtr(scale),
		Strength:  numPtr(strength),
	}
}
