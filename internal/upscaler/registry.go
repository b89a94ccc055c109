package upscaler

import (
	"fmt"
	"sync"

	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/sirupsen/logrus"
)

type registryEntry struct {
	once  sync.Once
	model Model
	err   error
}

// Registry keeps one loaded capability per model id. Entries are created on
// first use and are read-only afterwards; a failed load is not retried.
type Registry struct {
	loader  Loader
	mu      sync.Mutex
	entries map[string]*registryEntry
}

func NewRegistry(loader Loader) *Registry {
	return &Registry{
		loader:  loader,
		entries: make(map[string]*registryEntry),
	}
}

// Resolve returns the capability serving (preset, scale).
func (r *Registry) Resolve(preset entity.Preset, scale int) (Model, error) {
	id, ok := ModelFor(preset, scale)
	if !ok {
		return nil, fmt.Errorf("no model for preset %q at scale %d", preset, scale)
	}
	return r.load(id)
}

// Preload loads every model of the table, so the first requests do not pay
// for it.
func (r *Registry) Preload() error {
	seen := make(map[string]bool)
	for _, id := range modelTable {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := r.load(id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) load(id string) (Model, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		e = &registryEntry{}
		r.entries[id] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.model, e.err = r.loader(id)
		if e.err != nil {
			e.err = fmt.Errorf("load model %s: %w", id, e.err)
			logrus.WithError(e.err).Error("Model load failed")
			return
		}
		logrus.WithField("model", id).Info("Model loaded")
	})
	return e.model, e.err
}
