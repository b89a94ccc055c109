// Package upscaler resolves and runs the super-resolution / face-restoration
// capability for a request, with GPU to CPU fallback on memory exhaustion.
package upscaler

import (
	"context"
	"errors"
	"image"
)

type Device string

const (
	DeviceGPU Device = "gpu"
	DeviceCPU Device = "cpu"
)

// ErrResourceExhausted is returned by a Model when the device ran out of
// memory. It is the only failure that triggers a retry on another device.
var ErrResourceExhausted = errors.New("device resources exhausted")

// Model is an inference capability. Implementations must be safe for
// concurrent use and must not retain img.
type Model interface {
	ID() string
	Infer(ctx context.Context, img *image.NRGBA, scale int, device Device) (*image.NRGBA, error)
}

// Loader builds the capability for a model id. It is called at most once per
// id for the lifetime of a Registry.
type Loader func(id string) (Model, error)
