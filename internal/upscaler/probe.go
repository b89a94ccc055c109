package upscaler

import (
	"os"
	"strings"
)

// DeviceProbe reports whether a GPU can take work right now. It is asked on
// every request, never cached.
type DeviceProbe interface {
	GPUAvailable() bool
}

type StaticProbe bool

func (p StaticProbe) GPUAvailable() bool { return bool(p) }

type deviceFileProbe struct {
	path string
}

func (p deviceFileProbe) GPUAvailable() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

const nvidiaDevice = "/dev/nvidia0"

// NewProbe maps the configured gpu mode (auto, on, off) to a probe.
func NewProbe(mode string) DeviceProbe {
	switch strings.ToLower(mode) {
	case "on", "true":
		return StaticProbe(true)
	case "off", "false", "":
		return StaticProbe(false)
	default:
		return deviceFileProbe{path: nvidiaDevice}
	}
}
