package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/ds124wfegd/imgenhance/internal/entity"
)

// Params is a validated enhance request without its image.
type Params struct {
	Preset   entity.Preset
	Scale    int
	Strength int
}

// ValidateEnhanceRequest checks every field before any image work happens.
func ValidateEnhanceRequest(req *entity.EnhanceRequest) (Params, error) {
	var p Params
	if req == nil || strings.TrimSpace(req.ImageData) == "" {
		return p, entity.NewError(entity.CodeInvalidInput, "image_data is required", entity.ErrMissingImage)
	}

	if req.Preset == nil {
		return p, entity.NewError(entity.CodeInvalidInput, "preset is required", entity.ErrInvalidPreset)
	}
	p.Preset = entity.Preset(*req.Preset)
	if !p.Preset.Valid() {
		return p, entity.NewError(entity.CodeInvalidInput,
			fmt.Sprintf("preset must be one of general, portrait, landscape, got %q", *req.Preset), entity.ErrInvalidPreset)
	}

	scale, err := integral("scale", req.Scale, entity.ErrInvalidScale)
	if err != nil {
		return p, err
	}
	if !entity.ValidScale(scale) {
		return p, entity.NewError(entity.CodeInvalidInput,
			fmt.Sprintf("scale must be 1, 2 or 4, got %d", scale), entity.ErrInvalidScale)
	}
	p.Scale = scale

	strength, err := integral("strength", req.Strength, entity.ErrInvalidStrength)
	if err != nil {
		return p, err
	}
	if strength < 0 || strength > 100 {
		return p, entity.NewError(entity.CodeInvalidInput,
			fmt.Sprintf("strength must be between 0 and 100, got %d", strength), entity.ErrInvalidStrength)
	}
	p.Strength = strength
	return p, nil
}

func integral(name string, v *float64, sentinel error) (int, error) {
	if v == nil {
		return 0, entity.NewError(entity.CodeInvalidInput, name+" is required", sentinel)
	}
	f := *v
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, entity.NewError(entity.CodeInvalidInput, name+" must be an integer", sentinel)
	}
	return int(f), nil
}

// CacheKey identifies an enhance request by image content and parameters.
func CacheKey(raw []byte, p Params) string {
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s:%s:%d:%d", hex.EncodeToString(sum[:]), p.Preset, p.Scale, p.Strength)
}
