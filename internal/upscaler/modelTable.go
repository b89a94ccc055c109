package upscaler

import "github.com/ds124wfegd/imgenhance/internal/entity"

const (
	ModelRealESRGANx2 = "realesrgan-x2plus"
	ModelRealESRGANx4 = "realesrgan-x4plus"
	ModelGFPGAN       = "gfpgan-v1.4"
)

type modelKey struct {
	preset entity.Preset
	scale  int
}

// Scale 1 never reaches a model and has no entry.
var modelTable = map[modelKey]string{
	{entity.PresetGeneral, 2}:   ModelRealESRGANx2,
	{entity.PresetGeneral, 4}:   ModelRealESRGANx4,
	{entity.PresetLandscape, 2}: ModelRealESRGANx2,
	{entity.PresetLandscape, 4}: ModelRealESRGANx4,
	{entity.PresetPortrait, 2}:  ModelGFPGAN,
	{entity.PresetPortrait, 4}:  ModelGFPGAN,
}

func ModelFor(preset entity.Preset, scale int) (string, bool) {
	id, ok := modelTable[modelKey{preset, scale}]
	return id, ok
}
