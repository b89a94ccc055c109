package pipeline

import (
	"math"

	"github.com/ds124wfegd/imgenhance/internal/entity"
)

// Stage names as reported in enhancements_applied.
const (
	StageDenoise         = "denoise"
	StageColorCorrection = "color_correction"
	StageUpscale         = "upscale"
	StageSharpen         = "sharpen"
	StageDetail          = "detail_enhancement"
)

type presetParams struct {
	sharpenWeight float64
	detail        bool
	detailWeight  float64
	// detail runs only when strength is strictly above this value
	detailAbove int
}

var presetTable = map[entity.Preset]presetParams{
	entity.PresetGeneral:   {sharpenWeight: 1.05, detail: true, detailWeight: 0.5, detailAbove: 60},
	entity.PresetPortrait:  {sharpenWeight: 0.90},
	entity.PresetLandscape: {sharpenWeight: 1.20, detail: true, detailWeight: 0.7, detailAbove: 0},
}

type StageDecision struct {
	Apply     bool
	Intensity float64
}

// Plan lists which transform stages run. Upscaling is not part of it, it is
// driven by the requested scale alone.
type Plan struct {
	Denoise       StageDecision
	ColorCorrect  StageDecision
	Sharpen       StageDecision
	DetailEnhance StageDecision
}

func (p Plan) Empty() bool {
	return !p.Denoise.Apply && !p.ColorCorrect.Apply && !p.Sharpen.Apply && !p.DetailEnhance.Apply
}

// Decide maps metrics, preset and strength to a stage plan. Corrective stages
// (denoise, colour correction) only run when the analysis flags the image;
// strength 0 disables every transform stage.
func Decide(m entity.QualityMetrics, preset entity.Preset, strength int) Plan {
	var plan Plan
	strength = clampInt(strength, 0, 100)
	if strength == 0 {
		return plan
	}
	params, ok := presetTable[preset]
	if !ok {
		params = presetTable[entity.PresetGeneral]
	}
	s := float64(strength) / 100

	if m.NeedsEnhancement && (m.Sharpness < 0.4 || strength > 60) {
		plan.Denoise = StageDecision{Apply: true, Intensity: 0.3 + 0.2*exposureDeviation(m)}
	}
	if !wellExposed(m.Brightness, m.Contrast) {
		plan.ColorCorrect = StageDecision{Apply: true, Intensity: 1}
	}
	plan.Sharpen = StageDecision{Apply: true, Intensity: params.sharpenWeight * s}
	if params.detail && strength > params.detailAbove {
		plan.DetailEnhance = StageDecision{Apply: true, Intensity: params.detailWeight * s}
	}
	return plan
}

// exposureDeviation is 0 for a mid-grey, full-contrast image and approaches 1
// as brightness or contrast drift to an extreme.
func exposureDeviation(m entity.QualityMetrics) float64 {
	b := math.Abs(m.Brightness-0.5) / 0.5
	c := math.Max(0, 0.5-m.Contrast) / 0.5
	return math.Min(math.Max(b, c), 1)
}
