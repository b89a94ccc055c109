package entity

type Preset string

const (
	PresetGeneral   Preset = "general"
	PresetPortrait  Preset = "portrait"
	PresetLandscape Preset = "landscape"
)

func (p Preset) Valid() bool {
	switch p {
	case PresetGeneral, PresetPortrait, PresetLandscape:
		return true
	}
	return false
}

func ValidScale(scale int) bool {
	return scale == 1 || scale == 2 || scale == 4
}

type QualityMetrics struct {
	Brightness       float64 `json:"brightness"`
	Contrast         float64 `json:"contrast"`
	Sharpness        float64 `json:"sharpness"`
	NeedsEnhancement bool    `json:"needs_enhancement"`
}

// EnhanceRequest is the payload accepted by the enhance and jobs endpoints.
// Numeric fields are floats so that non-integral values can be rejected
// instead of silently truncated.
type EnhanceRequest struct {
	ImageData string   `json:"image_data"`
	Preset    *string  `json:"preset"`
	Scale     *float64 `json:"scale"`
	Strength  *float64 `json:"strength"`
}

type AnalyzeRequest struct {
	ImageData string `json:"image_data"`
}

type FilterRequest struct {
	ImageData  string `json:"image_data"`
	FilterType string `json:"filter_type"`
}

type BackgroundBlurRequest struct {
	ImageData    string `json:"image_data"`
	BlurStrength int    `json:"blur_strength"`
}

type Metadata struct {
	ProcessingTime      float64        `json:"processing_time"`
	OriginalDimensions  [2]int         `json:"original_dimensions"`
	OutputDimensions    [2]int         `json:"output_dimensions"`
	ModelUsed           *string        `json:"model_used"`
	QualityMetrics      QualityMetrics `json:"quality_metrics"`
	EnhancementsApplied []string       `json:"enhancements_applied"`
	Preset              Preset         `json:"preset"`
	Scale               int            `json:"scale"`
	Strength            int            `json:"strength"`
	Device              string         `json:"device,omitempty"`
	DeviceFallback      bool           `json:"device_fallback"`
	DimensionCapped     bool           `json:"dimension_capped"`
	Warnings            []string       `json:"warnings,omitempty"`
}

type EnhanceResponse struct {
	Success       bool      `json:"success"`
	EnhancedImage string    `json:"enhanced_image,omitempty"`
	Metadata      *Metadata `json:"metadata,omitempty"`
	Error         string    `json:"error,omitempty"`
	ErrorCode     ErrorCode `json:"error_code,omitempty"`
}

type AnalyzeResponse struct {
	Success        bool            `json:"success"`
	QualityMetrics *QualityMetrics `json:"quality_metrics,omitempty"`
	Dimensions     [2]int          `json:"dimensions"`
	Error          string          `json:"error,omitempty"`
	ErrorCode      ErrorCode       `json:"error_code,omitempty"`
}

type ProcessedImageResponse struct {
	Success        bool      `json:"success"`
	ProcessedImage string    `json:"processed_image,omitempty"`
	ProcessingTime float64   `json:"processing_time"`
	Error          string    `json:"error,omitempty"`
	ErrorCode      ErrorCode `json:"error_code,omitempty"`
}
