// Package codec turns encoded rasters into pixel buffers and back.
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/ds124wfegd/imgenhance/internal/entity"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels matches a 4000x4000 input.
const DefaultMaxPixels = 16_000_000

// DecodeBase64 accepts plain base64 or a data URL
// (data:image/png;base64,...).
func DecodeBase64(data string, maxPixels int) (image.Image, string, error) {
	raw, err := DecodePayload(data)
	if err != nil {
		return nil, "", err
	}
	return Decode(raw, maxPixels)
}

// DecodePayload strips an optional data URL header and decodes the base64
// body. Both standard and unpadded encodings are accepted.
func DecodePayload(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, entity.InvalidInput("%s", entity.ErrMissingImage)
	}
	if strings.HasPrefix(data, "data:") {
		idx := strings.Index(data, ",")
		if idx < 0 || !strings.Contains(data[:idx], ";base64") {
			return nil, entity.InvalidInput("malformed data URL")
		}
		data = data[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
	}
	if err != nil {
		return nil, entity.NewError(entity.CodeInvalidInput, "image_data is not valid base64", err)
	}
	return raw, nil
}

// Decode reads the header first so oversized inputs are rejected before any
// pixel memory is allocated.
func Decode(raw []byte, maxPixels int) (image.Image, string, error) {
	if len(raw) == 0 {
		return nil, "", entity.InvalidInput("%s", entity.ErrMissingImage)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", entity.NewError(entity.CodeInvalidInput, "unsupported or corrupt image", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", entity.InvalidInput("image has no pixels")
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, "", entity.NewError(entity.CodeInvalidInput,
			fmt.Sprintf("image is %dx%d, limit is %d pixels", cfg.Width, cfg.Height, maxPixels),
			entity.ErrImageTooLarge)
	}

	// Animated GIFs are enhanced on their first frame.
	if format == "gif" {
		g, err := gif.DecodeAll(bytes.NewReader(raw))
		if err != nil {
			return nil, "", entity.NewError(entity.CodeInvalidInput, "corrupt gif", err)
		}
		if len(g.Image) == 0 {
			return nil, "", entity.InvalidInput("no frames in GIF")
		}
		return g.Image[0], format, nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", entity.NewError(entity.CodeInvalidInput, "corrupt image", err)
	}
	return img, format, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func EncodeBase64PNG(img image.Image) (string, error) {
	raw, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
