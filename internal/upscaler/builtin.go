package upscaler

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/gift"
	xdraw "golang.org/x/image/draw"
)

// superResolution is the pure-Go stand-in for a Real-ESRGAN network: a fixed
// factor Catmull-Rom enlargement.
type superResolution struct {
	id     string
	factor int
}

func (m *superResolution) ID() string { return m.id }

func (m *superResolution) Infer(ctx context.Context, img *image.NRGBA, scale int, _ Device) (*image.NRGBA, error) {
	if scale != m.factor {
		return nil, fmt.Errorf("%s only upscales x%d, got x%d", m.id, m.factor, scale)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, nil
}

// faceRestoration stands in for GFPGAN. It honours any scale itself and
// finishes with a mild unsharp mask, gentle enough for skin.
type faceRestoration struct {
	id string
}

func (m *faceRestoration) ID() string { return m.id }

func (m *faceRestoration) Infer(ctx context.Context, img *image.NRGBA, scale int, _ Device) (*image.NRGBA, error) {
	if scale < 1 {
		return nil, fmt.Errorf("%s: invalid scale %d", m.id, scale)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	g := gift.New(
		gift.Resize(b.Dx()*scale, b.Dy()*scale, gift.LanczosResampling),
		gift.UnsharpMask(1.0, 0.6, 0.02),
	)
	dst := image.NewNRGBA(g.Bounds(b))
	g.Draw(dst, img)
	return dst, nil
}

// BuiltinLoader serves every id of the model table with an in-process
// implementation.
func BuiltinLoader(id string) (Model, error) {
	switch id {
	case ModelRealESRGANx2:
		return &superResolution{id: id, factor: 2}, nil
	case ModelRealESRGANx4:
		return &superResolution{id: id, factor: 4}, nil
	case ModelGFPGAN:
		return &faceRestoration{id: id}, nil
	}
	return nil, fmt.Errorf("unknown model %q", id)
}
