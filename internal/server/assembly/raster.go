package assembly

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"golang.org/x/image/draw"
)

// MaxRasterWidth caps the pixel width embedded in a certificate. Wider
// signatures are resampled; the display box is always computed from the
// native size.
const MaxRasterWidth = 1600

// Raster is a signature ready for embedding.
type Raster struct {
	PNG            []byte
	PixelW, PixelH int
}

// PrepareRaster decodes a stored signature, reads its native size and
// re-encodes it as 8-bit non-interlaced RGBA PNG. Failures wrap
// common.ErrImageDecode.
func PrepareRaster(data []byte) (*Raster, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrImageDecode, err)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty bounds", common.ErrImageDecode)
	}

	dw, dh := b.Dx(), b.Dy()
	if dw > MaxRasterWidth {
		dh = max(1, dh*MaxRasterWidth/dw)
		dw = MaxRasterWidth
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	if dw == b.Dx() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrImageDecode, err)
	}
	return &Raster{PNG: out.Bytes(), PixelW: b.Dx(), PixelH: b.Dy()}, nil
}
