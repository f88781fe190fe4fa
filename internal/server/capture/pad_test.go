package capture

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zigzag(n int, dt int64) []Point {
	pts := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		y := 80.0
		if i%2 == 1 {
			y = 120
		}
		pts = append(pts, Point{X: 50 + float64(i)*10, Y: y, T: int64(i) * dt})
	}
	return pts
}

func TestPad_ExportEmptyFails(t *testing.T) {
	p := NewPad(DefaultOptions())

	require.True(t, p.IsEmpty())
	_, err := p.ExportPNG()
	assert.ErrorIs(t, err, common.ErrEmptySignature)
}

func TestPad_FirstStrokeClearsEmptyFlag(t *testing.T) {
	p := NewPad(DefaultOptions())

	p.BeginStroke(Point{X: 10, Y: 10})
	assert.False(t, p.IsEmpty())

	p.Clear()
	assert.True(t, p.IsEmpty())
}

func TestPad_AddPointWithoutStroke(t *testing.T) {
	p := NewPad(DefaultOptions())
	assert.ErrorIs(t, p.AddPoint(Point{X: 1, Y: 1}), common.ErrNoActiveStroke)
	assert.ErrorIs(t, p.EndStroke(), common.ErrNoActiveStroke)
}

func TestPad_ExportPNG_TransparentMonochrome(t *testing.T) {
	opts := DefaultOptions()
	opts.PixelRatio = 2
	p := NewPad(opts)
	require.NoError(t, p.Replay([][]Point{zigzag(20, 16)}))

	data, err := p.ExportPNG()
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1000, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())

	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a, "background must be transparent")

	inked := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			inked++
			require.Zero(t, r|g|bl, "ink must be black at (%d,%d)", x, y)
		}
	}
	assert.Greater(t, inked, 100)
}

func TestPad_WidthsStayWithinBounds(t *testing.T) {
	p := NewPad(DefaultOptions())
	require.NoError(t, p.Replay([][]Point{zigzag(30, 1), zigzag(30, 200)}))

	require.NotEmpty(t, p.dabs)
	for _, d := range p.dabs {
		w := d.r * 2
		assert.GreaterOrEqual(t, w, MinStrokeWidth-1e-9)
		assert.LessOrEqual(t, w, MaxStrokeWidth+1e-9)
	}
}

func TestOptions_WidthForVelocity(t *testing.T) {
	o := DefaultOptions().normalized()

	assert.InDelta(t, MaxStrokeWidth, o.widthFor(0), 1e-9, "still pen is thickest")
	assert.InDelta(t, MinStrokeWidth, o.widthFor(100), 1e-9, "fast pen is thinnest")
	assert.Greater(t, o.widthFor(0.2), o.widthFor(0.8))
}

func TestOptions_NormalizedClampsBounds(t *testing.T) {
	o := Options{MinWidth: 0.2, MaxWidth: 12}.normalized()
	assert.Equal(t, MinStrokeWidth, o.MinWidth)
	assert.Equal(t, MaxStrokeWidth, o.MaxWidth)
	assert.Equal(t, 500.0, o.Width)
	assert.Equal(t, uint8(0xff), o.Ink.A)

	o = Options{}.normalized()
	assert.Equal(t, MinStrokeWidth, o.MinWidth)
	assert.Equal(t, MaxStrokeWidth, o.MaxWidth)
}

func TestPad_PointsClampedToRegion(t *testing.T) {
	p := NewPad(DefaultOptions())
	p.BeginStroke(Point{X: -50, Y: 900})
	require.NoError(t, p.AddPoint(Point{X: 1000, Y: -3, T: 10}))
	require.NoError(t, p.EndStroke())

	for _, d := range p.dabs {
		assert.GreaterOrEqual(t, d.x, 0.0)
		assert.LessOrEqual(t, d.x, 500.0)
		assert.GreaterOrEqual(t, d.y, 0.0)
		assert.LessOrEqual(t, d.y, 200.0)
	}
}

func TestPad_ReplayRejectsEmptyStroke(t *testing.T) {
	p := NewPad(DefaultOptions())
	assert.ErrorIs(t, p.Replay([][]Point{{}}), common.ErrEmptySignature)
}
