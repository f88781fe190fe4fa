// Package capture implements the signature capture surface: it records
// freehand strokes on a fixed-aspect region, smooths them with
// velocity-weighted widths and rasterises the ink to a transparent,
// monochrome PNG.
//
// A Pad is not safe for concurrent use.
package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"golang.org/x/image/vector"
)

// Stroke width bounds in logical units.
const (
	MinStrokeWidth = 1.5
	MaxStrokeWidth = 3.0
)

// Point is a pointer sample in logical units. T is the sample time in
// milliseconds; only differences between consecutive samples matter.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}

// Options configure a Pad.
type Options struct {
	// Width and Height of the drawing region in logical units.
	Width  float64
	Height float64
	// PixelRatio is the number of raster pixels per logical unit.
	PixelRatio float64
	// MinWidth and MaxWidth bound the stroke width. They are clamped into
	// [MinStrokeWidth, MaxStrokeWidth].
	MinWidth float64
	MaxWidth float64
	// VelocityFilterWeight in [0,1] smooths velocity between samples.
	VelocityFilterWeight float64
	// MinDistance drops samples closer than this to the previous one.
	MinDistance float64
	Ink         color.NRGBA
}

// DefaultOptions is a 5:2 region with black ink.
func DefaultOptions() Options {
	return Options{
		Width:                500,
		Height:               200,
		PixelRatio:           1,
		MinWidth:             MinStrokeWidth,
		MaxWidth:             MaxStrokeWidth,
		VelocityFilterWeight: 0.7,
		MinDistance:          2,
		Ink:                  color.NRGBA{A: 0xff},
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = d.Width, d.Height
	}
	if o.PixelRatio <= 0 {
		o.PixelRatio = d.PixelRatio
	}
	if o.MinWidth == 0 {
		o.MinWidth = MinStrokeWidth
	}
	if o.MaxWidth == 0 {
		o.MaxWidth = MaxStrokeWidth
	}
	o.MinWidth = clamp(o.MinWidth, MinStrokeWidth, MaxStrokeWidth)
	o.MaxWidth = clamp(o.MaxWidth, MinStrokeWidth, MaxStrokeWidth)
	if o.MinWidth > o.MaxWidth {
		o.MinWidth = o.MaxWidth
	}
	if o.VelocityFilterWeight < 0 || o.VelocityFilterWeight > 1 {
		o.VelocityFilterWeight = d.VelocityFilterWeight
	}
	if o.MinDistance < 0 {
		o.MinDistance = 0
	}
	// monochrome: any colour is accepted, transparency is not
	o.Ink.A = 0xff
	return o
}

// widthFor maps pointer velocity (logical units per millisecond) to a stroke
// width: faster strokes are thinner.
func (o Options) widthFor(velocity float64) float64 {
	return clamp(o.MaxWidth/(velocity+1), o.MinWidth, o.MaxWidth)
}

// dab is one disc of ink in logical coordinates.
type dab struct {
	x, y, r float64
}

type stroke struct {
	points       []Point
	lastVelocity float64
	lastWidth    float64
	lastMid      Point
}

// Pad is a signature capture surface.
type Pad struct {
	opts    Options
	dabs    []dab
	current *stroke
	empty   bool
}

// NewPad returns an empty pad.
func NewPad(opts Options) *Pad {
	return &Pad{opts: opts.normalized(), empty: true}
}

// Options returns the effective options.
func (p *Pad) Options() Options { return p.opts }

// IsEmpty reports whether no stroke has been drawn since creation or Clear.
func (p *Pad) IsEmpty() bool { return p.empty }

// Clear drops all ink.
func (p *Pad) Clear() {
	p.dabs = nil
	p.current = nil
	p.empty = true
}

// BeginStroke starts a stroke at pt. The first stroke flips the pad to
// non-empty. A stroke that never moves still leaves a dot.
func (p *Pad) BeginStroke(pt Point) {
	pt = p.clampPoint(pt)
	w := (p.opts.MinWidth + p.opts.MaxWidth) / 2
	p.current = &stroke{points: []Point{pt}, lastWidth: w, lastMid: pt}
	p.dabs = append(p.dabs, dab{x: pt.X, y: pt.Y, r: w / 2})
	p.empty = false
}

// AddPoint extends the current stroke.
func (p *Pad) AddPoint(pt Point) error {
	st := p.current
	if st == nil {
		return common.ErrNoActiveStroke
	}
	pt = p.clampPoint(pt)

	last := st.points[len(st.points)-1]
	dist := distance(last, pt)
	if dist < p.opts.MinDistance {
		return nil
	}

	dt := float64(pt.T - last.T)
	if dt <= 0 {
		dt = 1
	}
	fw := p.opts.VelocityFilterWeight
	velocity := fw*(dist/dt) + (1-fw)*st.lastVelocity
	width := p.opts.widthFor(velocity)

	st.points = append(st.points, pt)
	mid := midpoint(last, pt)

	if len(st.points) == 2 {
		// straight lead-in up to the first midpoint
		p.line(st.lastMid, mid, st.lastWidth, width)
	} else {
		p.quad(st.lastMid, last, mid, st.lastWidth, width)
	}

	st.lastMid = mid
	st.lastVelocity = velocity
	st.lastWidth = width
	return nil
}

// EndStroke finishes the current stroke.
func (p *Pad) EndStroke() error {
	st := p.current
	if st == nil {
		return common.ErrNoActiveStroke
	}
	if len(st.points) > 1 {
		last := st.points[len(st.points)-1]
		p.line(st.lastMid, last, st.lastWidth, st.lastWidth)
	}
	p.current = nil
	return nil
}

// Replay draws whole strokes, as submitted by a remote capture widget.
func (p *Pad) Replay(strokes [][]Point) error {
	for i, s := range strokes {
		if len(s) == 0 {
			return fmt.Errorf("stroke %d: %w", i, common.ErrEmptySignature)
		}
		p.BeginStroke(s[0])
		for _, pt := range s[1:] {
			if err := p.AddPoint(pt); err != nil {
				return err
			}
		}
		if err := p.EndStroke(); err != nil {
			return err
		}
	}
	return nil
}

// Rasterize renders the ink onto a transparent image of
// Width*PixelRatio by Height*PixelRatio pixels.
func (p *Pad) Rasterize() *image.NRGBA {
	ratio := p.opts.PixelRatio
	pw := int(math.Round(p.opts.Width * ratio))
	ph := int(math.Round(p.opts.Height * ratio))
	dst := image.NewNRGBA(image.Rect(0, 0, pw, ph))
	if len(p.dabs) == 0 {
		return dst
	}

	z := vector.NewRasterizer(pw, ph)
	for _, d := range p.dabs {
		addCircle(z, float32(d.x*ratio), float32(d.y*ratio), float32(d.r*ratio))
	}
	z.Draw(dst, dst.Bounds(), image.NewUniform(p.opts.Ink), image.Point{})
	return dst
}

// ExportPNG encodes the raster. It fails with common.ErrEmptySignature when
// nothing has been drawn.
func (p *Pad) ExportPNG() ([]byte, error) {
	if p.IsEmpty() {
		return nil, common.ErrEmptySignature
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.Rasterize()); err != nil {
		return nil, fmt.Errorf("encode signature: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Pad) clampPoint(pt Point) Point {
	pt.X = clamp(pt.X, 0, p.opts.Width)
	pt.Y = clamp(pt.Y, 0, p.opts.Height)
	return pt
}

// stepFor is the spacing between dabs, half a raster pixel.
func (p *Pad) stepFor() float64 {
	return 0.5 / p.opts.PixelRatio
}

func (p *Pad) line(a, b Point, w0, w1 float64) {
	n := int(math.Ceil(distance(a, b) / p.stepFor()))
	if n < 1 {
		n = 1
	}
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		p.dabs = append(p.dabs, dab{
			x: a.X + (b.X-a.X)*t,
			y: a.Y + (b.Y-a.Y)*t,
			r: (w0 + (w1-w0)*t) / 2,
		})
	}
}

// quad draws a quadratic Bézier from a to c with control point b.
func (p *Pad) quad(a, b, c Point, w0, w1 float64) {
	length := (distance(a, c) + distance(a, b) + distance(b, c)) / 2
	n := int(math.Ceil(length / p.stepFor()))
	if n < 1 {
		n = 1
	}
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		u := 1 - t
		p.dabs = append(p.dabs, dab{
			x: u*u*a.X + 2*u*t*b.X + t*t*c.X,
			y: u*u*a.Y + 2*u*t*b.Y + t*t*c.Y,
			r: (w0 + (w1-w0)*t) / 2,
		})
	}
}

const kappa = 0.5522847498

func addCircle(z *vector.Rasterizer, cx, cy, r float32) {
	k := r * kappa
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()
}

func distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, T: (a.T + b.T) / 2}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
