package assembly

// Box is a width and height in layout units (millimetres).
type Box struct {
	W, H float64
}

// FitImage scales a w×h raster to the largest box inside maxW×maxH with
// the same aspect ratio. Degenerate input yields a zero box.
func FitImage(w, h, maxW, maxH float64) Box {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return Box{}
	}
	scale := min(maxW/w, maxH/h)
	return Box{W: w * scale, H: h * scale}
}

// Inset fits a w×h raster inside b shrunk by margin on every side and
// returns the offset and size of the image within b. The margin never
// exceeds a quarter of the shorter side, so a non-empty box always gets a
// non-empty image.
func Inset(b Box, w, h, margin float64) (dx, dy float64, inner Box) {
	margin = max(min(margin, b.W/4, b.H/4), 0)
	inner = FitImage(w, h, b.W-2*margin, b.H-2*margin)
	if inner.W <= 0 || inner.H <= 0 {
		inner = FitImage(w, h, b.W, b.H)
	}
	return (b.W - inner.W) / 2, (b.H - inner.H) / 2, inner
}
