package assembly

import "fmt"

// Geometry of the page in millimetres.
type Geometry struct {
	PageW, PageH float64
	Margin       float64

	MaxSignatureW  float64
	MaxSignatureH  float64
	SignatureInset float64
}

// A4 portrait with 20 mm margins and a 100×50 signature box.
func DefaultGeometry() Geometry {
	return Geometry{
		PageW:          210,
		PageH:          297,
		Margin:         20,
		MaxSignatureW:  100,
		MaxSignatureH:  50,
		SignatureInset: 2,
	}
}

// ContentWidth is the printable width between the side margins.
func (g Geometry) ContentWidth() float64 { return g.PageW - 2*g.Margin }

// Text styles and their line heights.
var (
	fontTenant  = Font{Style: "B", Size: 16}
	fontTitle   = Font{Style: "B", Size: 14}
	fontHeading = Font{Style: "B", Size: 11}
	fontBody    = Font{Size: 10}
	fontNote    = Font{Style: "I", Size: 10}
	fontSmall   = Font{Size: 8}
)

func lineHeight(f Font) float64 { return f.Size * 0.5 }

// Section names tag items so callers can pick a part of the document.
const (
	SectionHeader    = "header"
	SectionSubject   = "subject"
	SectionLegal     = "legal"
	SectionAudit     = "audit"
	SectionSignature = "signature"
	SectionFooter    = "footer"
)

type ItemKind int

const (
	ItemText ItemKind = iota
	ItemLine
	ItemRect
	ItemImage
)

// Item is one positioned drawing instruction. For text, Y is the top of the
// line box and H its height.
type Item struct {
	Kind    ItemKind
	Section string
	X, Y    float64
	W, H    float64
	Font    Font
	Align   string
	Text    string
	Image   string
}

type Page struct {
	Number int
	Items  []Item
}

type Layout struct {
	Geometry Geometry
	Pages    []*Page

	// Bottom is the lowest y body content may reach on any page.
	Bottom float64
}

// Field is a labelled value line.
type Field struct {
	Label, Value string
}

// SignatureImage references a raster registered with the renderer.
type SignatureImage struct {
	Name           string
	PixelW, PixelH int
}

// Certificate is everything that ends up on the page.
type Certificate struct {
	TenantName  string
	TenantLines []string
	Title       string

	SubjectHeading string
	Subject        []Field

	LegalHeading string
	LegalText    string

	AuditHeading string
	Audit        []Field

	SignatureHeading     string
	Signature            *SignatureImage
	// SignaturePlaceholder replaces the box when there is no image to draw.
	SignaturePlaceholder string

	Disclaimer string
}

// Build lays c out on pages. It is pure: the same certificate, measurer and
// geometry always give the same layout.
func Build(c Certificate, m Measurer, g Geometry) *Layout {
	b := &builder{g: g, m: m}

	footerLines := Wrap(m, fontSmall, c.Disclaimer, g.ContentWidth())
	footerH := float64(len(footerLines)+1)*lineHeight(fontSmall) + 3
	b.bottom = g.PageH - g.Margin - footerH
	b.newPage()

	b.text(SectionHeader, fontTenant, c.TenantName)
	for _, l := range c.TenantLines {
		b.text(SectionHeader, fontSmall, l)
	}
	b.gap(3)
	b.text(SectionHeader, fontTitle, c.Title)
	b.rule(SectionHeader)
	b.gap(4)

	b.heading(SectionSubject, c.SubjectHeading)
	b.fields(SectionSubject, c.Subject)
	b.gap(4)

	b.heading(SectionLegal, c.LegalHeading)
	b.text(SectionLegal, fontBody, c.LegalText)
	b.gap(4)

	b.heading(SectionAudit, c.AuditHeading)
	b.fields(SectionAudit, c.Audit)
	b.gap(4)

	b.signature(c)

	lay := &Layout{Geometry: g, Pages: b.pages, Bottom: b.bottom}
	b.footers(lay, footerLines)
	return lay
}

type builder struct {
	g      Geometry
	m      Measurer
	pages  []*Page
	y      float64
	bottom float64
}

func (b *builder) page() *Page { return b.pages[len(b.pages)-1] }

func (b *builder) newPage() {
	b.pages = append(b.pages, &Page{Number: len(b.pages) + 1})
	b.y = b.g.Margin
}

// ensure starts a new page unless h more units fit on the current one.
func (b *builder) ensure(h float64) {
	if b.y+h > b.bottom && b.y > b.g.Margin {
		b.newPage()
	}
}

func (b *builder) gap(h float64) { b.y += h }

func (b *builder) add(it Item) { b.page().Items = append(b.page().Items, it) }

func (b *builder) text(section string, f Font, text string) {
	lh := lineHeight(f)
	for _, line := range Wrap(b.m, f, text, b.g.ContentWidth()) {
		b.ensure(lh)
		if line != "" {
			b.add(Item{Kind: ItemText, Section: section, X: b.g.Margin, Y: b.y, W: b.g.ContentWidth(), H: lh, Font: f, Align: "L", Text: line})
		}
		b.y += lh
	}
}

// heading keeps itself together with the first body line below it.
func (b *builder) heading(section, title string) {
	if title == "" {
		return
	}
	b.ensure(lineHeight(fontHeading) + lineHeight(fontBody))
	b.text(section, fontHeading, title)
}

func (b *builder) fields(section string, fs []Field) {
	for _, f := range fs {
		b.text(section, fontBody, f.Label+": "+f.Value)
	}
}

func (b *builder) rule(section string) {
	b.y += 1
	b.add(Item{Kind: ItemLine, Section: section, X: b.g.Margin, Y: b.y, W: b.g.ContentWidth()})
	b.y += 1
}

// signature places the heading and the box as one unit.
func (b *builder) signature(c Certificate) {
	hh := lineHeight(fontHeading)
	if c.Signature == nil {
		b.ensure(hh + lineHeight(fontNote))
		b.text(SectionSignature, fontHeading, c.SignatureHeading)
		b.text(SectionSignature, fontNote, c.SignaturePlaceholder)
		return
	}

	w, h := float64(c.Signature.PixelW), float64(c.Signature.PixelH)
	box := FitImage(w, h, b.g.MaxSignatureW, b.g.MaxSignatureH)
	dx, dy, inner := Inset(box, w, h, b.g.SignatureInset)
	// A zero-sized image would be drawn at its native size by the renderer.
	if inner.W <= 0 || inner.H <= 0 {
		b.ensure(hh + lineHeight(fontNote))
		b.text(SectionSignature, fontHeading, c.SignatureHeading)
		b.text(SectionSignature, fontNote, c.SignaturePlaceholder)
		return
	}
	b.ensure(hh + 1 + box.H)
	b.text(SectionSignature, fontHeading, c.SignatureHeading)
	b.y += 1

	x, y := b.g.Margin, b.y
	b.add(Item{Kind: ItemRect, Section: SectionSignature, X: x, Y: y, W: box.W, H: box.H})
	b.add(Item{Kind: ItemImage, Section: SectionSignature, X: x + dx, Y: y + dy, W: inner.W, H: inner.H, Image: c.Signature.Name})
	b.y += box.H
}

// footers stamps the disclaimer and page numbers once the page count is known.
func (b *builder) footers(lay *Layout, lines []string) {
	lh := lineHeight(fontSmall)
	total := len(lay.Pages)
	for _, p := range lay.Pages {
		y := lay.Bottom + 3
		for _, l := range lines {
			if l != "" {
				p.Items = append(p.Items, Item{Kind: ItemText, Section: SectionFooter, X: b.g.Margin, Y: y, W: b.g.ContentWidth(), H: lh, Font: fontSmall, Align: "L", Text: l})
			}
			y += lh
		}
		p.Items = append(p.Items, Item{Kind: ItemText, Section: SectionFooter, X: b.g.Margin, Y: y, W: b.g.ContentWidth(), H: lh, Font: fontSmall, Align: "R", Text: fmt.Sprintf("Page %d/%d", p.Number, total)})
	}
}

// HasImage reports whether any page draws an image.
func (l *Layout) HasImage() bool {
	for _, p := range l.Pages {
		for _, it := range p.Items {
			if it.Kind == ItemImage {
				return true
			}
		}
	}
	return false
}

// SectionText joins the text lines of one section in page order.
func (l *Layout) SectionText(section string) []string {
	var out []string
	for _, p := range l.Pages {
		for _, it := range p.Items {
			if it.Kind == ItemText && it.Section == section {
				out = append(out, it.Text)
			}
		}
	}
	return out
}
