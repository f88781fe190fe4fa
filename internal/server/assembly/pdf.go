package assembly

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "Helvetica"

// pdfMeasurer measures with the core font metrics of an fpdf document.
type pdfMeasurer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (m pdfMeasurer) TextWidth(f Font, s string) float64 {
	m.pdf.SetFont(fontFamily, f.Style, f.Size)
	return m.pdf.GetStringWidth(m.tr(s))
}

func newPDF(g Geometry, created time.Time, title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(g.Margin, g.Margin, g.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(title, true)
	pdf.SetCreator("studiosign", false)
	pdf.SetFont(fontFamily, "", fontBody.Size)
	return pdf
}

// render draws lay into pdf. images maps layout image names to PNG data.
func render(pdf *fpdf.Fpdf, tr func(string) string, lay *Layout, images map[string][]byte) ([]byte, error) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	for name, data := range images {
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	}
	if pdf.Err() {
		return nil, fmt.Errorf("register image: %w", pdf.Error())
	}

	for _, p := range lay.Pages {
		pdf.AddPage()
		for _, it := range p.Items {
			switch it.Kind {
			case ItemText:
				pdf.SetFont(fontFamily, it.Font.Style, it.Font.Size)
				pdf.SetXY(it.X, it.Y)
				pdf.CellFormat(it.W, it.H, tr(it.Text), "", 0, it.Align, false, 0, "")
			case ItemLine:
				pdf.SetLineWidth(0.3)
				pdf.Line(it.X, it.Y, it.X+it.W, it.Y)
			case ItemRect:
				pdf.SetLineWidth(0.2)
				pdf.SetDrawColor(120, 120, 120)
				pdf.Rect(it.X, it.Y, it.W, it.H, "D")
				pdf.SetDrawColor(0, 0, 0)
			case ItemImage:
				if it.W <= 0 || it.H <= 0 {
					continue
				}
				pdf.ImageOptions(it.Image, it.X, it.Y, it.W, it.H, false, opts, 0, "")
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
