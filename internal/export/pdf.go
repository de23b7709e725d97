package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Page geometry in millimetres
const (
	PageMargin = 20.0

	lineHeight   = 5.5
	bulletIndent = 5.0
)

var headingSizes = map[int]float64{1: 20, 2: 15, 3: 12.5}

// pdfFont maps a style font family onto one of the PDF core fonts
func pdfFont(family string) string {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "mono"), strings.Contains(f, "courier"), strings.Contains(f, "code"):
		return "Courier"
	case strings.Contains(f, "serif") && !strings.Contains(f, "sans"),
		strings.Contains(f, "times"), strings.Contains(f, "georgia"),
		strings.Contains(f, "garamond"), strings.Contains(f, "merriweather"):
		return "Times"
	default:
		return "Helvetica"
	}
}

// RenderPDF lays blocks out on A4 pages with fixed margins
func RenderPDF(w io.Writer, doc Document, blocks []Block) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(PageMargin, PageMargin, PageMargin)
	pdf.SetAutoPageBreak(true, PageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(doc.Title, true)
	if doc.Author != "" {
		pdf.SetAuthor(doc.Author, true)
	}
	pdf.AddPage()

	font := pdfFont(doc.Style.FontFamily)
	bullet := doc.Style.Bullet
	if bullet == "" {
		bullet = "-"
	}

	for i, b := range blocks {
		switch b.Kind {
		case BlockHeading:
			if i > 0 {
				pdf.Ln(2)
			}
			size := headingSizes[b.Level]
			pdf.SetFont(font, "B", size)
			pdf.MultiCell(0, size*0.5, tr(b.Text), "", "L", false)
			pdf.Ln(1.5)
		case BlockBullet:
			pdf.SetFont(font, "", 11)
			pdf.SetX(PageMargin + bulletIndent*float64(b.Level-1))
			pdf.CellFormat(bulletIndent, lineHeight, tr(bullet), "", 0, "L", false, 0, "")
			pdf.MultiCell(0, lineHeight, tr(b.Text), "", "L", false)
		default:
			pdf.SetFont(font, "", 11)
			pdf.MultiCell(0, lineHeight, tr(b.Text), "", "L", false)
			pdf.Ln(2)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}
