package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/ctypes"
)

// A4 in twentieths of a point, margins matching the PDF layout
const (
	a4WidthTwips  uint64 = 11906
	a4HeightTwips uint64 = 16838
	marginTwips          = 1134 // 20mm
)

// point sizes
var docxHeadingSizes = map[int]uint64{1: 20, 2: 15, 3: 13}

const docxBodySize uint64 = 11

// RenderDOCX writes a Word document built on the library's default template,
// so the package carries its own styles and relationships.
func RenderDOCX(w io.Writer, doc Document, blocks []Block) error {
	document, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("failed to create docx: %w", err)
	}
	setA4(document)

	font := doc.Style.FontFamily
	bullet := doc.Style.Bullet
	if bullet == "" {
		bullet = "-"
	}

	for _, b := range blocks {
		p := document.AddEmptyParagraph()
		switch b.Kind {
		case BlockHeading:
			p.Style(fmt.Sprintf("Heading %d", b.Level))
			styleRun(p.AddText(b.Text), font, docxHeadingSizes[b.Level]).Bold(true)
		case BlockBullet:
			p.Style("List Paragraph")
			indent := strings.Repeat("\t", max(b.Level-1, 0))
			styleRun(p.AddText(indent+bullet+" "+b.Text), font, docxBodySize)
		default:
			styleRun(p.AddText(b.Text), font, docxBodySize)
		}
	}

	if err := document.Write(w); err != nil {
		return fmt.Errorf("failed to write docx: %w", err)
	}
	return nil
}

func styleRun(r *docx.Run, font string, size uint64) *docx.Run {
	if font != "" {
		r.Font(font)
	}
	return r.Size(size)
}

func setA4(document *docx.RootDoc) {
	body := document.Document.Body
	if body.SectPr == nil {
		body.SectPr = &ctypes.SectionProp{}
	}
	width, height := a4WidthTwips, a4HeightTwips
	margin := marginTwips
	body.SectPr.PageSize = &ctypes.PageSize{Width: &width, Height: &height}
	body.SectPr.PageMargin = &ctypes.PageMargin{Top: &margin, Right: &margin, Bottom: &margin, Left: &margin}
}
