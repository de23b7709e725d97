package export

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/benvon/sculptor/internal/models"
)

// Format is an export file format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ErrUnknownFormat is returned for unsupported export formats
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatDOCX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type served for f
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// Document is the input to a renderer
type Document struct {
	Title    string
	Author   string
	Markdown string
	Style    models.StylePrefs
}

// DocumentFromSession builds an export document from a session's final document
func DocumentFromSession(s *models.ChatSession, author string) (Document, bool) {
	if s == nil || s.FinalResume == nil {
		return Document{}, false
	}
	return Document{
		Title:    s.Title,
		Author:   author,
		Markdown: *s.FinalResume,
		Style:    s.EffectiveStyle(),
	}, true
}

// Render writes doc to w in format f
func Render(w io.Writer, f Format, doc Document) error {
	blocks := ParseBlocks(doc.Markdown)
	switch f {
	case FormatPDF:
		return RenderPDF(w, doc, blocks)
	case FormatDOCX:
		return RenderDOCX(w, doc, blocks)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[/\\:*?"<>|]`)
)

// CoverLetterPrefix is prepended to cover letter filenames
const CoverLetterPrefix = "Cover_Letter_"

// Filename derives the download name from the session title: whitespace runs
// become "_", cover letters get a prefix and the extension follows the format.
func Filename(title string, t models.SessionType, f Format) string {
	name := unsafeChars.ReplaceAllString(strings.TrimSpace(title), "")
	name = whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "_")
	if name == "" {
		name = "Document"
	}
	if t == models.SessionTypeCoverLetter {
		name = CoverLetterPrefix + name
	}
	return name + "." + string(f)
}
