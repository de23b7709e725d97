// Package export renders a finished markdown document as PDF or DOCX.
package export

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// BlockKind classifies a rendered block
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockBullet    BlockKind = "bullet"
)

// MaxHeadingLevel is the deepest heading level kept; deeper headings are clamped
const MaxHeadingLevel = 3

// Block is one flat unit of document content. Level is the heading level for
// headings and the nesting depth (starting at 1) for bullets.
type Block struct {
	Kind  BlockKind
	Level int
	Text  string
}

// ParseBlocks flattens markdown into headings, paragraphs and bullet items.
// Inline formatting is dropped; code blocks become paragraphs.
func ParseBlocks(markdown string) []Block {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var blocks []Block
	collectBlocks(doc, src, &blocks)
	return blocks
}

func collectBlocks(parent ast.Node, src []byte, blocks *[]Block) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			level := node.Level
			if level > MaxHeadingLevel {
				level = MaxHeadingLevel
			}
			appendBlock(blocks, BlockHeading, level, inlineText(node, src))
		case *ast.Paragraph, *ast.TextBlock:
			appendBlock(blocks, BlockParagraph, 0, inlineText(node, src))
		case *ast.List:
			collectList(node, src, 1, blocks)
		case *ast.Blockquote:
			collectBlocks(node, src, blocks)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			appendBlock(blocks, BlockParagraph, 0, rawLines(node, src))
		}
	}
}

func collectList(list *ast.List, src []byte, depth int, blocks *[]Block) {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		for part := item.FirstChild(); part != nil; part = part.NextSibling() {
			if nested, ok := part.(*ast.List); ok {
				collectList(nested, src, depth+1, blocks)
				continue
			}
			appendBlock(blocks, BlockBullet, depth, inlineText(part, src))
		}
	}
}

func appendBlock(blocks *[]Block, kind BlockKind, level int, s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	*blocks = append(*blocks, Block{Kind: kind, Level: level, Text: s})
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.URL(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func rawLines(n ast.Node, src []byte) string {
	lines := n.Lines()
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}
