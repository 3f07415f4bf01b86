package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

// extractMarkdown walks the goldmark AST and collects plain text.
// Each heading starts a new unit, so a unit holds one section of the
// document with its heading text first.
func extractMarkdown(data []byte) ([]string, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(gtext.NewReader(data))

	var units []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			units = append(units, s)
		}
		current.Reset()
	}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Heading, *ast.Paragraph, *ast.ListItem, *ast.Blockquote:
				current.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			flush()
		case *ast.Text:
			current.Write(node.Segment.Value(data))
			if node.SoftLineBreak() || node.HardLineBreak() {
				current.WriteString("\n")
			}
		case *ast.FencedCodeBlock:
			writeLines(&current, node, data)
		case *ast.CodeBlock:
			writeLines(&current, node, data)
		case *ast.AutoLink:
			current.Write(node.URL(data))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	flush()
	return units, nil
}

func writeLines(b *strings.Builder, node ast.Node, data []byte) {
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		b.Write(segment.Value(data))
	}
}
