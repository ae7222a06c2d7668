package document

import (
	"io"
	"os"
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownLoader strips markdown formatting and keeps the prose.
// Web-extracted content usually arrives as markdown, so this loader
// normalizes it into the same Document shape as PDF and text sources.
type MarkdownLoader struct{}

// NewMarkdownLoader creates a markdown loader.
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{}
}

// Load reads and parses the markdown file at path.
func (l *MarkdownLoader) Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newLoadError(path, ErrReadFailure, err)
	}
	defer f.Close()
	return l.LoadReader(f, path)
}

// LoadReader parses markdown content from a reader.
func (l *MarkdownLoader) LoadReader(r io.Reader, filename string) (*Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, newLoadError(filename, ErrReadFailure, err)
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	root := parser.NewWithExtensions(extensions).Parse(content)

	text := strings.TrimSpace(renderPlainText(root))
	if text == "" {
		return nil, newLoadError(filename, ErrEmptyDocument, nil)
	}

	return &Document{
		ID:     DocumentID(filename),
		Source: filename,
		Blocks: []Block{{Text: text, Page: 1, Start: 0, End: len([]rune(text))}},
	}, nil
}

// renderPlainText walks the markdown AST collecting leaf text,
// separating block-level nodes with blank lines.
func renderPlainText(root ast.Node) string {
	var sb strings.Builder
	ast.WalkFunc(root, func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.Text:
			if entering {
				sb.Write(n.Literal)
			}
		case *ast.Code:
			if entering {
				sb.Write(n.Literal)
			}
		case *ast.CodeBlock:
			if entering {
				sb.Write(n.Literal)
				sb.WriteString("\n\n")
			}
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			if !entering {
				sb.WriteString("\n\n")
			}
		case *ast.Softbreak, *ast.Hardbreak:
			if entering {
				sb.WriteString("\n")
			}
		}
		return ast.GoToNext
	})

	text := sb.String()
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return text
}
