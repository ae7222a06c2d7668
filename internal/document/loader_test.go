package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeTempPDF(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.pdf")
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 10, text, "", "", false)
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path   string
		format Format
	}{
		{"notes.txt", FormatText},
		{"paper.PDF", FormatPDF},
		{"readme.md", FormatMarkdown},
		{"guide.markdown", FormatMarkdown},
	}
	for _, tt := range tests {
		format, err := DetectFormat(tt.path)
		assert.NoError(t, err)
		assert.Equal(t, tt.format, format)
	}

	_, err := DetectFormat("image.png")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPlainTextLoader(t *testing.T) {
	t.Run("loads file contents", func(t *testing.T) {
		path := writeTempFile(t, "notes.txt", "Hello, this is a plain text file.\nSecond line.")

		doc, err := NewPlainTextLoader().Load(path)
		require.NoError(t, err)
		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, path, doc.Source)
		require.Len(t, doc.Blocks, 1)
		assert.Contains(t, doc.Text(), "plain text file")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewPlainTextLoader().Load(filepath.Join(t.TempDir(), "missing.txt"))
		assert.ErrorIs(t, err, ErrReadFailure)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeTempFile(t, "empty.txt", "   \n\t  ")
		_, err := NewPlainTextLoader().Load(path)
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})
}

func TestPDFLoader(t *testing.T) {
	t.Run("extracts text from generated pdf", func(t *testing.T) {
		path := writeTempPDF(t, "The retrieval pipeline indexes this sentence.")

		doc, err := NewPDFLoader().Load(path)
		require.NoError(t, err)
		assert.NotEmpty(t, doc.Blocks)
		assert.Equal(t, 1, doc.Blocks[0].Page)
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		path := writeTempFile(t, "broken.pdf", "this is not a pdf at all")
		_, err := NewPDFLoader().Load(path)
		assert.ErrorIs(t, err, ErrCorruptDocument)
	})
}

func TestMarkdownLoader(t *testing.T) {
	t.Run("strips formatting", func(t *testing.T) {
		md := "# Title\n\nSome *emphasised* prose with a [link](https://example.com).\n\n- item one\n- item two\n"
		path := writeTempFile(t, "readme.md", md)

		doc, err := NewMarkdownLoader().Load(path)
		require.NoError(t, err)

		text := doc.Text()
		assert.Contains(t, text, "Title")
		assert.Contains(t, text, "emphasised prose")
		assert.Contains(t, text, "item one")
		assert.NotContains(t, text, "](")
		assert.NotContains(t, text, "#")
	})

	t.Run("empty markdown", func(t *testing.T) {
		path := writeTempFile(t, "empty.md", "")
		_, err := NewMarkdownLoader().Load(path)
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})
}

func TestNewTextDocument(t *testing.T) {
	t.Run("wraps external text", func(t *testing.T) {
		doc, err := NewTextDocument("https://example.com/article", "Scraped article body.")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/article", doc.Source)
		assert.Equal(t, "Scraped article body.", doc.Text())
	})

	t.Run("rejects blank text", func(t *testing.T) {
		_, err := NewTextDocument("nowhere", "  \n ")
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})
}

func TestDocumentTextOffsets(t *testing.T) {
	doc := &Document{
		ID:     "doc-1",
		Source: "multi.pdf",
		Blocks: blocksFromPages([]string{"page one text", "", "page three text"}),
	}

	text := doc.Text()
	assert.Equal(t, "page one text\n\npage three text", text)

	runes := []rune(text)
	for _, block := range doc.Blocks {
		assert.Equal(t, block.Text, string(runes[block.Start:block.End]))
	}
	assert.Equal(t, 1, doc.Blocks[0].Page)
	assert.Equal(t, 3, doc.Blocks[1].Page)

	assert.False(t, strings.HasSuffix(text, "\n"))
}
