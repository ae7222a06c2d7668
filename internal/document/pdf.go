package document

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFLoader extracts text from PDF files using pdfcpu.
type PDFLoader struct {
	conf *model.Configuration
}

// NewPDFLoader creates a PDF loader with the default pdfcpu configuration.
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{conf: model.NewDefaultConfiguration()}
}

// Load parses the PDF at path into a Document with one block per page.
func (l *PDFLoader) Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newLoadError(path, ErrReadFailure, err)
	}
	defer f.Close()
	return l.LoadReader(f, path)
}

// LoadReader parses PDF content from a reader. pdfcpu's content
// extraction works on files, so the stream is staged in a temp dir.
func (l *PDFLoader) LoadReader(r io.Reader, filename string) (*Document, error) {
	tmpDir, err := os.MkdirTemp("", "pdf_extract_")
	if err != nil {
		return nil, newLoadError(filename, ErrReadFailure, err)
	}
	defer os.RemoveAll(tmpDir)

	tmpPDF := filepath.Join(tmpDir, "source.pdf")
	out, err := os.Create(tmpPDF)
	if err != nil {
		return nil, newLoadError(filename, ErrReadFailure, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return nil, newLoadError(filename, ErrReadFailure, err)
	}
	out.Close()

	if err := api.ExtractContentFile(tmpPDF, tmpDir, nil, l.conf); err != nil {
		return nil, newLoadError(filename, ErrCorruptDocument, err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, newLoadError(filename, ErrReadFailure, err)
	}

	// pdfcpu writes one text file per page; names sort in page order.
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".txt") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	pages := make([]string, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(tmpDir, name))
		if err != nil {
			continue
		}
		pages = append(pages, string(data))
	}

	blocks := blocksFromPages(pages)
	if len(blocks) == 0 {
		return nil, newLoadError(filename, ErrEmptyDocument, nil)
	}

	return &Document{
		ID:     DocumentID(filename),
		Source: filename,
		Blocks: blocks,
	}, nil
}
