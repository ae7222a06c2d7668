package document

import (
	"io"
	"os"
	"strings"
)

// PlainTextLoader reads .txt sources verbatim.
type PlainTextLoader struct{}

// NewPlainTextLoader creates a plain-text loader.
func NewPlainTextLoader() *PlainTextLoader {
	return &PlainTextLoader{}
}

// Load reads the text file at path.
func (l *PlainTextLoader) Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newLoadError(path, ErrReadFailure, err)
	}
	defer f.Close()
	return l.LoadReader(f, path)
}

// LoadReader reads text content from a reader.
func (l *PlainTextLoader) LoadReader(r io.Reader, filename string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newLoadError(filename, ErrReadFailure, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, newLoadError(filename, ErrEmptyDocument, nil)
	}

	return &Document{
		ID:     DocumentID(filename),
		Source: filename,
		Blocks: []Block{{Text: text, Page: 1, Start: 0, End: len([]rune(text))}},
	}, nil
}
