package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// DocumentID derives a stable document identifier from its source.
// Loading the same source twice yields the same ID, which keeps
// re-ingestion idempotent all the way down to chunk IDs.
func DocumentID(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:8])
}

// Loader reads a source file into a Document. Implementations exist
// per format; use LoaderFor to pick one by file extension.
type Loader interface {
	// Load reads the file at path and returns the parsed document.
	Load(path string) (*Document, error)

	// LoadReader parses a document from a reader. The filename is used
	// only for the document's Source field.
	LoadReader(r io.Reader, filename string) (*Document, error)
}

// Format is a supported document format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
)

// Failure classes for loading. Callers distinguish "fix your input"
// conditions with errors.Is.
var (
	ErrUnsupportedFormat = errors.New("document: unsupported format")
	ErrReadFailure       = errors.New("document: cannot read source")
	ErrCorruptDocument   = errors.New("document: source cannot be parsed")
	ErrEmptyDocument     = errors.New("document: no text content")
)

// LoadError carries the failure class together with the offending
// source and underlying cause.
type LoadError struct {
	Source string // file path or identifier
	Kind   error  // one of the Err* sentinels above
	Err    error  // underlying cause, may be nil
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Source, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Source)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == e.Kind }

func newLoadError(source string, kind, cause error) *LoadError {
	return &LoadError{Source: source, Kind: kind, Err: cause}
}

// DetectFormat maps a file name to its declared format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".txt", ".text":
		return FormatText, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", newLoadError(path, ErrUnsupportedFormat, nil)
	}
}

// LoaderFor returns the loader for the file's format.
func LoaderFor(path string) (Loader, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatPDF:
		return NewPDFLoader(), nil
	case FormatMarkdown:
		return NewMarkdownLoader(), nil
	default:
		return NewPlainTextLoader(), nil
	}
}

// Load is the package-level convenience: pick a loader by extension
// and run it.
func Load(path string) (*Document, error) {
	loader, err := LoaderFor(path)
	if err != nil {
		return nil, err
	}
	return loader.Load(path)
}

// NewTextDocument wraps already-extracted text (for example output of
// a web research agent) into the Document shape so it can flow through
// the same chunking and indexing pipeline as file uploads.
func NewTextDocument(source, text string) (*Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, newLoadError(source, ErrEmptyDocument, nil)
	}
	return &Document{
		ID:     DocumentID(source),
		Source: source,
		Blocks: []Block{{Text: text, Page: 1, Start: 0, End: len([]rune(text))}},
	}, nil
}

// blocksFromPages builds positional blocks from per-page texts,
// skipping empty pages. Offsets match Document.Text's join rule.
func blocksFromPages(pages []string) []Block {
	var blocks []Block
	offset := 0
	for i, text := range pages {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if len(blocks) > 0 {
			offset += 2 // blank-line join
		}
		runeLen := len([]rune(text))
		blocks = append(blocks, Block{
			Text:  text,
			Page:  i + 1,
			Start: offset,
			End:   offset + runeLen,
		})
		offset += runeLen
	}
	return blocks
}
