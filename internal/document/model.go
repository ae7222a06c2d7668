package document

import "fmt"

// Block is a contiguous span of raw text extracted from a source,
// together with its position in that source. PDF loaders emit one
// block per page; plain-text loaders emit a single block.
type Block struct {
	Text  string // extracted text
	Page  int    // 1-based page number (1 for unpaged sources)
	Start int    // rune offset of the block within the document text
	End   int    // rune offset one past the last rune of the block
}

// Document is an immutable, loaded source: an ordered sequence of text
// blocks plus identity. All downstream stages (chunking, embedding,
// indexing) consume this shape regardless of where the text came from.
type Document struct {
	ID     string  // unique document id
	Source string  // file path or external identifier
	Blocks []Block // ordered text blocks
}

// Text returns the full document text: block texts joined by blank
// lines, matching the offsets recorded in the blocks.
func (d *Document) Text() string {
	switch len(d.Blocks) {
	case 0:
		return ""
	case 1:
		return d.Blocks[0].Text
	}
	n := 0
	for _, b := range d.Blocks {
		n += len(b.Text) + 2
	}
	buf := make([]byte, 0, n)
	for i, b := range d.Blocks {
		if i > 0 {
			buf = append(buf, "\n\n"...)
		}
		buf = append(buf, b.Text...)
	}
	return string(buf)
}

// Chunk is a bounded-size span of a document's text, the unit of
// embedding and retrieval. Chunk ids are deterministic for a given
// document and chunker configuration, so re-ingesting the same
// document replaces rather than duplicates index entries.
type Chunk struct {
	ID     string // deterministic id: "<docID>-<seq>"
	DocID  string // owning document id
	Seq    int    // 0-based position within the document
	Text   string // chunk text
	Start  int    // rune offset of the chunk within the document text
	End    int    // rune offset one past the last rune
	PrevID string // id of the overlap-adjacent previous chunk, if any
	NextID string // id of the overlap-adjacent next chunk, if any
}

// ChunkID builds the deterministic chunk id for a document position.
func ChunkID(docID string, seq int) string {
	return fmt.Sprintf("%s-%04d", docID, seq)
}
