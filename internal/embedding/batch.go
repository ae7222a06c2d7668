package embedding

import "context"

// Batcher embeds arbitrarily many texts by splitting them into
// service-sized batches, bounding the number of outbound requests
// during an index build. It adds no caching or retry.
type Batcher struct {
	client Client
	size   int
}

// NewBatcher wraps a client with batch splitting. A non-positive size
// falls back to 16.
func NewBatcher(client Client, size int) *Batcher {
	if size <= 0 {
		size = 16
	}
	return &Batcher{client: client, size: size}
}

// EmbedAll embeds every text, preserving order. The first failing
// batch aborts the whole build; partial results are discarded so the
// caller never indexes a half-embedded document.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.size {
		end := start + b.size
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := b.client.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
