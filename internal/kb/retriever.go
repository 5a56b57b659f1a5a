package kb

import (
	"context"
	"fmt"
)

// defaultTopK matches the original helpdesk deployment.
const defaultTopK = 3

// Retriever embeds a query and searches an index for its nearest chunks.
// The retriever is pinned to one embedding function; searching an index
// built by a different model is rejected rather than silently returning
// garbage rankings.
type Retriever struct {
	embedder Embedder
	topK     int
}

func NewRetriever(embedder Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Retriever{embedder: embedder, topK: topK}
}

// Retrieve returns the top-k most similar chunks for the query, highest
// similarity first. k <= 0 falls back to the configured default.
func (r *Retriever) Retrieve(ctx context.Context, idx *Index, query string, k int) ([]Match, error) {
	if idx == nil || idx.Len() == 0 {
		return nil, nil
	}
	if idx.Model() != r.embedder.Model() {
		return nil, fmt.Errorf("%w: index built with %q, querying with %q", ErrModelMismatch, idx.Model(), r.embedder.Model())
	}
	if k <= 0 {
		k = r.topK
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding: %v", ErrEmbedding, err)
	}
	return idx.Search(vec, k), nil
}
