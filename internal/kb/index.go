package kb

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// embedBatchSize bounds embedding requests; providers commonly cap array
// input length.
const embedBatchSize = 16

// Embedder is the black-box embedding function. Model identifies the
// embedding space; an index records it at build time and refuses queries
// embedded by anything else.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is an in-memory vector index over (chunk, embedding) pairs. An Index
// is immutable once built: incremental adds return a new Index sharing no
// mutable state with the old one, so in-flight searches always observe a
// consistent snapshot.
type Index struct {
	model   string
	dim     int
	chunks  []Chunk
	vectors [][]float32
}

// Match is one search hit.
type Match struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// BuildIndex embeds every chunk and constructs an index over the vectors.
// All-or-nothing: any embedding failure aborts the whole build and the
// caller's previous index, if any, is left untouched.
func BuildIndex(ctx context.Context, embedder Embedder, chunks []Chunk) (*Index, error) {
	idx := &Index{model: embedder.Model()}
	if len(chunks) == 0 {
		return idx, nil
	}
	if err := idx.append(ctx, embedder, chunks); err != nil {
		return nil, err
	}
	return idx, nil
}

// WithChunks returns a new index containing every previously indexed chunk
// plus the given ones, in insertion order.
func (idx *Index) WithChunks(ctx context.Context, embedder Embedder, chunks []Chunk) (*Index, error) {
	if embedder.Model() != idx.model {
		return nil, fmt.Errorf("%w: index built with %q, adding with %q", ErrModelMismatch, idx.model, embedder.Model())
	}
	next := &Index{
		model:   idx.model,
		dim:     idx.dim,
		chunks:  append([]Chunk(nil), idx.chunks...),
		vectors: append([][]float32(nil), idx.vectors...),
	}
	if err := next.append(ctx, embedder, chunks); err != nil {
		return nil, err
	}
	return next, nil
}

func (idx *Index) append(ctx context.Context, embedder Embedder, chunks []Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var vectors [][]float32
	for i := 0; i < len(texts); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := embedder.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEmbedding, err)
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), len(chunks))
	}
	for _, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector", ErrEmbedding)
		}
		if idx.dim == 0 {
			idx.dim = len(v)
		}
		if len(v) != idx.dim {
			return fmt.Errorf("%w: dimension %d differs from index dimension %d", ErrEmbedding, len(v), idx.dim)
		}
	}

	idx.chunks = append(idx.chunks, chunks...)
	idx.vectors = append(idx.vectors, vectors...)
	return nil
}

// Search returns up to k nearest chunks by cosine similarity, highest first.
// Ties keep insertion order. An empty index yields an empty result, not an
// error.
func (idx *Index) Search(query []float32, k int) []Match {
	if idx == nil || len(idx.vectors) == 0 || k <= 0 {
		return nil
	}

	matches := make([]Match, len(idx.vectors))
	for i := range idx.vectors {
		matches[i] = Match{Chunk: idx.chunks[i], Score: cosineSimilarity(query, idx.vectors[i])}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}

func (idx *Index) Model() string { return idx.model }
func (idx *Index) Dim() int      { return idx.dim }

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.chunks)
}

// indexArtifact is the gob wire form of an index.
type indexArtifact struct {
	Model   string
	Dim     int
	Chunks  []Chunk
	Vectors [][]float32
}

// Save serializes the index atomically: written to a temp file in the same
// directory, then renamed into place.
func (idx *Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir failed: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*")
	if err != nil {
		return fmt.Errorf("create temp index file failed: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := gob.NewEncoder(tmp)
	artifact := indexArtifact{
		Model:   idx.model,
		Dim:     idx.dim,
		Chunks:  idx.chunks,
		Vectors: idx.vectors,
	}
	if err := enc.Encode(artifact); err != nil {
		tmp.Close()
		return fmt.Errorf("encode index failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index file failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index file failed: %w", err)
	}
	return nil
}

// LoadIndex restores a persisted index. A missing file surfaces as
// os.ErrNotExist; anything unreadable wraps ErrIndexCorrupt so the caller
// can fall back to a rebuild.
func LoadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	defer f.Close()

	var artifact indexArtifact
	if err := gob.NewDecoder(f).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	if len(artifact.Chunks) != len(artifact.Vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", ErrIndexCorrupt, len(artifact.Chunks), len(artifact.Vectors))
	}
	return &Index{
		model:   artifact.Model,
		dim:     artifact.Dim,
		chunks:  artifact.Chunks,
		vectors: artifact.Vectors,
	}, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
