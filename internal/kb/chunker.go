package kb

import "fmt"

// Chunker splits record text into overlapping rune spans of bounded length.
// Pure and deterministic for a fixed configuration.
type Chunker struct {
	maxLen  int
	overlap int
}

// NewChunker validates the configuration up front: overlap must be strictly
// smaller than the span length or the split would never advance.
func NewChunker(maxLen, overlap int) (*Chunker, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("chunker: max span length must be positive, got %d", maxLen)
	}
	if overlap < 0 || overlap >= maxLen {
		return nil, fmt.Errorf("chunker: overlap %d must be in [0, %d)", overlap, maxLen)
	}
	return &Chunker{maxLen: maxLen, overlap: overlap}, nil
}

// Split cuts the record's text into spans of at most maxLen runes, each
// successive span starting maxLen-overlap runes after the previous one. The
// final span may be shorter. Concatenating each span's non-overlapping prefix
// reconstructs the original text exactly.
func (c *Chunker) Split(rec Record) []Chunk {
	text := rec.KnowledgeText()
	if text == "" {
		return nil
	}

	runes := []rune(text)
	step := c.maxLen - c.overlap

	var chunks []Chunk
	for start, seq := 0, 0; start < len(runes); start, seq = start+step, seq+1 {
		end := start + c.maxLen
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			DocumentID: rec.KnowledgeID(),
			Seq:        seq,
			Text:       string(runes[start:end]),
			Metadata:   rec.KnowledgeMetadata(),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// SplitAll chunks every record in order.
func (c *Chunker) SplitAll(recs []Record) []Chunk {
	var chunks []Chunk
	for _, rec := range recs {
		chunks = append(chunks, c.Split(rec)...)
	}
	return chunks
}
