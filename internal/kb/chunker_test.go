package kb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkerRejectsBadConfig(t *testing.T) {
	_, err := NewChunker(0, 0)
	assert.Error(t, err)

	_, err = NewChunker(100, 100)
	assert.Error(t, err, "overlap equal to span length would never advance")

	_, err = NewChunker(100, 150)
	assert.Error(t, err)

	_, err = NewChunker(100, -1)
	assert.Error(t, err)

	_, err = NewChunker(100, 0)
	assert.NoError(t, err, "zero overlap is valid")
}

func TestSplitReconstructsText(t *testing.T) {
	cases := []struct {
		name    string
		maxLen  int
		overlap int
		text    string
	}{
		{"short text single chunk", 100, 10, "hello world"},
		{"exact boundary", 10, 0, strings.Repeat("a", 30)},
		{"with overlap", 10, 3, "the quick brown fox jumps over the lazy dog"},
		{"long text", 50, 10, strings.Repeat("knowledge base content ", 40)},
		{"multibyte runes", 8, 2, "质量检验是生产流程中的关键环节，需要按照标准执行"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunker, err := NewChunker(tc.maxLen, tc.overlap)
			require.NoError(t, err)

			chunks := chunker.Split(textRecord{id: "doc", text: tc.text})
			require.NotEmpty(t, chunks)

			// Each chunk's distinct region is its first maxLen-overlap runes;
			// the final chunk contributes everything past the overlap.
			step := tc.maxLen - tc.overlap
			var rebuilt []rune
			for i, chunk := range chunks {
				runes := []rune(chunk.Text)
				assert.LessOrEqual(t, len(runes), tc.maxLen)
				assert.Equal(t, i, chunk.Seq)
				assert.Equal(t, "doc", chunk.DocumentID)
				if i == len(chunks)-1 {
					rebuilt = append(rebuilt, runes...)
				} else {
					rebuilt = append(rebuilt, runes[:step]...)
				}
			}
			assert.Equal(t, tc.text, string(rebuilt), "no characters may be lost")
		})
	}
}

func TestSplitOverlapSharesBoundaryText(t *testing.T) {
	chunker, err := NewChunker(10, 4)
	require.NoError(t, err)

	chunks := chunker.Split(textRecord{id: "doc", text: "abcdefghijklmnopqrstuvwxyz"})
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		tail := string(prev[len(prev)-4:])
		assert.True(t, strings.HasPrefix(chunks[i].Text, tail),
			"chunk %d must start with the last 4 runes of chunk %d", i, i-1)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	chunker, err := NewChunker(12, 3)
	require.NoError(t, err)

	rec := textRecord{id: "doc", text: "some text that will be split into several chunks"}
	assert.Equal(t, chunker.Split(rec), chunker.Split(rec))
}

func TestSplitEmptyText(t *testing.T) {
	chunker, err := NewChunker(10, 2)
	require.NoError(t, err)
	assert.Empty(t, chunker.Split(textRecord{id: "doc", text: ""}))
}

func TestSplitAllKeepsRecordOrder(t *testing.T) {
	chunker, err := NewChunker(100, 10)
	require.NoError(t, err)

	chunks := chunker.SplitAll([]Record{
		textRecord{id: "a", text: "first record"},
		textRecord{id: "b", text: "second record"},
	})
	require.Len(t, chunks, 2)
	assert.Equal(t, "a", chunks[0].DocumentID)
	assert.Equal(t, "b", chunks[1].DocumentID)
}
