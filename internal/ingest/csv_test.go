package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk-rag/internal/kb"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, kb.ErrSourceNotFound)
}

func TestLoadCSVMissingRequiredColumn(t *testing.T) {
	path := writeCSV(t, "Question,Comment\nHow?,irrelevant\n")
	_, err := LoadCSV(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, kb.ErrSchema)
}

func TestLoadCSVCanonicalHeader(t *testing.T) {
	path := writeCSV(t, "Row ID,Question,Answer\n1,How to activate?,Send ACTIVATE to 1234\n2,How to stop?,Send STOP to 1234\n")

	rows, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, kb.TabularInput{RowID: "1", Question: "How to activate?", Answer: "Send ACTIVATE to 1234"}, rows[0])
	assert.Equal(t, "2", rows[1].RowID)
}

func TestLoadCSVHeaderAliases(t *testing.T) {
	// The export format of the original call log uses these column names.
	path := writeCSV(t, "Sr No.,Query,Response\n7,How to reactivate?,Send REACTIVATE after 30 days\n")

	rows, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7", rows[0].RowID)
	assert.Equal(t, "How to reactivate?", rows[0].Question)
	assert.Equal(t, "Send REACTIVATE after 30 days", rows[0].Answer)
}

func TestLoadCSVTrimsWhitespace(t *testing.T) {
	path := writeCSV(t, "question,answer\n  padded question  ,  padded answer \n")

	rows, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "padded question", rows[0].Question)
	assert.Equal(t, "padded answer", rows[0].Answer)
}

func TestLoadCSVRaggedAndEmptyRows(t *testing.T) {
	// Short rows yield empty fields rather than failing the batch; ingestion
	// decides what to skip.
	path := writeCSV(t, "Row ID,Question,Answer\n1,lonely question\n2,full question,full answer\n")

	rows, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "lonely question", rows[0].Question)
	assert.Empty(t, rows[0].Answer)
	assert.Equal(t, "full answer", rows[1].Answer)
}

func TestLoadCSVIgnoresExtraColumns(t *testing.T) {
	path := writeCSV(t, "Timestamp,Question,Agent,Answer\n2024-01-01,How?,alice,Like this\n")

	rows, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "How?", rows[0].Question)
	assert.Equal(t, "Like this", rows[0].Answer)
	assert.Empty(t, rows[0].RowID)
}

func TestLoadCSVStripsByteOrderMark(t *testing.T) {
	path := writeCSV(t, "\uFEFFQuestion,Answer\nHow?,Like this\n")

	rows, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "How?", rows[0].Question)
}
