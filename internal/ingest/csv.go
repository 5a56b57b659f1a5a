// Package ingest loads tabular question/answer sources for the knowledge
// base. The schema is validated once at entry: a batch is rejected only for
// missing required columns, never for missing values in individual rows.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"helpdesk-rag/internal/kb"
)

const (
	questionColumn = "question"
	answerColumn   = "answer"
	rowIDColumn    = "row id"
)

// LoadCSV reads the tabular source at path. The header must contain a
// question and an answer column (case-insensitive); a row-identifier column
// is optional and all other columns are ignored. A missing file maps to
// kb.ErrSourceNotFound so callers can treat reload as a no-op.
func LoadCSV(path string) ([]kb.TabularInput, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", kb.ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("open csv source failed: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are a row-level concern, not fatal

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable header: %v", kb.ErrSchema, err)
	}

	questionIdx, answerIdx, rowIDIdx := -1, -1, -1
	for i, name := range header {
		switch normalizeColumn(name) {
		case questionColumn, "query":
			questionIdx = i
		case answerColumn, "response":
			answerIdx = i
		case rowIDColumn, "sr no.", "id":
			rowIDIdx = i
		}
	}
	if questionIdx < 0 || answerIdx < 0 {
		return nil, fmt.Errorf("%w: header %v is missing a question or answer column", kb.ErrSchema, header)
	}

	var rows []kb.TabularInput
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv source failed: %w", err)
	}
	for _, record := range records {
		row := kb.TabularInput{
			Question: fieldAt(record, questionIdx),
			Answer:   fieldAt(record, answerIdx),
		}
		if rowIDIdx >= 0 {
			row.RowID = fieldAt(record, rowIDIdx)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
}

func fieldAt(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
