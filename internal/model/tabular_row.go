package model

import (
	"fmt"
	"time"
)

// TabularRow is one historical question/answer pair ingested from a tabular
// source. Rows are never updated in place: re-ingesting a source replaces
// every row carrying that source label.
type TabularRow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RowID     string    `gorm:"size:64" json:"row_id"` // original row identifier, may be empty
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Source    string    `gorm:"size:256;not null;index" json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

func (r TabularRow) KnowledgeID() string {
	if r.RowID != "" {
		return fmt.Sprintf("tabular:%s:%s", r.Source, r.RowID)
	}
	return fmt.Sprintf("tabular:%s:#%d", r.Source, r.ID)
}

// KnowledgeText renders the row as a fixed question/answer pair so that both
// sides of the exchange land in the same embedding.
func (r TabularRow) KnowledgeText() string {
	return fmt.Sprintf("Client question: %s\nSupport answer: %s", r.Question, r.Answer)
}

func (r TabularRow) KnowledgeMetadata() map[string]string {
	meta := map[string]string{
		"origin": "tabular",
		"source": r.Source,
	}
	if r.RowID != "" {
		meta["row_id"] = r.RowID
	}
	return meta
}
