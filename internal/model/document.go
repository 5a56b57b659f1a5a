package model

import (
	"fmt"
	"time"
)

// Document is a manually authored knowledge-base entry. Tabular rows and
// documents are distinct record kinds; both satisfy kb.Record.
type Document struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:256;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (d Document) KnowledgeID() string {
	return fmt.Sprintf("doc:%d", d.ID)
}

func (d Document) KnowledgeText() string {
	return d.Content
}

func (d Document) KnowledgeMetadata() map[string]string {
	return map[string]string{
		"origin": "manual",
		"title":  d.Title,
	}
}
