package model

import "time"

// Interaction is one logged question/answer exchange. Append-only: written
// once by the persist worker, never mutated, untouched by knowledge-base
// resets.
type Interaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Requester string    `gorm:"size:64;not null;index" json:"requester"`
	SessionID string    `gorm:"size:64" json:"session_id,omitempty"`
	Query     string    `gorm:"type:text;not null" json:"query"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}
