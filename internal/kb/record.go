package kb

// Record is the capability shared by every knowledge source kind. Tabular
// rows and manual documents are structurally different gorm models; the
// chunker and index only ever see them through this interface.
type Record interface {
	KnowledgeID() string
	KnowledgeText() string
	KnowledgeMetadata() map[string]string
}

// Chunk is a bounded slice of a record's text, overlapping its neighbours so
// no context is lost at span boundaries. Chunks exist only inside a vector
// index; the document store is the source of truth they derive from.
type Chunk struct {
	DocumentID string            `json:"document_id"`
	Seq        int               `json:"seq"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata"`
}
