package kb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"helpdesk-rag/internal/model"
)

// EmptyKnowledgeBaseResponse is the fixed answer for queries while no
// knowledge base is loaded. Retrieval and generation are both skipped.
const EmptyKnowledgeBaseResponse = "I'm sorry, but I don't have a knowledge base loaded yet. Please ask an administrator to load the historical Q&A data."

// TabularStore persists ingested question/answer rows.
type TabularStore interface {
	ReplaceSource(ctx context.Context, source string, rows []model.TabularRow) error
	ListAll(ctx context.Context) ([]model.TabularRow, error)
	DeleteAll(ctx context.Context) error
}

// DocumentStore persists manually added documents.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Delete(ctx context.Context, id uint) error
	ListAll(ctx context.Context) ([]model.Document, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}

// InteractionLogger records an answered exchange, typically asynchronously.
type InteractionLogger interface {
	Log(ctx context.Context, interaction model.Interaction) error
}

// TabularInput is one raw row handed to ingestion after schema validation.
type TabularInput struct {
	RowID    string
	Question string
	Answer   string
}

// IngestReport summarizes one tabular ingestion: rows with an empty question
// or answer are skipped and counted, never fatal to the batch.
type IngestReport struct {
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
	Chunks   int `json:"chunks"`
}

// Source points an answer back at the chunk it was synthesized from.
type Source struct {
	ChunkText string            `json:"chunk_text"`
	Metadata  map[string]string `json:"metadata"`
}

// Answer is the result of one query.
type Answer struct {
	Text               string   `json:"answer"`
	Sources            []Source `json:"sources"`
	KnowledgeBaseEmpty bool     `json:"kb_empty"`
}

// Status is the side-effect-free knowledge-base status surface.
type Status struct {
	Ready                bool   `json:"is_ready"`
	DocumentCount        int    `json:"document_count"`
	TabularSourcePresent bool   `json:"tabular_source_present"`
	ChunkCount           int    `json:"chunk_count"`
	EmbeddingModel       string `json:"embedding_model"`
}

// Manager owns every write to the vector index and the document store. The
// index itself is a rebuildable cache: losing it costs a re-ingestion, never
// source data.
//
// Concurrency: the published index is an immutable snapshot swapped under
// mu; queries grab the pointer and search lock-free. ingestMu serializes all
// mutating operations globally. Embedding and generation always run outside
// both locks.
type Manager struct {
	chunker   *Chunker
	embedder  Embedder
	retriever *Retriever
	synth     *Synthesizer
	tabular   TabularStore
	docs      DocumentStore
	logger    InteractionLogger
	source    string
	indexPath string

	ingestMu sync.Mutex
	mu       sync.RWMutex
	idx      *Index
}

// ManagerConfig wires a Manager. Source is the logical label for the
// configured tabular source; IndexPath is where the serialized index lives.
type ManagerConfig struct {
	Chunker   *Chunker
	Embedder  Embedder
	Retriever *Retriever
	Synth     *Synthesizer
	Tabular   TabularStore
	Docs      DocumentStore
	Logger    InteractionLogger
	Source    string
	IndexPath string
}

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		chunker:   cfg.Chunker,
		embedder:  cfg.Embedder,
		retriever: cfg.Retriever,
		synth:     cfg.Synth,
		tabular:   cfg.Tabular,
		docs:      cfg.Docs,
		logger:    cfg.Logger,
		source:    cfg.Source,
		indexPath: cfg.IndexPath,
	}
}

func (m *Manager) index() *Index {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idx
}

func (m *Manager) publish(idx *Index) {
	m.mu.Lock()
	m.idx = idx
	m.mu.Unlock()
}

// IngestTabular replaces every previously ingested row for the given source
// with the valid rows of this batch, then rebuilds the index to match the
// resulting store state. Embedding happens before any store write, so a
// failure leaves both the store and the prior index intact.
func (m *Manager) IngestTabular(ctx context.Context, source string, rows []TabularInput) (IngestReport, error) {
	m.ingestMu.Lock()
	defer m.ingestMu.Unlock()

	var report IngestReport
	newRows := make([]model.TabularRow, 0, len(rows))
	for _, in := range rows {
		if in.Question == "" || in.Answer == "" {
			report.Skipped++
			continue
		}
		// Rows without a sheet identifier get their batch position, so every
		// chunk keeps a distinct parent id and a later rebuild from the store
		// produces the same identities.
		rowID := in.RowID
		if rowID == "" {
			rowID = strconv.Itoa(len(newRows) + 1)
		}
		newRows = append(newRows, model.TabularRow{
			RowID:    rowID,
			Question: in.Question,
			Answer:   in.Answer,
			Source:   source,
		})
	}
	report.Ingested = len(newRows)

	// The replacement index covers the new rows plus everything the swap
	// does not touch: rows from other sources and all manual documents.
	records := make([]Record, 0, len(newRows))
	for _, row := range newRows {
		records = append(records, row)
	}
	existing, err := m.tabular.ListAll(ctx)
	if err != nil {
		return report, err
	}
	for _, row := range existing {
		if row.Source != source {
			records = append(records, row)
		}
	}
	docs, err := m.docs.ListAll(ctx)
	if err != nil {
		return report, err
	}
	for _, doc := range docs {
		records = append(records, doc)
	}

	chunks := m.chunker.SplitAll(records)
	report.Chunks = len(chunks)

	idx, err := BuildIndex(ctx, m.embedder, chunks)
	if err != nil {
		return report, err
	}
	if err := m.tabular.ReplaceSource(ctx, source, newRows); err != nil {
		return report, fmt.Errorf("replace tabular source failed: %w", err)
	}
	// The store write is committed; the fresh index is published no matter
	// what. The artifact is a rebuildable cache, so a failed save costs a
	// rebuild on the next restart, never a stale answer now.
	m.saveIndex(idx)
	m.publish(idx)
	return report, nil
}

// saveIndex persists the artifact best effort. Queries are served from the
// in-memory snapshot either way.
func (m *Manager) saveIndex(idx *Index) {
	if err := idx.Save(m.indexPath); err != nil {
		log.Printf("kb: persist index to %s failed: %v", m.indexPath, err)
	}
}

// AddDocument stores one manually authored document and appends its chunks
// to the existing index without rebuilding it. Tabular data is unaffected.
func (m *Manager) AddDocument(ctx context.Context, title, content string) (*model.Document, int, error) {
	m.ingestMu.Lock()
	defer m.ingestMu.Unlock()

	doc := &model.Document{Title: title, Content: content}
	if err := m.docs.Create(ctx, doc); err != nil {
		return nil, 0, err
	}

	chunks := m.chunker.Split(*doc)
	current := m.index()

	var next *Index
	var err error
	if current == nil || current.Len() == 0 {
		next, err = BuildIndex(ctx, m.embedder, chunks)
	} else {
		next, err = current.WithChunks(ctx, m.embedder, chunks)
	}
	if err != nil {
		// Keep store and index consistent: the document never made it into
		// the index, so take it back out of the store.
		if delErr := m.docs.Delete(ctx, doc.ID); delErr != nil {
			log.Printf("kb: roll back document %d failed: %v", doc.ID, delErr)
		}
		return nil, 0, err
	}
	m.saveIndex(next)
	m.publish(next)
	return doc, len(chunks), nil
}

// Rebuild reconstructs the index from every record currently in the store.
// Running it twice with no intervening ingestion yields an index with
// identical search behavior.
func (m *Manager) Rebuild(ctx context.Context) error {
	m.ingestMu.Lock()
	defer m.ingestMu.Unlock()
	return m.rebuildLocked(ctx)
}

func (m *Manager) rebuildLocked(ctx context.Context) error {
	rows, err := m.tabular.ListAll(ctx)
	if err != nil {
		return err
	}
	docs, err := m.docs.ListAll(ctx)
	if err != nil {
		return err
	}

	records := make([]Record, 0, len(rows)+len(docs))
	for _, row := range rows {
		records = append(records, row)
	}
	for _, doc := range docs {
		records = append(records, doc)
	}

	idx, err := BuildIndex(ctx, m.embedder, m.chunker.SplitAll(records))
	if err != nil {
		return err
	}
	m.saveIndex(idx)
	m.publish(idx)
	return nil
}

// Reset clears all documents and tabular rows and removes the index, in
// memory and on disk. Interaction records are untouched. There is no undo.
func (m *Manager) Reset(ctx context.Context) error {
	m.ingestMu.Lock()
	defer m.ingestMu.Unlock()

	if err := m.docs.DeleteAll(ctx); err != nil {
		return err
	}
	if err := m.tabular.DeleteAll(ctx); err != nil {
		return err
	}
	if err := os.Remove(m.indexPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove index file failed: %w", err)
	}
	m.publish(nil)
	return nil
}

// Ask answers one query: retrieve, synthesize, log. While the knowledge base
// is empty it returns the fixed response without touching the embedding
// function or the generative model. Logging is best effort and never fails
// the answer.
func (m *Manager) Ask(ctx context.Context, requester, sessionID, query string) (*Answer, error) {
	idx := m.index()
	if idx.Len() == 0 {
		answer := &Answer{Text: EmptyKnowledgeBaseResponse, KnowledgeBaseEmpty: true}
		m.logInteraction(ctx, requester, sessionID, query, answer.Text)
		return answer, nil
	}

	matches, err := m.retriever.Retrieve(ctx, idx, query, 0)
	if err != nil {
		return nil, err
	}
	text, err := m.synth.Synthesize(ctx, query, matches)
	if err != nil {
		return nil, err
	}

	answer := &Answer{Text: text, Sources: make([]Source, 0, len(matches))}
	for _, match := range matches {
		answer.Sources = append(answer.Sources, Source{
			ChunkText: match.Chunk.Text,
			Metadata:  match.Chunk.Metadata,
		})
	}
	m.logInteraction(ctx, requester, sessionID, query, text)
	return answer, nil
}

func (m *Manager) logInteraction(ctx context.Context, requester, sessionID, query, answer string) {
	if m.logger == nil || requester == "" {
		return
	}
	interaction := model.Interaction{
		Requester: requester,
		SessionID: sessionID,
		Query:     query,
		Answer:    answer,
	}
	if err := m.logger.Log(ctx, interaction); err != nil {
		log.Printf("kb: log interaction failed: %v", err)
	}
}

// Status reports readiness without side effects.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	idx := m.index()

	docCount, err := m.docs.Count(ctx)
	if err != nil {
		return Status{}, err
	}
	rows, err := m.tabular.ListAll(ctx)
	if err != nil {
		return Status{}, err
	}
	sourcePresent := false
	for _, row := range rows {
		if row.Source == m.source {
			sourcePresent = true
			break
		}
	}

	return Status{
		Ready:                idx.Len() > 0,
		DocumentCount:        int(docCount) + len(rows),
		TabularSourcePresent: sourcePresent,
		ChunkCount:           idx.Len(),
		EmbeddingModel:       m.embedder.Model(),
	}, nil
}

// LoadOrRebuild restores the persisted index at startup. A missing artifact
// with a non-empty store, a corrupt artifact, or an artifact built by a
// different embedding model all trigger a rebuild from the store; an empty
// store stays EMPTY.
func (m *Manager) LoadOrRebuild(ctx context.Context) error {
	m.ingestMu.Lock()
	defer m.ingestMu.Unlock()

	idx, err := LoadIndex(m.indexPath)
	switch {
	case err == nil:
		if idx.Model() == m.embedder.Model() {
			m.publish(idx)
			return nil
		}
		log.Printf("kb: index built with %q but configured model is %q, rebuilding", idx.Model(), m.embedder.Model())
	case os.IsNotExist(err):
		empty, checkErr := m.storeEmpty(ctx)
		if checkErr != nil {
			return checkErr
		}
		if empty {
			return nil
		}
	case errors.Is(err, ErrIndexCorrupt):
		log.Printf("kb: %v, rebuilding from store", err)
	default:
		return err
	}
	return m.rebuildLocked(ctx)
}

func (m *Manager) storeEmpty(ctx context.Context) (bool, error) {
	docCount, err := m.docs.Count(ctx)
	if err != nil {
		return false, err
	}
	if docCount > 0 {
		return false, nil
	}
	rows, err := m.tabular.ListAll(ctx)
	if err != nil {
		return false, err
	}
	return len(rows) == 0, nil
}
