package kb

import (
	"context"
	"errors"
	"strings"
	"sync"

	"helpdesk-rag/internal/model"
)

// vocabEmbedder is a deterministic in-process embedding function for tests:
// each distinct token gets its own dimension, so cosine similarity tracks
// token overlap.
type vocabEmbedder struct {
	model string

	mu    sync.Mutex
	vocab map[string]int
	calls int
	fail  bool
}

const vocabDim = 256

func newVocabEmbedder(model string) *vocabEmbedder {
	return &vocabEmbedder{model: model, vocab: make(map[string]int)}
}

func (e *vocabEmbedder) Model() string { return e.model }

func (e *vocabEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.fail {
		return nil, errors.New("embedding backend down")
	}
	return e.vector(text), nil
}

func (e *vocabEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *vocabEmbedder) vector(text string) []float32 {
	vec := make([]float32, vocabDim)
	for _, tok := range tokenize(text) {
		idx, ok := e.vocab[tok]
		if !ok {
			if len(e.vocab) >= vocabDim {
				continue
			}
			idx = len(e.vocab)
			e.vocab[tok] = idx
		}
		vec[idx]++
	}
	return vec
}

func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, text)
	return strings.Fields(cleaned)
}

// echoGenerator returns the prompts it was given so tests can assert on the
// assembled context, and counts invocations.
type echoGenerator struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (g *echoGenerator) Generate(_ context.Context, system, user string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail {
		return "", errors.New("generative backend down")
	}
	return "ANSWER BASED ON: " + user, nil
}

func (g *echoGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// In-memory stores standing in for the gorm repositories.

type memTabularStore struct {
	mu     sync.Mutex
	rows   []model.TabularRow
	nextID uint
}

func (s *memTabularStore) ReplaceSource(_ context.Context, source string, rows []model.TabularRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.Source != source {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	for _, row := range rows {
		s.nextID++
		row.ID = s.nextID
		s.rows = append(s.rows, row)
	}
	return nil
}

func (s *memTabularStore) ListAll(context.Context) ([]model.TabularRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.TabularRow(nil), s.rows...), nil
}

func (s *memTabularStore) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	return nil
}

type memDocumentStore struct {
	mu     sync.Mutex
	docs   []model.Document
	nextID uint
}

func (s *memDocumentStore) Create(_ context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	doc.ID = s.nextID
	s.docs = append(s.docs, *doc)
	return nil
}

func (s *memDocumentStore) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.docs[:0]
	for _, doc := range s.docs {
		if doc.ID != id {
			kept = append(kept, doc)
		}
	}
	s.docs = kept
	return nil
}

func (s *memDocumentStore) ListAll(context.Context) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Document(nil), s.docs...), nil
}

func (s *memDocumentStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.docs)), nil
}

func (s *memDocumentStore) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	return nil
}

type memInteractionLog struct {
	mu     sync.Mutex
	logged []model.Interaction
}

func (l *memInteractionLog) Log(_ context.Context, interaction model.Interaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logged = append(l.logged, interaction)
	return nil
}

func (l *memInteractionLog) entries() []model.Interaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Interaction(nil), l.logged...)
}

// textRecord is a minimal Record for chunker and index tests.
type textRecord struct {
	id   string
	text string
}

func (r textRecord) KnowledgeID() string   { return r.id }
func (r textRecord) KnowledgeText() string { return r.text }
func (r textRecord) KnowledgeMetadata() map[string]string {
	return map[string]string{"origin": "test", "id": r.id}
}
