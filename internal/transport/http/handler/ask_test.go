package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk-rag/internal/kb"
	"helpdesk-rag/internal/model"
	"helpdesk-rag/internal/transport/http/response"
)

// stubEmbedder hashes tokens into a small fixed-size vector, enough for the
// handler tests to get stable rankings without a real model.
type stubEmbedder struct{ fail bool }

func (e *stubEmbedder) Model() string { return "stub-model" }

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, errors.New("embedding backend down")
	}
	vec := make([]float32, 64)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		var h uint32
		for _, r := range tok {
			h = h*31 + uint32(r)
		}
		vec[h%64]++
	}
	return vec, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type stubGenerator struct{ fail bool }

func (g *stubGenerator) Generate(_ context.Context, system, user string) (string, error) {
	if g.fail {
		return "", errors.New("generative backend down")
	}
	return "generated answer", nil
}

type stubTabularStore struct {
	mu   sync.Mutex
	rows []model.TabularRow
}

func (s *stubTabularStore) ReplaceSource(_ context.Context, source string, rows []model.TabularRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.Source != source {
			kept = append(kept, row)
		}
	}
	s.rows = append(kept, rows...)
	return nil
}

func (s *stubTabularStore) ListAll(context.Context) ([]model.TabularRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.TabularRow(nil), s.rows...), nil
}

func (s *stubTabularStore) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	return nil
}

type stubDocumentStore struct {
	mu   sync.Mutex
	docs []model.Document
}

func (s *stubDocumentStore) Create(_ context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.ID = uint(len(s.docs) + 1)
	s.docs = append(s.docs, *doc)
	return nil
}

func (s *stubDocumentStore) Delete(_ context.Context, id uint) error {
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

func (s *stubDocumentStore) ListAll(context.Context) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Document(nil), s.docs...), nil
}

func (s *stubDocumentStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.docs)), nil
}

func (s *stubDocumentStore) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	return nil
}

type askFixture struct {
	router   *gin.Engine
	manager  *kb.Manager
	embedder *stubEmbedder
	gen      *stubGenerator
}

func newAskFixture(t *testing.T) *askFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	chunker, err := kb.NewChunker(1000, 100)
	require.NoError(t, err)

	embedder := &stubEmbedder{}
	gen := &stubGenerator{}
	manager := kb.NewManager(kb.ManagerConfig{
		Chunker:   chunker,
		Embedder:  embedder,
		Retriever: kb.NewRetriever(embedder, 3),
		Synth:     kb.NewSynthesizer(gen, 0),
		Tabular:   &stubTabularStore{},
		Docs:      &stubDocumentStore{},
		Source:    "call.csv",
		IndexPath: filepath.Join(t.TempDir(), "index.gob"),
	})

	router := gin.New()
	router.POST("/ask", NewAskHandler(manager).Ask)
	return &askFixture{router: router, manager: manager, embedder: embedder, gen: gen}
}

func (f *askFixture) post(t *testing.T, body string) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func (f *askFixture) seed(t *testing.T) {
	t.Helper()
	_, err := f.manager.IngestTabular(context.Background(), "call.csv", []kb.TabularInput{
		{RowID: "1", Question: "How to activate?", Answer: "Send ACTIVATE to 1234"},
	})
	require.NoError(t, err)
}

func TestAskHappyPath(t *testing.T) {
	f := newAskFixture(t)
	f.seed(t)

	rec, env := f.post(t, `{"question":"how do I activate","requester":"+15550001111"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, response.CodeOK, env.Code)

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "generated answer", data["answer"])
	assert.Equal(t, false, data["kb_empty"])
	assert.NotEmpty(t, data["sources"])
}

func TestAskEmptyKnowledgeBase(t *testing.T) {
	f := newAskFixture(t)

	rec, env := f.post(t, `{"question":"anything"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, response.CodeOK, env.Code)

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["kb_empty"])
	assert.Equal(t, kb.EmptyKnowledgeBaseResponse, data["answer"])
}

func TestAskBadPayload(t *testing.T) {
	f := newAskFixture(t)

	rec, env := f.post(t, `{"requester":"+15550001111"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeBadRequest, env.Code)

	rec, env = f.post(t, `{"question":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeBadRequest, env.Code)
}

func TestAskUpstreamFailure(t *testing.T) {
	f := newAskFixture(t)
	f.seed(t)

	f.gen.fail = true
	rec, env := f.post(t, `{"question":"how do I activate"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, response.CodeUpstreamFailure, env.Code)
	assert.Equal(t, synthesisFallback, env.Message)

	f.gen.fail = false
	f.embedder.fail = true
	rec, env = f.post(t, `{"question":"how do I activate"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, response.CodeUpstreamFailure, env.Code)
}
