package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"helpdesk-rag/internal/ingest"
	"helpdesk-rag/internal/kb"
	"helpdesk-rag/internal/pkg/pdfextract"
	"helpdesk-rag/internal/transport/http/response"
)

const maxPDFSize = 10 << 20 // 10 MB

// KBHandler exposes the knowledge-base management operations: add-document,
// reload-from-source, rebuild, reset and the status surface. All are
// idempotent at the state level.
type KBHandler struct {
	manager   *kb.Manager
	csvPath   string
	csvSource string
}

type AddDocumentRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func NewKBHandler(manager *kb.Manager, csvPath, csvSource string) *KBHandler {
	return &KBHandler{manager: manager, csvPath: csvPath, csvSource: csvSource}
}

func (h *KBHandler) AddDocument(c *gin.Context) {
	var req AddDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "title and content are required")
		return
	}
	h.addDocument(c, req.Title, req.Content)
}

// UploadPDF accepts a multipart form with "file" (PDF) and optional "title",
// extracts the text and adds it as a manual document.
func (h *KBHandler) UploadPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxPDFSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	text, err := pdfextract.ExtractText(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text from PDF: "+err.Error())
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "PDF contains no extractable text")
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}
	h.addDocument(c, title, text)
}

func (h *KBHandler) addDocument(c *gin.Context, title, content string) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "title and content are required")
		return
	}

	doc, chunkCount, err := h.manager.AddDocument(c.Request.Context(), title, content)
	if err != nil {
		if errors.Is(err, kb.ErrEmbedding) {
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailure, "embedding failed, document not added")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "add document failed")
		return
	}
	response.OK(c, gin.H{"document": doc, "chunk_count": chunkCount})
}

// Reload re-ingests the configured tabular source, replacing the previous
// batch from that source wholesale.
func (h *KBHandler) Reload(c *gin.Context) {
	rows, err := ingest.LoadCSV(h.csvPath)
	if err != nil {
		switch {
		case errors.Is(err, kb.ErrSourceNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSourceNotFound, "tabular source not found, knowledge base unchanged")
		case errors.Is(err, kb.ErrSchema):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "read tabular source failed")
		}
		return
	}

	report, err := h.manager.IngestTabular(c.Request.Context(), h.csvSource, rows)
	if err != nil {
		if errors.Is(err, kb.ErrEmbedding) {
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailure, "embedding failed, previous index preserved")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingestion failed")
		return
	}
	response.OK(c, report)
}

func (h *KBHandler) Rebuild(c *gin.Context) {
	if err := h.manager.Rebuild(c.Request.Context()); err != nil {
		if errors.Is(err, kb.ErrEmbedding) {
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailure, "embedding failed, previous index preserved")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "rebuild failed")
		return
	}
	response.OK(c, gin.H{"rebuilt": true})
}

func (h *KBHandler) Reset(c *gin.Context) {
	if err := h.manager.Reset(c.Request.Context()); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reset failed")
		return
	}
	response.OK(c, gin.H{"reset": true})
}

func (h *KBHandler) Status(c *gin.Context) {
	status, err := h.manager.Status(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "status check failed")
		return
	}
	response.OK(c, status)
}
