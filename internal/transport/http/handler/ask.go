package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"helpdesk-rag/internal/kb"
	"helpdesk-rag/internal/transport/http/response"
)

// synthesisFallback is what callers see when the generative model fails.
// The typed error never leaks into the delivery channel.
const synthesisFallback = "Sorry, I'm having trouble responding right now. Please try again later."

type AskHandler struct {
	manager *kb.Manager
}

type AskRequest struct {
	Question  string `json:"question" binding:"required"`
	Requester string `json:"requester"`
	SessionID string `json:"session_id"`
}

func NewAskHandler(manager *kb.Manager) *AskHandler {
	return &AskHandler{manager: manager}
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "question is empty")
		return
	}

	answer, err := h.manager.Ask(c.Request.Context(), strings.TrimSpace(req.Requester), req.SessionID, question)
	if err != nil {
		switch {
		case errors.Is(err, kb.ErrSynthesis), errors.Is(err, kb.ErrEmbedding):
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailure, synthesisFallback)
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ask failed")
		}
		return
	}
	response.OK(c, answer)
}
