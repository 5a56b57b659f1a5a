package handler

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"helpdesk-rag/internal/cache"
	"helpdesk-rag/internal/repository"
	"helpdesk-rag/internal/transport/http/response"
)

type HistoryHandler struct {
	interactions *repository.InteractionRepository
	historyCache *cache.HistoryCache
}

func NewHistoryHandler(interactions *repository.InteractionRepository, historyCache *cache.HistoryCache) *HistoryHandler {
	return &HistoryHandler{interactions: interactions, historyCache: historyCache}
}

// Get returns the requester's recent interactions, newest first, through
// the redis cache. Cache failures fall back to MySQL silently.
func (h *HistoryHandler) Get(c *gin.Context) {
	requester := strings.TrimSpace(c.Param("requester"))
	if requester == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "requester is required")
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	ctx := c.Request.Context()
	if limit == 0 {
		if cached, ok, err := h.historyCache.Get(ctx, requester); err == nil && ok {
			response.OK(c, gin.H{"interactions": cached})
			return
		} else if err != nil {
			log.Printf("history: cache read failed: %v", err)
		}
	}

	interactions, err := h.interactions.ListByRequester(ctx, requester, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch history failed")
		return
	}
	if limit == 0 {
		if err := h.historyCache.Set(ctx, requester, interactions); err != nil {
			log.Printf("history: cache write failed: %v", err)
		}
	}
	response.OK(c, gin.H{"interactions": interactions})
}
