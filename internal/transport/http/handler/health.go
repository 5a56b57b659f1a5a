package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"helpdesk-rag/internal/bootstrap"
)

// HealthHandler reports liveness of the backing services plus the
// knowledge-base readiness. A degraded knowledge base does not fail the
// check; queries still get the fixed empty-KB answer.
type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := gin.H{
		"mysql":    h.checkMySQL(ctx),
		"redis":    h.checkRedis(ctx),
		"rabbitmq": h.checkRabbitMQ(),
	}

	statusCode := http.StatusOK
	for _, dep := range deps {
		if !dep.(dependencyStatus).OK {
			statusCode = http.StatusServiceUnavailable
			break
		}
	}

	kbReady := false
	if status, err := h.app.KB.Status(ctx); err == nil {
		kbReady = status.Ready
	}

	c.JSON(statusCode, gin.H{
		"app":                  h.app.Config.App.Name,
		"env":                  h.app.Config.App.Env,
		"uptime_sec":           int(time.Since(h.app.StartedAt).Seconds()),
		"knowledge_base_ready": kbReady,
		"dependencies":         deps,
	})
}

func (h *HealthHandler) checkMySQL(ctx context.Context) dependencyStatus {
	sqlDB, err := h.app.MySQL.DB()
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	if err := h.app.Redis.Ping(ctx).Err(); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if h.app.MQConn == nil || h.app.MQConn.IsClosed() {
		return dependencyStatus{OK: false, Message: "connection closed"}
	}
	return dependencyStatus{OK: true}
}
