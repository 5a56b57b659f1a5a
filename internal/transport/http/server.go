package http

import (
	"github.com/gin-gonic/gin"

	"helpdesk-rag/internal/bootstrap"
	"helpdesk-rag/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	askHandler := handler.NewAskHandler(app.KB)
	kbHandler := handler.NewKBHandler(app.KB, app.Config.KB.CSVPath, app.Config.KB.CSVSource)
	historyHandler := handler.NewHistoryHandler(app.Interactions, app.HistoryCache)

	v1 := router.Group("/api/v1")
	v1.POST("/ask", askHandler.Ask)
	v1.GET("/history/:requester", historyHandler.Get)

	kbGroup := v1.Group("/kb")
	kbGroup.POST("/documents", kbHandler.AddDocument)
	kbGroup.POST("/documents/pdf", kbHandler.UploadPDF)
	kbGroup.POST("/reload", kbHandler.Reload)
	kbGroup.POST("/rebuild", kbHandler.Rebuild)
	kbGroup.POST("/reset", kbHandler.Reset)
	kbGroup.GET("/status", kbHandler.Status)

	return router
}
