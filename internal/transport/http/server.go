package http

import (
	"github.com/gin-gonic/gin"

	"github.com/parardhadhar/parardha-insight-engine/internal/bootstrap"
	"github.com/parardhadhar/parardha-insight-engine/internal/transport/http/handler"
	"github.com/parardhadhar/parardha-insight-engine/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	sessionHandler := handler.NewSessionHandler(app.Conversation)
	documentHandler := handler.NewDocumentHandler(app.Conversation, app.Config.Session.MaxUploadSizeMB)
	chatHandler := handler.NewChatHandler(app.Conversation, app.Archive)

	v1 := router.Group("/api/v1")
	v1.POST("/sessions", sessionHandler.Create)

	withSession := v1.Group("")
	withSession.Use(middleware.RequireSession(app.Sessions))
	withSession.DELETE("/sessions", sessionHandler.Delete)
	withSession.POST("/documents", documentHandler.Upload)
	withSession.POST("/ask", chatHandler.Ask)
	withSession.GET("/history", chatHandler.History)

	v1.GET("/transcripts/:id", chatHandler.Transcript)
	v1.DELETE("/transcripts/:id", chatHandler.DeleteTranscript)

	return router
}
