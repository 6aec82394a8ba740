package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"linguachat/internal/ai"
	appsvc "linguachat/internal/app"
	"linguachat/internal/bootstrap"
	"linguachat/internal/cache"
	"linguachat/internal/chunker"
	"linguachat/internal/index"
	"linguachat/internal/platform/rabbitmq"
	"linguachat/internal/repository"
	"linguachat/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	sessionRepo := repository.NewSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)
	publisher := rabbitmq.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)

	llmClient := ai.NewClient(ai.ClientConfig{
		BaseURL:        app.Config.LLM.BaseURL,
		APIKey:         app.Config.LLM.APIKey,
		Model:          app.Config.LLM.Model,
		EmbeddingModel: app.Config.LLM.EmbeddingModel,
	})
	ragService := appsvc.NewRAGService(
		index.NewSessionIndexes(),
		chunker.New(app.Config.RAG.ChunkSize, app.Config.RAG.ChunkOverlap),
		llmClient,
		llmClient,
		app.Config.RAG.TopK,
		app.Config.RAG.PromptHistory,
	)
	chatService := appsvc.NewChatService(
		sessionRepo,
		messageRepo,
		publisher,
		historyCache,
		ragService,
		app.Config.RAG.HistoryWindow,
		app.Config.RAG.SessionWindowDays,
	)

	sessionHandler := handler.NewSessionHandler(chatService)
	chatHandler := handler.NewChatHandler(chatService)
	documentHandler := handler.NewDocumentHandler(ragService)

	v1 := router.Group("/api/v1")

	sessionGroup := v1.Group("/sessions")
	sessionGroup.POST("", sessionHandler.CreateSession)
	sessionGroup.GET("", sessionHandler.ListSessions)
	sessionGroup.DELETE("/:id", sessionHandler.DeleteSession)
	sessionGroup.PUT("/:id/language", sessionHandler.SetLanguage)

	chatGroup := v1.Group("/chat")
	chatGroup.POST("/ask", chatHandler.Ask)
	chatGroup.POST("/stream", chatHandler.Stream)
	chatGroup.GET("/history", sessionHandler.GetHistory)

	documentGroup := v1.Group("/documents")
	documentGroup.POST("/upload", documentHandler.Upload)
	documentGroup.POST("/clear", documentHandler.Clear)
	documentGroup.POST("/retrieve", documentHandler.Retrieve)

	return router
}
