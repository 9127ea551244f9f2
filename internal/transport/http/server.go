package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"edskill-hub/internal/bootstrap"
	"edskill-hub/internal/config"
	"edskill-hub/internal/transport/http/handler"
	"edskill-hub/internal/transport/http/middleware"
	"edskill-hub/internal/transport/http/response"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(
		middleware.CORS(),
		middleware.RequestLogger(app.Logger),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			response.Error(c, http.StatusInternalServerError, fmt.Sprint(recovered))
		}),
	)

	requireBearer := middleware.RequireBearer(app.Verifier, app.Logger)
	healthHandler := handler.NewHealthHandler(app)
	chatHandler := handler.NewChatHandler(app.ChatService)
	authHandler := handler.NewAuthHandler(app.AuthService)
	conversationHandler := handler.NewConversationHandler(app.ConversationService)

	router.GET("/healthz", healthHandler.Check)

	functions := router.Group("/functions/v1")
	functions.POST("/chat-ai", requireBearer, chatHandler.Relay)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	if app.Config.Auth.Mode == config.AuthModeJWT {
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}
	authGroup.GET("/me", requireBearer, authHandler.Me)

	protected := v1.Group("")
	protected.Use(requireBearer)
	protected.GET("/categories", conversationHandler.ListCategories)
	protected.POST("/conversations", conversationHandler.CreateConversation)
	protected.GET("/conversations", conversationHandler.ListConversations)
	protected.GET("/conversations/:id/messages", conversationHandler.GetHistory)
	protected.PUT("/messages/:id/rating", conversationHandler.RateMessage)

	return router
}
