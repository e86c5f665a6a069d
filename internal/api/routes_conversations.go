package api

import (
	"github.com/gin-gonic/gin"

	"github.com/carlfalc/offer-direct-stays/internal/handlers"
)

func registerConversationRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Deps) {
	conversationHandler := handlers.NewConversationHandler(deps.Conversations, deps.Hub)

	conversations := api.Group("/conversations")
	conversations.Use(requireAuth)
	{
		conversations.GET("", conversationHandler.List)
		conversations.GET("/:id", conversationHandler.Get)
		conversations.GET("/:id/messages", conversationHandler.ListMessages)
		conversations.POST("/:id/messages", conversationHandler.PostMessage)
		conversations.GET("/:id/ws", conversationHandler.Subscribe)
	}
}
