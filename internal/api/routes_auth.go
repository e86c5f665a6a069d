package api

import (
	"github.com/gin-gonic/gin"

	"github.com/carlfalc/offer-direct-stays/internal/handlers"
)

func registerAuthRoutes(engine *gin.Engine, api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT)

	auth := engine.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	api.GET("/auth/me", requireAuth, authHandler.Me)
}
