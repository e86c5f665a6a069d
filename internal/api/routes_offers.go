package api

import (
	"github.com/gin-gonic/gin"

	"github.com/carlfalc/offer-direct-stays/internal/handlers"
	"github.com/carlfalc/offer-direct-stays/internal/middleware"
	"github.com/carlfalc/offer-direct-stays/internal/models"
)

func registerOfferRoutes(engine *gin.Engine, api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Deps) {
	offerHandler := handlers.NewOfferHandler(deps.Offers)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments)

	// Emailed response links work without a session; the token is the
	// credential.
	engine.GET("/api/offers/:id/respond", offerHandler.ResolveToken)
	engine.POST("/api/offers/:id/respond", offerHandler.RespondWithToken)

	offers := api.Group("/offers")
	offers.Use(requireAuth)
	{
		offers.GET("", offerHandler.List)
		offers.GET("/:id", offerHandler.Get)
		offers.POST("", middleware.RequireRole(models.RoleGuest), offerHandler.Submit)
		offers.POST("/:id/cancel", middleware.RequireRole(models.RoleGuest), offerHandler.Cancel)

		business := middleware.RequireRole(models.RoleBusiness, models.RoleAdmin)
		offers.POST("/:id/accept", business, offerHandler.Accept)
		offers.POST("/:id/counter", business, offerHandler.Counter)
		offers.POST("/:id/decline", business, offerHandler.Decline)

		guest := middleware.RequireRole(models.RoleGuest)
		offers.POST("/:id/checkout", guest, paymentHandler.CreateCheckout)
		offers.POST("/:id/verify-payment", guest, paymentHandler.Verify)
	}
}
