package api

import (
	"github.com/gin-gonic/gin"

	"github.com/carlfalc/offer-direct-stays/internal/handlers"
	"github.com/carlfalc/offer-direct-stays/internal/middleware"
	"github.com/carlfalc/offer-direct-stays/internal/models"
)

func registerInvoiceRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Deps) {
	invoiceHandler := handlers.NewInvoiceHandler(deps.Invoices)

	invoices := api.Group("/invoices")
	invoices.Use(requireAuth, middleware.RequireRole(models.RoleBusiness, models.RoleAdmin))
	{
		invoices.GET("", invoiceHandler.List)
		invoices.GET("/:id", invoiceHandler.Get)
	}

	admin := api.Group("/admin")
	admin.Use(requireAuth, middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/invoices/generate", invoiceHandler.Generate)
	}
}
