package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/carlfalc/offer-direct-stays/internal/auth"
	"github.com/carlfalc/offer-direct-stays/internal/handlers"
	"github.com/carlfalc/offer-direct-stays/internal/middleware"
	"github.com/carlfalc/offer-direct-stays/internal/realtime"
	"github.com/carlfalc/offer-direct-stays/internal/services"
)

// Deps carries everything the router wires together.
type Deps struct {
	DB            *gorm.DB
	JWT           *iauth.JWTService
	Users         *services.UserService
	Offers        *services.OfferService
	Payments      *services.PaymentService
	Conversations *services.ConversationService
	Invoices      *services.InvoiceService
	Hub           *realtime.Hub

	RateStore             middleware.RateStore
	RateLimit             int
	RateLimitWindow       time.Duration
	AllowedOrigins        []string
	TrustedProxies        []string
	EnableMetricsEndpoint bool
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Users == nil || deps.Offers == nil || deps.Payments == nil ||
		deps.Conversations == nil || deps.Invoices == nil {
		return nil, fmt.Errorf("all domain services must be provided")
	}

	r := gin.New()
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, err
	}

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(deps.AllowedOrigins))
	if deps.RateStore != nil && deps.RateLimit > 0 {
		r.Use(middleware.RateLimit(deps.RateStore, deps.RateLimit, deps.RateLimitWindow))
	}

	// Health endpoint (public)
	r.GET("/health", handlers.Health(deps.DB))

	requireAuth := middleware.Auth(deps.JWT)
	api := r.Group("/api")

	registerAuthRoutes(r, api, requireAuth, deps)
	registerOfferRoutes(r, api, requireAuth, deps)
	registerConversationRoutes(api, requireAuth, deps)
	registerInvoiceRoutes(api, requireAuth, deps)

	if deps.EnableMetricsEndpoint {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
