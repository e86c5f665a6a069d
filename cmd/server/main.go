package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carlfalc/offer-direct-stays/internal/api"
	"github.com/carlfalc/offer-direct-stays/internal/app"
	"github.com/carlfalc/offer-direct-stays/internal/app/billing"
	iauth "github.com/carlfalc/offer-direct-stays/internal/auth"
	"github.com/carlfalc/offer-direct-stays/internal/cache"
	"github.com/carlfalc/offer-direct-stays/internal/database"
	"github.com/carlfalc/offer-direct-stays/internal/middleware"
	"github.com/carlfalc/offer-direct-stays/internal/payments"
	"github.com/carlfalc/offer-direct-stays/internal/realtime"
	"github.com/carlfalc/offer-direct-stays/internal/services"
	"github.com/carlfalc/offer-direct-stays/pkg/logger"
	"github.com/carlfalc/offer-direct-stays/pkg/mail"
)

const defaultShutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stays-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if err := ensureSecretsPresent(cfg); err != nil {
		return err
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	dbStore := cache.NewDatabaseStore(db)

	var redisStore cache.Store
	if cfg.Cache.Redis.Enabled {
		store, redisErr := cache.NewRedisStore(cfg.Cache.RedisClientConfig())
		if redisErr != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(redisErr))
		} else {
			redisStore = store
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	defer func() {
		if rs, ok := redisStore.(*cache.RedisStore); ok && rs != nil {
			_ = rs.Close()
		}
	}()

	jwtService, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return fmt.Errorf("initialise audit service: %w", err)
	}

	mailer := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	hub := realtime.NewHub()

	userSvc, err := services.NewUserService(db)
	if err != nil {
		return fmt.Errorf("initialise user service: %w", err)
	}

	offerSvc, err := services.NewOfferService(db,
		services.WithOfferMailer(mailer),
		services.WithOfferAudit(auditSvc),
		services.WithResponseBaseURL(cfg.Server.BaseURL),
	)
	if err != nil {
		return fmt.Errorf("initialise offer service: %w", err)
	}

	conversationSvc, err := services.NewConversationService(db,
		services.WithConversationHub(hub),
	)
	if err != nil {
		return fmt.Errorf("initialise conversation service: %w", err)
	}

	checkoutClient, err := payments.NewClient(cfg.Payments.CheckoutClientConfig())
	if err != nil {
		return fmt.Errorf("initialise payments client: %w", err)
	}

	paymentSvc, err := services.NewPaymentService(db, checkoutClient, conversationSvc,
		services.WithPaymentAudit(auditSvc),
		services.WithCheckoutURLs(cfg.Payments.SuccessURL, cfg.Payments.CancelURL),
	)
	if err != nil {
		return fmt.Errorf("initialise payment service: %w", err)
	}

	invoiceSvc, err := services.NewInvoiceService(db,
		services.WithInvoiceAudit(auditSvc),
	)
	if err != nil {
		return fmt.Errorf("initialise invoice service: %w", err)
	}

	scheduler := billing.NewScheduler(invoiceSvc, offerSvc, auditSvc,
		billing.WithAuditRetentionDays(cfg.Billing.AuditRetentionDays),
		billing.WithInvoiceSchedule(cfg.Billing.InvoiceSchedule),
		billing.WithTokenSchedule(cfg.Billing.TokenSchedule),
		billing.WithAuditSchedule(cfg.Billing.AuditSchedule),
		billing.WithCacheSchedule(cfg.Billing.CacheSchedule),
		billing.WithCacheJanitor(dbStore),
	)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start billing jobs: %w", err)
	}
	defer func() {
		<-scheduler.Stop().Done()
	}()

	var rateStore middleware.RateStore
	if cfg.Server.RateLimit.Enabled {
		switch {
		case redisStore != nil:
			rateStore = middleware.NewCacheRateStore(redisStore)
		default:
			rateStore = middleware.NewCacheRateStore(dbStore)
		}
	}

	router, err := api.NewRouter(api.Deps{
		DB:            db,
		JWT:           jwtService,
		Users:         userSvc,
		Offers:        offerSvc,
		Payments:      paymentSvc,
		Conversations: conversationSvc,
		Invoices:      invoiceSvc,
		Hub:           hub,

		RateStore:             rateStore,
		RateLimit:             cfg.Server.RateLimit.MaxRequests,
		RateLimitWindow:       cfg.Server.RateLimit.Window,
		AllowedOrigins:        cfg.Server.AllowedOrigins,
		TrustedProxies:        cfg.Server.TrustedProxies,
		EnableMetricsEndpoint: cfg.Monitoring.Prometheus.Enabled,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func ensureSecretsPresent(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be configured")
	}

	cfg.Payments.APIKey = strings.TrimSpace(cfg.Payments.APIKey)
	if cfg.Payments.APIKey == "" {
		return errors.New("payments.api_key must be configured")
	}
	cfg.Payments.BaseURL = strings.TrimSpace(cfg.Payments.BaseURL)
	if cfg.Payments.BaseURL == "" {
		return errors.New("payments.base_url must be configured")
	}

	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database.DatabaseOpenConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(cfg.Database.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
