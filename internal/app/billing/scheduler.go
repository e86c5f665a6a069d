package billing

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/carlfalc/offer-direct-stays/internal/services"
	"github.com/carlfalc/offer-direct-stays/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90

	// First of the month at 02:00, after the previous period has closed.
	defaultInvoiceSpec = "0 2 1 * *"
	defaultTokenSpec   = "@daily"
	defaultAuditSpec   = "@daily"
	defaultCacheSpec   = "@hourly"
)

// CacheJanitor removes expired cache rows. Satisfied by cache.DatabaseStore.
type CacheJanitor interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Scheduler runs the recurring billing and housekeeping jobs: the monthly
// invoice run, expired response token removal, audit log retention and cache
// table cleanup. Any nil dependency results in the corresponding job being
// skipped.
type Scheduler struct {
	invoices  *services.InvoiceService
	offers    *services.OfferService
	audit     *services.AuditService
	janitor   CacheJanitor
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int

	invoiceSchedule string
	tokenSchedule   string
	auditSchedule   string
	cacheSchedule   string
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used to derive the invoice period.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(s *Scheduler) {
		if days > 0 {
			s.retention = days
		}
	}
}

// WithInvoiceSchedule overrides the cron specification for the monthly invoice run.
func WithInvoiceSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.invoiceSchedule = spec
		}
	}
}

// WithTokenSchedule overrides the cron specification for response token cleanup.
func WithTokenSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.tokenSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.auditSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache table cleanup.
func WithCacheSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.cacheSchedule = spec
		}
	}
}

// WithCacheJanitor registers a cache backend that needs periodic expiry sweeps.
func WithCacheJanitor(janitor CacheJanitor) Option {
	return func(s *Scheduler) {
		s.janitor = janitor
	}
}

// NewScheduler constructs a Scheduler with sensible defaults.
func NewScheduler(invoices *services.InvoiceService, offers *services.OfferService, audit *services.AuditService, opts ...Option) *Scheduler {
	s := &Scheduler{
		invoices:        invoices,
		offers:          offers,
		audit:           audit,
		now:             time.Now,
		retention:       defaultAuditRetentionDays,
		invoiceSchedule: defaultInvoiceSpec,
		tokenSchedule:   defaultTokenSpec,
		auditSchedule:   defaultAuditSpec,
		cacheSchedule:   defaultCacheSpec,
		log:             logger.WithModule("billing"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return s
}

// Start registers the jobs with the cron scheduler and launches it.
func (s *Scheduler) Start() error {
	if s.invoices != nil {
		if _, err := s.cron.AddFunc(s.invoiceSchedule, func() {
			if err := s.runInvoices(context.Background()); err != nil {
				s.log.Error("monthly invoice run failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.offers != nil {
		if _, err := s.cron.AddFunc(s.tokenSchedule, func() {
			ctx := context.Background()
			if _, err := s.offers.CleanupExpiredResponseTokens(ctx); err != nil {
				s.log.Warn("response token cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.audit != nil && s.retention > 0 {
		if _, err := s.cron.AddFunc(s.auditSchedule, func() {
			ctx := context.Background()
			if _, err := s.audit.CleanupOlderThan(ctx, s.retention); err != nil {
				s.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.janitor != nil {
		if _, err := s.cron.AddFunc(s.cacheSchedule, func() {
			ctx := context.Background()
			if _, err := s.janitor.CleanupExpired(ctx); err != nil {
				s.log.Warn("cache cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every configured job sequentially. Primarily used in tests
// and for operator-triggered catch-up runs.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if s.invoices != nil {
		if err := s.runInvoices(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if s.offers != nil {
		if _, err := s.offers.CleanupExpiredResponseTokens(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if s.audit != nil && s.retention > 0 {
		if _, err := s.audit.CleanupOlderThan(ctx, s.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if s.janitor != nil {
		if _, err := s.janitor.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// runInvoices generates invoices for the most recently closed calendar month.
func (s *Scheduler) runInvoices(ctx context.Context) error {
	start, end := services.MonthlyPeriod(s.now().UTC())

	summary, err := s.invoices.GenerateMonthly(ctx, services.GenerateParams{
		SystemRun:   true,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		return err
	}

	s.log.Info("monthly invoice run completed",
		zap.Time("period_start", summary.PeriodStart),
		zap.Time("period_end", summary.PeriodEnd),
		zap.Int("invoices_created", summary.InvoicesCreated),
		zap.Int("invoices_reused", summary.InvoicesReused),
		zap.Int("line_items_created", summary.LineItemsCreated),
		zap.Int("errors", len(summary.Errors)))
	return nil
}
