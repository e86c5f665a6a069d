package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carlfalc/offer-direct-stays/internal/models"
	"github.com/carlfalc/offer-direct-stays/pkg/logger"
	"github.com/carlfalc/offer-direct-stays/pkg/metrics"
)

// MonthlyPeriod returns the invoice period covering the calendar month before
// the reference time. The end bound is inclusive to the last instant of the
// month so same-day confirmations are never dropped.
func MonthlyPeriod(reference time.Time) (time.Time, time.Time) {
	firstOfThisMonth := time.Date(reference.Year(), reference.Month(), 1, 0, 0, 0, 0, reference.Location())
	start := firstOfThisMonth.AddDate(0, -1, 0)
	end := firstOfThisMonth.Add(-time.Nanosecond)
	return start, end
}

// InvoiceNumber derives the stable invoice number for a business and period.
// Deterministic so re-running a period can never mint a second number.
func InvoiceNumber(businessID string, periodEnd time.Time) string {
	prefix := strings.ReplaceAll(businessID, "-", "")
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("INV-%s-%s", strings.ToUpper(prefix), periodEnd.Format("200601"))
}

// GenerateParams configures one invoice generation run.
type GenerateParams struct {
	// AdminUserID must identify an admin user unless the run originates from
	// the scheduler, which passes SystemRun.
	AdminUserID string
	SystemRun   bool

	PeriodStart time.Time
	PeriodEnd   time.Time

	// DryRun reports what would be generated without writing anything.
	DryRun bool
}

// RunSummary reports the outcome of an invoice generation run. Failures are
// collected per business so one bad business never aborts the rest.
type RunSummary struct {
	PeriodStart         time.Time `json:"period_start"`
	PeriodEnd           time.Time `json:"period_end"`
	DryRun              bool      `json:"dry_run"`
	BusinessesProcessed int       `json:"businesses_processed"`
	InvoicesCreated     int       `json:"invoices_created"`
	InvoicesReused      int       `json:"invoices_reused"`
	LineItemsCreated    int       `json:"line_items_created"`
	EventsUpdated       int       `json:"events_updated"`
	Errors              []string  `json:"errors,omitempty"`
}

// InvoiceOption customises InvoiceService behaviour.
type InvoiceOption func(*InvoiceService)

// WithInvoiceClock injects a custom clock primarily for testing.
func WithInvoiceClock(clock func() time.Time) InvoiceOption {
	return func(s *InvoiceService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithInvoiceAudit attaches an audit trail for invoice runs.
func WithInvoiceAudit(audit *AuditService) InvoiceOption {
	return func(s *InvoiceService) {
		s.audit = audit
	}
}

// InvoiceService aggregates uninvoiced billable events into monthly invoices.
// Generation is idempotent per (business, period): an existing invoice is
// reused as-is, with only its missing line items and event links repaired.
type InvoiceService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
	log   *zap.Logger
}

// NewInvoiceService constructs an InvoiceService.
func NewInvoiceService(db *gorm.DB, opts ...InvoiceOption) (*InvoiceService, error) {
	if db == nil {
		return nil, errors.New("invoice service: db is required")
	}

	service := &InvoiceService{
		db:  db,
		now: time.Now,
		log: logger.WithModule("invoices"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// GenerateMonthly runs invoice generation for one period across every business
// with uninvoiced billable events inside it.
func (s *InvoiceService) GenerateMonthly(ctx context.Context, params GenerateParams) (*RunSummary, error) {
	ctx = ensureContext(ctx)

	if !params.SystemRun {
		if err := s.requireAdmin(ctx, params.AdminUserID); err != nil {
			return nil, err
		}
	}
	if !params.PeriodEnd.After(params.PeriodStart) {
		return nil, errors.New("invoice service: period end must be after period start")
	}

	timer := time.Now()
	defer func() {
		metrics.InvoiceRunDuration.Observe(time.Since(timer).Seconds())
	}()

	summary := &RunSummary{
		PeriodStart: params.PeriodStart,
		PeriodEnd:   params.PeriodEnd,
		DryRun:      params.DryRun,
	}

	var businessIDs []string
	err := s.db.WithContext(ctx).
		Model(&models.BillableEvent{}).
		Where("invoiced_invoice_id IS NULL AND booking_confirmed_at >= ? AND booking_confirmed_at <= ?",
			params.PeriodStart, params.PeriodEnd).
		Distinct().
		Pluck("business_id", &businessIDs).Error
	if err != nil {
		return nil, fmt.Errorf("invoice service: list businesses: %w", err)
	}

	for _, businessID := range businessIDs {
		summary.BusinessesProcessed++
		if err := s.generateForBusiness(ctx, businessID, params, summary); err != nil {
			s.log.Error("invoice generation failed for business",
				zap.String("business_id", businessID), zap.Error(err))
			summary.Errors = append(summary.Errors, fmt.Sprintf("business %s: %v", businessID, err))
		}
	}

	s.auditRun(ctx, params, summary)
	return summary, nil
}

func (s *InvoiceService) generateForBusiness(ctx context.Context, businessID string, params GenerateParams, summary *RunSummary) error {
	var events []models.BillableEvent
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND invoiced_invoice_id IS NULL AND booking_confirmed_at >= ? AND booking_confirmed_at <= ?",
			businessID, params.PeriodStart, params.PeriodEnd).
		Order("booking_confirmed_at ASC").
		Find(&events).Error
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	if params.DryRun {
		var existing models.Invoice
		findErr := s.db.WithContext(ctx).
			Where("business_id = ? AND period_start = ? AND period_end = ?", businessID, params.PeriodStart, params.PeriodEnd).
			First(&existing).Error
		switch {
		case findErr == nil:
			summary.InvoicesReused++
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			summary.InvoicesCreated++
		default:
			return fmt.Errorf("check invoice: %w", findErr)
		}
		summary.LineItemsCreated += len(events)
		summary.EventsUpdated += len(events)
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, created, err := s.ensureInvoice(tx, businessID, params, events)
		if err != nil {
			return err
		}
		if created {
			summary.InvoicesCreated++
		} else {
			summary.InvoicesReused++
		}

		for _, event := range events {
			item := models.InvoiceLineItem{
				InvoiceID:          invoice.ID,
				OfferID:            event.OfferID,
				PropertyID:         event.PropertyID,
				Description:        fmt.Sprintf("Admin fee, booking confirmed %s", event.BookingConfirmedAt.Format("2 Jan 2006")),
				AdminFeeAmount:     event.AdminFeeAmount,
				CheckInDate:        event.CheckInDate,
				CheckOutDate:       event.CheckOutDate,
				BookingConfirmedAt: event.BookingConfirmedAt,
			}
			if err := tx.Create(&item).Error; err != nil {
				if !isUniqueConstraintError(err) {
					return fmt.Errorf("create line item for offer %s: %w", event.OfferID, err)
				}
			} else {
				summary.LineItemsCreated++
			}

			result := tx.Model(&models.BillableEvent{}).
				Where("id = ? AND invoiced_invoice_id IS NULL", event.ID).
				Update("invoiced_invoice_id", invoice.ID)
			if result.Error != nil {
				return fmt.Errorf("link event %s: %w", event.ID, result.Error)
			}
			summary.EventsUpdated += int(result.RowsAffected)
		}

		return nil
	})
}

// ensureInvoice finds or creates the period invoice. A reused invoice keeps
// its total untouched: amending an issued document is an accounting action,
// not a side effect of re-running the generator.
func (s *InvoiceService) ensureInvoice(tx *gorm.DB, businessID string, params GenerateParams, events []models.BillableEvent) (*models.Invoice, bool, error) {
	var invoice models.Invoice
	err := tx.Where("business_id = ? AND period_start = ? AND period_end = ?",
		businessID, params.PeriodStart, params.PeriodEnd).
		First(&invoice).Error
	if err == nil {
		return &invoice, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find invoice: %w", err)
	}

	total := 0.0
	currency := ""
	for _, event := range events {
		total += event.AdminFeeAmount
		if currency == "" {
			currency = event.Currency
		}
	}

	invoice = models.Invoice{
		BusinessID:    businessID,
		InvoiceNumber: InvoiceNumber(businessID, params.PeriodEnd),
		PeriodStart:   params.PeriodStart,
		PeriodEnd:     params.PeriodEnd,
		Status:        models.InvoiceStatusPending,
		TotalAmount:   total,
		GSTAmount:     0, // fees are GST-inclusive; no separate tax line yet
		Currency:      currency,
		IssuedAt:      s.now(),
	}
	if createErr := tx.Create(&invoice).Error; createErr != nil {
		if !isUniqueConstraintError(createErr) {
			return nil, false, fmt.Errorf("create invoice: %w", createErr)
		}
		// Concurrent run won the creation race.
		if findErr := tx.Where("business_id = ? AND period_start = ? AND period_end = ?",
			businessID, params.PeriodStart, params.PeriodEnd).
			First(&invoice).Error; findErr != nil {
			return nil, false, fmt.Errorf("find invoice after race: %w", findErr)
		}
		return &invoice, false, nil
	}

	return &invoice, true, nil
}

// Get returns one invoice with its line items.
func (s *InvoiceService) Get(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	ctx = ensureContext(ctx)

	var invoice models.Invoice
	if err := s.db.WithContext(ctx).Preload("LineItems").First(&invoice, "id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invoice service: not found")
		}
		return nil, fmt.Errorf("invoice service: find invoice: %w", err)
	}
	return &invoice, nil
}

// ListForBusiness returns a business's invoices, newest period first.
func (s *InvoiceService) ListForBusiness(ctx context.Context, businessID string) ([]models.Invoice, error) {
	ctx = ensureContext(ctx)

	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("period_end DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("invoice service: list invoices: %w", err)
	}
	return invoices, nil
}

func (s *InvoiceService) requireAdmin(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrForbidden
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("invoice service: find user: %w", err)
	}
	if !user.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (s *InvoiceService) auditRun(ctx context.Context, params GenerateParams, summary *RunSummary) {
	if s.audit == nil {
		return
	}

	entry := AuditEntry{
		Action:   "invoice.generate",
		Resource: params.PeriodEnd.Format("2006-01"),
		Result:   "success",
		Metadata: map[string]any{
			"dry_run":          summary.DryRun,
			"invoices_created": summary.InvoicesCreated,
			"invoices_reused":  summary.InvoicesReused,
			"errors":           len(summary.Errors),
		},
	}
	if len(summary.Errors) > 0 {
		entry.Result = "partial"
	}
	if strings.TrimSpace(params.AdminUserID) != "" {
		id := params.AdminUserID
		entry.UserID = &id
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.log.Warn("audit write failed", zap.Error(err))
	}
}
