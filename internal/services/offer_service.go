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
	"github.com/carlfalc/offer-direct-stays/pkg/crypto"
	"github.com/carlfalc/offer-direct-stays/pkg/logger"
	"github.com/carlfalc/offer-direct-stays/pkg/mail"
	"github.com/carlfalc/offer-direct-stays/pkg/metrics"
)

const (
	defaultResponseTokenBytes = 32
	defaultResponseTokenTTL   = 72 * time.Hour

	// Submission throttle: a guest may hold at most maxActiveOffersPerCity
	// non-terminal offers per city within offerThrottleWindow.
	offerThrottleWindow    = 2 * time.Hour
	maxActiveOffersPerCity = 5
)

// AllowOfferSubmission decides whether one more offer may be submitted given
// the creation times of the guest's active offers in the same city. Pure so
// the throttle policy is testable without a store.
func AllowOfferSubmission(activeCreatedAt []time.Time, now time.Time) bool {
	cutoff := now.Add(-offerThrottleWindow)
	inWindow := 0
	for _, created := range activeCreatedAt {
		if created.After(cutoff) {
			inWindow++
		}
	}
	return inWindow < maxActiveOffersPerCity
}

// ValidateOfferAmount enforces the platform's nightly rate bounds.
func ValidateOfferAmount(amount float64) error {
	if amount < models.MinOfferAmount {
		return ErrAmountTooLow
	}
	if amount > models.MaxOfferAmount {
		return ErrAmountTooHigh
	}
	return nil
}

// OfferOption customises OfferService behaviour.
type OfferOption func(*OfferService)

// WithOfferClock injects a custom clock primarily for testing.
func WithOfferClock(clock func() time.Time) OfferOption {
	return func(s *OfferService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithResponseTokenTTL overrides the emailed response link lifetime.
func WithResponseTokenTTL(d time.Duration) OfferOption {
	return func(s *OfferService) {
		if d > 0 {
			s.tokenTTL = d
		}
	}
}

// WithResponseBaseURL configures the base URL used in emailed response links.
func WithResponseBaseURL(url string) OfferOption {
	return func(s *OfferService) {
		s.responseBaseURL = strings.TrimRight(url, "/")
	}
}

// WithOfferMailer attaches a mailer used to notify businesses of new offers.
func WithOfferMailer(mailer mail.Mailer) OfferOption {
	return func(s *OfferService) {
		s.mailer = mailer
	}
}

// WithOfferAudit attaches an audit trail for offer lifecycle events.
func WithOfferAudit(audit *AuditService) OfferOption {
	return func(s *OfferService) {
		s.audit = audit
	}
}

// OfferService owns the offer lifecycle: submission, business responses, and
// emailed response-token access. Payment-driven confirmation lives in
// PaymentService.
type OfferService struct {
	db              *gorm.DB
	mailer          mail.Mailer
	audit           *AuditService
	responseBaseURL string
	tokenTTL        time.Duration
	now             func() time.Time
	log             *zap.Logger
}

// NewOfferService constructs an OfferService with the provided dependencies.
func NewOfferService(db *gorm.DB, opts ...OfferOption) (*OfferService, error) {
	if db == nil {
		return nil, errors.New("offer service: db is required")
	}

	service := &OfferService{
		db:       db,
		tokenTTL: defaultResponseTokenTTL,
		now:      time.Now,
		log:      logger.WithModule("offers"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// SubmitOfferParams carries the payload required to submit a new offer.
type SubmitOfferParams struct {
	GuestUserID  string
	PropertyID   string
	RoomID       *string
	OfferAmount  float64
	Adults       int
	Children     int
	CheckInDate  time.Time
	CheckOutDate time.Time
	GuestNotes   string
}

// Submit validates and persists a new offer, then notifies the business via
// an emailed response link. Notification failure never fails the submission.
func (s *OfferService) Submit(ctx context.Context, params SubmitOfferParams) (*models.Offer, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(params.GuestUserID) == "" {
		return nil, errors.New("offer service: guest user id is required")
	}
	if err := ValidateOfferAmount(params.OfferAmount); err != nil {
		metrics.OffersSubmitted.WithLabelValues("validation_failed").Inc()
		return nil, err
	}
	if params.Adults < 1 {
		metrics.OffersSubmitted.WithLabelValues("validation_failed").Inc()
		return nil, errors.New("offer service: at least one adult is required")
	}
	if params.Children < 0 {
		metrics.OffersSubmitted.WithLabelValues("validation_failed").Inc()
		return nil, errors.New("offer service: children cannot be negative")
	}
	if !params.CheckOutDate.After(params.CheckInDate) {
		metrics.OffersSubmitted.WithLabelValues("validation_failed").Inc()
		return nil, errors.New("offer service: check-out must be after check-in")
	}

	var property models.Property
	if err := s.db.WithContext(ctx).Preload("Business").First(&property, "id = ?", params.PropertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("offer service: find property: %w", err)
	}

	now := s.now()
	if err := s.checkThrottle(ctx, params.GuestUserID, property.City, now); err != nil {
		return nil, err
	}

	token, err := crypto.GenerateToken(defaultResponseTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("offer service: generate response token: %w", err)
	}
	tokenExpiry := now.Add(s.tokenTTL)

	offer := models.Offer{
		GuestUserID:            params.GuestUserID,
		PropertyID:             property.ID,
		RoomID:                 params.RoomID,
		City:                   property.City,
		OfferAmount:            params.OfferAmount,
		Currency:               property.Currency,
		Status:                 models.OfferStatusSubmitted,
		Adults:                 params.Adults,
		Children:               params.Children,
		CheckInDate:            params.CheckInDate,
		CheckOutDate:           params.CheckOutDate,
		GuestNotes:             strings.TrimSpace(params.GuestNotes),
		ResponseToken:          &token,
		ResponseTokenExpiresAt: &tokenExpiry,
		BCFPaymentStatus:       models.BCFPaymentPending,
		FeePaymentStatus:       models.BCFPaymentPending,
	}

	if err := s.db.WithContext(ctx).Create(&offer).Error; err != nil {
		return nil, fmt.Errorf("offer service: create offer: %w", err)
	}

	metrics.OffersSubmitted.WithLabelValues("accepted").Inc()
	s.auditLog(ctx, offer.GuestUserID, "offer.submit", offer.ID, map[string]any{
		"property_id": offer.PropertyID,
		"amount":      offer.OfferAmount,
		"city":        offer.City,
	})

	s.notifyBusiness(ctx, &offer, &property, token)

	return &offer, nil
}

func (s *OfferService) checkThrottle(ctx context.Context, guestID, city string, now time.Time) error {
	var createdAt []time.Time
	err := s.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("guest_user_id = ? AND city = ? AND status IN ? AND created_at > ?",
			guestID, city, models.ActiveOfferStatuses(), now.Add(-offerThrottleWindow)).
		Pluck("created_at", &createdAt).Error
	if err != nil {
		return fmt.Errorf("offer service: count active offers: %w", err)
	}

	if !AllowOfferSubmission(createdAt, now) {
		metrics.OffersSubmitted.WithLabelValues("rate_limited").Inc()
		return ErrOfferLimitReached
	}
	return nil
}

// Accept moves a submitted offer to accepted.
func (s *OfferService) Accept(ctx context.Context, offerID string) (*models.Offer, error) {
	return s.respond(ctx, offerID, models.OfferStatusAccepted, nil)
}

// Counter moves a submitted offer to countered with the business's price.
func (s *OfferService) Counter(ctx context.Context, offerID string, counterAmount float64) (*models.Offer, error) {
	if counterAmount <= 0 {
		return nil, ErrAmountTooLow
	}
	return s.respond(ctx, offerID, models.OfferStatusCountered, &counterAmount)
}

// Decline moves a submitted offer to declined. Terminal.
func (s *OfferService) Decline(ctx context.Context, offerID string) (*models.Offer, error) {
	return s.respond(ctx, offerID, models.OfferStatusDeclined, nil)
}

// respond applies a business response. The guarded update makes the
// submitted-only precondition atomic under concurrent responses.
func (s *OfferService) respond(ctx context.Context, offerID, toStatus string, counterAmount *float64) (*models.Offer, error) {
	ctx = ensureContext(ctx)

	updates := map[string]any{"status": toStatus}
	if counterAmount != nil {
		updates["counter_amount"] = *counterAmount
	}

	result := s.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND status IN ?", offerID, []string{models.OfferStatusSubmitted, models.OfferStatusPending}).
		Updates(updates)
	if result.Error != nil {
		metrics.OfferTransitions.WithLabelValues(toStatus, "error").Inc()
		return nil, fmt.Errorf("offer service: update status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var exists int64
		if err := s.db.WithContext(ctx).Model(&models.Offer{}).Where("id = ?", offerID).Count(&exists).Error; err != nil {
			return nil, fmt.Errorf("offer service: check offer: %w", err)
		}
		if exists == 0 {
			return nil, ErrOfferNotFound
		}
		metrics.OfferTransitions.WithLabelValues(toStatus, "invalid").Inc()
		return nil, ErrInvalidTransition
	}

	metrics.OfferTransitions.WithLabelValues(toStatus, "ok").Inc()
	s.auditLog(ctx, "", "offer."+toStatus, offerID, nil)

	return s.Get(ctx, offerID)
}

// Cancel lets the guest withdraw an offer that has not reached a terminal or
// confirmed state. Cancellation is a status, not a delete.
func (s *OfferService) Cancel(ctx context.Context, offerID, guestID string) (*models.Offer, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND guest_user_id = ? AND status IN ?", offerID, guestID,
			[]string{models.OfferStatusSubmitted, models.OfferStatusPending, models.OfferStatusCountered}).
		Update("status", models.OfferStatusCancelled)
	if result.Error != nil {
		return nil, fmt.Errorf("offer service: cancel offer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := s.db.WithContext(ctx).Model(&models.Offer{}).
			Where("id = ? AND guest_user_id = ?", offerID, guestID).Count(&exists).Error; err != nil {
			return nil, fmt.Errorf("offer service: check offer: %w", err)
		}
		if exists == 0 {
			return nil, ErrOfferNotFound
		}
		return nil, ErrInvalidTransition
	}

	metrics.OfferTransitions.WithLabelValues(models.OfferStatusCancelled, "ok").Inc()
	s.auditLog(ctx, guestID, "offer.cancel", offerID, nil)

	return s.Get(ctx, offerID)
}

// Get returns one offer with its property preloaded.
func (s *OfferService) Get(ctx context.Context, offerID string) (*models.Offer, error) {
	ctx = ensureContext(ctx)

	var offer models.Offer
	if err := s.db.WithContext(ctx).Preload("Property").First(&offer, "id = ?", offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("offer service: find offer: %w", err)
	}
	return &offer, nil
}

// ListForGuest returns the guest's offers, newest first.
func (s *OfferService) ListForGuest(ctx context.Context, guestID string) ([]models.Offer, error) {
	ctx = ensureContext(ctx)

	var offers []models.Offer
	err := s.db.WithContext(ctx).
		Where("guest_user_id = ?", guestID).
		Order("created_at DESC").
		Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("offer service: list guest offers: %w", err)
	}
	return offers, nil
}

// ListForBusiness returns offers against any of the business's properties.
func (s *OfferService) ListForBusiness(ctx context.Context, businessID string) ([]models.Offer, error) {
	ctx = ensureContext(ctx)

	var offers []models.Offer
	err := s.db.WithContext(ctx).
		Joins("JOIN properties ON properties.id = offers.property_id").
		Where("properties.business_id = ?", businessID).
		Order("offers.created_at DESC").
		Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("offer service: list business offers: %w", err)
	}
	return offers, nil
}

// ResolveResponseToken grants access to a single offer from an emailed link.
// Invalid and expired tokens are indistinguishable to the caller and the
// comparison itself is constant-time, so the endpoint leaks nothing about
// which check failed.
func (s *OfferService) ResolveResponseToken(ctx context.Context, offerID, token string) (*models.Offer, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrAccessDenied
	}

	var offer models.Offer
	if err := s.db.WithContext(ctx).Preload("Property").First(&offer, "id = ?", offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("offer service: find offer: %w", err)
	}

	stored := ""
	if offer.ResponseToken != nil {
		stored = *offer.ResponseToken
	}

	matches := crypto.TokenEqual(stored, token)
	expired := offer.ResponseTokenExpiresAt == nil || !offer.ResponseTokenExpiresAt.After(s.now())
	if stored == "" || !matches || expired {
		return nil, ErrAccessDenied
	}

	return &offer, nil
}

// CleanupExpiredResponseTokens nulls out response tokens past their expiry.
func (s *OfferService) CleanupExpiredResponseTokens(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("response_token IS NOT NULL AND response_token_expires_at < ?", s.now()).
		Updates(map[string]any{"response_token": nil, "response_token_expires_at": nil})
	if result.Error != nil {
		return 0, fmt.Errorf("offer service: cleanup response tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *OfferService) notifyBusiness(ctx context.Context, offer *models.Offer, property *models.Property, token string) {
	if s.mailer == nil || property.Business == nil || strings.TrimSpace(property.Business.ContactEmail) == "" {
		return
	}

	link := token
	if s.responseBaseURL != "" {
		link = fmt.Sprintf("%s/offers/%s/respond?token=%s", s.responseBaseURL, offer.ID, token)
	}

	nights := int(offer.CheckOutDate.Sub(offer.CheckInDate).Hours() / 24)
	body := fmt.Sprintf(
		"A guest has offered %.2f %s per night for %s (%s, %d nights from %s).\n\nRespond here:\n%s\n",
		offer.OfferAmount, offer.Currency, property.Name, property.City,
		nights, offer.CheckInDate.Format("2 Jan 2006"), link,
	)

	msg := mail.Message{
		To:      []string{property.Business.ContactEmail},
		Subject: fmt.Sprintf("New offer for %s", property.Name),
		Body:    body,
	}
	if err := s.mailer.Send(ctx, msg); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		s.log.Warn("offer notification email failed", zap.String("offer_id", offer.ID), zap.Error(err))
	}
}

func (s *OfferService) auditLog(ctx context.Context, userID, action, offerID string, metadata map[string]any) {
	if s.audit == nil {
		return
	}

	entry := AuditEntry{Action: action, Resource: offerID, Result: "success", Metadata: metadata}
	if strings.TrimSpace(userID) != "" {
		entry.UserID = &userID
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
