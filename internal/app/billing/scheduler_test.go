package billing

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	testutil "github.com/carlfalc/offer-direct-stays/internal/database/testutil"
	"github.com/carlfalc/offer-direct-stays/internal/models"
	"github.com/carlfalc/offer-direct-stays/internal/services"
)

type fakeJanitor struct {
	calls int
}

func (j *fakeJanitor) CleanupExpired(context.Context) (int64, error) {
	j.calls++
	return 0, nil
}

func TestSchedulerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	clock := fixedClock{current: time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)}

	invoiceSvc, err := services.NewInvoiceService(db, services.WithInvoiceClock(clock.Now))
	require.NoError(t, err)
	offerSvc, err := services.NewOfferService(db, services.WithOfferClock(clock.Now))
	require.NoError(t, err)
	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	business := seedBusiness(t, db)

	guest := models.User{Email: "guest@billing.local", Password: "x", Role: models.RoleGuest, IsActive: true}
	require.NoError(t, db.Create(&guest).Error)

	property := models.Property{
		BusinessID: business.ID,
		Name:       "Billing Test Lodge",
		City:       "Queenstown",
		Country:    "NZ",
		Currency:   "NZD",
	}
	require.NoError(t, db.Create(&property).Error)

	// Offer whose response token expired before the run.
	expiredToken := "expired-token"
	expiredAt := clock.Now().Add(-time.Hour)
	offer := models.Offer{
		PropertyID:             property.ID,
		GuestUserID:            guest.ID,
		City:                   property.City,
		Status:                 models.OfferStatusDeclined,
		OfferAmount:            100,
		Currency:               "NZD",
		Adults:                 2,
		CheckInDate:            clock.Now().AddDate(0, 0, 7),
		CheckOutDate:           clock.Now().AddDate(0, 0, 9),
		ResponseToken:          &expiredToken,
		ResponseTokenExpiresAt: &expiredAt,
	}
	require.NoError(t, db.Create(&offer).Error)

	// Billable event inside May 2026, the period the June run invoices.
	require.NoError(t, db.Create(&models.BillableEvent{
		BusinessID:         business.ID,
		OfferID:            offer.ID,
		PropertyID:         property.ID,
		BookingConfirmedAt: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
		AdminFeeAmount:     8.99,
		Currency:           "NZD",
	}).Error)

	// Audit entry older than the retention window.
	require.NoError(t, auditSvc.Log(context.Background(), services.AuditEntry{
		Action: "test.action",
		Result: "success",
	}))
	var auditLog models.AuditLog
	require.NoError(t, db.First(&auditLog).Error)
	require.NoError(t, db.Model(&auditLog).
		Update("created_at", clock.Now().AddDate(0, 0, -10)).Error)

	janitor := &fakeJanitor{}
	s := NewScheduler(invoiceSvc, offerSvc, auditSvc,
		WithNow(clock.Now),
		WithAuditRetentionDays(7),
		WithCacheJanitor(janitor),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	require.NoError(t, s.RunOnce(context.Background()))

	var invoice models.Invoice
	require.NoError(t, db.Where("business_id = ?", business.ID).First(&invoice).Error)
	require.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), invoice.PeriodStart)
	require.InDelta(t, 8.99, invoice.TotalAmount, 0.001)

	var cleared models.Offer
	require.NoError(t, db.First(&cleared, "id = ?", offer.ID).Error)
	require.Nil(t, cleared.ResponseToken)

	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.Equal(t, int64(0), auditCount)

	require.Equal(t, 1, janitor.calls)
}

func TestSchedulerRunOnceSkipsNilDependencies(t *testing.T) {
	s := NewScheduler(nil, nil, nil,
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)
	require.NoError(t, s.RunOnce(context.Background()))
}

func TestSchedulerStartRegistersJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	invoiceSvc, err := services.NewInvoiceService(db)
	require.NoError(t, err)
	offerSvc, err := services.NewOfferService(db)
	require.NoError(t, err)
	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	c := cron.New(cron.WithLogger(cron.DiscardLogger))
	s := NewScheduler(invoiceSvc, offerSvc, auditSvc,
		WithCron(c),
		WithCacheJanitor(&fakeJanitor{}),
		WithInvoiceSchedule("0 3 1 * *"),
	)

	require.NoError(t, s.Start())
	defer s.Stop()

	require.Len(t, c.Entries(), 4)
}

func TestSchedulerStartRejectsBadSchedule(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	invoiceSvc, err := services.NewInvoiceService(db)
	require.NoError(t, err)

	s := NewScheduler(invoiceSvc, nil, nil,
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
		WithInvoiceSchedule("not a schedule"),
	)
	require.Error(t, s.Start())
}

func seedBusiness(t *testing.T, db *gorm.DB) *models.Business {
	t.Helper()

	owner := models.User{Email: "owner@billing.local", Password: "x", Role: models.RoleBusiness, IsActive: true}
	require.NoError(t, db.Create(&owner).Error)

	business := models.Business{
		Name:                    "Billing Test Stays",
		OwnerUserID:             owner.ID,
		ContactEmail:            "billing@test.local",
		Country:                 "NZ",
		PaymentCollectionMethod: models.CollectBusinessInvoice,
	}
	require.NoError(t, db.Create(&business).Error)
	return &business
}

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}
