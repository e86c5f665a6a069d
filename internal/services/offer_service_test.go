package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carlfalc/offer-direct-stays/internal/database/testutil"
	"github.com/carlfalc/offer-direct-stays/internal/models"
)

func TestAllowOfferSubmission(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("allows under the limit", func(t *testing.T) {
		created := []time.Time{
			now.Add(-10 * time.Minute),
			now.Add(-30 * time.Minute),
			now.Add(-90 * time.Minute),
			now.Add(-119 * time.Minute),
		}
		require.True(t, AllowOfferSubmission(created, now))
	})

	t.Run("blocks at the limit", func(t *testing.T) {
		created := make([]time.Time, 5)
		for i := range created {
			created[i] = now.Add(-time.Duration(i+1) * time.Minute)
		}
		require.False(t, AllowOfferSubmission(created, now))
	})

	t.Run("offers outside the window do not count", func(t *testing.T) {
		created := []time.Time{
			now.Add(-3 * time.Hour),
			now.Add(-4 * time.Hour),
			now.Add(-5 * time.Hour),
			now.Add(-121 * time.Minute),
			now.Add(-10 * time.Minute),
		}
		require.True(t, AllowOfferSubmission(created, now))
	})

	t.Run("empty history allows", func(t *testing.T) {
		require.True(t, AllowOfferSubmission(nil, now))
	})
}

func TestValidateOfferAmount(t *testing.T) {
	require.ErrorIs(t, ValidateOfferAmount(19.99), ErrAmountTooLow)
	require.ErrorIs(t, ValidateOfferAmount(5000.01), ErrAmountTooHigh)
	require.NoError(t, ValidateOfferAmount(20))
	require.NoError(t, ValidateOfferAmount(5000))
	require.NoError(t, ValidateOfferAmount(149.50))
}

func TestOfferSubmit(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	business, _ := createTestBusiness(t, db, "NZ", models.CollectGuestAdminFee)
	property := createTestProperty(t, db, business, "Queenstown")
	guest := createTestUser(t, db, models.RoleGuest)

	svc, err := NewOfferService(db)
	require.NoError(t, err)

	checkIn := time.Now().AddDate(0, 0, 7)
	offer, err := svc.Submit(context.Background(), SubmitOfferParams{
		GuestUserID:  guest.ID,
		PropertyID:   property.ID,
		OfferAmount:  135,
		Adults:       2,
		CheckInDate:  checkIn,
		CheckOutDate: checkIn.AddDate(0, 0, 2),
	})
	require.NoError(t, err)
	require.Equal(t, models.OfferStatusSubmitted, offer.Status)
	require.Equal(t, "Queenstown", offer.City)
	require.Equal(t, "NZD", offer.Currency)
	require.NotNil(t, offer.ResponseToken)
	require.NotEmpty(t, *offer.ResponseToken)
	require.NotNil(t, offer.ResponseTokenExpiresAt)
	require.True(t, offer.ResponseTokenExpiresAt.After(time.Now()))
}

func TestOfferSubmitValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	business, _ := createTestBusiness(t, db, "NZ", models.CollectGuestAdminFee)
	property := createTestProperty(t, db, business, "Auckland")
	guest := createTestUser(t, db, models.RoleGuest)

	svc, err := NewOfferService(db)
	require.NoError(t, err)

	checkIn := time.Now().AddDate(0, 0, 7)
	base := SubmitOfferParams{
		GuestUserID:  guest.ID,
		PropertyID:   property.ID,
		OfferAmount:  135,
		Adults:       2,
		CheckInDate:  checkIn,
		CheckOutDate: checkIn.AddDate(0, 0, 2),
	}

	low := base
	low.OfferAmount = 5
	_, err = svc.Submit(context.Background(), low)
	require.ErrorIs(t, err, ErrAmountTooLow)

	high := base
	high.OfferAmount = 9000
	_, err = svc.Submit(context.Background(), high)
	require.ErrorIs(t, err, ErrAmountTooHigh)

	noAdults := base
	noAdults.Adults = 0
	_, err = svc.Submit(context.Background(), noAdults)
	require.Error(t, err)

	badDates := base
	badDates.CheckOutDate = badDates.CheckInDate
	_, err = svc.Submit(context.Background(), badDates)
	require.Error(t, err)
}

func TestOfferSubmitThrottle(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	business, _ := createTestBusiness(t, db, "NZ", models.CollectGuestAdminFee)
	property := createTestProperty(t, db, business, "Wellington")
	otherCity := createTestProperty(t, db, business, "Dunedin")
	guest := createTestUser(t, db, models.RoleGuest)

	svc, err := NewOfferService(db)
	require.NoError(t, err)

	checkIn := time.Now().AddDate(0, 0, 7)
	params := SubmitOfferParams{
		GuestUserID:  guest.ID,
		PropertyID:   property.ID,
		OfferAmount:  135,
		Adults:       2,
		CheckInDate:  checkIn,
		CheckOutDate: checkIn.AddDate(0, 0, 2),
	}

	for i := 0; i < 5; i++ {
		_, err := svc.Submit(context.Background(), params)
		require.NoError(t, err)
	}

	_, err = svc.Submit(context.Background(), params)
	require.ErrorIs(t, err, ErrOfferLimitReached)

	// A different city has its own budget.
	elsewhere := params
	elsewhere.PropertyID = otherCity.ID
	_, err = svc.Submit(context.Background(), elsewhere)
	require.NoError(t, err)

	// Declining an offer frees a slot.
	var oldest models.Offer
	require.NoError(t, db.Where("city = ?", "Wellington").Order("created_at ASC").First(&oldest).Error)
	_, err = svc.Decline(context.Background(), oldest.ID)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), params)
	require.NoError(t, err)
}

func TestOfferResponses(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	business, _ := createTestBusiness(t, db, "NZ", models.CollectGuestAdminFee)
	property := createTestProperty(t, db, business, "Rotorua")
	guest := createTestUser(t, db, models.RoleGuest)

	svc, err := NewOfferService(db)
	require.NoError(t, err)

	t.Run("accept", func(t *testing.T) {
		offer := createTestOffer(t, db, guest, property, models.OfferStatusSubmitted)
		updated, err := svc.Accept(context.Background(), offer.ID)
		require.NoError(t, err)
		require.Equal(t, models.OfferStatusAccepted, updated.Status)
	})

	t.Run("counter records the price", func(t *testing.T) {
		offer := createTestOffer(t, db, guest, property, models.OfferStatusSubmitted)
		updated, err := svc.Counter(context.Background(), offer.ID, 155)
		require.NoError(t, err)
		require.Equal(t, models.OfferStatusCountered, updated.Status)
		require.NotNil(t, updated.CounterAmount)
		require.Equal(t, 155.0, *updated.CounterAmount)
	})

	t.Run("decline is terminal", func(t *testing.T) {
		offer := createTestOffer(t, db, guest, property, models.OfferStatusSubmitted)
		updated, err := svc.Decline(context.Background(), offer.ID)
		require.NoError(t, err)
		require.Equal(t, models.OfferStatusDeclined, updated.Status)

		_, err = svc.Accept(context.Background(), offer.ID)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("legacy pending status responds like submitted", func(t *testing.T) {
		offer := createTestOffer(t, db, guest, property, models.OfferStatusPending)
		updated, err := svc.Accept(context.Background(), offer.ID)
		require.NoError(t, err)
		require.Equal(t, models.OfferStatusAccepted, updated.Status)
	})

	t.Run("responding twice fails", func(t *testing.T) {
		offer := createTestOffer(t, db, guest, property, models.OfferStatusSubmitted)
		_, err := svc.Accept(context.Background(), offer.ID)
		require.NoError(t, err)
		_, err = svc.Decline(context.Background(), offer.ID)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown offer", func(t *testing.T) {
		_, err := svc.Accept(context.Background(), "00000000-0000-0000-0000-00000000dead")
		require.ErrorIs(t, err, ErrOfferNotFound)
	})
}

func TestOfferCancel(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	business, _ := createTestBusiness(t, db, "NZ", models.CollectGuestAdminFee)
	property := createTestProperty(t, db, business, "Napier")
	guest := createTestUser(t, db, models.RoleGuest)
	stranger := createTestUser(t, db, models.RoleGuest)

	svc, err := NewOfferService(db)
	require.NoError(t, err)

	offer := createTestOffer(t, db, guest, property, models.OfferStatusSubmitted)

	_, err = svc.Cancel(context.Background(), offer.ID, stranger.ID)
	require.ErrorIs(t, err, ErrOfferNotFound)

	updated, err := svc.Cancel(context.Background(), offer.ID, guest.ID)
	require.NoError(t, err)
	require.Equal(t, models.OfferStatusCancelled, updated.Status)

	// Countered offers remain cancellable, confirmed ones do not.
	countered := createTestOffer(t, db, guest, property, models.OfferStatusCountered)
	_, err = svc.Cancel(context.Background(), countered.ID, guest.ID)
	require.NoError(t, err)

	confirmed := createTestOffer(t, db, guest, property, models.OfferStatusConfirmed)
	_, err = svc.Cancel(context.Background(), confirmed.ID, guest.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestResolveResponseToken(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	business, _ := createTestBusiness(t, db, "NZ", models.CollectGuestAdminFee)
	property := createTestProperty(t, db, business, "Hamilton")
	guest := createTestUser(t, db, models.RoleGuest)

	now := time.Now()
	svc, err := NewOfferService(db, WithOfferClock(func() time.Time { return now }))
	require.NoError(t, err)

	offer := createTestOffer(t, db, guest, property, models.OfferStatusSubmitted)
	token := "valid-response-token"
	expiry := now.Add(time.Hour)
	require.NoError(t, db.Model(offer).Updates(map[string]any{
		"response_token":            token,
		"response_token_expires_at": expiry,
	}).Error)

	resolved, err := svc.ResolveResponseToken(context.Background(), offer.ID, token)
	require.NoError(t, err)
	require.Equal(t, offer.ID, resolved.ID)

	t.Run("wrong token, missing offer and expired token are indistinguishable", func(t *testing.T) {
		_, err := svc.ResolveResponseToken(context.Background(), offer.ID, "wrong-token")
		require.ErrorIs(t, err, ErrAccessDenied)

		_, err = svc.ResolveResponseToken(context.Background(), "00000000-0000-0000-0000-00000000dead", token)
		require.ErrorIs(t, err, ErrAccessDenied)

		require.NoError(t, db.Model(offer).Update("response_token_expires_at", now.Add(-time.Minute)).Error)
		_, err = svc.ResolveResponseToken(context.Background(), offer.ID, token)
		require.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("empty token denied", func(t *testing.T) {
		_, err := svc.ResolveResponseToken(context.Background(), offer.ID, "")
		require.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestCleanupExpiredResponseTokens(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	business, _ := createTestBusiness(t, db, "NZ", models.CollectGuestAdminFee)
	property := createTestProperty(t, db, business, "Tauranga")
	guest := createTestUser(t, db, models.RoleGuest)

	now := time.Now()
	svc, err := NewOfferService(db, WithOfferClock(func() time.Time { return now }))
	require.NoError(t, err)

	expired := createTestOffer(t, db, guest, property, models.OfferStatusSubmitted)
	require.NoError(t, db.Model(expired).Updates(map[string]any{
		"response_token":            "stale",
		"response_token_expires_at": now.Add(-time.Hour),
	}).Error)

	fresh := createTestOffer(t, db, guest, property, models.OfferStatusSubmitted)
	require.NoError(t, db.Model(fresh).Updates(map[string]any{
		"response_token":            "fresh",
		"response_token_expires_at": now.Add(time.Hour),
	}).Error)

	removed, err := svc.CleanupExpiredResponseTokens(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var cleared models.Offer
	require.NoError(t, db.First(&cleared, "id = ?", expired.ID).Error)
	require.Nil(t, cleared.ResponseToken)

	var kept models.Offer
	require.NoError(t, db.First(&kept, "id = ?", fresh.ID).Error)
	require.NotNil(t, kept.ResponseToken)
}

func TestListOffers(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	business, _ := createTestBusiness(t, db, "NZ", models.CollectGuestAdminFee)
	property := createTestProperty(t, db, business, "Nelson")
	guest := createTestUser(t, db, models.RoleGuest)
	other := createTestUser(t, db, models.RoleGuest)

	svc, err := NewOfferService(db)
	require.NoError(t, err)

	createTestOffer(t, db, guest, property, models.OfferStatusSubmitted)
	createTestOffer(t, db, guest, property, models.OfferStatusAccepted)
	createTestOffer(t, db, other, property, models.OfferStatusSubmitted)

	mine, err := svc.ListForGuest(context.Background(), guest.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	all, err := svc.ListForBusiness(context.Background(), business.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
}
