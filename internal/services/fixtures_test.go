package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/carlfalc/offer-direct-stays/internal/models"
)

func createTestUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()

	user := models.User{
		Email:    role + "-" + time.Now().Format("150405.000000000") + "@example.test",
		Password: "hashed",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestBusiness(t *testing.T, db *gorm.DB, country, collection string) (*models.Business, *models.User) {
	t.Helper()

	owner := createTestUser(t, db, models.RoleBusiness)
	business := models.Business{
		Name:                    "Harbourview Lodge",
		OwnerUserID:             owner.ID,
		ContactEmail:            "stay@harbourview.test",
		Country:                 country,
		PaymentCollectionMethod: collection,
	}
	require.NoError(t, db.Create(&business).Error)

	require.NoError(t, db.Model(owner).Update("business_id", business.ID).Error)
	owner.BusinessID = &business.ID
	return &business, owner
}

func createTestProperty(t *testing.T, db *gorm.DB, business *models.Business, city string) *models.Property {
	t.Helper()

	currency := "NZD"
	if business.Country == "AU" {
		currency = "AUD"
	}
	property := models.Property{
		BusinessID: business.ID,
		Name:       "Harbourview Lodge " + city,
		City:       city,
		Country:    business.Country,
		Currency:   currency,
	}
	require.NoError(t, db.Create(&property).Error)
	return &property
}

func createTestOffer(t *testing.T, db *gorm.DB, guest *models.User, property *models.Property, status string) *models.Offer {
	t.Helper()

	checkIn := time.Now().AddDate(0, 0, 14).Truncate(24 * time.Hour)
	offer := models.Offer{
		GuestUserID:      guest.ID,
		PropertyID:       property.ID,
		City:             property.City,
		OfferAmount:      120,
		Currency:         property.Currency,
		Status:           status,
		Adults:           2,
		CheckInDate:      checkIn,
		CheckOutDate:     checkIn.AddDate(0, 0, 3),
		BCFPaymentStatus: models.BCFPaymentPending,
		FeePaymentStatus: models.BCFPaymentPending,
	}
	require.NoError(t, db.Create(&offer).Error)
	return &offer
}
