package database

import (
	"gorm.io/gorm"

	"github.com/carlfalc/offer-direct-stays/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Business{},
		&models.Property{},
		&models.Room{},
		&models.Offer{},
		&models.Conversation{},
		&models.Message{},
		&models.BillableEvent{},
		&models.Invoice{},
		&models.InvoiceLineItem{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}

// SeedData inserts the fixed records a fresh deployment expects.
func SeedData(db *gorm.DB) error {
	admin := models.User{
		BaseModel: models.BaseModel{ID: "00000000-0000-0000-0000-000000000001"},
		Email:     "admin@offerdirectstays.local",
		Password:  "!locked", // no usable password until an operator resets it
		FirstName: "Platform",
		LastName:  "Admin",
		Role:      models.RoleAdmin,
	}

	result := db.Where(models.User{Email: admin.Email}).
		Attrs(admin).
		FirstOrCreate(&admin)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Already seeded; an operator may have activated the account since.
		return nil
	}

	// Deactivation is a separate update: on Create the zero-value bool is
	// dropped in favour of the column's default:true.
	return db.Model(&admin).Update("is_active", false).Error
}
