package models

// User roles understood by the API.
const (
	RoleGuest    = "guest"
	RoleBusiness = "business"
	RoleAdmin    = "admin"
)

// User represents an account able to authenticate against the API: a guest
// making offers, a business member responding to them, or a platform admin.
type User struct {
	BaseModel

	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `gorm:"not null;default:guest;index" json:"role"`

	// BusinessID links business members to the business they act for.
	BusinessID *string `gorm:"type:uuid;index" json:"business_id,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
