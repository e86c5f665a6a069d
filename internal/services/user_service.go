package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/carlfalc/offer-direct-stays/internal/models"
	"github.com/carlfalc/offer-direct-stays/pkg/crypto"
)

// User service sentinels.
var (
	ErrUserNotFound       = errors.New("user: not found")
	ErrEmailTaken         = errors.New("user: email already registered")
	ErrInvalidCredentials = errors.New("user: invalid credentials")
	ErrUserInactive       = errors.New("user: account disabled")
)

// UserService manages account registration and credential checks.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// RegisterParams carries a new account's details.
type RegisterParams struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Role       string
	BusinessID *string
}

// Register creates a new active account with a hashed password.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return nil, errors.New("user service: email is required")
	}
	if len(params.Password) < 8 {
		return nil, errors.New("user service: password must be at least 8 characters")
	}

	role := params.Role
	switch role {
	case models.RoleGuest, models.RoleBusiness:
	case "":
		role = models.RoleGuest
	default:
		// Admin accounts are seeded or promoted by operators, never
		// self-registered.
		return nil, errors.New("user service: unsupported role")
	}

	hashed, err := crypto.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := models.User{
		Email:      email,
		Password:   hashed,
		FirstName:  strings.TrimSpace(params.FirstName),
		LastName:   strings.TrimSpace(params.LastName),
		Role:       role,
		BusinessID: params.BusinessID,
		IsActive:   true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}
	return &user, nil
}

// Authenticate checks a credential pair and returns the matching active user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user service: find user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return &user, nil
}

// Get returns one user by id.
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: find user: %w", err)
	}
	return &user, nil
}
