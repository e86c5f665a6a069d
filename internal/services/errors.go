package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel errors shared across the domain services. Handlers map these onto
// typed API error codes; nothing in the system matches on message text.
var (
	// ErrOfferNotFound indicates no offer matches the requested id.
	ErrOfferNotFound = errors.New("offer: not found")
	// ErrInvalidTransition signals a state machine precondition violation.
	ErrInvalidTransition = errors.New("offer: invalid status transition")
	// ErrAmountTooLow rejects offers below the platform floor.
	ErrAmountTooLow = errors.New("offer: amount too low")
	// ErrAmountTooHigh rejects offers above the platform ceiling.
	ErrAmountTooHigh = errors.New("offer: amount too high")
	// ErrOfferLimitReached enforces the per-city submission throttle.
	ErrOfferLimitReached = errors.New("offer: active offer limit reached for city")
	// ErrAccessDenied covers both invalid and expired response tokens.
	ErrAccessDenied = errors.New("offer: access denied")
	// ErrPaymentNotCompleted indicates the checkout session is not paid.
	ErrPaymentNotCompleted = errors.New("payment: not completed")
	// ErrSessionMismatch indicates the session belongs to a different offer.
	ErrSessionMismatch = errors.New("payment: session does not match offer")
	// ErrConversationNotFound indicates no conversation matches the id.
	ErrConversationNotFound = errors.New("conversation: not found")
	// ErrConversationLocked blocks messaging before payment confirmation.
	ErrConversationLocked = errors.New("conversation: locked until booking is confirmed")
	// ErrNotParticipant blocks messaging by outsiders.
	ErrNotParticipant = errors.New("conversation: user is not a participant")
	// ErrForbidden signals a failed privilege check.
	ErrForbidden = errors.New("services: forbidden")
)

// isUniqueConstraintError detects database uniqueness violations across
// vendors. The idempotent create steps rely on it to treat "already exists"
// as success.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "constraint")
}
