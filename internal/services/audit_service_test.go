package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carlfalc/offer-direct-stays/internal/database/testutil"
	"github.com/carlfalc/offer-direct-stays/internal/models"
)

func TestAuditLogAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	user := createTestUser(t, db, models.RoleGuest)

	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		UserID:   &user.ID,
		Action:   "offer.submit",
		Resource: "offer-1",
		Result:   "success",
		Metadata: map[string]any{"amount": 120.0},
	}))
	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		Action:   "offer.accepted",
		Resource: "offer-1",
		Result:   "success",
	}))
	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		Action:   "offer.submit",
		Resource: "offer-2",
		Result:   "success",
	}))

	entries, err := svc.List(context.Background(), "offer-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	all, err := svc.List(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestAuditLogValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: "success"}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "offer.submit"}))
}

func TestAuditCleanup(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		Action: "offer.submit", Resource: "offer-1", Result: "success",
	}))

	old := models.AuditLog{Action: "offer.submit", Resource: "offer-0", Result: "success"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&old).Update("created_at", time.Now().AddDate(0, 0, -120)).Error)

	removed, err := svc.CleanupOlderThan(context.Background(), 90)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	remaining, err := svc.List(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}
