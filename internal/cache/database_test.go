package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carlfalc/offer-direct-stays/internal/database/testutil"
)

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := NewDatabaseStore(db)

	count, ttl, err := store.IncrementWithTTL(context.Background(), "throttle:guest-1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, ttl, time.Duration(0))

	count, _, err = store.IncrementWithTTL(context.Background(), "throttle:guest-1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	// Independent keys count separately.
	count, _, err = store.IncrementWithTTL(context.Background(), "throttle:guest-2", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestDatabaseStoreIncrementResetsAfterExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := NewDatabaseStore(db)

	_, _, err := store.IncrementWithTTL(context.Background(), "throttle:stale", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	count, _, err := store.IncrementWithTTL(context.Background(), "throttle:stale", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := NewDatabaseStore(db)

	require.NoError(t, store.Set(context.Background(), "session:abc", []byte("payload"), time.Minute))

	value, found, err := store.Get(context.Background(), "session:abc")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("payload"), value)

	// Overwrite keeps a single row.
	require.NoError(t, store.Set(context.Background(), "session:abc", []byte("updated"), time.Minute))
	value, found, err = store.Get(context.Background(), "session:abc")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("updated"), value)

	require.NoError(t, store.Delete(context.Background(), "session:abc"))
	_, found, err = store.Get(context.Background(), "session:abc")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreGetExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := NewDatabaseStore(db)

	require.NoError(t, store.Set(context.Background(), "short", []byte("gone"), 5*time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	_, found, err := store.Get(context.Background(), "short")
	require.NoError(t, err)
	require.False(t, found)
}
