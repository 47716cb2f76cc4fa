package purchases_test

import (
	"testing"
	"time"

	"community-app/internal/domain/catalog"
	"community-app/internal/domain/purchases"
	"community-app/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePendingForProduct_SnapshotsTierPrice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	product := testutil.TestProduct(t, db)

	p, err := purchases.CreatePendingForProduct(db, user.ID, product, "1month", "stripe")
	require.NoError(t, err)

	assert.Equal(t, purchases.StatusPending, p.Status)
	assert.Equal(t, 9.99, p.Amount)
	assert.Equal(t, "eur", p.Currency)
	assert.Equal(t, "1month", p.Duration)
	assert.Equal(t, purchases.DefaultMaxDownloads, p.MaxDownloads)
	assert.NotEmpty(t, p.LicenseKey)
	assert.NotZero(t, p.ID)
}

func TestCreatePendingForProduct_BasePriceFallback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	product := testutil.TestProduct(t, db, testutil.WithoutTiers())

	p, err := purchases.CreatePendingForProduct(db, user.ID, product, "", "stripe")
	require.NoError(t, err)
	assert.Equal(t, product.BasePrice, p.Amount)
}

func TestCreatePendingForProduct_UnknownTier(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	product := testutil.TestProduct(t, db)

	_, err := purchases.CreatePendingForProduct(db, user.ID, product, "1decade", "stripe")
	assert.ErrorIs(t, err, catalog.ErrUnknownDuration)
}

func TestCreatePendingForProduct_InactiveProduct(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	product := testutil.TestProduct(t, db)
	require.NoError(t, db.Model(product).Update("active", false).Error)
	product.Active = false

	_, err := purchases.CreatePendingForProduct(db, user.ID, product, "1month", "stripe")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestMarkCompleted_TransitionAndReplay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	sw := testutil.TestSoftware(t, db)

	p, err := purchases.CreatePendingForSoftware(db, user.ID, sw, "stripe")
	require.NoError(t, err)

	completed, already, err := purchases.MarkCompleted(db, p.ID, "pi_123")
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, purchases.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.NotNil(t, completed.TransactionID)
	assert.Equal(t, "pi_123", *completed.TransactionID)

	// Replay must be a no-op, not a second completion.
	replayed, already, err := purchases.MarkCompleted(db, p.ID, "pi_456")
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, "pi_123", *replayed.TransactionID)
}

func TestMarkCompleted_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	_, _, err := purchases.MarkCompleted(db, 9999, "pi_123")
	assert.ErrorIs(t, err, purchases.ErrNotFound)
}

func TestStatusTransitions_NeverRevert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	sw := testutil.TestSoftware(t, db)

	p, err := purchases.CreatePendingForSoftware(db, user.ID, sw, "stripe")
	require.NoError(t, err)

	// Refund before completion is not a valid transition.
	err = purchases.MarkRefunded(db, p.ID, "too early")
	assert.ErrorIs(t, err, purchases.ErrInvalidTransition)

	_, _, err = purchases.MarkCompleted(db, p.ID, "pi_1")
	require.NoError(t, err)

	// Completed rows cannot fail or cancel.
	assert.ErrorIs(t, purchases.MarkFailed(db, p.ID, "late failure"), purchases.ErrInvalidTransition)
	assert.ErrorIs(t, purchases.MarkCancelled(db, p.ID, "late cancel"), purchases.ErrInvalidTransition)

	// Completed -> Refunded is the one allowed backward-looking move.
	require.NoError(t, purchases.MarkRefunded(db, p.ID, "chargeback"))

	got, err := purchases.GetByID(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, purchases.StatusRefunded, got.Status)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "chargeback", *got.Notes)
}

func TestMarkFailed_KeepsReasonInNotes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	sw := testutil.TestSoftware(t, db)

	p, err := purchases.CreatePendingForSoftware(db, user.ID, sw, "stripe")
	require.NoError(t, err)

	require.NoError(t, purchases.MarkFailed(db, p.ID, "card declined"))

	got, err := purchases.GetByID(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, purchases.StatusFailed, got.Status)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "card declined", *got.Notes)
}

func TestRecordDownload_CounterNeverExceedsMax(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	sw := testutil.TestSoftware(t, db)

	p, err := purchases.CreatePendingForSoftware(db, user.ID, sw, "tokens")
	require.NoError(t, err)
	_, _, err = purchases.MarkCompleted(db, p.ID, "tokens-1")
	require.NoError(t, err)

	for i := 0; i < purchases.DefaultMaxDownloads; i++ {
		require.NoError(t, purchases.RecordDownload(db, p.ID))
	}

	// The (N+1)-th redeem fails and the counter stays at the cap.
	assert.ErrorIs(t, purchases.RecordDownload(db, p.ID), purchases.ErrLimitExceeded)

	got, err := purchases.GetByID(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, got.MaxDownloads, got.DownloadCount)
	assert.NotNil(t, got.LastDownloadAt)
}

func TestRecordDownload_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	assert.ErrorIs(t, purchases.RecordDownload(db, 424242), purchases.ErrNotFound)
}

func TestCheckDownload_EvaluationOrder(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	// Status is checked first, regardless of counters or expiry.
	for _, status := range []string{
		purchases.StatusPending,
		purchases.StatusFailed,
		purchases.StatusRefunded,
		purchases.StatusCancelled,
	} {
		p := &purchases.Purchase{Status: status, DownloadCount: 99, MaxDownloads: 5, ExpiresAt: &past}
		assert.ErrorIs(t, purchases.CheckDownload(p), purchases.ErrNotCompleted, "status %s", status)
		assert.False(t, purchases.IsDownloadAllowed(p))
	}

	// Counter beats expiry.
	p := &purchases.Purchase{Status: purchases.StatusCompleted, DownloadCount: 5, MaxDownloads: 5, ExpiresAt: &past}
	assert.ErrorIs(t, purchases.CheckDownload(p), purchases.ErrLimitExceeded)

	// Expiry last.
	p = &purchases.Purchase{Status: purchases.StatusCompleted, DownloadCount: 0, MaxDownloads: 5, ExpiresAt: &past}
	assert.ErrorIs(t, purchases.CheckDownload(p), purchases.ErrExpired)

	// Happy path.
	p = &purchases.Purchase{Status: purchases.StatusCompleted, DownloadCount: 4, MaxDownloads: 5, ExpiresAt: &future}
	assert.NoError(t, purchases.CheckDownload(p))
	assert.True(t, purchases.IsDownloadAllowed(p))

	// Nil expiry never lapses.
	p = &purchases.Purchase{Status: purchases.StatusCompleted, DownloadCount: 0, MaxDownloads: 5}
	assert.True(t, purchases.IsDownloadAllowed(p))
}

func TestHasCompletedForSoftware(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	sw := testutil.TestSoftware(t, db)

	p, err := purchases.CreatePendingForSoftware(db, user.ID, sw, "stripe")
	require.NoError(t, err)

	// Pending does not count as ownership.
	owned, err := purchases.HasCompletedForSoftware(db, user.ID, sw.ID)
	require.NoError(t, err)
	assert.False(t, owned)

	_, _, err = purchases.MarkCompleted(db, p.ID, "pi_1")
	require.NoError(t, err)

	owned, err = purchases.HasCompletedForSoftware(db, user.ID, sw.ID)
	require.NoError(t, err)
	assert.True(t, owned)
}
