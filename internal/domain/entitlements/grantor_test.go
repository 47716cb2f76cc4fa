package entitlements_test

import (
	"testing"
	"time"

	"community-app/internal/domain/entitlements"
	"community-app/internal/domain/purchases"
	"community-app/internal/domain/roles"
	"community-app/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func proRole(t *testing.T, db *gorm.DB) roles.Role {
	t.Helper()
	var role roles.Role
	require.NoError(t, db.Where("name = ?", "pro").First(&role).Error)
	return role
}

func TestGrant_TimeBounded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	role := proRole(t, db)

	e, err := entitlements.Grant(db, user.ID, role.ID, 30, nil)
	require.NoError(t, err)

	require.NotNil(t, e.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *e.ExpiresAt, time.Minute)
	assert.True(t, e.Active(time.Now()))
	assert.False(t, e.Active(time.Now().AddDate(0, 0, 31)))
}

func TestGrant_PermanentWhenNoDuration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	role := proRole(t, db)

	e, err := entitlements.Grant(db, user.ID, role.ID, 0, nil)
	require.NoError(t, err)
	assert.Nil(t, e.ExpiresAt)
	assert.True(t, e.Active(time.Now().AddDate(10, 0, 0)))
}

func TestGrant_PropagatesExpiryToPurchase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	sw := testutil.TestSoftware(t, db)
	role := proRole(t, db)

	p, err := purchases.CreatePendingForSoftware(db, user.ID, sw, "stripe")
	require.NoError(t, err)
	_, _, err = purchases.MarkCompleted(db, p.ID, "pi_1")
	require.NoError(t, err)

	e, err := entitlements.Grant(db, user.ID, role.ID, 30, &p.ID)
	require.NoError(t, err)

	got, err := purchases.GetByID(db, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, *e.ExpiresAt, *got.ExpiresAt, time.Second)
}

func TestGrant_StacksInsteadOfReplacing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	role := proRole(t, db)

	_, err := entitlements.Grant(db, user.ID, role.ID, 30, nil)
	require.NoError(t, err)
	_, err = entitlements.Grant(db, user.ID, role.ID, 60, nil)
	require.NoError(t, err)

	active, err := entitlements.ActiveForUser(db, user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestHasActiveRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	role := proRole(t, db)

	ok, err := entitlements.HasActiveRole(db, user.ID, "pro")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = entitlements.Grant(db, user.ID, role.ID, 30, nil)
	require.NoError(t, err)

	ok, err = entitlements.HasActiveRole(db, user.ID, "pro")
	require.NoError(t, err)
	assert.True(t, ok)

	// An expired assignment is the same as none.
	expired := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&entitlements.Entitlement{}).
		Where("user_id = ?", user.ID).
		Update("expires_at", expired).Error)

	ok, err = entitlements.HasActiveRole(db, user.ID, "pro")
	require.NoError(t, err)
	assert.False(t, ok)
}
