package stripewebhooks_test

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"community-app/database"
	stripewebhooks "community-app/internal/api/stripewebhook"
	"community-app/internal/domain/catalog"
	"community-app/internal/domain/entitlements"
	"community-app/internal/domain/notifications"
	"community-app/internal/domain/purchases"
	"community-app/internal/domain/roles"
	"community-app/internal/domain/users"
	"community-app/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75/webhook"
	"gorm.io/gorm"
)

const testSecret = "whsec_test_secret"

func setupWebhookRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("STRIPE_WEBHOOK_SECRET", testSecret)

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	database.DB = db

	r := gin.New()
	r.POST("/stripe/webhook", stripewebhooks.StripeWebhook)
	return r, db
}

func deliver(r *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sign(payload []byte) string {
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, payload, testSecret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}

func completedEvent(eventID string, purchaseID uint, sessionID, paymentIntentID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": %q,
				"object": "checkout.session",
				"client_reference_id": "%d",
				"metadata": {"purchase_id": "%d"},
				"payment_intent": %q
			}
		}
	}`, eventID, sessionID, purchaseID, purchaseID, paymentIntentID))
}

func failedEvent(eventID, paymentIntentID, message string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "payment_intent.payment_failed",
		"data": {
			"object": {
				"id": %q,
				"object": "payment_intent",
				"last_payment_error": {"message": %q}
			}
		}
	}`, eventID, paymentIntentID, message))
}

// pendingProPurchase creates a pro-tool style purchase awaiting its webhook:
// role-granting product, "1month" tier at 100.00, session ids stored.
func pendingProPurchase(t *testing.T, db *gorm.DB, user *users.User) *purchases.Purchase {
	t.Helper()

	var role roles.Role
	require.NoError(t, db.Where("name = ?", "pro").First(&role).Error)

	product := &catalog.Product{
		Slug:        fmt.Sprintf("pro-tool-%d", time.Now().UnixNano()),
		Title:       "Pro Tool",
		BasePrice:   250,
		Currency:    "eur",
		RoleID:      &role.ID,
		DownloadURL: "https://downloads.example.com/pro-tool.zip",
		Active:      true,
		DurationTiers: []catalog.DurationTier{
			{Duration: "1month", Days: 30, Price: 100},
		},
	}
	require.NoError(t, db.Create(product).Error)

	p, err := purchases.CreatePendingForProduct(db, user.ID, product, "1month", "stripe")
	require.NoError(t, err)

	require.NoError(t, db.Model(&purchases.Purchase{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"stripe_session_id":        fmt.Sprintf("cs_%d", p.ID),
		"stripe_payment_intent_id": fmt.Sprintf("pi_%d", p.ID),
	}).Error)

	return p
}

func TestWebhook_InvalidSignatureRejected(t *testing.T) {
	r, db := setupWebhookRouter(t)
	user := testutil.TestUser(t, db)
	p := pendingProPurchase(t, db, user)

	payload := completedEvent("evt_bad", p.ID, fmt.Sprintf("cs_%d", p.ID), fmt.Sprintf("pi_%d", p.ID))
	w := deliver(r, payload, "t=123,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No ledger mutation happened.
	got, err := purchases.GetByID(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, purchases.StatusPending, got.Status)

	var count int64
	require.NoError(t, db.Model(&entitlements.Entitlement{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWebhook_CheckoutCompleted(t *testing.T) {
	r, db := setupWebhookRouter(t)
	user := testutil.TestUser(t, db)
	p := pendingProPurchase(t, db, user)

	payload := completedEvent("evt_1", p.ID, fmt.Sprintf("cs_%d", p.ID), fmt.Sprintf("pi_%d", p.ID))
	w := deliver(r, payload, sign(payload))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"received":true`)

	got, err := purchases.GetByID(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, purchases.StatusCompleted, got.Status)
	require.NotNil(t, got.TransactionID)
	assert.Equal(t, fmt.Sprintf("pi_%d", p.ID), *got.TransactionID)
	require.NotNil(t, got.CompletedAt)

	// Exactly one entitlement, expiring with the 30-day tier, and the expiry
	// propagated back onto the purchase.
	var ents []entitlements.Entitlement
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&ents).Error)
	require.Len(t, ents, 1)
	require.NotNil(t, ents[0].ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *ents[0].ExpiresAt, time.Minute)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, *ents[0].ExpiresAt, *got.ExpiresAt, time.Second)

	// 5% of 100.00 came back as tokens.
	var u users.User
	require.NoError(t, db.First(&u, user.ID).Error)
	assert.Equal(t, 5, u.TokenBalance)

	pending, err := notifications.PendingForUser(db, user.ID)
	require.NoError(t, err)
	kinds := make([]string, 0, len(pending))
	for _, n := range pending {
		kinds = append(kinds, n.Kind)
	}
	assert.ElementsMatch(t, []string{notifications.KindPurchase, notifications.KindTokenReward}, kinds)
}

func TestWebhook_ReplayedEventGrantsOnce(t *testing.T) {
	r, db := setupWebhookRouter(t)
	user := testutil.TestUser(t, db)
	p := pendingProPurchase(t, db, user)

	payload := completedEvent("evt_replay", p.ID, fmt.Sprintf("cs_%d", p.ID), fmt.Sprintf("pi_%d", p.ID))

	w := deliver(r, payload, sign(payload))
	require.Equal(t, http.StatusOK, w.Code)

	// Same event id redelivered: acknowledged, deduplicated.
	w = deliver(r, payload, sign(payload))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"received":true`)

	// Same session under a fresh event id: the status guard catches it.
	payload2 := completedEvent("evt_replay_2", p.ID, fmt.Sprintf("cs_%d", p.ID), fmt.Sprintf("pi_%d", p.ID))
	w = deliver(r, payload2, sign(payload2))
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, db.Model(&entitlements.Entitlement{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var u users.User
	require.NoError(t, db.First(&u, user.ID).Error)
	assert.Equal(t, 5, u.TokenBalance)
}

func TestWebhook_UnknownPurchaseAcknowledged(t *testing.T) {
	r, _ := setupWebhookRouter(t)

	payload := completedEvent("evt_missing", 987654, "cs_missing", "pi_missing")
	w := deliver(r, payload, sign(payload))

	// Best-effort handler: the event is acknowledged even though nothing
	// could be settled.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"received":true`)
}

func TestWebhook_PaymentFailed(t *testing.T) {
	r, db := setupWebhookRouter(t)
	user := testutil.TestUser(t, db)
	p := pendingProPurchase(t, db, user)

	payload := failedEvent("evt_fail", fmt.Sprintf("pi_%d", p.ID), "Your card was declined.")
	w := deliver(r, payload, sign(payload))
	require.Equal(t, http.StatusOK, w.Code)

	got, err := purchases.GetByID(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, purchases.StatusFailed, got.Status)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "Your card was declined.", *got.Notes)

	// Failure does not grant anything.
	var count int64
	require.NoError(t, db.Model(&entitlements.Entitlement{}).Count(&count).Error)
	assert.Zero(t, count)
}
