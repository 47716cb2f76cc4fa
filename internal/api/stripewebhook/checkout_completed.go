package stripewebhooks

import (
	"fmt"
	"strconv"

	"community-app/database"
	"community-app/internal/domain/catalog"
	"community-app/internal/domain/entitlements"
	"community-app/internal/domain/notifications"
	"community-app/internal/domain/purchases"
	"community-app/internal/domain/tokens"
	"community-app/internal/infra/logger"

	"github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"
)

// handleCheckoutSessionCompleted settles the ledger row referenced by the
// session's correlation metadata. Everything here fails softly: a missing
// purchase id or an unknown purchase is logged and dropped, since the event
// was already acknowledged and Stripe retrying it cannot fix our data.
func handleCheckoutSessionCompleted(session *stripe.CheckoutSession) {
	purchaseID, err := purchaseIDFromSession(session)
	if err != nil {
		logger.Log.Warn("checkout completed without usable purchase reference",
			zap.String("session_id", session.ID), zap.Error(err))
		return
	}

	purchase, err := purchases.GetByID(database.DB, purchaseID)
	if err != nil {
		logger.Log.Warn("checkout completed for unknown purchase",
			zap.Uint("purchase_id", purchaseID), zap.String("session_id", session.ID))
		return
	}

	// The payment intent id may not have existed at session creation.
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" && purchase.StripePaymentIntentID == nil {
		if err := database.DB.Model(&purchases.Purchase{}).
			Where("id = ?", purchase.ID).
			Update("stripe_payment_intent_id", session.PaymentIntent.ID).Error; err != nil {
			logger.Log.Warn("failed to store payment intent id",
				zap.Uint("purchase_id", purchase.ID), zap.Error(err))
		}
	}

	transactionID := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		transactionID = session.PaymentIntent.ID
	}

	purchase, already, err := purchases.MarkCompleted(database.DB, purchase.ID, transactionID)
	if err != nil {
		logger.Log.Error("failed to mark purchase completed",
			zap.Uint("purchase_id", purchaseID), zap.Error(err))
		return
	}
	if already {
		logger.Log.Info("checkout completion replayed, skipping side effects",
			zap.Uint("purchase_id", purchase.ID))
		return
	}

	grantEntitlementIfAny(purchase)
	creditRewardAndNotify(purchase)
}

func purchaseIDFromSession(session *stripe.CheckoutSession) (uint, error) {
	ref := ""
	if session.Metadata != nil {
		ref = session.Metadata["purchase_id"]
	}
	if ref == "" {
		ref = session.ClientReferenceID
	}
	if ref == "" {
		return 0, fmt.Errorf("missing purchase_id (metadata or client_reference_id)")
	}

	id64, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid purchase_id %q: %w", ref, err)
	}
	return uint(id64), nil
}

func grantEntitlementIfAny(purchase *purchases.Purchase) {
	if purchase.ProductID == nil {
		return
	}

	var product catalog.Product
	if err := database.DB.Preload("DurationTiers").First(&product, *purchase.ProductID).Error; err != nil {
		logger.Log.Warn("completed purchase references missing product",
			zap.Uint("purchase_id", purchase.ID))
		return
	}
	if product.RoleID == nil {
		return
	}

	days := 0
	if tier, err := product.TierFor(purchase.Duration); err == nil && tier != nil {
		days = tier.Days
	}

	if _, err := entitlements.Grant(database.DB, purchase.UserID, *product.RoleID, days, &purchase.ID); err != nil {
		logger.Log.Error("failed to grant entitlement",
			zap.Uint("purchase_id", purchase.ID), zap.Uint("role_id", *product.RoleID), zap.Error(err))
	}
}

func creditRewardAndNotify(purchase *purchases.Purchase) {
	reward := tokens.RewardForAmount(purchase.Amount)
	if reward > 0 {
		if err := tokens.Credit(database.DB, purchase.UserID, reward); err != nil {
			logger.Log.Error("failed to credit token reward",
				zap.Uint("purchase_id", purchase.ID), zap.Int("reward", reward), zap.Error(err))
		} else {
			msg := fmt.Sprintf("You earned %d tokens for your purchase.", reward)
			if err := notifications.Enqueue(database.DB, purchase.UserID, notifications.KindTokenReward, msg); err != nil {
				logger.Log.Warn("failed to enqueue token reward notification",
					zap.Uint("purchase_id", purchase.ID), zap.Error(err))
			}
		}
	}

	msg := fmt.Sprintf("Your purchase #%d is complete. License key: %s", purchase.ID, purchase.LicenseKey)
	if err := notifications.Enqueue(database.DB, purchase.UserID, notifications.KindPurchase, msg); err != nil {
		logger.Log.Warn("failed to enqueue purchase notification",
			zap.Uint("purchase_id", purchase.ID), zap.Error(err))
	}
}
