package stripewebhooks

import (
	"errors"

	"community-app/database"
	"community-app/internal/domain/purchases"
	"community-app/internal/infra/logger"

	"github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"
)

// handlePaymentIntentFailed correlates by the stored payment intent id; the
// failure event does not carry the session metadata the success path uses.
func handlePaymentIntentFailed(intent *stripe.PaymentIntent) {
	purchase, err := purchases.GetByStripePaymentIntentID(database.DB, intent.ID)
	if err != nil {
		if errors.Is(err, purchases.ErrNotFound) {
			logger.Log.Warn("payment failure for unknown purchase",
				zap.String("payment_intent_id", intent.ID))
			return
		}
		logger.Log.Error("failed to look up purchase for failed payment",
			zap.String("payment_intent_id", intent.ID), zap.Error(err))
		return
	}

	reason := "payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		reason = intent.LastPaymentError.Msg
	}

	if err := purchases.MarkFailed(database.DB, purchase.ID, reason); err != nil {
		if errors.Is(err, purchases.ErrInvalidTransition) {
			logger.Log.Info("ignoring payment failure for settled purchase",
				zap.Uint("purchase_id", purchase.ID), zap.String("status", purchase.Status))
			return
		}
		logger.Log.Error("failed to mark purchase failed",
			zap.Uint("purchase_id", purchase.ID), zap.Error(err))
	}
}
