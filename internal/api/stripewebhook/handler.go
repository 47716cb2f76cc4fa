package stripewebhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	"community-app/database"
	"community-app/internal/domain/webhooks"
	"community-app/internal/infra/logger"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
	"go.uber.org/zap"
)

// StripeWebhook verifies the provider signature, deduplicates redelivered
// events, and dispatches. Per provider convention every verified event is
// acknowledged with 200 {received:true} no matter how downstream handling
// goes; only a bad signature gets a 4xx so Stripe's own retry applies.
func StripeWebhook(c *gin.Context) {
	endpointSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if endpointSecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		endpointSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		logger.Log.Warn("stripe signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	seen, err := webhooks.Seen(database.DB, event.ID)
	if err != nil {
		logger.Log.Error("webhook dedup lookup failed", zap.String("event_id", event.ID), zap.Error(err))
	}
	if seen {
		logger.Log.Info("ignoring redelivered stripe event",
			zap.String("event_id", event.ID), zap.String("type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if err := webhooks.Record(database.DB, event.ID, string(event.Type)); err != nil {
		logger.Log.Error("failed to record stripe event", zap.String("event_id", event.ID), zap.Error(err))
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			logger.Log.Warn("failed to parse checkout session payload", zap.Error(err))
			break
		}
		handleCheckoutSessionCompleted(&session)

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			logger.Log.Warn("failed to parse payment intent payload", zap.Error(err))
			break
		}
		handlePaymentIntentFailed(&intent)

	default:
		// Unknown events are acknowledged so Stripe stops retrying them.
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
