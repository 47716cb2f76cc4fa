package stripecheckout

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"

	"community-app/config"
	"community-app/database"
	"community-app/internal/domain/catalog"
	"community-app/internal/domain/purchases"
	infrastripe "community-app/internal/infra/stripe"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
)

// CreateCheckoutSession opens a Stripe Checkout Session for a product. The
// Pending ledger row is written first and its id travels as correlation
// metadata; the returned session id is persisted back onto the row before
// the client sees it.
func CreateCheckoutSession(c *gin.Context) {
	var body struct {
		ProductSlug string `json:"productSlug"`
		Duration    string `json:"duration"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ProductSlug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid productSlug"})
		return
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var product catalog.Product
	if err := database.DB.
		Preload("DurationTiers").
		Where("slug = ? AND active = ?", body.ProductSlug, true).
		First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	purchase, err := purchases.CreatePendingForProduct(database.DB, userID, &product, body.Duration, "stripe")
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownDuration) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown duration tier for this product"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create purchase"})
		return
	}

	appURL := config.APP_URL
	purchaseRef := fmt.Sprint(purchase.ID)

	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(appURL + "/marketplace/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(appURL + "/marketplace?canceled=1"),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(purchaseRef),

		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(purchase.Currency),
					UnitAmount: stripe.Int64(int64(math.Round(purchase.Amount * 100))),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(product.Title),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},

		// The failure event carries no session metadata, so the payment
		// intent gets its own copy of the correlation id.
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"purchase_id": purchaseRef},
		},
	}
	params.AddMetadata("purchase_id", purchaseRef)

	s, err := checkoutsession.New(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session", "details": err.Error()})
		return
	}

	updates := map[string]interface{}{"stripe_session_id": s.ID}
	if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
		updates["stripe_payment_intent_id"] = s.PaymentIntent.ID
	}
	if err := database.DB.Model(&purchases.Purchase{}).
		Where("id = ?", purchase.ID).
		Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": s.ID, "url": s.URL})
}

// GetSessionStatus is a passthrough so the success page can poll the
// provider-side state alongside our ledger state.
func GetSessionStatus(c *gin.Context) {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	sessionID := c.Param("sessionId")
	s, err := checkoutsession.Get(sessionID, nil)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	resp := gin.H{
		"sessionId":     s.ID,
		"status":        string(s.Status),
		"paymentStatus": infrastripe.NormalizePaymentStatus(string(s.PaymentStatus)),
	}

	if purchase, err := purchases.GetByStripeSessionID(database.DB, s.ID); err == nil {
		resp["purchaseId"] = purchase.ID
		resp["purchaseStatus"] = purchase.Status
	}

	c.JSON(http.StatusOK, resp)
}
