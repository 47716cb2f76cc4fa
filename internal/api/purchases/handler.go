package purchases

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"community-app/database"
	"community-app/internal/domain/catalog"
	"community-app/internal/domain/notifications"
	"community-app/internal/domain/purchases"
	"community-app/internal/domain/tokens"
	"community-app/internal/infra/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreatePurchase buys a legacy software listing. Token purchases settle
// immediately from the buyer's balance; "stripe" leaves the row Pending for
// a manually reconciled payment.
func CreatePurchase(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		SoftwareID    uint   `json:"softwareId" binding:"required"`
		PaymentMethod string `json:"paymentMethod" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing softwareId or paymentMethod"})
		return
	}
	if body.PaymentMethod != "tokens" && body.PaymentMethod != "stripe" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentMethod must be 'tokens' or 'stripe'"})
		return
	}

	var sw catalog.Software
	if err := database.DB.Where("active = ?", true).First(&sw, body.SoftwareID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Software not found"})
		return
	}

	owned, err := purchases.HasCompletedForSoftware(database.DB, userID, sw.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check ownership"})
		return
	}
	if owned {
		c.JSON(http.StatusConflict, gin.H{"error": "You already own this software"})
		return
	}

	purchase, err := purchases.CreatePendingForSoftware(database.DB, userID, &sw, body.PaymentMethod)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create purchase"})
		return
	}

	if body.PaymentMethod == "tokens" {
		if err := tokens.Spend(database.DB, userID, sw.TokenPrice); err != nil {
			if errors.Is(err, tokens.ErrInsufficientBalance) {
				_ = purchases.MarkFailed(database.DB, purchase.ID, "insufficient token balance")
				c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient token balance"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to spend tokens"})
			return
		}

		txID := "tokens-" + uuid.NewString()
		completed, _, err := purchases.MarkCompleted(database.DB, purchase.ID, txID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to settle purchase"})
			return
		}
		purchase = completed

		msg := fmt.Sprintf("Your purchase of %q is complete.", sw.Title)
		if err := notifications.Enqueue(database.DB, userID, notifications.KindPurchase, msg); err != nil {
			logger.Log.Warn("failed to enqueue purchase notification",
				zap.Uint("purchase_id", purchase.ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, purchase)
}

func GetPurchase(c *gin.Context) {
	userID := c.GetUint("user_id")
	role := c.GetString("role")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid purchase id"})
		return
	}

	purchase, err := purchases.GetByID(database.DB, uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Purchase not found"})
		return
	}

	if purchase.UserID != userID && role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	c.JSON(http.StatusOK, purchase)
}

func ListUserPurchases(c *gin.Context) {
	requesterID := c.GetUint("user_id")
	role := c.GetString("role")

	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	if uint(targetID) != requesterID && role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var result []purchases.Purchase
	if err := database.DB.
		Preload("Product").
		Preload("Software").
		Where("user_id = ?", uint(targetID)).
		Order("created_at DESC").
		Find(&result).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load purchases"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Download redeems one download against a completed purchase. The gates run
// in a fixed order so the caller gets the precise reason: status, then
// counter, then expiry.
func Download(c *gin.Context) {
	userID := c.GetUint("user_id")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid purchase id"})
		return
	}

	purchase, err := purchases.GetByID(database.DB, uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Purchase not found"})
		return
	}

	if purchase.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the buyer can download this purchase"})
		return
	}

	if err := purchases.CheckDownload(purchase); err != nil {
		switch {
		case errors.Is(err, purchases.ErrNotCompleted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Purchase is not completed yet"})
		case errors.Is(err, purchases.ErrLimitExceeded):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Download limit reached for this purchase"})
		case errors.Is(err, purchases.ErrExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Access to this purchase has expired"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Download check failed"})
		}
		return
	}

	if err := purchases.RecordDownload(database.DB, purchase.ID); err != nil {
		if errors.Is(err, purchases.ErrLimitExceeded) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Download limit reached for this purchase"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record download"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"downloadUrl": purchase.DownloadTarget(),
		"licenseKey":  purchase.LicenseKey,
		"remaining":   purchase.MaxDownloads - purchase.DownloadCount - 1,
	})
}

// Cancel lets the buyer abandon a Pending purchase.
func Cancel(c *gin.Context) {
	userID := c.GetUint("user_id")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid purchase id"})
		return
	}

	purchase, err := purchases.GetByID(database.DB, uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Purchase not found"})
		return
	}
	if purchase.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	if err := purchases.MarkCancelled(database.DB, purchase.ID, "cancelled by buyer"); err != nil {
		if errors.Is(err, purchases.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "Only pending purchases can be cancelled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel purchase"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Purchase cancelled"})
}
