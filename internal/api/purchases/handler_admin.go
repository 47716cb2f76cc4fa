package purchases

import (
	"errors"
	"net/http"
	"strconv"

	"community-app/database"
	"community-app/internal/domain/purchases"

	"github.com/gin-gonic/gin"
)

// ListAllPurchases is the admin ledger view: paginated, filterable by
// status/buyer/product, sortable by creation time or amount.
func ListAllPurchases(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	q := database.DB.Model(&purchases.Purchase{})

	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if userID := c.Query("user_id"); userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if productID := c.Query("product_id"); productID != "" {
		q = q.Where("product_id = ?", productID)
	}
	if softwareID := c.Query("software_id"); softwareID != "" {
		q = q.Where("software_id = ?", softwareID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count purchases"})
		return
	}

	order := "created_at DESC"
	switch c.Query("sort") {
	case "created_asc":
		order = "created_at ASC"
	case "amount_desc":
		order = "amount DESC"
	case "amount_asc":
		order = "amount ASC"
	}

	var result []purchases.Purchase
	if err := q.
		Preload("User").
		Preload("Product").
		Preload("Software").
		Order(order).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&result).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load purchases"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"purchases": result,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Refund flips a Completed purchase to Refunded with an audit note.
func Refund(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid purchase id"})
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.Reason == "" {
		body.Reason = "refunded by admin"
	}

	if err := purchases.MarkRefunded(database.DB, uint(id), body.Reason); err != nil {
		switch {
		case errors.Is(err, purchases.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Purchase not found"})
		case errors.Is(err, purchases.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "Only completed purchases can be refunded"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refund purchase"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Purchase refunded"})
}
