package catalog

import (
	"net/http"
	"strconv"

	"community-app/database"
	"community-app/internal/domain/catalog"

	"github.com/gin-gonic/gin"
)

func ListProducts(c *gin.Context) {
	var products []catalog.Product
	if err := database.DB.
		Preload("DurationTiers").
		Preload("Role").
		Where("active = ?", true).
		Order("title ASC").
		Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load products"})
		return
	}
	c.JSON(http.StatusOK, products)
}

func GetProductBySlug(c *gin.Context) {
	slug := c.Param("slug")

	var product catalog.Product
	if err := database.DB.
		Preload("DurationTiers").
		Preload("Role").
		Where("slug = ? AND active = ?", slug, true).
		First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func ListSoftware(c *gin.Context) {
	var listings []catalog.Software
	if err := database.DB.
		Where("active = ?", true).
		Order("title ASC").
		Find(&listings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load software listings"})
		return
	}
	c.JSON(http.StatusOK, listings)
}

func GetSoftwareByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid software id"})
		return
	}

	var sw catalog.Software
	if err := database.DB.Where("active = ?", true).First(&sw, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Software not found"})
		return
	}
	c.JSON(http.StatusOK, sw)
}

// Admin

type tierInput struct {
	Duration string  `json:"duration" binding:"required"`
	Days     int     `json:"days" binding:"required"`
	Price    float64 `json:"price" binding:"required"`
}

func CreateProduct(c *gin.Context) {
	var input struct {
		Slug        string      `json:"slug" binding:"required"`
		Title       string      `json:"title" binding:"required"`
		Description string      `json:"description"`
		BasePrice   float64     `json:"base_price" binding:"required"`
		Currency    string      `json:"currency"`
		RoleID      *uint       `json:"role_id"`
		DownloadURL string      `json:"download_url"`
		Tiers       []tierInput `json:"duration_tiers"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	currency := input.Currency
	if currency == "" {
		currency = "eur"
	}

	product := catalog.Product{
		Slug:        input.Slug,
		Title:       input.Title,
		Description: input.Description,
		BasePrice:   input.BasePrice,
		Currency:    currency,
		RoleID:      input.RoleID,
		DownloadURL: input.DownloadURL,
		Active:      true,
	}
	for _, t := range input.Tiers {
		product.DurationTiers = append(product.DurationTiers, catalog.DurationTier{
			Duration: t.Duration,
			Days:     t.Days,
			Price:    t.Price,
		})
	}

	if err := database.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Product slug may already exist"})
		return
	}
	c.JSON(http.StatusCreated, product)
}

func CreateSoftware(c *gin.Context) {
	var input struct {
		Title       string  `json:"title" binding:"required"`
		Version     string  `json:"version"`
		Description string  `json:"description"`
		Price       float64 `json:"price" binding:"required"`
		Currency    string  `json:"currency"`
		TokenPrice  int     `json:"token_price"`
		DownloadURL string  `json:"download_url"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	currency := input.Currency
	if currency == "" {
		currency = "eur"
	}

	sw := catalog.Software{
		Title:       input.Title,
		Version:     input.Version,
		Description: input.Description,
		Price:       input.Price,
		Currency:    currency,
		TokenPrice:  input.TokenPrice,
		DownloadURL: input.DownloadURL,
		Active:      true,
	}
	if err := database.DB.Create(&sw).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create software listing"})
		return
	}
	c.JSON(http.StatusCreated, sw)
}
