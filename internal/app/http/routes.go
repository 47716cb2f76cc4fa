package routes

import (
	authapi "community-app/internal/api/auth"
	catalogapi "community-app/internal/api/catalog"
	purchasesapi "community-app/internal/api/purchases"
	"community-app/internal/api/stripecheckout"
	stripewebhooks "community-app/internal/api/stripewebhook"
	usersapi "community-app/internal/api/users"
	"community-app/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Webhook stays outside the sanitizer: signature verification needs the
	// raw body byte-for-byte.
	r.POST("/stripe/webhook", stripewebhooks.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)
	public.GET("/auth/google", authapi.GoogleStart)
	public.GET("/auth/google/callback", authapi.GoogleCallback)

	public.GET("/products", catalogapi.ListProducts)
	public.GET("/products/:slug", catalogapi.GetProductBySlug)
	public.GET("/software", catalogapi.ListSoftware)
	public.GET("/software/:id", catalogapi.GetSoftwareByID)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(), middleware.SanitizeAndCleanInputMiddleware())
	auth.GET("/me", usersapi.GetCurrentUser)
	auth.GET("/me/entitlements", usersapi.GetMyEntitlements)
	auth.GET("/me/notifications", usersapi.GetMyNotifications)
	auth.POST("/change-password", authapi.ChangePassword)

	auth.POST("/purchases", purchasesapi.CreatePurchase)
	auth.GET("/purchases/:id", purchasesapi.GetPurchase)
	auth.GET("/purchases/user/:userId", purchasesapi.ListUserPurchases)
	auth.POST("/purchases/:id/download", purchasesapi.Download)
	auth.POST("/purchases/:id/cancel", purchasesapi.Cancel)

	auth.POST("/stripe/create-checkout-session", stripecheckout.CreateCheckoutSession)
	auth.GET("/stripe/session/:sessionId", stripecheckout.GetSessionStatus)

	// Members with an active pro entitlement
	pro := auth.Group("/pro")
	pro.Use(middleware.RequireEntitlement("pro"))
	pro.GET("/badge", usersapi.GetProBadge)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/purchases", purchasesapi.ListAllPurchases)
	admin.POST("/purchases/:id/refund", purchasesapi.Refund)
	admin.POST("/products", catalogapi.CreateProduct)
	admin.POST("/software", catalogapi.CreateSoftware)
}
