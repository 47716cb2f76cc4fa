package database

import (
	"fmt"
	"log"
	"os"

	"community-app/internal/domain/catalog"
	"community-app/internal/domain/entitlements"
	"community-app/internal/domain/notifications"
	"community-app/internal/domain/purchases"
	"community-app/internal/domain/roles"
	"community-app/internal/domain/users"
	"community-app/internal/domain/webhooks"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("❌ DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}

	DB = db

	if err := Migrate(DB); err != nil {
		log.Fatal("❌ AutoMigrate error:", err)
	}

	if err := SeedRoles(DB); err != nil {
		log.Fatal("❌ Role seed error:", err)
	}

	fmt.Println("✅ Connected and migrated successfully")
}

// Migrate is shared with the test harness so sqlite fixtures carry the same
// schema as production.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// identity
		&users.User{},
		&roles.Role{},

		// catalog
		&catalog.Product{},
		&catalog.DurationTier{},
		&catalog.Software{},

		// purchase flow
		&purchases.Purchase{},
		&entitlements.Entitlement{},
		&webhooks.Event{},

		// side effects
		&notifications.Notification{},
	)
}

// SeedRoles makes sure the roles products reference out of the box exist.
func SeedRoles(db *gorm.DB) error {
	defaults := []roles.Role{
		{Name: "pro", Description: "Marketplace pro access"},
		{Name: "supporter", Description: "Community supporter badge"},
	}
	for _, r := range defaults {
		var role roles.Role
		if err := db.Where(roles.Role{Name: r.Name}).
			Attrs(roles.Role{Description: r.Description}).
			FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}
