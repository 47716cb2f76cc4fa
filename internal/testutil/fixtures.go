package testutil

import (
	"fmt"
	"testing"
	"time"

	"community-app/internal/domain/catalog"
	"community-app/internal/domain/roles"
	"community-app/internal/domain/users"

	"gorm.io/gorm"
)

// TestUser creates a buyer account.
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*users.User)) *users.User {
	t.Helper()

	user := &users.User{
		Name:         fmt.Sprintf("buyer-%d", time.Now().UnixNano()%100000),
		Email:        fmt.Sprintf("buyer_%d@example.com", time.Now().UnixNano()),
		AuthProvider: "local",
		Role:         "user",
		Badge:        "member",
	}
	for _, opt := range opts {
		opt(user)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func WithTokenBalance(balance int) func(*users.User) {
	return func(u *users.User) { u.TokenBalance = balance }
}

func WithRole(role string) func(*users.User) {
	return func(u *users.User) { u.Role = role }
}

// TestProduct creates an active product with a single "1month" tier.
func TestProduct(t *testing.T, db *gorm.DB, opts ...func(*catalog.Product)) *catalog.Product {
	t.Helper()

	product := &catalog.Product{
		Slug:        fmt.Sprintf("product-%d", time.Now().UnixNano()),
		Title:       "Pro Tool",
		BasePrice:   19.99,
		Currency:    "eur",
		DownloadURL: "https://downloads.example.com/pro-tool.zip",
		Active:      true,
		DurationTiers: []catalog.DurationTier{
			{Duration: "1month", Days: 30, Price: 9.99},
		},
	}
	for _, opt := range opts {
		opt(product)
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	return product
}

func WithGrantedRole(t *testing.T, db *gorm.DB, roleName string) func(*catalog.Product) {
	t.Helper()
	var role roles.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		t.Fatalf("Failed to look up role %q: %v", roleName, err)
	}
	return func(p *catalog.Product) { p.RoleID = &role.ID }
}

func WithoutTiers() func(*catalog.Product) {
	return func(p *catalog.Product) { p.DurationTiers = nil }
}

// TestSoftware creates an active legacy listing.
func TestSoftware(t *testing.T, db *gorm.DB, opts ...func(*catalog.Software)) *catalog.Software {
	t.Helper()

	sw := &catalog.Software{
		Title:       fmt.Sprintf("Legacy Tool %d", time.Now().UnixNano()%100000),
		Version:     "2.1.0",
		Price:       4.99,
		Currency:    "eur",
		TokenPrice:  50,
		DownloadURL: "https://downloads.example.com/legacy-tool.zip",
		Active:      true,
	}
	for _, opt := range opts {
		opt(sw)
	}
	if err := db.Create(sw).Error; err != nil {
		t.Fatalf("Failed to create test software: %v", err)
	}
	return sw
}
