package tokens

import (
	"errors"
	"math"

	"community-app/internal/domain/users"

	"gorm.io/gorm"
)

var ErrInsufficientBalance = errors.New("insufficient token balance")

// RewardRate is the fraction of a completed purchase amount credited back as
// whole tokens.
const RewardRate = 0.05

// Spend deducts from the user's balance. The WHERE guard keeps the balance
// non-negative even when two spends race.
func Spend(db *gorm.DB, userID uint, amount int) error {
	if amount <= 0 {
		return nil
	}
	res := db.Model(&users.User{}).
		Where("id = ? AND token_balance >= ?", userID, amount).
		Update("token_balance", gorm.Expr("token_balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// Credit adds to the user's balance.
func Credit(db *gorm.DB, userID uint, amount int) error {
	if amount <= 0 {
		return nil
	}
	return db.Model(&users.User{}).
		Where("id = ?", userID).
		Update("token_balance", gorm.Expr("token_balance + ?", amount)).Error
}

// RewardForAmount converts a purchase amount into the token reward credited
// on completion.
func RewardForAmount(amount float64) int {
	if amount <= 0 {
		return 0
	}
	return int(math.Floor(amount * RewardRate))
}
