package models

import (
	"context"
	"time"

	"github.com/glengalafresh/shop_backend/config"
)

// Challenge rows are read by the profile view; progression/awarding is a
// separate concern and not part of the order ledger.
type Challenge struct {
	ID            int        `gorm:"primary_key" json:"id"`
	CustomerId    int        `gorm:"index;not null" json:"user_id"`
	ChallengeType string     `gorm:"size:50;not null" json:"challenge_type"`
	Description   string     `gorm:"size:255" json:"description"`
	Target        int        `gorm:"not null;default:0" json:"target"`
	Progress      int        `gorm:"not null;default:0" json:"progress"`
	RewardPoints  int        `gorm:"not null;default:0" json:"reward_points"`
	Completed     *bool      `gorm:"not null;default:false" json:"completed"`
	ExpiresAt     *time.Time `json:"expires_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func GetActiveChallenges(ctx context.Context, customerId int) ([]*Challenge, error) {
	db := config.GetDB()
	var challenges []*Challenge
	err := db.WithContext(ctx).
		Where("customer_id = ? AND completed = ? AND expires_at > ?", customerId, false, time.Now()).
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}
