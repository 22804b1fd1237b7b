package models

import (
	"context"
	"time"

	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/utils"
	"gorm.io/gorm/clause"
)

// PushSubscription stores a browser push endpoint. Delivery itself (web
// push, VAPID) happens outside this service; the rows here only size and
// target the outbound batches.
type PushSubscription struct {
	ID         int       `gorm:"primary_key" json:"id"`
	CustomerId *int      `gorm:"index" json:"user_id"`
	Endpoint   string    `gorm:"uniqueIndex;size:500;not null" json:"endpoint"`
	P256dh     string    `gorm:"size:255;not null" json:"p256dh"`
	Auth       string    `gorm:"size:255;not null" json:"auth"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewPushSubscription struct {
	CustomerId *int   `json:"user_id"`
	Endpoint   string `json:"endpoint" binding:"required"`
	P256dh     string `json:"p256dh" binding:"required"`
	Auth       string `json:"auth" binding:"required"`
}

// SubscribePush upserts on the endpoint: re-subscribing from the same
// browser re-binds the subscription to the (possibly new) customer.
func SubscribePush(ctx context.Context, input *NewPushSubscription) error {

	if input.Endpoint == "" {
		return utils.NewValidationError("endpoint", "is required")
	}

	sub := PushSubscription{
		CustomerId: input.CustomerId,
		Endpoint:   input.Endpoint,
		P256dh:     input.P256dh,
		Auth:       input.Auth,
	}

	db := config.GetDB()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"customer_id"}),
		}).
		Create(&sub).Error
}

func UnsubscribePush(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return utils.NewValidationError("endpoint", "is required")
	}
	db := config.GetDB()
	return db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&PushSubscription{}).Error
}

func CountPushSubscriptions(ctx context.Context) (int64, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&PushSubscription{}).Count(&count).Error
	return count, err
}
