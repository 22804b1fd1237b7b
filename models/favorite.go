package models

import (
	"context"
	"time"

	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/utils"
	"gorm.io/gorm/clause"
)

type Favorite struct {
	ID         int       `gorm:"primary_key" json:"id"`
	CustomerId int       `gorm:"not null;index:uniq_fav,unique" json:"user_id"`
	ProductId  int       `gorm:"not null;index:uniq_fav,unique" json:"product_id"`
	AddedAt    time.Time `gorm:"autoCreateTime" json:"added_at"`
}

type NewFavorite struct {
	CustomerId int `json:"user_id" binding:"required"`
	ProductId  int `json:"product_id" binding:"required"`
}

// AddFavorite is idempotent: favoriting twice is a no-op, not an error.
func AddFavorite(ctx context.Context, input *NewFavorite) error {

	if err := utils.ValidateResourceId[Customer](ctx, input.CustomerId); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Product](ctx, input.ProductId); err != nil {
		return err
	}

	favorite := Favorite{
		CustomerId: input.CustomerId,
		ProductId:  input.ProductId,
	}

	db := config.GetDB()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&favorite).Error
}

func RemoveFavorite(ctx context.Context, customerId, productId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Where("customer_id = ? AND product_id = ?", customerId, productId).
		Delete(&Favorite{}).Error
}

func GetCustomerFavorites(ctx context.Context, customerId int) ([]*Product, error) {
	db := config.GetDB()
	var products []*Product
	err := db.WithContext(ctx).
		Model(&Product{}).
		Joins("JOIN favorites ON favorites.product_id = products.id").
		Where("favorites.customer_id = ?", customerId).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
