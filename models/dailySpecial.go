package models

import (
	"context"
	"time"

	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/utils"
	"github.com/shopspring/decimal"
)

type DailySpecial struct {
	ID              int             `gorm:"primary_key" json:"id"`
	ProductId       int             `gorm:"index;not null" json:"product_id"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"discount_percent"`
	SpecialDate     time.Time       `gorm:"type:date;index;not null" json:"special_date"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
}

type SpecialProduct struct {
	Product
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// GetDailySpecials returns today's active specials joined to their products.
// "Today" is the shop's calendar day, not UTC.
func GetDailySpecials(ctx context.Context) ([]*SpecialProduct, error) {

	today, err := utils.ConvertToDate(time.Now(), utils.Timezone)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var specials []*SpecialProduct
	err = db.WithContext(ctx).
		Model(&Product{}).
		Select("products.*, daily_specials.discount_percent").
		Joins("JOIN daily_specials ON products.id = daily_specials.product_id").
		Where("daily_specials.special_date = ? AND daily_specials.is_active = ?", dateOnly(today), true).
		Scan(&specials).Error
	if err != nil {
		return nil, err
	}
	return specials, nil
}
