package models

import (
	"context"
	"time"

	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/utils"
	"gorm.io/gorm/clause"
)

const settingsCacheKey = "settings:shop"

// ShopSettings is a singleton row (id = 1): storefront theming and contact
// details edited from the admin console.
type ShopSettings struct {
	ID              int       `gorm:"primary_key" json:"id"`
	PrimaryColor    string    `gorm:"size:10;not null;default:'#2FA44F'" json:"primary_color"`
	SecondaryColor  string    `gorm:"size:10;not null;default:'#3A6FD8'" json:"secondary_color"`
	GradientStart   string    `gorm:"size:10;not null;default:'#4CAF50'" json:"gradient_start"`
	GradientEnd     string    `gorm:"size:10;not null;default:'#45a049'" json:"gradient_end"`
	GradientAngle   int       `gorm:"not null;default:135" json:"gradient_angle"`
	ShopName        string    `gorm:"size:100;not null;default:'Glengala Fresh'" json:"shop_name"`
	ShopDescription string    `gorm:"size:255" json:"shop_description"`
	ContactPhone    string    `gorm:"size:20" json:"contact_phone"`
	ContactEmail    string    `gorm:"size:100" json:"contact_email"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type UpdateShopSettingsInput struct {
	PrimaryColor    string `json:"primary_color"`
	SecondaryColor  string `json:"secondary_color"`
	GradientStart   string `json:"gradient_start"`
	GradientEnd     string `json:"gradient_end"`
	GradientAngle   int    `json:"gradient_angle"`
	ShopName        string `json:"shop_name"`
	ShopDescription string `json:"shop_description"`
	ContactPhone    string `json:"contact_phone"`
	ContactEmail    string `json:"contact_email"`
}

func defaultShopSettings() ShopSettings {
	return ShopSettings{
		ID:             1,
		PrimaryColor:   "#2FA44F",
		SecondaryColor: "#3A6FD8",
		GradientStart:  "#4CAF50",
		GradientEnd:    "#45a049",
		GradientAngle:  135,
		ShopName:       "Glengala Fresh",
	}
}

// GetShopSettings returns the singleton, creating the default row on first
// read.
func GetShopSettings(ctx context.Context) (*ShopSettings, error) {

	if config.CatalogCacheEnabled() {
		var cached ShopSettings
		exists, err := config.GetRedisObject(settingsCacheKey, &cached)
		if err == nil && exists {
			return &cached, nil
		}
	}

	db := config.GetDB()
	settings := defaultShopSettings()
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&settings).Error
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).First(&settings, 1).Error; err != nil {
		return nil, err
	}

	if config.CatalogCacheEnabled() {
		_ = config.SetRedisObject(settingsCacheKey, &settings, time.Hour)
	}
	return &settings, nil
}

func UpdateShopSettings(ctx context.Context, input *UpdateShopSettingsInput) (*ShopSettings, error) {

	if input.ContactEmail != "" && !utils.IsValidEmail(input.ContactEmail) {
		return nil, utils.NewValidationError("contact_email", "is not a valid email address")
	}

	// Make sure the singleton exists before updating it.
	if _, err := GetShopSettings(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Model(&ShopSettings{}).
		Where("id = ?", 1).
		Updates(map[string]interface{}{
			"primary_color":    input.PrimaryColor,
			"secondary_color":  input.SecondaryColor,
			"gradient_start":   input.GradientStart,
			"gradient_end":     input.GradientEnd,
			"gradient_angle":   input.GradientAngle,
			"shop_name":        input.ShopName,
			"shop_description": input.ShopDescription,
			"contact_phone":    input.ContactPhone,
			"contact_email":    input.ContactEmail,
		}).Error
	if err != nil {
		return nil, err
	}

	_ = config.RemoveRedisKey(settingsCacheKey)

	var settings ShopSettings
	if err := db.WithContext(ctx).First(&settings, 1).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}
