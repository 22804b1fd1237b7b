package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const catalogCacheKey = "catalog:active"

type Product struct {
	ID              int             `gorm:"primary_key" json:"id"`
	Name            string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Category        string          `gorm:"index;size:50;not null" json:"category" binding:"required"`
	Price           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price"`
	Unit            string          `gorm:"size:20;not null" json:"unit" binding:"required"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
	MostPopular     *bool           `gorm:"not null;default:false" json:"most_popular"`
	PopularOrder    int             `gorm:"not null;default:0" json:"popular_order"`
	Photo           string          `gorm:"size:500" json:"photo"`
	HasSpecial      *bool           `gorm:"not null;default:false" json:"has_special"`
	SpecialPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"special_price"`
	SpecialQuantity int             `gorm:"not null;default:0" json:"special_quantity"`
	SpecialUnit     string          `gorm:"size:20" json:"special_unit"`
	IsPremium       *bool           `gorm:"not null;default:false" json:"is_premium"`
	IsOrganic       *bool           `gorm:"not null;default:false" json:"is_organic"`
	Stock           int             `gorm:"not null;default:999" json:"stock"`
	Trending        *bool           `gorm:"not null;default:false" json:"trending"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name            string          `json:"name" binding:"required"`
	Category        string          `json:"category" binding:"required"`
	Price           decimal.Decimal `json:"price"`
	Unit            string          `json:"unit" binding:"required"`
	IsActive        *bool           `json:"is_active"`
	MostPopular     *bool           `json:"most_popular"`
	PopularOrder    int             `json:"popular_order"`
	Photo           string          `json:"photo"`
	HasSpecial      *bool           `json:"has_special"`
	SpecialPrice    decimal.Decimal `json:"special_price"`
	SpecialQuantity int             `json:"special_quantity"`
	SpecialUnit     string          `json:"special_unit"`
	IsPremium       *bool           `json:"is_premium"`
	IsOrganic       *bool           `json:"is_organic"`
	Stock           *int            `json:"stock"`
	Trending        *bool           `json:"trending"`
}

// ProductUpdateResult reports whether the update moved the price, so the
// handler can echo what the admin UI shows after saving.
type ProductUpdateResult struct {
	Product      *Product         `json:"product"`
	PriceChanged bool             `json:"price_changed"`
	OldPrice     *decimal.Decimal `json:"old_price,omitempty"`
	NewPrice     *decimal.Decimal `json:"new_price,omitempty"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProduct) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Product](ctx, id); err != nil {
			return err
		}
	}
	if input.Price.IsNegative() {
		return utils.NewValidationError("price", "must not be negative")
	}
	if input.SpecialPrice.IsNegative() {
		return utils.NewValidationError("special_price", "must not be negative")
	}
	return nil
}

func (input *NewProduct) applyTo(product *Product) {
	product.Name = input.Name
	product.Category = input.Category
	product.Price = input.Price
	product.Unit = input.Unit
	if input.IsActive != nil {
		product.IsActive = input.IsActive
	}
	if input.MostPopular != nil {
		product.MostPopular = input.MostPopular
	}
	product.PopularOrder = input.PopularOrder
	product.Photo = input.Photo
	if input.HasSpecial != nil {
		product.HasSpecial = input.HasSpecial
	}
	product.SpecialPrice = input.SpecialPrice
	product.SpecialQuantity = input.SpecialQuantity
	product.SpecialUnit = input.SpecialUnit
	if input.IsPremium != nil {
		product.IsPremium = input.IsPremium
	}
	if input.IsOrganic != nil {
		product.IsOrganic = input.IsOrganic
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Trending != nil {
		product.Trending = input.Trending
	}
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	product := Product{
		IsActive:    utils.NewTrue(),
		MostPopular: utils.NewFalse(),
		HasSpecial:  utils.NewFalse(),
		IsPremium:   utils.NewFalse(),
		IsOrganic:   utils.NewFalse(),
		Trending:    utils.NewFalse(),
		Stock:       999,
	}
	input.applyTo(&product)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}

	invalidateCatalogCache()
	return &product, nil
}

// UpdateProduct saves the catalog edit and, inside the same transaction,
// records a price-change event when the price actually moved. A save that
// keeps the price identical never produces an event.
func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*ProductUpdateResult, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	db := config.GetDB()

	var result ProductUpdateResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product Product
		if err := tx.First(&product, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.ErrorRecordNotFound
			}
			return err
		}

		oldPrice := product.Price
		oldName := product.Name

		input.applyTo(&product)
		if err := tx.Save(&product).Error; err != nil {
			return err
		}

		// Snapshot the pre-rename name into the event, matching what the
		// shopper saw when the old price was current.
		changed, err := RecordPriceChangeIfChanged(tx, product.ID, oldName, oldPrice, product.Price)
		if err != nil {
			return err
		}

		result.Product = &product
		result.PriceChanged = changed
		if changed {
			result.OldPrice = &oldPrice
			newPrice := product.Price
			result.NewPrice = &newPrice
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateCatalogCache()
	return &result, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {

	product, err := utils.FetchSingleModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&Product{}, id).Error; err != nil {
		return nil, err
	}

	invalidateCatalogCache()
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return utils.FetchSingleModel[Product](ctx, id)
}

// GetActiveProducts returns the live storefront catalog, category then name,
// served from redis when warm.
func GetActiveProducts(ctx context.Context) ([]*Product, error) {

	if config.CatalogCacheEnabled() {
		var cached []*Product
		exists, err := config.GetRedisObject(catalogCacheKey, &cached)
		if err == nil && exists {
			return cached, nil
		}
	}

	db := config.GetDB()
	var products []*Product
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("category, name").
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	if config.CatalogCacheEnabled() {
		_ = config.SetRedisObject(catalogCacheKey, products, 5*time.Minute)
	}
	return products, nil
}

type BulkProduct struct {
	ID int `json:"id" binding:"required"`
	NewProduct
}

// BulkUpdateProducts rewrites whole catalog rows in one transaction (the
// admin grid's "save all"). Like the repricing path it does not feed the
// price-change ledger; only single-product edits do.
func BulkUpdateProducts(ctx context.Context, rows []BulkProduct) (int, error) {

	db := config.GetDB()
	updated := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			row := &rows[i]
			if row.ID == 0 {
				continue
			}
			var product Product
			if err := tx.First(&product, row.ID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					continue
				}
				return err
			}
			row.NewProduct.applyTo(&product)
			if err := tx.Save(&product).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	invalidateCatalogCache()
	return updated, nil
}

type BulkProductUpdate struct {
	ID    int              `json:"id" binding:"required"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock"`
}

// BulkUpdatePrices is the admin "repricing sheet" path: price/stock only,
// many rows in one transaction. It intentionally bypasses price-change
// tracking, same as the original bulk endpoint; only single-product edits
// feed the notification ledger.
func BulkUpdatePrices(ctx context.Context, updates []BulkProductUpdate) (int, error) {

	db := config.GetDB()
	updated := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if u.ID == 0 {
				continue
			}
			fields := map[string]interface{}{}
			if u.Price != nil {
				if u.Price.IsNegative() {
					return utils.NewValidationError("price", "must not be negative")
				}
				fields["price"] = *u.Price
			}
			if u.Stock != nil {
				fields["stock"] = *u.Stock
			}
			if len(fields) == 0 {
				continue
			}
			if err := tx.Model(&Product{}).Where("id = ?", u.ID).Updates(fields).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	invalidateCatalogCache()
	return updated, nil
}

// ExportProductsXlsx renders the full catalog as a spreadsheet for the
// back office.
func ExportProductsXlsx(ctx context.Context) (*excelize.File, error) {

	db := config.GetDB()
	var products []*Product
	if err := db.WithContext(ctx).Order("category, name").Find(&products).Error; err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Products"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headings := []string{"Id", "Name", "Category", "Price", "Unit", "Active", "Stock", "Special", "SpecialPrice", "Premium", "Organic"}
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheetName, cell, h)
	}

	for i, p := range products {
		row := i + 2
		f.SetCellValue(sheetName, "A"+fmt.Sprint(row), p.ID)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(row), p.Name)
		f.SetCellValue(sheetName, "C"+fmt.Sprint(row), p.Category)
		f.SetCellValue(sheetName, "D"+fmt.Sprint(row), p.Price.String())
		f.SetCellValue(sheetName, "E"+fmt.Sprint(row), p.Unit)
		f.SetCellValue(sheetName, "F"+fmt.Sprint(row), utils.DereferencePtr(p.IsActive))
		f.SetCellValue(sheetName, "G"+fmt.Sprint(row), p.Stock)
		f.SetCellValue(sheetName, "H"+fmt.Sprint(row), utils.DereferencePtr(p.HasSpecial))
		f.SetCellValue(sheetName, "I"+fmt.Sprint(row), p.SpecialPrice.String())
		f.SetCellValue(sheetName, "J"+fmt.Sprint(row), utils.DereferencePtr(p.IsPremium))
		f.SetCellValue(sheetName, "K"+fmt.Sprint(row), utils.DereferencePtr(p.IsOrganic))
	}

	return f, nil
}

// SetProductPhoto stores the access URL written by the upload-complete flow.
func SetProductPhoto(ctx context.Context, id int, photoURL string) error {
	if photoURL == "" {
		return errors.New("photo url is required")
	}
	if err := utils.ValidateResourceId[Product](ctx, id); err != nil {
		return err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Product{}).
		Where("id = ?", id).
		Update("photo", photoURL).Error; err != nil {
		return err
	}

	invalidateCatalogCache()
	return nil
}

func invalidateCatalogCache() {
	_ = config.RemoveRedisKey(catalogCacheKey)
}
