package models

import (
	"context"
	"time"

	"github.com/glengalafresh/shop_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceChange is an append-only event: one row per detected price transition.
// ProductName is a snapshot taken at change time; renaming the product later
// does not rewrite history. Notified flips false->true exactly once and is
// never reset.
type PriceChange struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ProductId   int             `gorm:"index;not null" json:"product_id"`
	ProductName string          `gorm:"size:100;not null" json:"product_name"`
	OldPrice    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"old_price"`
	NewPrice    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"new_price"`
	ChangedAt   time.Time       `gorm:"index;autoCreateTime" json:"changed_at"`
	Notified    bool            `gorm:"not null;default:false;index" json:"notified"`
}

// PriceChangeWithProduct carries the product presentation fields the
// storefront needs next to each change (current values, not snapshots).
type PriceChangeWithProduct struct {
	PriceChange
	Photo    string `json:"photo"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

// PriceChanged reports whether two prices differ. Exact inequality, no
// tolerance band: a one-cent move is a change.
func PriceChanged(oldPrice, newPrice decimal.Decimal) bool {
	return !oldPrice.Equal(newPrice)
}

// RecordPriceChangeIfChanged appends a change event when the price moved.
// Runs on the caller's transaction so the event commits (or rolls back)
// together with the product update that caused it.
//
// Re-submitting the same old->new transition appends a second event. There is
// no dedup window; collapsing rapid duplicates is left to the delivery layer.
func RecordPriceChangeIfChanged(tx *gorm.DB, productId int, productName string, oldPrice, newPrice decimal.Decimal) (bool, error) {
	if !PriceChanged(oldPrice, newPrice) {
		return false, nil
	}

	change := PriceChange{
		ProductId:   productId,
		ProductName: productName,
		OldPrice:    oldPrice,
		NewPrice:    newPrice,
		ChangedAt:   time.Now().UTC(),
		Notified:    false,
	}
	if err := tx.Create(&change).Error; err != nil {
		return false, err
	}
	return true, nil
}

// ListUnnotifiedPriceChanges returns every change not yet swept into a
// notification batch, most recent first.
func ListUnnotifiedPriceChanges(ctx context.Context) ([]PriceChange, error) {
	db := config.GetDB()
	var changes []PriceChange
	err := db.WithContext(ctx).
		Where("notified = ?", false).
		Order("changed_at DESC, id DESC").
		Find(&changes).Error
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// MarkAllPriceChangesNotified flips every currently-unnotified event in one
// statement. Events inserted after this statement's snapshot keep
// notified=false and surface in the next sweep.
//
// List-then-mark is not atomic as a pair; a change recorded between the two
// calls can be marked without having been in that batch. Delivery is
// at-least-once by design, so callers must tolerate that.
func MarkAllPriceChangesNotified(ctx context.Context) (int64, error) {
	db := config.GetDB()
	result := db.WithContext(ctx).
		Model(&PriceChange{}).
		Where("notified = ?", false).
		Update("notified", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// RecentPriceChanges serves the in-app "what changed while I was away" poll.
// Read-only: the notified flag belongs to the push path; polling clients keep
// their own since-watermark.
func RecentPriceChanges(ctx context.Context, since time.Time, limit int) ([]PriceChangeWithProduct, error) {
	if limit <= 0 {
		limit = 50
	}

	db := config.GetDB()
	var changes []PriceChangeWithProduct
	err := db.WithContext(ctx).
		Model(&PriceChange{}).
		Select("price_changes.*, products.photo, products.category, products.unit").
		Joins("JOIN products ON price_changes.product_id = products.id").
		Where("price_changes.changed_at > ?", since).
		Order("price_changes.changed_at DESC").
		Limit(limit).
		Scan(&changes).Error
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// AcknowledgePriceChangesSeen is a stable no-op: per-customer seen state is
// not persisted yet, but the contract is fixed so clients won't break when
// it is. Returns the number of ids acknowledged.
func AcknowledgePriceChangesSeen(ctx context.Context, changeIds []int) int {
	return len(changeIds)
}
