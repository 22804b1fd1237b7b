package models

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/utils"
	"github.com/shopspring/decimal"
)

// Order rows are append-only; once written they are never mutated by the
// ledger. PointsEarned is frozen at creation time, so the order history stays
// authoritative even if the loyalty aggregate drifts and has to be rebuilt.
type Order struct {
	ID           int             `gorm:"primary_key" json:"id"`
	CustomerId   *int            `gorm:"index" json:"user_id"`
	Items        json.RawMessage `gorm:"type:text;not null" json:"items"`
	Total        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
	Fulfilment   string          `gorm:"size:20" json:"fulfilment"`
	DeliveryTime string          `gorm:"size:100" json:"delivery_time"`
	Status       OrderStatus     `gorm:"size:20;not null;default:'pending'" json:"status"`
	PointsEarned int             `gorm:"not null;default:0" json:"points_earned"`
	CreatedAt    time.Time       `gorm:"index;autoCreateTime" json:"created_at"`
}

// NewOrder is the checkout payload. Items is an opaque line-item document:
// the ledger stores it verbatim and never interprets it beyond the trending
// tally. An empty item list is accepted.
type NewOrder struct {
	CustomerId   *int            `json:"user_id"`
	Items        json.RawMessage `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Fulfilment   string          `json:"fulfilment"`
	DeliveryTime string          `json:"delivery_time"`
}

// OrderConfirmation is a partial-success result: the order row always exists
// when this is returned, but the loyalty aggregate update is best-effort.
// RewardsApplied=false means the points/streak write was skipped (anonymous
// order, unknown customer) or failed after the order was persisted.
type OrderConfirmation struct {
	OrderId        int  `json:"order_id"`
	PointsEarned   int  `json:"points_earned"`
	RewardsApplied bool `json:"rewards_applied"`
}

// CreateOrder persists the checkout and folds it into the customer's loyalty
// account. Record first, reconcile later: a failed aggregate update does not
// roll back the order insert; the confirmation flags it instead.
func CreateOrder(ctx context.Context, input *NewOrder) (*OrderConfirmation, error) {

	if input.Total.IsNegative() {
		return nil, utils.NewValidationError("total", "must not be negative")
	}

	items := input.Items
	if len(items) == 0 {
		items = json.RawMessage("[]")
	} else if !json.Valid(items) {
		return nil, utils.NewValidationError("items", "must be a valid JSON document")
	}

	pointsEarned := PointsForTotal(input.Total)

	order := Order{
		CustomerId:   input.CustomerId,
		Items:        items,
		Total:        input.Total,
		Fulfilment:   input.Fulfilment,
		DeliveryTime: input.DeliveryTime,
		Status:       OrderStatusPending,
		PointsEarned: pointsEarned,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}

	confirmation := &OrderConfirmation{
		OrderId:      order.ID,
		PointsEarned: pointsEarned,
	}

	if input.CustomerId != nil && *input.CustomerId > 0 {
		// "Today" is the server clock in the shop's timezone, never
		// client-supplied.
		today, err := utils.ConvertToDate(time.Now(), utils.Timezone)
		if err != nil {
			today = time.Now().UTC()
		}
		if err := applyOrderRewards(ctx, *input.CustomerId, pointsEarned, today); err != nil {
			logger := config.GetLogger()
			config.LogError(logger, "order.go", "CreateOrder", "applyOrderRewards", map[string]interface{}{
				"order_id":    order.ID,
				"customer_id": *input.CustomerId,
			}, err)
		} else {
			confirmation.RewardsApplied = true
		}
	}

	return confirmation, nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	return utils.FetchSingleModel[Order](ctx, id)
}

func GetCustomerOrders(ctx context.Context, customerId int) ([]*Order, error) {
	db := config.GetDB()
	var orders []*Order
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerId).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// TrendingProduct is a catalog row plus how many recent orders contained it.
type TrendingProduct struct {
	Product
	OrderCount int `json:"order_count"`
}

type trendingItem struct {
	Id int `json:"id"`
}

// GetTrendingProducts tallies product ids out of the opaque order items from
// the last 7 days and returns the top 10. The tally happens in Go rather
// than in SQL: items is a stored document, not a relational detail table.
func GetTrendingProducts(ctx context.Context) ([]*TrendingProduct, error) {

	db := config.GetDB()
	cutoff := time.Now().AddDate(0, 0, -7)

	var rows []Order
	if err := db.WithContext(ctx).
		Select("items").
		Where("created_at > ?", cutoff).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[int]int{}
	for _, row := range rows {
		var items []trendingItem
		if err := json.Unmarshal(row.Items, &items); err != nil {
			continue // malformed legacy payloads don't break trending
		}
		for _, item := range items {
			if item.Id > 0 {
				counts[item.Id]++
			}
		}
	}
	if len(counts) == 0 {
		return []*TrendingProduct{}, nil
	}

	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return counts[ids[i]] > counts[ids[j]] })
	if len(ids) > 10 {
		ids = ids[:10]
	}

	var products []Product
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byId := make(map[int]Product, len(products))
	for _, p := range products {
		byId[p.ID] = p
	}

	trending := make([]*TrendingProduct, 0, len(ids))
	for _, id := range ids {
		p, ok := byId[id]
		if !ok {
			continue // product deleted since it was ordered
		}
		trending = append(trending, &TrendingProduct{Product: p, OrderCount: counts[id]})
	}
	return trending, nil
}
