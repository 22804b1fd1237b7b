package models

import (
	"context"
	"time"

	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NextStreak computes the consecutive-day order streak. Pure: no clock, no
// I/O; "today" is an explicit input so checkout and tests share one code path.
//
// Policy for a second order on the same calendar day: the streak is kept
// as-is, not extended. A gap of more than one day, or a last-order date in
// the future (clock skew, backdated rows), restarts the streak at 1.
func NextStreak(lastOrderDate *time.Time, currentStreak int, today time.Time) int {
	if lastOrderDate == nil {
		return 1
	}

	last := dateOnly(*lastOrderDate)
	cur := dateOnly(today)
	daysDiff := int(cur.Sub(last).Hours() / 24)

	switch {
	case daysDiff == 1:
		return currentStreak + 1
	case daysDiff == 0:
		return currentStreak
	default:
		return 1
	}
}

// PointsForTotal awards one loyalty point per whole currency unit spent.
// Frozen into the order row at creation; later edits never recompute it.
func PointsForTotal(total decimal.Decimal) int {
	if total.IsNegative() {
		return 0
	}
	return int(total.Floor().IntPart())
}

// dateOnly strips the time-of-day so streak arithmetic counts calendar days.
// Both operands are normalized to UTC midnights, which keeps the subtraction
// an exact multiple of 24h regardless of the source locations or DST.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// applyOrderRewards folds one order into the customer's loyalty aggregate:
// points, streak, longest streak, last order date, lifetime order count.
//
// Serialization: a per-customer redis lock plus SELECT ... FOR UPDATE inside
// the transaction. Two concurrent checkouts for the same customer must not
// lose an update on the read-modify-write of streak/points.
func applyOrderRewards(ctx context.Context, customerId int, pointsEarned int, today time.Time) error {
	lock, err := utils.CustomerLock(ctx, customerId, "rewards.go", "applyOrderRewards")
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer Customer
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&customer, customerId).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.ErrorRecordNotFound
			}
			return err
		}

		newStreak := NextStreak(customer.LastOrderDate, customer.CurrentStreak, today)
		longest := customer.LongestStreak
		if newStreak > longest {
			longest = newStreak
		}

		orderDate := dateOnly(today)
		return tx.Model(&Customer{}).
			Where("id = ?", customerId).
			Updates(map[string]interface{}{
				"loyalty_points":  gorm.Expr("loyalty_points + ?", pointsEarned),
				"current_streak":  newStreak,
				"longest_streak":  longest,
				"last_order_date": orderDate,
				"total_orders":    gorm.Expr("total_orders + 1"),
			}).Error
	})
}
