package models

import (
	"context"
	"errors"
	"time"

	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/utils"
	"github.com/go-sql-driver/mysql"
)

// Customer is the loyalty account record. Points, streaks and order counts
// are mutated only by the order ledger (applyOrderRewards); everything else
// here is registration and profile reads.
//
// Invariant: longest_streak >= current_streak after every update.
type Customer struct {
	ID            int        `gorm:"primary_key" json:"id"`
	Name          string     `gorm:"size:100;not null" json:"name" binding:"required"`
	Phone         string     `gorm:"uniqueIndex;size:20;not null" json:"phone" binding:"required"`
	Address       string     `gorm:"size:255" json:"address"`
	Postcode      string     `gorm:"size:10" json:"postcode"`
	LoyaltyPoints int        `gorm:"not null;default:0" json:"loyalty_points"`
	CurrentStreak int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak int        `gorm:"not null;default:0" json:"longest_streak"`
	LastOrderDate *time.Time `gorm:"type:date" json:"last_order_date"`
	TotalOrders   int        `gorm:"not null;default:0" json:"total_orders"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type NewCustomer struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Address  string `json:"address"`
	Postcode string `json:"postcode"`
}

type RegistrationResult struct {
	CustomerId    int  `json:"user_id"`
	Existing      bool `json:"existing"`
	LoyaltyPoints int  `json:"loyalty_points"`
}

// CustomerProfile is the storefront profile view: account stats plus the
// gamification extras the shop page renders.
type CustomerProfile struct {
	Customer
	Challenges []*Challenge `json:"challenges"`
	Favorites  []*Product   `json:"favorites"`
}

const mysqlErrDuplicateEntry = 1062

// RegisterCustomer registers by phone number, or returns the existing
// account. Phone is normalized to E.164 so formatting differences resolve to
// the same customer.
func RegisterCustomer(ctx context.Context, input *NewCustomer) (*RegistrationResult, error) {

	phone, err := utils.NormalizePhoneNumber(input.Phone, utils.CountryCode)
	if err != nil {
		return nil, utils.NewValidationError("phone", err.Error())
	}

	db := config.GetDB()

	var existing Customer
	err = db.WithContext(ctx).Where("phone = ?", phone).First(&existing).Error
	if err == nil {
		return &RegistrationResult{
			CustomerId:    existing.ID,
			Existing:      true,
			LoyaltyPoints: existing.LoyaltyPoints,
		}, nil
	}

	customer := Customer{
		Name:     input.Name,
		Phone:    phone,
		Address:  input.Address,
		Postcode: input.Postcode,
	}
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		// Two concurrent registrations for the same phone: the unique index
		// rejects the loser, which then reads the winner's row.
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			if ferr := db.WithContext(ctx).Where("phone = ?", phone).First(&existing).Error; ferr == nil {
				return &RegistrationResult{
					CustomerId:    existing.ID,
					Existing:      true,
					LoyaltyPoints: existing.LoyaltyPoints,
				}, nil
			}
		}
		return nil, err
	}

	return &RegistrationResult{
		CustomerId:    customer.ID,
		Existing:      false,
		LoyaltyPoints: 0,
	}, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	return utils.FetchSingleModel[Customer](ctx, id)
}

// GetCustomerProfile returns the account with active challenges and favorite
// products attached.
func GetCustomerProfile(ctx context.Context, id int) (*CustomerProfile, error) {

	customer, err := utils.FetchSingleModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}

	challenges, err := GetActiveChallenges(ctx, id)
	if err != nil {
		return nil, err
	}

	favorites, err := GetCustomerFavorites(ctx, id)
	if err != nil {
		return nil, err
	}

	return &CustomerProfile{
		Customer:   *customer,
		Challenges: challenges,
		Favorites:  favorites,
	}, nil
}
