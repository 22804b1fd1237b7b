// seed-products loads the starter catalog. Safe to rerun: rows are matched
// by (name, category) and only created when missing, so live prices and
// stock edits are never overwritten.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-products
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/models"
	"github.com/glengalafresh/shop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedRow struct {
	Name     string
	Category string
	Price    string
	Unit     string
	Popular  bool
}

var starterCatalog = []seedRow{
	{"Bananas", "Fruit", "3.99", "kg", true},
	{"Pink Lady Apples", "Fruit", "4.49", "kg", true},
	{"Navel Oranges", "Fruit", "2.99", "kg", false},
	{"Strawberries", "Fruit", "3.50", "punnet", true},
	{"Seedless Watermelon", "Fruit", "1.99", "kg", false},
	{"Avocados", "Fruit", "1.80", "each", true},
	{"Truss Tomatoes", "Vegetables", "4.99", "kg", true},
	{"Continental Cucumbers", "Vegetables", "1.50", "each", false},
	{"Broccoli", "Vegetables", "3.99", "kg", false},
	{"Carrots", "Vegetables", "1.49", "kg", false},
	{"Brown Onions", "Vegetables", "1.99", "kg", false},
	{"Washed Potatoes", "Vegetables", "2.49", "kg", true},
	{"Baby Spinach", "Vegetables", "2.50", "bag", false},
	{"Iceberg Lettuce", "Vegetables", "2.99", "each", false},
	{"Free Range Eggs", "Dairy & Eggs", "6.50", "dozen", true},
	{"Full Cream Milk 2L", "Dairy & Eggs", "3.10", "each", false},
	{"Greek Yoghurt 1kg", "Dairy & Eggs", "5.50", "each", false},
	{"Sourdough Loaf", "Bakery", "5.00", "each", false},
	{"Flat White Peaches", "Fruit", "5.99", "kg", false},
	{"Coriander Bunch", "Herbs", "1.99", "bunch", false},
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()

	created, skipped := 0, 0
	for _, row := range starterCatalog {
		price, err := decimal.NewFromString(row.Price)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad seed price for %q: %v\n", row.Name, err)
			os.Exit(1)
		}

		var existing models.Product
		err = db.WithContext(ctx).
			Where("name = ? AND category = ?", row.Name, row.Category).
			First(&existing).Error
		if err == nil {
			skipped++
			continue
		}
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup product %q: %v\n", row.Name, err)
			os.Exit(1)
		}

		popular := utils.NewFalse()
		if row.Popular {
			popular = utils.NewTrue()
		}
		product := models.Product{
			Name:        row.Name,
			Category:    row.Category,
			Price:       price,
			Unit:        row.Unit,
			IsActive:    utils.NewTrue(),
			MostPopular: popular,
			HasSpecial:  utils.NewFalse(),
			IsPremium:   utils.NewFalse(),
			IsOrganic:   utils.NewFalse(),
			Trending:    utils.NewFalse(),
			Stock:       999,
		}
		if err := db.WithContext(ctx).Create(&product).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create product %q: %v\n", row.Name, err)
			os.Exit(1)
		}
		created++
	}

	fmt.Printf("Seeded catalog: created=%d skipped=%d\n", created, skipped)
}
