package models

import (
	"log"

	"github.com/glengalafresh/shop_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Product{}, &DailySpecial{},
		&Customer{}, &Order{},
		&Challenge{}, &Favorite{},
		&PushSubscription{}, &PriceChange{},
		&ShopSettings{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
