package config

import (
	"os"
	"strings"
)

// PriceAlertWorkerEnabled controls the background price-alert processor.
//
// Set via env:
// - PRICE_ALERT_WORKER=false to disable
//
// Default: run as a safety-net even when the admin endpoint is used manually,
// so unnotified price changes are eventually swept. Marking is idempotent
// (notified flips false->true once), so at-least-once processing is safe.
func PriceAlertWorkerEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("PRICE_ALERT_WORKER")))
	if v == "false" || v == "0" || v == "no" || v == "n" {
		return false
	}
	return true
}

// CatalogCacheEnabled toggles the redis product-list/settings cache.
//
// Set via env:
// - CATALOG_CACHE=false to always read through to MySQL
func CatalogCacheEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("CATALOG_CACHE")))
	if v == "false" || v == "0" || v == "no" || v == "n" {
		return false
	}
	return true
}
