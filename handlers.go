package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/models"
	"github.com/glengalafresh/shop_backend/utils"
)

// respondError maps model errors onto HTTP statuses. Validation failures are
// the caller's fault; unknown errors are logged and hidden behind a 500.
func respondError(c *gin.Context, module, funcName string, err error) {
	if utils.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	logger := config.GetLogger()
	config.LogError(logger, module, funcName, c.FullPath(), nil, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

// ---- catalog ----

func listProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := models.GetActiveProducts(c.Request.Context())
		if err != nil {
			respondError(c, "handlers.go", "listProductsHandler", err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func getProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, "handlers.go", "getProductHandler", err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func createProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "handlers.go", "createProductHandler", err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

func updateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := models.UpdateProduct(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "handlers.go", "updateProductHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func deleteProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		product, err := models.DeleteProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, "handlers.go", "deleteProductHandler", err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func bulkUpdateProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var rows []models.BulkProduct
		if err := c.ShouldBindJSON(&rows); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		updated, err := models.BulkUpdateProducts(c.Request.Context(), rows)
		if err != nil {
			respondError(c, "handlers.go", "bulkUpdateProductsHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": updated})
	}
}

func bulkUpdatePricesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var updates []models.BulkProductUpdate
		if err := c.ShouldBindJSON(&updates); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		updated, err := models.BulkUpdatePrices(c.Request.Context(), updates)
		if err != nil {
			respondError(c, "handlers.go", "bulkUpdatePricesHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": updated})
	}
}

func exportProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := models.ExportProductsXlsx(c.Request.Context())
		if err != nil {
			respondError(c, "handlers.go", "exportProductsHandler", err)
			return
		}
		filename := "products-" + time.Now().Format("2006-01-02") + ".xlsx"
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := f.Write(c.Writer); err != nil {
			_ = c.Error(err)
		}
	}
}

func dailySpecialsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		specials, err := models.GetDailySpecials(c.Request.Context())
		if err != nil {
			respondError(c, "handlers.go", "dailySpecialsHandler", err)
			return
		}
		c.JSON(http.StatusOK, specials)
	}
}

func trendingProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		trending, err := models.GetTrendingProducts(c.Request.Context())
		if err != nil {
			respondError(c, "handlers.go", "trendingProductsHandler", err)
			return
		}
		c.JSON(http.StatusOK, trending)
	}
}

// ---- settings ----

func getSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := models.GetShopSettings(c.Request.Context())
		if err != nil {
			respondError(c, "handlers.go", "getSettingsHandler", err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func updateSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.UpdateShopSettingsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		settings, err := models.UpdateShopSettings(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "handlers.go", "updateSettingsHandler", err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

// ---- accounts & loyalty ----

func registerCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := models.RegisterCustomer(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "handlers.go", "registerCustomerHandler", err)
			return
		}
		status := http.StatusCreated
		if result.Existing {
			status = http.StatusOK
		}
		c.JSON(status, result)
	}
}

func customerProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		profile, err := models.GetCustomerProfile(c.Request.Context(), id)
		if err != nil {
			respondError(c, "handlers.go", "customerProfileHandler", err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func customerOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		orders, err := models.GetCustomerOrders(c.Request.Context(), id)
		if err != nil {
			respondError(c, "handlers.go", "customerOrdersHandler", err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// ---- checkout ----

func createOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		confirmation, err := models.CreateOrder(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "handlers.go", "createOrderHandler", err)
			return
		}
		c.JSON(http.StatusCreated, confirmation)
	}
}

func getOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		order, err := models.GetOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, "handlers.go", "getOrderHandler", err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// ---- favorites ----

func listFavoritesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "userId")
		if !ok {
			return
		}
		favorites, err := models.GetCustomerFavorites(c.Request.Context(), id)
		if err != nil {
			respondError(c, "handlers.go", "listFavoritesHandler", err)
			return
		}
		c.JSON(http.StatusOK, favorites)
	}
}

func addFavoriteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFavorite
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if err := models.AddFavorite(c.Request.Context(), &input); err != nil {
			respondError(c, "handlers.go", "addFavoriteHandler", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "ok"})
	}
}

func removeFavoriteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		customerId, ok := pathId(c, "userId")
		if !ok {
			return
		}
		productId, ok := pathId(c, "productId")
		if !ok {
			return
		}
		if err := models.RemoveFavorite(c.Request.Context(), customerId, productId); err != nil {
			respondError(c, "handlers.go", "removeFavoriteHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// ---- push subscriptions ----

func subscribePushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPushSubscription
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if err := models.SubscribePush(c.Request.Context(), &input); err != nil {
			respondError(c, "handlers.go", "subscribePushHandler", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "subscribed"})
	}
}

func unsubscribePushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Endpoint string `json:"endpoint" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if err := models.UnsubscribePush(c.Request.Context(), input.Endpoint); err != nil {
			respondError(c, "handlers.go", "unsubscribePushHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "unsubscribed"})
	}
}

// ---- price-change ledger ----

// recentPriceChangesHandler serves the in-app poll. Default window: the last
// 7 days.
func recentPriceChangesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		since := time.Now().AddDate(0, 0, -7)
		if v := c.Query("since"); v != "" {
			parsed, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
				return
			}
			since = parsed
		}
		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		changes, err := models.RecentPriceChanges(c.Request.Context(), since, limit)
		if err != nil {
			respondError(c, "handlers.go", "recentPriceChangesHandler", err)
			return
		}
		c.JSON(http.StatusOK, changes)
	}
}

func markChangesSeenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			ChangeIds []int `json:"change_ids"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		acknowledged := models.AcknowledgePriceChangesSeen(c.Request.Context(), input.ChangeIds)
		c.JSON(http.StatusOK, gin.H{"acknowledged": acknowledged})
	}
}

// sendPriceNotificationsHandler triggers a sweep on demand (admin "notify
// now" button). The background worker runs the same sweep on a timer.
func sendPriceNotificationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		result, err := sweepPriceAlerts(c.Request.Context(), logger)
		if err != nil {
			respondError(c, "handlers.go", "sendPriceNotificationsHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
