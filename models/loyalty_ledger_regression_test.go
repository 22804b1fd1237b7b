package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/models"
	"github.com/glengalafresh/shop_backend/utils"
	"github.com/shopspring/decimal"
)

func TestOrderLedgerAndPriceChangeNotifications(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "glengala_test")
	// Cache reads would mask DB state assertions below.
	t.Setenv("CATALOG_CACHE", "false")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	models.MigrateTable()

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	// 1) Registration is idempotent on the normalized phone number.
	reg, err := models.RegisterCustomer(ctx, &models.NewCustomer{
		Name:  "Maria",
		Phone: "0412 345 678",
	})
	if err != nil {
		t.Fatalf("RegisterCustomer: %v", err)
	}
	if reg.Existing {
		t.Fatalf("first registration reported existing")
	}
	again, err := models.RegisterCustomer(ctx, &models.NewCustomer{
		Name:  "Maria Again",
		Phone: "+61 412 345 678",
	})
	if err != nil {
		t.Fatalf("RegisterCustomer(again): %v", err)
	}
	if !again.Existing || again.CustomerId != reg.CustomerId {
		t.Fatalf("re-registration: got %+v, want existing account %d", again, reg.CustomerId)
	}
	customerId := reg.CustomerId

	// 2) First order: whole-dollar points, streak starts at 1.
	conf, err := models.CreateOrder(ctx, &models.NewOrder{
		CustomerId: &customerId,
		Items:      []byte(`[{"id":1,"qty":2}]`),
		Total:      decimal.RequireFromString("45.99"),
		Fulfilment: models.FulfilmentPickup,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if conf.PointsEarned != 45 || !conf.RewardsApplied {
		t.Fatalf("first order confirmation: %+v, want 45 points applied", conf)
	}
	cust := fetchCustomer(t, ctx, customerId)
	if cust.LoyaltyPoints != 45 || cust.CurrentStreak != 1 || cust.LongestStreak != 1 || cust.TotalOrders != 1 {
		t.Fatalf("after first order: %+v", cust)
	}

	shopToday, err := utils.ConvertToDate(time.Now(), utils.Timezone)
	if err != nil {
		t.Fatalf("ConvertToDate: %v", err)
	}
	// The ledger stores date columns as UTC midnights of the shop-local date;
	// write the same form here so the DATE column round-trips exactly.
	today := time.Date(shopToday.Year(), shopToday.Month(), shopToday.Day(), 0, 0, 0, 0, time.UTC)

	// 3) Ordered yesterday with a running streak: next order extends it.
	yesterday := today.AddDate(0, 0, -1)
	setLoyaltyState(t, ctx, customerId, 3, 5, yesterday)
	conf, err = models.CreateOrder(ctx, &models.NewOrder{
		CustomerId: &customerId,
		Total:      decimal.RequireFromString("10.00"),
	})
	if err != nil {
		t.Fatalf("CreateOrder(consecutive): %v", err)
	}
	if !conf.RewardsApplied {
		t.Fatalf("consecutive order: rewards not applied")
	}
	cust = fetchCustomer(t, ctx, customerId)
	if cust.CurrentStreak != 4 {
		t.Fatalf("consecutive day: streak = %d, want 4", cust.CurrentStreak)
	}
	if cust.LongestStreak != 5 {
		t.Fatalf("longest streak must not shrink: got %d, want 5", cust.LongestStreak)
	}

	// 4) A second order on the same day leaves the streak alone but still
	// accrues points and counts the order.
	pointsBefore := cust.LoyaltyPoints
	ordersBefore := cust.TotalOrders
	if _, err := models.CreateOrder(ctx, &models.NewOrder{
		CustomerId: &customerId,
		Total:      decimal.RequireFromString("7.50"),
	}); err != nil {
		t.Fatalf("CreateOrder(same day): %v", err)
	}
	cust = fetchCustomer(t, ctx, customerId)
	if cust.CurrentStreak != 4 {
		t.Fatalf("same-day order: streak = %d, want 4", cust.CurrentStreak)
	}
	if cust.LoyaltyPoints != pointsBefore+7 || cust.TotalOrders != ordersBefore+1 {
		t.Fatalf("same-day order: points %d->%d orders %d->%d", pointsBefore, cust.LoyaltyPoints, ordersBefore, cust.TotalOrders)
	}

	// 5) A gap resets the streak to 1; longest survives.
	setLoyaltyState(t, ctx, customerId, 4, 5, today.AddDate(0, 0, -4))
	if _, err := models.CreateOrder(ctx, &models.NewOrder{
		CustomerId: &customerId,
		Total:      decimal.RequireFromString("3.00"),
	}); err != nil {
		t.Fatalf("CreateOrder(after gap): %v", err)
	}
	cust = fetchCustomer(t, ctx, customerId)
	if cust.CurrentStreak != 1 || cust.LongestStreak != 5 {
		t.Fatalf("after gap: streak=%d longest=%d, want 1/5", cust.CurrentStreak, cust.LongestStreak)
	}

	// 6) Anonymous and unknown-customer orders persist without touching any
	// loyalty account.
	conf, err = models.CreateOrder(ctx, &models.NewOrder{
		Total: decimal.RequireFromString("20.00"),
	})
	if err != nil {
		t.Fatalf("CreateOrder(anonymous): %v", err)
	}
	if conf.RewardsApplied || conf.PointsEarned != 20 {
		t.Fatalf("anonymous order confirmation: %+v", conf)
	}
	ghost := 99999
	conf, err = models.CreateOrder(ctx, &models.NewOrder{
		CustomerId: &ghost,
		Total:      decimal.RequireFromString("5.00"),
	})
	if err != nil {
		t.Fatalf("CreateOrder(unknown customer): %v", err)
	}
	if conf.RewardsApplied {
		t.Fatalf("unknown customer: rewards must not be applied")
	}
	if _, err := models.GetOrder(ctx, conf.OrderId); err != nil {
		t.Fatalf("order for unknown customer must still persist: %v", err)
	}

	// 7) Negative totals are rejected before anything is written.
	if _, err := models.CreateOrder(ctx, &models.NewOrder{
		Total: decimal.RequireFromString("-1.00"),
	}); !utils.IsValidationError(err) {
		t.Fatalf("negative total: got %v, want validation error", err)
	}

	// 8) Price-change ledger: a price edit appends exactly one event.
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:     "Bananas",
		Category: "Fruit",
		Price:    decimal.RequireFromString("2.49"),
		Unit:     "kg",
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	update := models.NewProduct{
		Name:     "Bananas",
		Category: "Fruit",
		Price:    decimal.RequireFromString("2.99"),
		Unit:     "kg",
	}
	result, err := models.UpdateProduct(ctx, product.ID, &update)
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if !result.PriceChanged {
		t.Fatalf("price edit 2.49->2.99 did not report a change")
	}

	changes, err := models.ListUnnotifiedPriceChanges(ctx)
	if err != nil {
		t.Fatalf("ListUnnotifiedPriceChanges: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("unnotified changes = %d, want 1", len(changes))
	}
	change := changes[0]
	if change.ProductId != product.ID || change.ProductName != "Bananas" {
		t.Fatalf("change row: %+v", change)
	}
	if !change.OldPrice.Equal(decimal.RequireFromString("2.49")) || !change.NewPrice.Equal(decimal.RequireFromString("2.99")) {
		t.Fatalf("change prices: old=%s new=%s", change.OldPrice, change.NewPrice)
	}

	// Saving again with the identical price must not append another event.
	result, err = models.UpdateProduct(ctx, product.ID, &update)
	if err != nil {
		t.Fatalf("UpdateProduct(no-op): %v", err)
	}
	if result.PriceChanged {
		t.Fatalf("identical price reported as changed")
	}
	changes, err = models.ListUnnotifiedPriceChanges(ctx)
	if err != nil {
		t.Fatalf("ListUnnotifiedPriceChanges: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("after no-op save: unnotified changes = %d, want 1", len(changes))
	}

	// 9) Marking sweeps everything in one statement and is terminal.
	marked, err := models.MarkAllPriceChangesNotified(ctx)
	if err != nil {
		t.Fatalf("MarkAllPriceChangesNotified: %v", err)
	}
	if marked != 1 {
		t.Fatalf("marked = %d, want 1", marked)
	}
	changes, err = models.ListUnnotifiedPriceChanges(ctx)
	if err != nil {
		t.Fatalf("ListUnnotifiedPriceChanges: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("after mark: unnotified changes = %d, want 0", len(changes))
	}
	marked, err = models.MarkAllPriceChangesNotified(ctx)
	if err != nil {
		t.Fatalf("MarkAllPriceChangesNotified(empty): %v", err)
	}
	if marked != 0 {
		t.Fatalf("second mark = %d, want 0", marked)
	}

	// 10) The storefront poll still sees the (now notified) change with the
	// product presentation fields joined in.
	recent, err := models.RecentPriceChanges(ctx, time.Now().Add(-time.Hour), 50)
	if err != nil {
		t.Fatalf("RecentPriceChanges: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("recent changes = %d, want 1", len(recent))
	}
	if recent[0].Category != "Fruit" || recent[0].Unit != "kg" {
		t.Fatalf("recent change join: %+v", recent[0])
	}
}

func fetchCustomer(t *testing.T, ctx context.Context, id int) *models.Customer {
	t.Helper()
	cust, err := models.GetCustomer(ctx, id)
	if err != nil {
		t.Fatalf("GetCustomer(%d): %v", id, err)
	}
	return cust
}

func setLoyaltyState(t *testing.T, ctx context.Context, customerId, currentStreak, longestStreak int, lastOrderDate time.Time) {
	t.Helper()
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", customerId).
		Updates(map[string]interface{}{
			"current_streak":  currentStreak,
			"longest_streak":  longestStreak,
			"last_order_date": lastOrderDate,
		}).Error; err != nil {
		t.Fatalf("setLoyaltyState: %v", err)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("shop-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("shop-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=glengala_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
