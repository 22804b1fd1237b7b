package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/glengalafresh/shop_backend/config"
	"github.com/glengalafresh/shop_backend/models"
	"github.com/glengalafresh/shop_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const priceAlertLockKey = "lock:price-alerts"

// PriceAlertWorker sweeps unnotified price changes into push batches on a
// timer. The admin "notify now" endpoint runs the same sweep; a best-effort
// redis lock keeps the two from double-publishing the same batch.
type PriceAlertWorker struct {
	DB       *gorm.DB
	Logger   *logrus.Logger
	WorkerID string
	Interval time.Duration
}

func NewPriceAlertWorker(db *gorm.DB, logger *logrus.Logger) *PriceAlertWorker {
	interval := 60 * time.Second
	if v := strings.TrimSpace(os.Getenv("PRICE_ALERT_INTERVAL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Second
		}
	}
	return &PriceAlertWorker{
		DB:       db,
		Logger:   logger,
		WorkerID: "price-alerts-" + time.Now().Format("20060102-150405.000"),
		Interval: interval,
	}
}

func (w *PriceAlertWorker) Run(ctx context.Context) {
	if w == nil || w.DB == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.processOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.Interval):
		}
	}
}

func (w *PriceAlertWorker) processOnce(ctx context.Context) {
	sweepCtx := utils.SetCorrelationIdInContext(ctx, uuid.NewString())
	result, err := sweepPriceAlerts(sweepCtx, w.Logger)
	if err != nil {
		if w.Logger != nil {
			w.Logger.WithFields(logrus.Fields{
				"field":     "PriceAlertWorker",
				"worker_id": w.WorkerID,
			}).Error("price alert sweep failed: " + err.Error())
		}
		return
	}
	if result.Changes > 0 && w.Logger != nil {
		w.Logger.WithFields(logrus.Fields{
			"field":       "PriceAlertWorker",
			"worker_id":   w.WorkerID,
			"batch_id":    result.BatchId,
			"changes":     result.Changes,
			"subscribers": result.Subscribers,
			"published":   result.Published,
		}).Info("price alert batch swept")
	}
}

// PriceAlertSweepResult reports what one sweep did.
type PriceAlertSweepResult struct {
	BatchId     string `json:"batch_id"`
	Changes     int    `json:"changes"`
	Subscribers int    `json:"subscribers"`
	Marked      int64  `json:"marked"`
	Published   bool   `json:"published"`
	MessageId   string `json:"message_id,omitempty"`
}

// sweepPriceAlerts gathers every unnotified price change into one batch,
// publishes it, then marks the ledger. Publish happens BEFORE the mark: a
// publish failure leaves the rows unnotified so the next sweep retries them.
// That makes delivery at-least-once; the push pipeline dedupes on batch_id.
func sweepPriceAlerts(ctx context.Context, logger *logrus.Logger) (*PriceAlertSweepResult, error) {
	ctx, span := tracer.Start(ctx, "pricealerts.sweep")
	defer span.End()

	// Redis lock is a best-effort optimization: overlapping sweeps are safe
	// (at-least-once), just wasteful.
	var lock *redislock.Lock
	if redisLock := config.GetRedisLock(); redisLock != nil {
		l, err := redisLock.Obtain(ctx, priceAlertLockKey, 30*time.Second, nil)
		if err == nil {
			lock = l
		} else if err != redislock.ErrNotObtained && logger != nil {
			logger.WithFields(logrus.Fields{
				"field": "sweepPriceAlerts",
			}).Warn("error obtaining redis lock; proceeding without it: " + err.Error())
		}
	}
	defer func() {
		if lock == nil {
			return
		}
		if releaseErr := lock.Release(ctx); releaseErr != nil && logger != nil {
			logger.WithFields(logrus.Fields{
				"field": "sweepPriceAlerts",
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}()

	changes, err := models.ListUnnotifiedPriceChanges(ctx)
	if err != nil {
		return nil, err
	}

	result := &PriceAlertSweepResult{
		BatchId: uuid.NewString(),
		Changes: len(changes),
	}
	if len(changes) == 0 {
		return result, nil
	}

	subscribers, err := models.CountPushSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	result.Subscribers = int(subscribers)

	if config.PriceAlertsConfigured() {
		correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
		msg := config.PriceAlertMessage{
			BatchId:       result.BatchId,
			PublishedAt:   time.Now().UTC(),
			Subscribers:   result.Subscribers,
			Changes:       make([]config.PriceAlertItem, 0, len(changes)),
			CorrelationId: correlationId,
		}
		for _, change := range changes {
			msg.Changes = append(msg.Changes, config.PriceAlertItem{
				ChangeId:    change.ID,
				ProductId:   change.ProductId,
				ProductName: change.ProductName,
				OldPrice:    change.OldPrice.String(),
				NewPrice:    change.NewPrice.String(),
				ChangedAt:   change.ChangedAt.UTC().Format(time.RFC3339),
			})
		}

		messageId, err := config.PublishPriceAlert(ctx, msg)
		if err != nil {
			return nil, err
		}
		result.Published = true
		result.MessageId = messageId
	} else if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":    "sweepPriceAlerts",
			"batch_id": result.BatchId,
			"changes":  result.Changes,
		}).Warn("pubsub not configured; marking changes notified without publishing")
	}

	marked, err := models.MarkAllPriceChangesNotified(ctx)
	if err != nil {
		return nil, err
	}
	result.Marked = marked
	return result, nil
}
