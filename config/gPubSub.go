package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// PriceAlertMessage is the payload published to the push-delivery pipeline for each
// batch of price changes. Actual push fan-out (web push, VAPID keys) happens downstream.
type PriceAlertMessage struct {
	BatchId       string           `json:"batch_id"`
	PublishedAt   time.Time        `json:"published_at"`
	Subscribers   int              `json:"subscribers"`
	Changes       []PriceAlertItem `json:"changes"`
	CorrelationId string           `json:"correlation_id"`
}

type PriceAlertItem struct {
	ChangeId    int    `json:"change_id"`
	ProductId   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	OldPrice    string `json:"old_price"`
	NewPrice    string `json:"new_price"`
	ChangedAt   string `json:"changed_at"`
}

var (
	pubsubClient        *pubsub.Client
	pubsubClientMu      sync.Mutex
	priceAlertTopicOnce sync.Once
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// GetPubSubClient returns a Pub/Sub client, initializing it on first use.
// It uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON is provided.
func GetPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON")

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Uses Application Default Credentials (Cloud Run service account or GOOGLE_APPLICATION_CREDENTIALS).
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}
	pubsubClient = c
	log.Printf("pubsub client ready (project_id=%s)", projectID)
	return pubsubClient, nil
}

func getPubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	// Common fallback.
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

// PriceAlertsConfigured reports whether publishing is possible without attempting a connection.
func PriceAlertsConfigured() bool {
	return getPubSubProjectID() != "" && os.Getenv("PRICE_ALERT_TOPIC") != ""
}

func createTopicIfNotExists(ctx context.Context, c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	if c == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}

// PublishPriceAlert publishes one batch and returns the Pub/Sub server-assigned message ID.
// The topic is created on first use so fresh environments need no manual setup.
func PublishPriceAlert(ctx context.Context, msg PriceAlertMessage) (string, error) {
	client, err := GetPubSubClient(ctx)
	if err != nil {
		return "", err
	}

	topicName := os.Getenv("PRICE_ALERT_TOPIC")
	if topicName == "" {
		return "", errors.New("PRICE_ALERT_TOPIC is required")
	}

	priceAlertTopicOnce.Do(func() {
		_, topicErr := createTopicIfNotExists(ctx, client, topicName)
		if topicErr != nil {
			// Publishing may still work if the topic exists but Exists() was denied.
			log.Printf("ensure pubsub topic %q: %v", topicName, topicErr)
		}
	})

	t := client.Topic(topicName)
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	result := t.Publish(ctx, &pubsub.Message{
		Data: msgJSON,
	})

	id, err := result.Get(ctx)
	return id, err
}
