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

// ReportEventMessage is the payload published for every report lifecycle event.
type ReportEventMessage struct {
	EventId       int       `json:"event_id"`
	ReportId      int       `json:"report_id"`
	EventType     string    `json:"event_type"`
	FromStatus    string    `json:"from_status,omitempty"`
	ToStatus      string    `json:"to_status"`
	ActorId       int       `json:"actor_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	Payload       []byte    `json:"payload,omitempty"`
	CorrelationId string    `json:"correlation_id"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

// getPubSubClient lazily builds the shared client. It retries until ctx is done.
func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	if pubsubClient != nil {
		c := pubsubClient
		pubsubClientMu.Unlock()
		return c, nil
	}
	pubsubClientMu.Unlock()

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON")

	var attempt int
	for {
		attempt++

		var (
			c   *pubsub.Client
			err error
		)
		if credJSON != "" {
			c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
		} else {
			c, err = pubsub.NewClient(ctx, projectID)
		}
		if err == nil {
			pubsubClientMu.Lock()
			if pubsubClient == nil {
				pubsubClient = c
			} else {
				// Another goroutine won the race; close ours.
				_ = c.Close()
			}
			c2 := pubsubClient
			pubsubClientMu.Unlock()

			log.Printf("pubsub client ready (project_id=%s attempt=%d)", projectID, attempt)
			return c2, nil
		}

		sleep := RetryBackoff(attempt)
		log.Printf("failed to init pubsub client (project_id=%s attempt=%d): %v; retrying in %s", projectID, attempt, err, sleep)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("pubsub client: %w", ctx.Err())
		case <-time.After(sleep):
		}
	}
}

func reportEventsTopic() string {
	return os.Getenv("REPORT_EVENTS_TOPIC")
}

// EnsureReportEventsTopic creates REPORT_EVENTS_TOPIC when it does not exist yet.
func EnsureReportEventsTopic(ctx context.Context) error {
	topic := reportEventsTopic()
	if topic == "" {
		return errors.New("REPORT_EVENTS_TOPIC is required")
	}
	c, err := getPubSubClient(ctx)
	if err != nil {
		return err
	}
	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := c.CreateTopic(ctx, topic); err != nil {
		return fmt.Errorf("create topic %q: %w", topic, err)
	}
	return nil
}

// PublishReportEventWithResult publishes and returns the Pub/Sub server-assigned message ID.
func PublishReportEventWithResult(ctx context.Context, msg ReportEventMessage) (string, error) {
	client, err := getPubSubClient(ctx)
	if err != nil {
		return "", err
	}

	topicName := reportEventsTopic()
	if topicName == "" {
		return "", errors.New("REPORT_EVENTS_TOPIC is required")
	}

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	t := client.Topic(topicName)
	result := t.Publish(ctx, &pubsub.Message{
		Data: msgJSON,
		Attributes: map[string]string{
			"event_type":     msg.EventType,
			"correlation_id": msg.CorrelationId,
		},
	})
	return result.Get(ctx)
}

func ClosePubSub() error {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient == nil {
		return nil
	}
	err := pubsubClient.Close()
	pubsubClient = nil
	return err
}
