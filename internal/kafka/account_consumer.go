package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/ansovision/mt5-community-api/internal/distributor"
	"github.com/ansovision/mt5-community-api/internal/metrics"
	"github.com/ansovision/mt5-community-api/internal/models"
)

// AccountRepository defines the interface for account database operations
type AccountRepository interface {
	CreateAccountSnapshot(s *models.AccountSnapshot) error
}

// ProfitDistributor triggers the pooled profit split after a snapshot.
type ProfitDistributor interface {
	Distribute(totalProfit decimal.Decimal) (distributor.Result, error)
}

// AccountEvent represents an account update message from the terminal bridge.
type AccountEvent struct {
	EventType string           `json:"event_type"`
	Source    string           `json:"source"`
	Timestamp string           `json:"timestamp"`
	Data      AccountEventData `json:"data"`
}

// AccountEventData carries the account figures as decimal strings.
type AccountEventData struct {
	Balance    string `json:"balance"`
	Equity     string `json:"equity"`
	Margin     string `json:"margin"`
	FreeMargin string `json:"free_margin"`
	Profit     string `json:"profit"`
}

// AccountConsumer stores account snapshots arriving over Kafka and runs
// the profit distribution, mirroring the HTTP account-update endpoint.
type AccountConsumer struct {
	reader *kafka.Reader
	repo   AccountRepository
	dist   ProfitDistributor
	log    zerolog.Logger
}

// NewAccountConsumer creates a new Kafka consumer for account events
func NewAccountConsumer(brokers []string, topic, groupID string, repo AccountRepository, dist ProfitDistributor, log zerolog.Logger) *AccountConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-account",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset, // Only read new messages (not historical)
		CommitInterval: time.Second,
	})

	return &AccountConsumer{
		reader: reader,
		repo:   repo,
		dist:   dist,
		log:    log,
	}
}

// Start begins consuming messages from Kafka
func (c *AccountConsumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("starting account consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("account consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				c.log.Error().Err(err).Msg("error reading account message")
				continue
			}

			if err := c.processMessage(msg); err != nil {
				c.log.Error().Err(err).Msg("error processing account message")
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *AccountConsumer) processMessage(msg kafka.Message) error {
	var event AccountEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal account event: %w", err)
	}

	if event.EventType != "ACCOUNT_UPDATE" {
		c.log.Debug().Str("event_type", event.EventType).Msg("ignoring event")
		return nil
	}

	snapshot, err := c.convertEventData(event.Data)
	if err != nil {
		return err
	}

	if err := c.repo.CreateAccountSnapshot(snapshot); err != nil {
		return fmt.Errorf("failed to store account snapshot: %w", err)
	}
	metrics.AccountUpdatesTotal.WithLabelValues("kafka").Inc()

	// Distribution stays best effort: a failed split never nacks the snapshot.
	result, err := c.dist.Distribute(snapshot.Profit)
	if err != nil {
		c.log.Error().Err(err).Msg("profit distribution failed")
		return nil
	}

	c.log.Info().
		Str("balance", snapshot.Balance.String()).
		Str("profit", snapshot.Profit.String()).
		Str("outcome", string(result.Outcome)).
		Msg("account snapshot processed")

	return nil
}

// convertEventData parses the decimal strings from the event payload.
func (c *AccountConsumer) convertEventData(data AccountEventData) (*models.AccountSnapshot, error) {
	balance, err := decimal.NewFromString(data.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", data.Balance, err)
	}
	equity, err := decimal.NewFromString(data.Equity)
	if err != nil {
		return nil, fmt.Errorf("invalid equity %q: %w", data.Equity, err)
	}
	profit, err := decimal.NewFromString(data.Profit)
	if err != nil {
		return nil, fmt.Errorf("invalid profit %q: %w", data.Profit, err)
	}

	margin, err := decimal.NewFromString(data.Margin)
	if err != nil {
		margin = decimal.Zero
	}
	freeMargin, err := decimal.NewFromString(data.FreeMargin)
	if err != nil {
		freeMargin = decimal.Zero
	}

	return &models.AccountSnapshot{
		Balance:    balance,
		Equity:     equity,
		Margin:     margin,
		FreeMargin: freeMargin,
		Profit:     profit,
		Timestamp:  time.Now().UTC(),
	}, nil
}

// Close closes the Kafka consumer
func (c *AccountConsumer) Close() error {
	return c.reader.Close()
}
