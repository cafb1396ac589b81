package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ansovision/mt5-community-api/internal/models"
)

// Event types published to the events topic.
const (
	EventSignalReceived = "SIGNAL_RECEIVED"
	EventTradeConfirmed = "TRADE_CONFIRMED"
)

// Event is the envelope every published message uses.
type Event struct {
	EventType string      `json:"event_type"`
	Source    string      `json:"source"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Producer publishes service events to Kafka.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Kafka producer for the events topic.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 100 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// PublishSignalReceived announces a stored signal.
func (p *Producer) PublishSignalReceived(ctx context.Context, signal *models.Signal) error {
	return p.publish(ctx, EventSignalReceived, signal.Symbol, signal)
}

// PublishTradeConfirmed announces a confirmed trade.
func (p *Producer) PublishTradeConfirmed(ctx context.Context, trade *models.Trade) error {
	return p.publish(ctx, EventTradeConfirmed, strconv.FormatInt(trade.Ticket, 10), trade)
}

func (p *Producer) publish(ctx context.Context, eventType, key string, data interface{}) error {
	event := Event{
		EventType: eventType,
		Source:    "community-trading-api",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

// Close closes the producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
