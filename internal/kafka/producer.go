package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mwhited/taxlot-service/internal/models"
	"github.com/segmentio/kafka-go"
)

// Event types published on the taxlot topic.
const (
	eventLotAdded    = "LOT_ADDED"
	eventSaleSettled = "SALE_SETTLED"
)

// envelope is the wire format for taxlot events.
type envelope struct {
	EventType string      `json:"event_type"`
	Source    string      `json:"source"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Producer publishes taxlot lifecycle events to Kafka. Publishes are best
// effort from the HTTP layer; downstream consumers (dashboards, reporting
// jobs) tolerate gaps and can rebuild from the audit store.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Kafka producer for the taxlot topic
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 100 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// PublishLotAdded publishes a LOT_ADDED event for a new purchase.
func (p *Producer) PublishLotAdded(ctx context.Context, lot *models.TaxLot) error {
	return p.publish(ctx, lot.UserID+"|"+lot.Symbol, eventLotAdded, lot)
}

// PublishSaleSettled publishes a SALE_SETTLED event with the full sale result.
func (p *Producer) PublishSaleSettled(ctx context.Context, result *models.SaleResult) error {
	return p.publish(ctx, result.UserID+"|"+result.Symbol, eventSaleSettled, result)
}

// publish marshals and writes one event. The message key is the
// (user, symbol) pool so events for one pool stay ordered.
func (p *Producer) publish(ctx context.Context, key, eventType string, data interface{}) error {
	payload, err := json.Marshal(envelope{
		EventType: eventType,
		Source:    "taxlot-service",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

// Close closes the Kafka writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
