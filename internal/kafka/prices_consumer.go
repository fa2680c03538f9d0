package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mwhited/taxlot-service/internal/models"
	"github.com/mwhited/taxlot-service/internal/taxlot"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// priceTTL bounds how long a cached price is served without a fresh tick.
const priceTTL = 15 * time.Minute

// PriceCache defines the interface for the price cache written by the consumer
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration) error
}

// PricesConsumer handles consuming market price events from Kafka and
// keeping the price cache current for unrealized-gain valuation.
type PricesConsumer struct {
	reader *kafka.Reader
	cache  PriceCache
}

// NewPricesConsumer creates a new Kafka consumer for price events
func NewPricesConsumer(brokers []string, topic, groupID string, cache PriceCache) *PricesConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-prices", // Separate consumer group for prices
		MinBytes:       10e3,                // 10KB
		MaxBytes:       10e6,                // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset, // Only read new ticks (not historical)
		CommitInterval: time.Second,
	})

	return &PricesConsumer{
		reader: reader,
		cache:  cache,
	}
}

// Start begins consuming messages from Kafka
func (c *PricesConsumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka prices consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Prices consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading price message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing price message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *PricesConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PriceEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price event: %w", err)
	}

	// Both single ticks and full snapshots carry the same payload shape.
	if event.EventType != "PRICE_TICK" && event.EventType != "PRICE_SNAPSHOT" {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	cached := 0
	for _, tick := range event.Data.Prices {
		symbol := taxlot.NormalizeSymbol(tick.Symbol)
		if symbol == "" {
			continue
		}

		price, err := decimal.NewFromString(tick.Price)
		if err != nil || !price.IsPositive() {
			log.Printf("Warning: skipping invalid price %q for %s", tick.Price, symbol)
			continue
		}

		if err := c.cache.SetPrice(ctx, symbol, price, priceTTL); err != nil {
			return fmt.Errorf("failed to cache price for %s: %w", symbol, err)
		}
		cached++
	}

	if cached > 0 {
		log.Printf("Cached %d prices from %s event", cached, event.EventType)
	}
	return nil
}

// Close closes the Kafka consumer
func (c *PricesConsumer) Close() error {
	return c.reader.Close()
}
