package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/mwhited/taxlot-service/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// priceKeyPrefix namespaces cached market prices.
const priceKeyPrefix = "price:"

// Client wraps the Redis client with market price cache operations. The
// cache is fed by the price tick consumer and read by the
// unrealized-gains endpoint.
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromClient wraps an existing client (used by tests).
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SetPrice caches the latest price for a symbol with a TTL.
func (c *Client) SetPrice(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration) error {
	return c.rdb.Set(ctx, priceKeyPrefix+symbol, price.String(), ttl).Err()
}

// GetPrice retrieves the cached price for a symbol. Returns redis.Nil
// wrapped when no price is cached.
func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	val, err := c.rdb.Get(ctx, priceKeyPrefix+symbol).Result()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get price for %s: %w", symbol, err)
	}
	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid cached price for %s: %w", symbol, err)
	}
	return price, nil
}

// GetPrices fetches cached prices for a set of symbols in one round trip.
// Symbols with no cached price are simply absent from the returned map,
// which is exactly the shape the unrealized-gains calculation expects.
func (c *Client) GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = priceKeyPrefix + s
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(symbols))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // no cached price for this symbol
		}
		price, err := decimal.NewFromString(s)
		if err != nil {
			continue // skip unparseable entries rather than failing the whole read
		}
		prices[symbols[i]] = price
	}
	return prices, nil
}
