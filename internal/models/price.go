package models

// PriceEvent represents a Kafka message carrying market price updates
// from the market-data provider.
type PriceEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Data      PriceEventData `json:"data"`
}

// PriceEventData contains the price ticks in a price event.
type PriceEventData struct {
	Prices []PriceTick `json:"prices"`
}

// PriceTick is a single symbol price observation. Numeric fields arrive
// as strings on the wire.
type PriceTick struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	AsOf   string `json:"as_of"`
}
