package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType classifies the tax character of a single lot disposal.
type EventType string

const (
	EventRealizedGain EventType = "realized_gain"
	EventRealizedLoss EventType = "realized_loss"
	EventWashSale     EventType = "wash_sale"
)

// DisposalEvent is one lot-consumption record produced during a sale.
// Events are immutable once created and live in an append-only log.
type DisposalEvent struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	LotID       string          `json:"lot_id"`
	Symbol      string          `json:"symbol"`
	Shares      decimal.Decimal `json:"shares"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
	SaleDate    time.Time       `json:"sale_date"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	Proceeds    decimal.Decimal `json:"proceeds"`
	Gain        decimal.Decimal `json:"gain"`
	IsShortTerm bool            `json:"is_short_term"`
	IsWashSale  bool            `json:"is_wash_sale"`
	EventType   EventType       `json:"event_type"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SaleResult aggregates the disposal events emitted by one sale call.
// IsShortTerm is true if any consumed lot was held short-term; a sale
// spanning lots of mixed holding period is conservatively flagged.
type SaleResult struct {
	UserID         string           `json:"user_id"`
	Symbol         string           `json:"symbol"`
	Method         DisposalMethod   `json:"method"`
	Events         []*DisposalEvent `json:"events"`
	TotalProceeds  decimal.Decimal  `json:"total_proceeds"`
	TotalCostBasis decimal.Decimal  `json:"total_cost_basis"`
	RealizedGain   decimal.Decimal  `json:"realized_gain"`
	IsShortTerm    bool             `json:"is_short_term"`

	// Snapshots of the lot records this sale touched, taken inside the
	// disposal's critical section. The write-through persistence layer
	// uses them; they are not part of the API response.
	UpdatedLots []TaxLot `json:"-"`
	CreatedLots []TaxLot `json:"-"`
}
