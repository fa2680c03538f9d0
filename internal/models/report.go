package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LotBreakdown annotates one open lot inside an UnrealizedGain snapshot.
type LotBreakdown struct {
	LotID        string          `json:"lot_id"`
	Shares       decimal.Decimal `json:"shares"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	PurchaseDate time.Time       `json:"purchase_date"`
	HoldingDays  int             `json:"holding_days"`
	IsShortTerm  bool            `json:"is_short_term"`
}

// UnrealizedGain is a point-in-time valuation of all open lots for one symbol.
type UnrealizedGain struct {
	Symbol         string          `json:"symbol"`
	TotalShares    decimal.Decimal `json:"total_shares"`
	TotalCostBasis decimal.Decimal `json:"total_cost_basis"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	UnrealizedGain decimal.Decimal `json:"unrealized_gain"`
	Lots           []LotBreakdown  `json:"lots"`
}

// TaxSummary aggregates one user's disposal events for a calendar year.
// Wash-sale disallowed losses are reported in WashSaleAdjustment and are
// excluded from the loss buckets and net figures; TotalRealizedGain is
// the economic sum of all event gains.
type TaxSummary struct {
	UserID             string          `json:"user_id"`
	Year               int             `json:"year"`
	ShortTermGains     decimal.Decimal `json:"short_term_gains"`
	ShortTermLosses    decimal.Decimal `json:"short_term_losses"`
	LongTermGains      decimal.Decimal `json:"long_term_gains"`
	LongTermLosses     decimal.Decimal `json:"long_term_losses"`
	NetShortTerm       decimal.Decimal `json:"net_short_term"`
	NetLongTerm        decimal.Decimal `json:"net_long_term"`
	TotalRealizedGain  decimal.Decimal `json:"total_realized_gain"`
	WashSaleAdjustment decimal.Decimal `json:"wash_sale_adjustment"`
	EventCount         int             `json:"event_count"`
}
