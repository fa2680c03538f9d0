package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DisposalMethod selects the order in which open lots are consumed by a sale.
type DisposalMethod string

const (
	MethodFIFO     DisposalMethod = "fifo"
	MethodLIFO     DisposalMethod = "lifo"
	MethodSpecific DisposalMethod = "specific"
)

// Valid reports whether m is one of the supported disposal methods.
func (m DisposalMethod) Valid() bool {
	switch m {
	case MethodFIFO, MethodLIFO, MethodSpecific:
		return true
	}
	return false
}

// TaxLot represents ownership of a quantity of a symbol acquired at one
// price on one date. While open, Shares is the remaining unsold quantity.
// A closed lot (SoldDate set) records the quantity that was disposed and
// is never mutated again.
type TaxLot struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Symbol       string          `json:"symbol"`
	Shares       decimal.Decimal `json:"shares"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	PurchaseDate time.Time       `json:"purchase_date"`
	SoldDate     *time.Time      `json:"sold_date,omitempty"`
	// OriginLotID links a closed split record back to the open lot it was
	// carved from during a partial disposal. Empty for lots created by a
	// purchase.
	OriginLotID string    `json:"origin_lot_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Open reports whether the lot still holds unsold shares.
func (l *TaxLot) Open() bool {
	return l.SoldDate == nil
}
