package taxlot

import "time"

// Holding-period and wash-sale classification. These are pure functions
// over caller-supplied dates; the engine never consults a clock of its own.

// midnightUTC truncates a timestamp to its UTC calendar day.
func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// HoldingPeriodDays returns the whole-day difference between a purchase
// date and an as-of date.
func HoldingPeriodDays(purchaseDate, asOf time.Time) int {
	return int(midnightUTC(asOf).Sub(midnightUTC(purchaseDate)).Hours() / 24)
}

// IsShortTermHolding reports whether a position purchased on purchaseDate
// and sold on saleDate was held for less than thresholdDays whole days.
// With the default 365-day threshold, a sale 364 days after purchase is
// short-term and a sale 365 days after is long-term.
func IsShortTermHolding(purchaseDate, saleDate time.Time, thresholdDays int) bool {
	return HoldingPeriodDays(purchaseDate, saleDate) < thresholdDays
}

// WithinWashWindow reports whether an acquisition date falls within
// windowDays whole days of a sale date, on either side.
func WithinWashWindow(purchaseDate, saleDate time.Time, windowDays int) bool {
	days := HoldingPeriodDays(purchaseDate, saleDate)
	if days < 0 {
		days = -days
	}
	return days <= windowDays
}

// acquisition is one original purchase considered as a potential
// wash-sale replacement. Split records are excluded up front; only lots
// created by a purchase appear here.
type acquisition struct {
	lotID        string
	purchaseDate time.Time
}

// matchesWashSale reports whether any acquisition other than the disposed
// lot itself falls within the wash-sale window of the sale date.
func matchesWashSale(disposedLotID string, saleDate time.Time, acquisitions []acquisition, windowDays int) bool {
	for _, acq := range acquisitions {
		if acq.lotID == disposedLotID {
			continue
		}
		if WithinWashWindow(acq.purchaseDate, saleDate, windowDays) {
			return true
		}
	}
	return false
}
