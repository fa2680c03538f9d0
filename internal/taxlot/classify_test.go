package taxlot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHoldingPeriodDays(t *testing.T) {
	purchase := day(2024, time.January, 1)

	assert.Equal(t, 0, HoldingPeriodDays(purchase, purchase))
	assert.Equal(t, 1, HoldingPeriodDays(purchase, day(2024, time.January, 2)))
	assert.Equal(t, 366, HoldingPeriodDays(purchase, day(2025, time.January, 1))) // 2024 is a leap year

	// Whole-day difference ignores time of day
	lateEvening := time.Date(2024, time.January, 1, 23, 50, 0, 0, time.UTC)
	nextMorning := time.Date(2024, time.January, 2, 0, 5, 0, 0, time.UTC)
	assert.Equal(t, 1, HoldingPeriodDays(lateEvening, nextMorning))
}

func TestIsShortTermHolding_Boundary(t *testing.T) {
	purchase := day(2023, time.March, 10)

	// 364 days held: still short-term
	assert.True(t, IsShortTermHolding(purchase, purchase.AddDate(0, 0, 364), 365))
	// 365 days held: long-term
	assert.False(t, IsShortTermHolding(purchase, purchase.AddDate(0, 0, 365), 365))

	// Custom threshold
	assert.True(t, IsShortTermHolding(purchase, purchase.AddDate(0, 0, 179), 180))
	assert.False(t, IsShortTermHolding(purchase, purchase.AddDate(0, 0, 180), 180))
}

func TestWithinWashWindow(t *testing.T) {
	sale := day(2024, time.June, 15)

	// Purchases before the sale
	assert.True(t, WithinWashWindow(sale.AddDate(0, 0, -30), sale, 30))
	assert.False(t, WithinWashWindow(sale.AddDate(0, 0, -31), sale, 30))

	// Purchases after the sale
	assert.True(t, WithinWashWindow(sale.AddDate(0, 0, 30), sale, 30))
	assert.False(t, WithinWashWindow(sale.AddDate(0, 0, 31), sale, 30))

	// Same day
	assert.True(t, WithinWashWindow(sale, sale, 30))
}

func TestMatchesWashSale_ExcludesDisposedLot(t *testing.T) {
	sale := day(2024, time.June, 15)
	acqs := []acquisition{
		{lotID: "lot-1", purchaseDate: sale.AddDate(0, 0, -10)},
	}

	// The only in-window acquisition is the disposed lot itself
	assert.False(t, matchesWashSale("lot-1", sale, acqs, 30))

	// A sibling acquisition in the window matches
	acqs = append(acqs, acquisition{lotID: "lot-2", purchaseDate: sale.AddDate(0, 0, 5)})
	assert.True(t, matchesWashSale("lot-1", sale, acqs, 30))

	// An out-of-window sibling does not
	acqs = []acquisition{
		{lotID: "lot-1", purchaseDate: sale.AddDate(0, 0, -10)},
		{lotID: "lot-3", purchaseDate: sale.AddDate(0, 0, -90)},
	}
	assert.False(t, matchesWashSale("lot-1", sale, acqs, 30))
}
