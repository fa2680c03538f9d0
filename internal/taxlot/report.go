package taxlot

import (
	"sort"
	"time"

	"github.com/mwhited/taxlot-service/internal/models"
	"github.com/shopspring/decimal"
)

// UnrealizedGains values the user's open lots against the supplied price
// map, grouped by symbol and sorted. Symbols with no entry in priceMap
// are skipped entirely rather than reported with a zero price. Holding
// classification uses asOf.
func (e *Engine) UnrealizedGains(userID string, priceMap map[string]decimal.Decimal, asOf time.Time) []*models.UnrealizedGain {
	open := e.store.OpenLots(userID, "")

	bySymbol := make(map[string][]*models.TaxLot)
	for _, lot := range open {
		bySymbol[lot.Symbol] = append(bySymbol[lot.Symbol], lot)
	}

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		if _, ok := priceMap[symbol]; !ok {
			continue
		}
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	out := make([]*models.UnrealizedGain, 0, len(symbols))
	for _, symbol := range symbols {
		price := priceMap[symbol]
		gain := &models.UnrealizedGain{
			Symbol:       symbol,
			CurrentPrice: price,
		}
		for _, lot := range bySymbol[symbol] {
			days := HoldingPeriodDays(lot.PurchaseDate, asOf)
			gain.Lots = append(gain.Lots, models.LotBreakdown{
				LotID:        lot.ID,
				Shares:       lot.Shares,
				CostBasis:    lot.CostBasis,
				PurchaseDate: lot.PurchaseDate,
				HoldingDays:  days,
				IsShortTerm:  days < e.cfg.LongTermThresholdDays,
			})
			gain.TotalShares = gain.TotalShares.Add(lot.Shares)
			gain.TotalCostBasis = gain.TotalCostBasis.Add(lot.Shares.Mul(lot.CostBasis))
		}
		gain.CurrentValue = gain.TotalShares.Mul(price)
		gain.UnrealizedGain = gain.CurrentValue.Sub(gain.TotalCostBasis)
		out = append(out, gain)
	}
	return out
}

// TaxSummary aggregates the user's disposal events for one calendar year.
// A year with no events yields an all-zero summary. Wash-sale disallowed
// losses accumulate in WashSaleAdjustment and stay out of the loss
// buckets and net figures; TotalRealizedGain still sums every event's
// gain so the economic result remains visible.
func (e *Engine) TaxSummary(userID string, year int) *models.TaxSummary {
	summary := &models.TaxSummary{UserID: userID, Year: year}

	for _, ev := range e.store.Events(userID, year) {
		summary.EventCount++
		summary.TotalRealizedGain = summary.TotalRealizedGain.Add(ev.Gain)

		if ev.IsWashSale {
			summary.WashSaleAdjustment = summary.WashSaleAdjustment.Add(ev.Gain.Abs())
			continue
		}

		switch {
		case ev.IsShortTerm && !ev.Gain.IsNegative():
			summary.ShortTermGains = summary.ShortTermGains.Add(ev.Gain)
		case ev.IsShortTerm:
			summary.ShortTermLosses = summary.ShortTermLosses.Add(ev.Gain.Abs())
		case !ev.Gain.IsNegative():
			summary.LongTermGains = summary.LongTermGains.Add(ev.Gain)
		default:
			summary.LongTermLosses = summary.LongTermLosses.Add(ev.Gain.Abs())
		}
	}

	summary.NetShortTerm = summary.ShortTermGains.Sub(summary.ShortTermLosses)
	summary.NetLongTerm = summary.LongTermGains.Sub(summary.LongTermLosses)
	return summary
}

// Events returns the user's disposal events, optionally filtered to one
// calendar year (year 0 means all).
func (e *Engine) Events(userID string, year int) []*models.DisposalEvent {
	return e.store.Events(userID, year)
}
