package taxlot

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mwhited/taxlot-service/internal/models"
	"github.com/shopspring/decimal"
)

// Config holds the tax rule knobs, fixed for the engine's lifetime.
type Config struct {
	DefaultMethod         models.DisposalMethod
	WashSaleWindowDays    int
	LongTermThresholdDays int
}

// DefaultConfig returns US-default tax rules: FIFO disposal, 30-day
// wash-sale window, 365-day long-term threshold.
func DefaultConfig() Config {
	return Config{
		DefaultMethod:         models.MethodFIFO,
		WashSaleWindowDays:    30,
		LongTermThresholdDays: 365,
	}
}

// Engine is the public face of the tax lot subsystem: lot lifecycle,
// disposals, and classification. It mutates only its LotStore and does no
// I/O; dates and prices are supplied by the caller.
type Engine struct {
	store *LotStore
	cfg   Config
}

// NewEngine creates an engine over the given store. Zero config fields
// fall back to the defaults.
func NewEngine(store *LotStore, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.DefaultMethod == "" {
		cfg.DefaultMethod = def.DefaultMethod
	}
	if cfg.WashSaleWindowDays <= 0 {
		cfg.WashSaleWindowDays = def.WashSaleWindowDays
	}
	if cfg.LongTermThresholdDays <= 0 {
		cfg.LongTermThresholdDays = def.LongTermThresholdDays
	}
	return &Engine{store: store, cfg: cfg}
}

// Store returns the engine's lot store.
func (e *Engine) Store() *LotStore {
	return e.store
}

// Config returns the engine's tax rule configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// AddLot records a new purchase as an open lot.
func (e *Engine) AddLot(userID, symbol string, shares, costBasis decimal.Decimal, purchaseDate time.Time) (*models.TaxLot, error) {
	return e.store.AddLot(userID, symbol, shares, costBasis, purchaseDate)
}

// OpenLots returns the user's open lots, optionally filtered by symbol.
func (e *Engine) OpenLots(userID, symbol string) []*models.TaxLot {
	return e.store.OpenLots(userID, symbol)
}

// AllLots returns the user's full lot audit trail, optionally filtered by symbol.
func (e *Engine) AllLots(userID, symbol string) []*models.TaxLot {
	return e.store.AllLots(userID, symbol)
}

// SellRequest describes one disposal call.
type SellRequest struct {
	UserID         string
	Symbol         string
	Shares         decimal.Decimal
	SalePrice      decimal.Decimal
	SaleDate       time.Time
	Method         models.DisposalMethod // empty → engine default
	SpecificLotIDs []string              // required when Method is specific
}

// SellShares disposes of shares against the user's open lots for a symbol,
// consuming lots in the order mandated by the method, and returns the
// disposal events with their tax classification.
//
// The call is atomic: all validation (positive quantities, sufficiency,
// lot resolution) happens before any mutation, and the per-(user, symbol)
// disposal lock is held throughout so concurrent sells cannot both pass
// the sufficiency check and over-sell the pool.
func (e *Engine) SellShares(req SellRequest) (*models.SaleResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	symbol := NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if !req.Shares.IsPositive() {
		return nil, fmt.Errorf("%w: shares to sell must be positive, got %s", ErrInvalidInput, req.Shares)
	}
	if !req.SalePrice.IsPositive() {
		return nil, fmt.Errorf("%w: sale price must be positive, got %s", ErrInvalidInput, req.SalePrice)
	}
	method := req.Method
	if method == "" {
		method = e.cfg.DefaultMethod
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown disposal method %q", ErrInvalidInput, req.Method)
	}

	// Serialize the whole validate-then-commit span per (user, symbol).
	lock := e.store.lockKey(req.UserID, symbol)
	lock.Lock()
	defer lock.Unlock()

	e.store.mu.RLock()
	open := e.store.openLotsLocked(req.UserID, symbol)
	acquisitions := e.acquisitionsLocked(req.UserID, symbol)
	e.store.mu.RUnlock()

	total := decimal.Zero
	for _, lot := range open {
		total = total.Add(lot.Shares)
	}
	if total.LessThan(req.Shares) {
		return nil, fmt.Errorf("%w: requested %s of %s, have %s open",
			ErrInsufficientShares, req.Shares, symbol, total)
	}

	candidates, err := e.selectLots(open, method, req.SpecificLotIDs)
	if err != nil {
		return nil, err
	}

	// The specific method consumes only the listed lots; they must cover
	// the request even when the pool as a whole has more.
	if method == models.MethodSpecific {
		available := decimal.Zero
		for _, lot := range candidates {
			available = available.Add(lot.Shares)
		}
		if available.LessThan(req.Shares) {
			return nil, fmt.Errorf("%w: specified lots hold %s, requested %s",
				ErrInsufficientShares, available, req.Shares)
		}
	}

	return e.consume(req, symbol, method, candidates, acquisitions), nil
}

// selectLots orders the open lots according to the disposal method.
func (e *Engine) selectLots(open []*models.TaxLot, method models.DisposalMethod, specificIDs []string) ([]*models.TaxLot, error) {
	switch method {
	case models.MethodFIFO:
		// Open lots arrive purchase-date ascending already.
		return open, nil

	case models.MethodLIFO:
		out := make([]*models.TaxLot, len(open))
		for i, lot := range open {
			out[len(open)-1-i] = lot
		}
		return out, nil

	case models.MethodSpecific:
		if len(specificIDs) == 0 {
			return nil, ErrSpecificLotsRequired
		}
		byID := make(map[string]*models.TaxLot, len(open))
		for _, lot := range open {
			byID[lot.ID] = lot
		}
		seen := make(map[string]bool, len(specificIDs))
		out := make([]*models.TaxLot, 0, len(specificIDs))
		for _, id := range specificIDs {
			if seen[id] {
				return nil, fmt.Errorf("%w: duplicate lot id %s", ErrInvalidInput, id)
			}
			seen[id] = true
			lot, ok := byID[id]
			if !ok {
				return nil, &LotNotFoundError{LotID: id}
			}
			out = append(out, lot)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown disposal method %q", ErrInvalidInput, method)
}

// acquisitionsLocked snapshots the user's original purchases of a symbol
// for wash-sale matching. Split records are skipped: they duplicate their
// origin lot's purchase date and would otherwise self-match. Callers must
// hold store.mu.
func (e *Engine) acquisitionsLocked(userID, symbol string) []acquisition {
	var out []acquisition
	for _, lot := range e.store.lots[userID] {
		if lot.Symbol != symbol || lot.OriginLotID != "" {
			continue
		}
		out = append(out, acquisition{lotID: lot.ID, purchaseDate: lot.PurchaseDate})
	}
	return out
}

// consume walks the ordered candidates, builds the disposal events, and
// applies all lot mutations and event appends in one critical section.
// Validation has already guaranteed the loop terminates with the request
// fully filled.
func (e *Engine) consume(req SellRequest, symbol string, method models.DisposalMethod, candidates []*models.TaxLot, acquisitions []acquisition) *models.SaleResult {
	now := time.Now().UTC()
	saleDate := req.SaleDate

	result := &models.SaleResult{
		UserID: req.UserID,
		Symbol: symbol,
		Method: method,
	}

	e.store.mu.Lock()
	defer e.store.mu.Unlock()

	remaining := req.Shares
	for _, lot := range candidates {
		if !remaining.IsPositive() {
			break
		}

		consumed := decimal.Min(remaining, lot.Shares)
		proceeds := consumed.Mul(req.SalePrice)
		cost := consumed.Mul(lot.CostBasis)
		gain := proceeds.Sub(cost)

		isShort := IsShortTermHolding(lot.PurchaseDate, saleDate, e.cfg.LongTermThresholdDays)
		isWash := gain.IsNegative() &&
			matchesWashSale(lot.ID, saleDate, acquisitions, e.cfg.WashSaleWindowDays)

		eventType := models.EventRealizedGain
		if isWash {
			eventType = models.EventWashSale
		} else if gain.IsNegative() {
			eventType = models.EventRealizedLoss
		}

		if consumed.Equal(lot.Shares) {
			// Fully consumed: close the lot in place.
			sold := saleDate
			lot.SoldDate = &sold
			result.UpdatedLots = append(result.UpdatedLots, *lot)
		} else {
			// Partially consumed: shrink the open lot and append a closed
			// split record for the consumed portion, preserving the audit
			// trail of every disposal.
			lot.Shares = lot.Shares.Sub(consumed)
			sold := saleDate
			split := &models.TaxLot{
				ID:           uuid.NewString(),
				UserID:       lot.UserID,
				Symbol:       lot.Symbol,
				Shares:       consumed,
				CostBasis:    lot.CostBasis,
				PurchaseDate: lot.PurchaseDate,
				SoldDate:     &sold,
				OriginLotID:  lot.ID,
				CreatedAt:    now,
			}
			e.store.lots[lot.UserID] = append(e.store.lots[lot.UserID], split)
			e.store.byID[split.ID] = split
			result.UpdatedLots = append(result.UpdatedLots, *lot)
			result.CreatedLots = append(result.CreatedLots, *split)
		}

		event := &models.DisposalEvent{
			ID:          uuid.NewString(),
			UserID:      req.UserID,
			LotID:       lot.ID,
			Symbol:      symbol,
			Shares:      consumed,
			CostBasis:   lot.CostBasis,
			SaleDate:    saleDate,
			SalePrice:   req.SalePrice,
			Proceeds:    proceeds,
			Gain:        gain,
			IsShortTerm: isShort,
			IsWashSale:  isWash,
			EventType:   eventType,
			CreatedAt:   now,
		}
		e.store.events[req.UserID] = append(e.store.events[req.UserID], event)

		result.Events = append(result.Events, event)
		result.TotalProceeds = result.TotalProceeds.Add(proceeds)
		result.TotalCostBasis = result.TotalCostBasis.Add(cost)
		result.RealizedGain = result.RealizedGain.Add(gain)
		result.IsShortTerm = result.IsShortTerm || isShort

		remaining = remaining.Sub(consumed)
	}

	return result
}
