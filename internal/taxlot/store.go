package taxlot

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mwhited/taxlot-service/internal/models"
	"github.com/shopspring/decimal"
)

// LotStore owns all tax lot records and the append-only disposal event
// log for the lifetime of the process. Lots are addressed by stable ids,
// never by position; partial disposals append new closed split records
// rather than rewriting history.
//
// mu guards the lot and event collections. Disposals additionally hold a
// per-(user, symbol) lock for their whole validate-then-commit span so
// two concurrent sells cannot both observe sufficient shares (see
// Engine.SellShares).
type LotStore struct {
	mu     sync.RWMutex
	lots   map[string][]*models.TaxLot        // userID → lots in insertion order
	byID   map[string]*models.TaxLot          // lot id → lot
	events map[string][]*models.DisposalEvent // userID → append-only event log

	keyMu sync.Mutex
	keys  map[string]*sync.Mutex // userID|symbol → disposal lock
}

// NewLotStore creates an empty store.
func NewLotStore() *LotStore {
	return &LotStore{
		lots:   make(map[string][]*models.TaxLot),
		byID:   make(map[string]*models.TaxLot),
		events: make(map[string][]*models.DisposalEvent),
		keys:   make(map[string]*sync.Mutex),
	}
}

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// AddLot appends a new open lot for the user. Shares and cost basis must
// be positive; the symbol is case-normalized. Existing lots are never
// touched.
func (s *LotStore) AddLot(userID, symbol string, shares, costBasis decimal.Decimal, purchaseDate time.Time) (*models.TaxLot, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if !shares.IsPositive() {
		return nil, fmt.Errorf("%w: shares must be positive, got %s", ErrInvalidInput, shares)
	}
	if !costBasis.IsPositive() {
		return nil, fmt.Errorf("%w: cost basis must be positive, got %s", ErrInvalidInput, costBasis)
	}

	lot := &models.TaxLot{
		ID:           uuid.NewString(),
		UserID:       userID,
		Symbol:       symbol,
		Shares:       shares,
		CostBasis:    costBasis,
		PurchaseDate: purchaseDate,
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.lots[userID] = append(s.lots[userID], lot)
	s.byID[lot.ID] = lot
	s.mu.Unlock()

	return lot, nil
}

// OpenLots returns the user's open lots ordered by purchase date
// ascending (insertion order breaks ties). An empty symbol returns open
// lots across all symbols.
func (s *LotStore) OpenLots(userID, symbol string) []*models.TaxLot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openLotsLocked(userID, NormalizeSymbol(symbol))
}

// openLotsLocked is OpenLots without locking, for callers already holding mu.
func (s *LotStore) openLotsLocked(userID, symbol string) []*models.TaxLot {
	var out []*models.TaxLot
	for _, lot := range s.lots[userID] {
		if !lot.Open() {
			continue
		}
		if symbol != "" && lot.Symbol != symbol {
			continue
		}
		out = append(out, lot)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PurchaseDate.Before(out[j].PurchaseDate)
	})
	return out
}

// AllLots returns every lot record for the user, including closed lots
// and split records, in insertion order. This is the full audit trail.
func (s *LotStore) AllLots(userID, symbol string) []*models.TaxLot {
	symbol = NormalizeSymbol(symbol)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.TaxLot
	for _, lot := range s.lots[userID] {
		if symbol != "" && lot.Symbol != symbol {
			continue
		}
		out = append(out, lot)
	}
	return out
}

// Events returns the user's disposal events in emission order. A non-zero
// year filters to events whose sale date falls in that calendar year (UTC).
func (s *LotStore) Events(userID string, year int) []*models.DisposalEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.DisposalEvent
	for _, ev := range s.events[userID] {
		if year != 0 && ev.SaleDate.UTC().Year() != year {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Restore loads previously persisted lots and events into an empty store,
// preserving record order. Used at startup to rebuild state from the
// durable audit store.
func (s *LotStore) Restore(lots []*models.TaxLot, events []*models.DisposalEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lot := range lots {
		s.lots[lot.UserID] = append(s.lots[lot.UserID], lot)
		s.byID[lot.ID] = lot
	}
	for _, ev := range events {
		s.events[ev.UserID] = append(s.events[ev.UserID], ev)
	}
}

// lockKey returns the disposal lock for a (user, symbol) pool, creating
// it on first use.
func (s *LotStore) lockKey(userID, symbol string) *sync.Mutex {
	key := userID + "|" + symbol

	s.keyMu.Lock()
	defer s.keyMu.Unlock()

	if m, ok := s.keys[key]; ok {
		return m
	}
	m := &sync.Mutex{}
	s.keys[key] = m
	return m
}
