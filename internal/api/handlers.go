package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/mwhited/taxlot-service/internal/database"
	"github.com/mwhited/taxlot-service/internal/kafka"
	"github.com/mwhited/taxlot-service/internal/metrics"
	"github.com/mwhited/taxlot-service/internal/models"
	"github.com/mwhited/taxlot-service/internal/redis"
	"github.com/mwhited/taxlot-service/internal/taxlot"
	"github.com/shopspring/decimal"
)

// Handler holds dependencies for HTTP handlers. The engine is required;
// db, producer, and redis are optional collaborators and may be nil.
type Handler struct {
	engine   *taxlot.Engine
	db       *database.DB
	producer *kafka.Producer
	redis    *redis.Client
}

// NewHandler creates a new Handler
func NewHandler(engine *taxlot.Engine, db *database.DB, producer *kafka.Producer, redisClient *redis.Client) *Handler {
	return &Handler{
		engine:   engine,
		db:       db,
		producer: producer,
		redis:    redisClient,
	}
}

// AddLot handles POST /api/v1/users/{userID}/lots
func (h *Handler) AddLot(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	var req struct {
		Symbol       string          `json:"symbol"`
		Shares       decimal.Decimal `json:"shares"`
		CostBasis    decimal.Decimal `json:"cost_basis"`
		PurchaseDate string          `json:"purchase_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	purchaseDate, err := parseDate(req.PurchaseDate)
	if err != nil {
		http.Error(w, "invalid purchase_date: "+err.Error(), http.StatusBadRequest)
		return
	}

	lot, err := h.engine.AddLot(userID, req.Symbol, req.Shares, req.CostBasis, purchaseDate)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	metrics.LotsAdded.Inc()

	// Write through to the audit store and publish, best effort.
	if h.db != nil {
		if err := h.db.InsertLot(lot); err != nil {
			log.Printf("Warning: failed to persist lot %s: %v", lot.ID, err)
		}
	}
	if h.producer != nil {
		if err := h.producer.PublishLotAdded(r.Context(), lot); err != nil {
			log.Printf("Warning: failed to publish lot added event: %v", err)
		}
	}

	respondJSON(w, http.StatusCreated, lot)
}

// GetLots handles GET /api/v1/users/{userID}/lots
// Query params: symbol (optional), status=open|all (default open).
func (h *Handler) GetLots(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	symbol := r.URL.Query().Get("symbol")

	var lots []*models.TaxLot
	switch r.URL.Query().Get("status") {
	case "", "open":
		lots = h.engine.OpenLots(userID, symbol)
	case "all":
		lots = h.engine.AllLots(userID, symbol)
	default:
		http.Error(w, "status must be open or all", http.StatusBadRequest)
		return
	}

	if lots == nil {
		lots = []*models.TaxLot{}
	}
	respondJSON(w, http.StatusOK, lots)
}

// SellShares handles POST /api/v1/users/{userID}/sales
func (h *Handler) SellShares(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	var req struct {
		Symbol    string          `json:"symbol"`
		Shares    decimal.Decimal `json:"shares"`
		SalePrice decimal.Decimal `json:"sale_price"`
		SaleDate  string          `json:"sale_date"`
		Method    string          `json:"method"`
		LotIDs    []string        `json:"lot_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	saleDate, err := parseDate(req.SaleDate)
	if err != nil {
		http.Error(w, "invalid sale_date: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.engine.SellShares(taxlot.SellRequest{
		UserID:         userID,
		Symbol:         req.Symbol,
		Shares:         req.Shares,
		SalePrice:      req.SalePrice,
		SaleDate:       saleDate,
		Method:         models.DisposalMethod(req.Method),
		SpecificLotIDs: req.LotIDs,
	})
	if err != nil {
		countDisposalError(err)
		respondEngineError(w, err)
		return
	}

	metrics.Disposals.WithLabelValues(string(result.Method)).Inc()
	for _, ev := range result.Events {
		metrics.DisposalEvents.WithLabelValues(string(ev.EventType)).Inc()
	}

	h.persistSale(result)
	if h.producer != nil {
		if err := h.producer.PublishSaleSettled(r.Context(), result); err != nil {
			log.Printf("Warning: failed to publish sale settled event: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// persistSale writes a sale's lot mutations and events through to the
// audit store, best effort.
func (h *Handler) persistSale(result *models.SaleResult) {
	if h.db == nil {
		return
	}
	for i := range result.UpdatedLots {
		if err := h.db.UpdateLot(&result.UpdatedLots[i]); err != nil {
			log.Printf("Warning: failed to persist lot update %s: %v", result.UpdatedLots[i].ID, err)
		}
	}
	for i := range result.CreatedLots {
		if err := h.db.InsertLot(&result.CreatedLots[i]); err != nil {
			log.Printf("Warning: failed to persist split lot %s: %v", result.CreatedLots[i].ID, err)
		}
	}
	for _, ev := range result.Events {
		if err := h.db.InsertEvent(ev); err != nil {
			log.Printf("Warning: failed to persist disposal event %s: %v", ev.ID, err)
		}
	}
}

// UnrealizedGains handles GET /api/v1/users/{userID}/unrealized-gains
// Prices come from the Redis cache; symbols without a cached price are
// omitted from the result.
func (h *Handler) UnrealizedGains(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	asOf := time.Now().UTC()
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			http.Error(w, "invalid as_of: "+err.Error(), http.StatusBadRequest)
			return
		}
		asOf = parsed
	}

	if h.redis == nil {
		http.Error(w, "price cache not configured", http.StatusServiceUnavailable)
		return
	}

	open := h.engine.OpenLots(userID, "")
	seen := make(map[string]bool)
	var symbols []string
	for _, lot := range open {
		if !seen[lot.Symbol] {
			seen[lot.Symbol] = true
			symbols = append(symbols, lot.Symbol)
		}
	}

	priceMap, err := h.redis.GetPrices(r.Context(), symbols)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	gains := h.engine.UnrealizedGains(userID, priceMap, asOf)
	if gains == nil {
		gains = []*models.UnrealizedGain{}
	}
	respondJSON(w, http.StatusOK, gains)
}

// TaxSummary handles GET /api/v1/users/{userID}/tax-summary?year=YYYY
func (h *Handler) TaxSummary(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year <= 0 {
		http.Error(w, "year is required", http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusOK, h.engine.TaxSummary(userID, year))
}

// GetEvents handles GET /api/v1/users/{userID}/events
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	year := 0
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		year = parsed
	}

	events := h.engine.Events(userID, year)
	if events == nil {
		events = []*models.DisposalEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)

	// Check database
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			health["status"] = "degraded"
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
	}

	// Check Redis
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	// Check Kafka producer
	if h.producer != nil {
		services["kafka"] = "configured"
	} else {
		services["kafka"] = "not configured"
	}

	respondJSON(w, http.StatusOK, health)
}

// respondEngineError maps engine errors to HTTP status codes.
func respondEngineError(w http.ResponseWriter, err error) {
	var notFound *taxlot.LotNotFoundError
	switch {
	case errors.Is(err, taxlot.ErrInvalidInput),
		errors.Is(err, taxlot.ErrSpecificLotsRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, taxlot.ErrInsufficientShares):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// countDisposalError tags the disposal error metric with the error kind.
func countDisposalError(err error) {
	var notFound *taxlot.LotNotFoundError
	switch {
	case errors.Is(err, taxlot.ErrInsufficientShares):
		metrics.DisposalErrors.WithLabelValues("insufficient_shares").Inc()
	case errors.Is(err, taxlot.ErrSpecificLotsRequired):
		metrics.DisposalErrors.WithLabelValues("specific_lots_required").Inc()
	case errors.As(err, &notFound):
		metrics.DisposalErrors.WithLabelValues("lot_not_found").Inc()
	default:
		metrics.DisposalErrors.WithLabelValues("invalid_input").Inc()
	}
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("date is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
