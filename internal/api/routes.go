package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Tax lot routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/users/{userID}/lots", handler.GetLots).Methods("GET")
	api.HandleFunc("/users/{userID}/lots", handler.AddLot).Methods("POST")
	api.HandleFunc("/users/{userID}/sales", handler.SellShares).Methods("POST")
	api.HandleFunc("/users/{userID}/unrealized-gains", handler.UnrealizedGains).Methods("GET")
	api.HandleFunc("/users/{userID}/tax-summary", handler.TaxSummary).Methods("GET")
	api.HandleFunc("/users/{userID}/events", handler.GetEvents).Methods("GET")

	return r
}
