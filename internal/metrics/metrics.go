package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine activity counters, exposed on /metrics.
var (
	// LotsAdded counts purchases recorded through the API.
	LotsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taxlot_lots_added_total",
		Help: "Number of tax lots created by purchases.",
	})

	// Disposals counts sell calls by disposal method.
	Disposals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxlot_disposals_total",
		Help: "Number of completed disposals by method.",
	}, []string{"method"})

	// DisposalEvents counts emitted lot-consumption events by tax character.
	DisposalEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxlot_disposal_events_total",
		Help: "Number of disposal events by event type.",
	}, []string{"event_type"})

	// DisposalErrors counts rejected sell calls by error kind.
	DisposalErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxlot_disposal_errors_total",
		Help: "Number of rejected disposals by error kind.",
	}, []string{"reason"})
)
