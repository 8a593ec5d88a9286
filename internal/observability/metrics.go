package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProximityQueries = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "proximity_queries_total", Help: "Total proximity queries answered"})
	SessionsOpen     = promauto.NewGaugeVec(prometheus.GaugeOpts{Namespace: "ride_dispatch", Name: "sessions_open", Help: "Open realtime sessions"}, []string{"role"})
	MessagesDropped  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "messages_dropped_total", Help: "Malformed or unroutable channel messages dropped"})

	OffersProposed = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "offers_proposed_total", Help: "Match offers sent to drivers"})
	OffersExpired  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "offers_expired_total", Help: "Match offers that timed out unanswered"})
	RidesCreated   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "rides_created_total", Help: "Rides created from accepted offers"})
	RidesCompleted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "rides_completed_total", Help: "Rides settled to completed"})
	RidesCancelled = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "rides_cancelled_total", Help: "Rides cancelled before completion"})
	Settlements    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "settlements_total", Help: "Counter settlements applied"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
