package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BidsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bids_accepted_total",
			Help: "Accepted bids by bidding protocol",
		},
		[]string{"protocol"},
	)

	BidsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bids_rejected_total",
			Help: "Rejected bids by reason",
		},
		[]string{"reason"},
	)

	AuctionsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auctions_settled_total",
			Help: "Settled auctions by outcome",
		},
		[]string{"outcome"},
	)

	PaymentCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Gateway callbacks by result",
		},
		[]string{"result"},
	)

	BidAdmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bid_admission_duration_seconds",
			Help:    "Time spent admitting a bid, lock wait included",
			Buckets: prometheus.DefBuckets,
		},
	)
)
