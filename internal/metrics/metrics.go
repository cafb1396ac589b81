package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SignalsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_received_total", Help: "Signals accepted at ingress"},
		[]string{"source"},
	)
	SignalsClaimed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "signals_claimed_total", Help: "Signals handed to a polling terminal"},
	)
	DistributionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "profit_distributions_total", Help: "Profit distribution runs by outcome"},
		[]string{"outcome"},
	)
	AccountUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "account_updates_total", Help: "Account snapshots recorded by transport"},
		[]string{"transport"},
	)
)

func init() {
	prometheus.MustRegister(SignalsReceived, SignalsClaimed, DistributionsTotal, AccountUpdatesTotal)
}
