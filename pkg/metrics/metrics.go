package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "settlement"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	DatabaseConnectionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "database_connections",
		Help:      "Database pool connections by state",
	}, []string{"state"})

	WalletLeaseAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_lease_attempts_total",
		Help:      "Wallet lease lock attempts by blockchain and outcome",
	}, []string{"blockchain", "outcome"})

	WalletLeaseReleasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_lease_releases_total",
		Help:      "Wallet lease releases by blockchain",
	}, []string{"blockchain"})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_request_transitions_total",
		Help:      "Payment request status transitions",
	}, []string{"from", "to"})

	RefundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refunds_total",
		Help:      "Refund attempts by outcome",
	}, []string{"outcome"})

	GatewayCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_calls_total",
		Help:      "Blockchain gateway calls by blockchain, operation and outcome",
	}, []string{"blockchain", "operation", "outcome"})

	GatewayCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_call_duration_seconds",
		Help:      "Blockchain gateway call latency",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"blockchain", "operation"})

	ExpirationSweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expiration_sweeps_total",
		Help:      "Expiration sweep runs by outcome",
	}, []string{"outcome"})

	ExpirationSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "expiration_sweep_duration_seconds",
		Help:      "Expiration sweep duration",
		Buckets:   prometheus.DefBuckets,
	})
)

// ObserveGatewayCall records a gateway call outcome and latency
func ObserveGatewayCall(blockchain, operation string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	GatewayCallsTotal.WithLabelValues(blockchain, operation, outcome).Inc()
	GatewayCallDuration.WithLabelValues(blockchain, operation).Observe(time.Since(started).Seconds())
}
