package router

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the router's operational counters and timings.
type Metrics struct {
	PoolsCreatedTotal     prometheus.Counter
	LiquidityAddsTotal    *prometheus.CounterVec
	LiquidityRemovesTotal *prometheus.CounterVec
	SwapsTotal            *prometheus.CounterVec
	SwapDuration          *prometheus.HistogramVec
}

// NewMetrics constructs and registers the router metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PoolsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dex",
			Subsystem: "router",
			Name:      "pools_created_total",
			Help:      "Number of pools created through addLiquidity.",
		}),
		LiquidityAddsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dex",
			Subsystem: "router",
			Name:      "liquidity_adds_total",
			Help:      "Number of addLiquidity calls by result.",
		}, []string{"result"}),
		LiquidityRemovesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dex",
			Subsystem: "router",
			Name:      "liquidity_removes_total",
			Help:      "Number of removeLiquidity calls by result.",
		}, []string{"result"}),
		SwapsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dex",
			Subsystem: "router",
			Name:      "swaps_total",
			Help:      "Number of routed swaps by result.",
		}, []string{"result"}),
		SwapDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dex",
			Subsystem: "router",
			Name:      "swap_duration_seconds",
			Help:      "Wall time of routed swaps, all hops included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{}),
	}
	reg.MustRegister(m.PoolsCreatedTotal, m.LiquidityAddsTotal, m.LiquidityRemovesTotal, m.SwapsTotal, m.SwapDuration)
	return m
}

const (
	resultOK    = "ok"
	resultError = "error"
)

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}
