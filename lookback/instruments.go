package lookback

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wyfcoding/lookback/metrics"
)

// instruments 为 nil 时所有观测都是空操作.
type instruments struct {
	priceCalls    *prometheus.CounterVec
	pathsTotal    prometheus.Counter
	priceDuration prometheus.Histogram
	greekCalls    *prometheus.CounterVec
}

func newInstruments(m *metrics.Metrics) *instruments {
	if m == nil {
		return nil
	}
	return &instruments{
		priceCalls: m.NewCounterVec(&prometheus.CounterOpts{
			Name: "lookback_price_calls_total",
			Help: "Number of Monte Carlo price evaluations",
		}, []string{"kind"}),
		pathsTotal: m.NewCounter(&prometheus.CounterOpts{
			Name: "lookback_paths_simulated_total",
			Help: "Number of antithetic draw pairs requested",
		}),
		priceDuration: m.NewHistogram(&prometheus.HistogramOpts{
			Name:    "lookback_price_duration_seconds",
			Help:    "Latency of a single price evaluation",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		greekCalls: m.NewCounterVec(&prometheus.CounterOpts{
			Name: "lookback_greek_calls_total",
			Help: "Number of Greek evaluations",
		}, []string{"greek"}),
	}
}

func (i *instruments) observePrice(kind OptionKind, paths int, elapsed time.Duration) {
	if i == nil {
		return
	}
	i.priceCalls.WithLabelValues(kind.String()).Inc()
	i.pathsTotal.Add(float64(paths))
	i.priceDuration.Observe(elapsed.Seconds())
}

func (i *instruments) observeGreek(greek string) {
	if i == nil {
		return
	}
	i.greekCalls.WithLabelValues(greek).Inc()
}
