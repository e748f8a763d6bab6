package receipt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records receipt processing outcomes
type Metrics struct {
	processed      *prometheus.CounterVec
	itemsExtracted prometheus.Histogram
	totalFallbacks prometheus.Counter
}

// NewMetrics registers the receipt metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		processed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receipts_processed_total",
			Help: "Receipts run through detection and parsing, by outcome.",
		}, []string{"outcome"}),
		itemsExtracted: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "receipt_items_extracted",
			Help:    "Line items extracted per parsed receipt.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		totalFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "receipt_total_fallbacks_total",
			Help: "Parses whose grand total was replaced by the sum of item prices.",
		}),
	}
}

func (m *Metrics) observeParse(itemCount int, fallback bool) {
	if m == nil {
		return
	}
	m.itemsExtracted.Observe(float64(itemCount))
	if fallback {
		m.totalFallbacks.Inc()
	}
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(outcome).Inc()
}
