package obs

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the shop's business counters.
type Metrics struct {
	Sales              *prometheus.CounterVec
	SaleAmount         prometheus.Histogram
	CheckoutRejections *prometheus.CounterVec
	DayCloses          prometheus.Counter
	PersistFailures    *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg, reusing any that are already
// registered under the same name.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_total",
			Help:      "Completed sales by payment method.",
		}, []string{"payment_method"}),
		SaleAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_amount",
			Help:      "Sale totals in shop currency.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 25000},
		}),
		CheckoutRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_rejections_total",
			Help:      "Checkouts refused, by reason.",
		}, []string{"reason"}),
		DayCloses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "day_close_total",
			Help:      "End-of-day closes archived.",
		}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Document writes that failed, by key.",
		}, []string{"key"}),
	}
	m.Sales = register(reg, m.Sales)
	m.SaleAmount = register(reg, m.SaleAmount)
	m.CheckoutRejections = register(reg, m.CheckoutRejections)
	m.DayCloses = register(reg, m.DayCloses)
	m.PersistFailures = register(reg, m.PersistFailures)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
	return c
}
