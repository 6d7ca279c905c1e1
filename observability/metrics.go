package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records auction-engine activity for scraping.
type EngineMetrics struct {
	operations   *prometheus.CounterVec
	auctions     prometheus.Counter
	bids         prometheus.Counter
	settlements  *prometheus.CounterVec
	feesWithdraw prometheus.Counter
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Metrics returns the lazily-initialised engine metrics registry.
func Metrics() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "auctionhouse",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total public operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			auctions: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "auctionhouse",
				Subsystem: "engine",
				Name:      "auctions_created_total",
				Help:      "Total auctions created.",
			}),
			bids: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "auctionhouse",
				Subsystem: "engine",
				Name:      "bids_placed_total",
				Help:      "Total bids accepted into the ledger.",
			}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "auctionhouse",
				Subsystem: "engine",
				Name:      "settlements_total",
				Help:      "Auctions settled segmented by outcome.",
			}, []string{"outcome"}),
			feesWithdraw: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "auctionhouse",
				Subsystem: "engine",
				Name:      "fee_withdrawals_total",
				Help:      "Total fee pool drains by the protocol owner.",
			}),
		}
	})
	return engineRegistry
}

// Register attaches the collectors to the provided registry.
func (m *EngineMetrics) Register(reg prometheus.Registerer) error {
	if m == nil || reg == nil {
		return nil
	}
	for _, collector := range []prometheus.Collector{m.operations, m.auctions, m.bids, m.settlements, m.feesWithdraw} {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveOperation counts a public operation and its outcome.
func (m *EngineMetrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// AuctionCreated counts a successfully created auction.
func (m *EngineMetrics) AuctionCreated() {
	if m != nil {
		m.auctions.Inc()
	}
}

// BidPlaced counts an accepted bid.
func (m *EngineMetrics) BidPlaced() {
	if m != nil {
		m.bids.Inc()
	}
}

// Settlement counts a terminal settlement outcome.
func (m *EngineMetrics) Settlement(outcome string) {
	if m != nil {
		m.settlements.WithLabelValues(outcome).Inc()
	}
}

// FeesWithdrawn counts a fee pool drain.
func (m *EngineMetrics) FeesWithdrawn() {
	if m != nil {
		m.feesWithdraw.Inc()
	}
}
