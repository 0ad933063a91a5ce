package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"dujyo/core/events"
)

// LedgerCounters aggregates the token ledger activity metrics.
type LedgerCounters struct {
	Operations *prometheus.CounterVec
	Volume     *prometheus.CounterVec
	Pauses     prometheus.Counter
}

// DexCounters aggregates the settlement engine activity metrics.
type DexCounters struct {
	Swaps      *prometheus.CounterVec
	Rejections *prometheus.CounterVec
	Liquidity  *prometheus.CounterVec
}

var (
	ledgerOnce sync.Once
	ledgerReg  *LedgerCounters

	dexOnce sync.Once
	dexReg  *DexCounters
)

// LedgerMetrics returns the lazily-initialised ledger metrics registry.
func LedgerMetrics() *LedgerCounters {
	ledgerOnce.Do(func() {
		ledgerReg = &LedgerCounters{
			Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dujyo",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Total ledger mutations segmented by kind.",
			}, []string{"kind"}),
			Volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dujyo",
				Subsystem: "ledger",
				Name:      "volume_total",
				Help:      "Token volume moved, segmented by kind.",
			}, []string{"kind"}),
			Pauses: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "dujyo",
				Subsystem: "ledger",
				Name:      "emergency_pauses_total",
				Help:      "Emergency pauses raised on the ledger.",
			}),
		}
		prometheus.MustRegister(ledgerReg.Operations, ledgerReg.Volume, ledgerReg.Pauses)
	})
	return ledgerReg
}

// DexMetrics returns the lazily-initialised settlement metrics registry.
func DexMetrics() *DexCounters {
	dexOnce.Do(func() {
		dexReg = &DexCounters{
			Swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dujyo",
				Subsystem: "dex",
				Name:      "swaps_total",
				Help:      "Executed swaps segmented by pair.",
			}, []string{"pair"}),
			Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dujyo",
				Subsystem: "dex",
				Name:      "rejections_total",
				Help:      "Swaps rejected by market-safety checks, segmented by reason.",
			}, []string{"reason"}),
			Liquidity: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dujyo",
				Subsystem: "dex",
				Name:      "liquidity_events_total",
				Help:      "Liquidity deposits and withdrawals segmented by direction.",
			}, []string{"direction"}),
		}
		prometheus.MustRegister(dexReg.Swaps, dexReg.Rejections, dexReg.Liquidity)
	})
	return dexReg
}

// MetricsEmitter is an events.Emitter that mirrors mutation events into the
// prometheus registries. It fans out to an optional downstream emitter so
// metrics wiring does not displace other sinks.
type MetricsEmitter struct {
	Next events.Emitter
}

// Emit implements events.Emitter.
func (m MetricsEmitter) Emit(evt events.Event) {
	switch evt.EventType() {
	case events.TypeMint, events.TypeTransfer, events.TypeVestingCreated, events.TypeVestingReleased:
		LedgerMetrics().Operations.WithLabelValues(evt.EventType()).Inc()
	case events.TypeEmergencyPause:
		LedgerMetrics().Pauses.Inc()
	case events.TypeSwap:
		DexMetrics().Swaps.WithLabelValues(evt.Attributes()["pair"]).Inc()
	case events.TypeSwapRejected:
		DexMetrics().Rejections.WithLabelValues(evt.Attributes()["reason"]).Inc()
	case events.TypeLiquidityAdded:
		DexMetrics().Liquidity.WithLabelValues("add").Inc()
	case events.TypeLiquidityRemoved:
		DexMetrics().Liquidity.WithLabelValues("remove").Inc()
	}
	if m.Next != nil {
		m.Next.Emit(evt)
	}
}
