package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"dujyo/core/events"
)

func TestMetricsEmitterMirrorsEvents(t *testing.T) {
	downstream := &capture{}
	emitter := MetricsEmitter{Next: downstream}

	before := testutil.ToFloat64(DexMetrics().Swaps.WithLabelValues("DYO_USDC"))
	emitter.Emit(events.Swap{Pair: "DYO_USDC", FromToken: "DYO", ToToken: "USDC"})
	after := testutil.ToFloat64(DexMetrics().Swaps.WithLabelValues("DYO_USDC"))
	if after != before+1 {
		t.Fatalf("swap counter = %v, want %v", after, before+1)
	}

	beforeOps := testutil.ToFloat64(LedgerMetrics().Operations.WithLabelValues(events.TypeTransfer))
	emitter.Emit(events.Transfer{From: "alice", To: "bob", Amount: 10})
	afterOps := testutil.ToFloat64(LedgerMetrics().Operations.WithLabelValues(events.TypeTransfer))
	if afterOps != beforeOps+1 {
		t.Fatalf("transfer counter = %v, want %v", afterOps, beforeOps+1)
	}

	beforeRej := testutil.ToFloat64(DexMetrics().Rejections.WithLabelValues("slippage"))
	emitter.Emit(events.SwapRejected{Pair: "DYO_USDC", User: "alice", Reason: "slippage"})
	afterRej := testutil.ToFloat64(DexMetrics().Rejections.WithLabelValues("slippage"))
	if afterRej != beforeRej+1 {
		t.Fatalf("rejection counter = %v, want %v", afterRej, beforeRej+1)
	}

	if len(downstream.seen) != 3 {
		t.Fatalf("downstream saw %d events, want 3", len(downstream.seen))
	}
}

type capture struct {
	seen []events.Event
}

func (c *capture) Emit(evt events.Event) { c.seen = append(c.seen, evt) }
