package dex

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"dujyo/core/events"
	"dujyo/native/common"
)

const (
	marketMaker = "market-maker"
	opsAccount  = "ops"
	trader      = "alice"
)

type capturedEvents struct {
	emitted []events.Event
}

func (c *capturedEvents) Emit(evt events.Event) { c.emitted = append(c.emitted, evt) }

func newTestEngine(t *testing.T) (*Engine, *capturedEvents) {
	t.Helper()
	auth := common.NewStaticAuthority()
	auth.Grant(marketMaker, common.CapabilityPoolCreate)
	auth.Grant(opsAccount, common.CapabilitySystemPause)
	engine := NewEngine(DefaultParams(), auth)
	engine.SetClock(func() time.Time { return time.Unix(1_700_000_000, 0) })
	sink := &capturedEvents{}
	engine.SetEmitter(sink)
	return engine, sink
}

// fundPool seeds the canonical test pool: 1M/1M reserves.
func fundPool(t *testing.T, engine *Engine) {
	t.Helper()
	if _, _, err := engine.AddLiquidity(marketMaker, "DYO", "USDC", MustParseAmount(1_000_000), MustParseAmount(1_000_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}
}

func deadline() time.Time { return time.Unix(1_700_000_000, 0).Add(time.Minute) }

func TestSwapAgainstBalancedPool(t *testing.T) {
	engine, sink := newTestEngine(t)
	fundPool(t, engine)

	record, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10_000), MustParseAmount(9_800), deadline(), 1)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	// 1M/1M reserves, 30 bps fee: output lands between 9871 and 9872
	// tokens and the execution deviates 128 bps from spot.
	if record.AmountOut.Lt(MustParseAmount(9_871)) || !record.AmountOut.Lt(MustParseAmount(9_872)) {
		t.Fatalf("amount out = %s", FormatAmount(record.AmountOut))
	}
	if record.ImpactBps != 128 {
		t.Fatalf("impact = %d bps, want 128", record.ImpactBps)
	}

	pool, ok := engine.PoolOf("DYO", "USDC")
	if !ok {
		t.Fatalf("pool missing after swap")
	}
	wantReserveA := MustParseAmount(1_010_000)
	if !pool.ReserveA.Eq(wantReserveA) {
		t.Fatalf("reserve a = %s, want 1010000", FormatAmount(pool.ReserveA))
	}
	wantReserveB := new(uint256.Int).Sub(MustParseAmount(1_000_000), record.AmountOut)
	if !pool.ReserveB.Eq(wantReserveB) {
		t.Fatalf("reserve b = %s", FormatAmount(pool.ReserveB))
	}
	// The retained fee keeps k growing.
	oldK := new(uint256.Int).Mul(MustParseAmount(1_000_000), MustParseAmount(1_000_000))
	if pool.KLast.Lt(oldK) {
		t.Fatalf("k shrank: %s", pool.KLast.Dec())
	}

	last := sink.emitted[len(sink.emitted)-1]
	if last.EventType() != events.TypeSwap {
		t.Fatalf("last event = %s, want %s", last.EventType(), events.TypeSwap)
	}
	if last.Attributes()["priceImpactBps"] != "128" {
		t.Fatalf("event impact = %s", last.Attributes()["priceImpactBps"])
	}
}

func TestSwapRejectsPriceImpactPastCeiling(t *testing.T) {
	engine, _ := newTestEngine(t)
	fundPool(t, engine)

	// 500k into a 1M reserve deviates ~3346 bps from spot, past the 2000
	// ceiling, without tripping the drain guard first.
	_, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(500_000), nil, deadline(), 1)
	if !errors.Is(err, ErrPriceImpactTooHigh) {
		t.Fatalf("err = %v, want ErrPriceImpactTooHigh", err)
	}

	pool, _ := engine.PoolOf("DYO", "USDC")
	if !pool.ReserveA.Eq(MustParseAmount(1_000_000)) {
		t.Fatalf("reserves mutated by rejected swap: %s", FormatAmount(pool.ReserveA))
	}
}

func TestSwapRejectsReserveDrain(t *testing.T) {
	engine, _ := newTestEngine(t)
	fundPool(t, engine)

	// 200M in would take ~99.5% of the output reserve.
	_, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(200_000_000), nil, deadline(), 1)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("err = %v, want ErrInsufficientLiquidity", err)
	}
}

func TestSwapRejectsDustyReserve(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, _, err := engine.AddLiquidity(marketMaker, "DYO", "USDC", MustParseAmount(1_100), MustParseAmount(100)); err != nil {
		t.Fatalf("seed pool: %v", err)
	}

	// The deep DYO side must not vouch for the dusty USDC side.
	_, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10), nil, deadline(), 1)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("err = %v, want ErrInsufficientLiquidity", err)
	}
}

func TestSwapRejectionEmitsReason(t *testing.T) {
	engine, sink := newTestEngine(t)
	fundPool(t, engine)

	past := time.Unix(1_700_000_000, 0).Add(-time.Second)
	if _, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10), nil, past, 1); !errors.Is(err, ErrDeadlineExpired) {
		t.Fatalf("err = %v, want ErrDeadlineExpired", err)
	}

	last := sink.emitted[len(sink.emitted)-1]
	if last.EventType() != events.TypeSwapRejected {
		t.Fatalf("event = %s, want %s", last.EventType(), events.TypeSwapRejected)
	}
	attrs := last.Attributes()
	if attrs["reason"] != "deadline" || attrs["pair"] != "DYO_USDC" {
		t.Fatalf("attrs = %v", attrs)
	}
}

func TestSwapSlippageFloor(t *testing.T) {
	engine, _ := newTestEngine(t)
	fundPool(t, engine)

	_, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10_000), MustParseAmount(9_900), deadline(), 1)
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("err = %v, want ErrSlippageExceeded", err)
	}
}

func TestSwapDeadlineAndNonce(t *testing.T) {
	engine, _ := newTestEngine(t)
	fundPool(t, engine)

	past := time.Unix(1_700_000_000, 0).Add(-time.Second)
	if _, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10), nil, past, 1); !errors.Is(err, ErrDeadlineExpired) {
		t.Fatalf("expired deadline err = %v, want ErrDeadlineExpired", err)
	}

	if _, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10), nil, deadline(), 5); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if _, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10), nil, deadline(), 5); !errors.Is(err, ErrNonceReused) {
		t.Fatalf("replayed nonce err = %v, want ErrNonceReused", err)
	}
	if _, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10), nil, deadline(), 4); !errors.Is(err, ErrNonceReused) {
		t.Fatalf("stale nonce err = %v, want ErrNonceReused", err)
	}
	if _, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10), nil, deadline(), 6); err != nil {
		t.Fatalf("next nonce swap: %v", err)
	}
}

func TestSwapValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	fundPool(t, engine)

	if _, err := engine.Swap(trader, "DYO", "DYO", MustParseAmount(10), nil, deadline(), 1); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("same-token err = %v, want ErrInvalidToken", err)
	}
	if _, err := engine.Swap(trader, "DYO", "BTC", MustParseAmount(10), nil, deadline(), 1); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("unknown pair err = %v, want ErrPoolNotFound", err)
	}
	if _, err := engine.Swap(trader, "DYO", "USDC", uint256.NewInt(0), nil, deadline(), 1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount err = %v, want ErrInvalidAmount", err)
	}
}

func TestQuoteMatchesSwap(t *testing.T) {
	engine, _ := newTestEngine(t)
	fundPool(t, engine)

	quoted, impact, err := engine.Quote("DYO", "USDC", MustParseAmount(10_000))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	record, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10_000), nil, deadline(), 1)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if !quoted.Eq(record.AmountOut) || impact != record.ImpactBps {
		t.Fatalf("quote %s/%d does not match swap %s/%d", FormatAmount(quoted), impact, FormatAmount(record.AmountOut), record.ImpactBps)
	}
}

func TestAddLiquidityAuthorizationAndFloor(t *testing.T) {
	engine, _ := newTestEngine(t)

	if _, _, err := engine.AddLiquidity("rando", "DYO", "USDC", MustParseAmount(5_000), MustParseAmount(5_000)); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("unauthorized create err = %v, want ErrUnauthorized", err)
	}
	if _, _, err := engine.AddLiquidity(marketMaker, "DYO", "USDC", MustParseAmount(400), MustParseAmount(500)); !errors.Is(err, ErrBelowMinimumLiquidity) {
		t.Fatalf("dusty create err = %v, want ErrBelowMinimumLiquidity", err)
	}

	minted, txHash, err := engine.AddLiquidity(marketMaker, "DYO", "USDC", MustParseAmount(600), MustParseAmount(400))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !minted.Eq(MustParseAmount(1_000)) {
		t.Fatalf("minted = %s, want 1000", FormatAmount(minted))
	}
	if txHash == "" {
		t.Fatal("expected a transaction hash for the liquidity add")
	}

	// Extending an existing pool needs no capability.
	if _, _, err := engine.AddLiquidity("rando", "DYO", "USDC", MustParseAmount(100), MustParseAmount(100)); err != nil {
		t.Fatalf("extend: %v", err)
	}
	pool, _ := engine.PoolOf("DYO", "USDC")
	if !pool.ReserveA.Eq(MustParseAmount(700)) || !pool.ReserveB.Eq(MustParseAmount(500)) {
		t.Fatalf("reserves = %s / %s", FormatAmount(pool.ReserveA), FormatAmount(pool.ReserveB))
	}
	if !pool.TotalLP().Eq(MustParseAmount(1_200)) {
		t.Fatalf("total lp = %s, want 1200", FormatAmount(pool.TotalLP()))
	}
	if !pool.LPBalanceOf("rando").Eq(MustParseAmount(200)) {
		t.Fatalf("rando lp = %s, want 200", FormatAmount(pool.LPBalanceOf("rando")))
	}
}

func TestRemoveLiquidityProRata(t *testing.T) {
	engine, _ := newTestEngine(t)
	fundPool(t, engine)

	// Burning half the provider's units pays out half of each reserve.
	outA, outB, err := engine.RemoveLiquidity(marketMaker, "DYO", "USDC", MustParseAmount(1_000_000))
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !outA.Eq(MustParseAmount(500_000)) || !outB.Eq(MustParseAmount(500_000)) {
		t.Fatalf("payout = %s / %s, want 500000 each", FormatAmount(outA), FormatAmount(outB))
	}

	if _, _, err := engine.RemoveLiquidity(marketMaker, "DYO", "USDC", MustParseAmount(2_000_000)); !errors.Is(err, ErrInsufficientLPBalance) {
		t.Fatalf("overburn err = %v, want ErrInsufficientLPBalance", err)
	}

	// Burning the rest would take both reserves to zero; a pool only
	// drains toward the floor and is never retired.
	if _, _, err := engine.RemoveLiquidity(marketMaker, "DYO", "USDC", MustParseAmount(1_000_000)); !errors.Is(err, ErrBelowMinimumLiquidity) {
		t.Fatalf("full drain err = %v, want ErrBelowMinimumLiquidity", err)
	}
	if _, ok := engine.PoolOf("DYO", "USDC"); !ok {
		t.Fatalf("pool must survive a rejected drain")
	}
}

func TestRemoveLiquidityKeepsFloor(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, _, err := engine.AddLiquidity(marketMaker, "DYO", "USDC", MustParseAmount(600), MustParseAmount(600)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := engine.AddLiquidity("rando", "DYO", "USDC", MustParseAmount(100), MustParseAmount(100)); err != nil {
		t.Fatalf("extend: %v", err)
	}

	// The market maker burning out would leave 100 per reserve, under the
	// 1000-token floor, while rando's claim is still outstanding.
	if _, _, err := engine.RemoveLiquidity(marketMaker, "DYO", "USDC", MustParseAmount(1_200)); !errors.Is(err, ErrBelowMinimumLiquidity) {
		t.Fatalf("floor err = %v, want ErrBelowMinimumLiquidity", err)
	}
}

func TestEnginePauseGating(t *testing.T) {
	engine, _ := newTestEngine(t)
	fundPool(t, engine)

	if err := engine.EmergencyPause("rando", "nope"); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("unauthorized pause err = %v, want ErrUnauthorized", err)
	}
	if err := engine.EmergencyPause(opsAccount, "circuit breaker"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10), nil, deadline(), 1); !errors.Is(err, common.ErrEmergencyPaused) {
		t.Fatalf("paused swap err = %v, want ErrEmergencyPaused", err)
	}
	if _, _, err := engine.AddLiquidity(marketMaker, "DYO", "USDC", MustParseAmount(10), MustParseAmount(10)); !errors.Is(err, common.ErrEmergencyPaused) {
		t.Fatalf("paused deposit err = %v, want ErrEmergencyPaused", err)
	}
	if err := engine.ResumeFromEmergency(opsAccount); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10), nil, deadline(), 1); err != nil {
		t.Fatalf("swap after resume: %v", err)
	}
}

func TestRecordsNewestFirst(t *testing.T) {
	engine, _ := newTestEngine(t)
	fundPool(t, engine)

	for nonce := uint64(1); nonce <= 3; nonce++ {
		if _, err := engine.Swap(trader, "DYO", "USDC", MustParseAmount(10*nonce), nil, deadline(), nonce); err != nil {
			t.Fatalf("swap %d: %v", nonce, err)
		}
	}
	records := engine.Records(2)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Nonce != 3 || records[1].Nonce != 2 {
		t.Fatalf("record order = %d, %d, want 3, 2", records[0].Nonce, records[1].Nonce)
	}
	if records[0].TxHash == records[1].TxHash {
		t.Fatalf("tx hashes must be unique")
	}
}

func TestFormatAndParseAmount(t *testing.T) {
	if got := FormatAmount(MustParseAmount(42)); got != "42" {
		t.Fatalf("format = %q, want 42", got)
	}
	half := new(uint256.Int).Div(MustParseAmount(1), uint256.NewInt(2))
	if got := FormatAmount(half); got != "0.5" {
		t.Fatalf("format = %q, want 0.5", got)
	}
	if got := FormatAmount(nil); got != "0" {
		t.Fatalf("format nil = %q, want 0", got)
	}
}
