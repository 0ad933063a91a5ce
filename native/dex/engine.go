package dex

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"lukechampine.com/blake3"

	"dujyo/core/events"
	"dujyo/native/common"
	"dujyo/native/safemath"
)

// Params bundle the market-safety limits applied to every settlement.
type Params struct {
	// FeeBps is the swap fee retained by the pool, in basis points.
	FeeBps uint64
	// MaxPriceImpactBps is the ceiling on the spot-vs-execution deviation.
	MaxPriceImpactBps uint64
	// MinLiquidity is the reserve-precision floor for funding a pool.
	MinLiquidity *uint256.Int
	// MaxDrainBps caps the share of a reserve one swap may take out.
	MaxDrainBps uint64
}

// DefaultParams returns the production limits: 30 bps fee, 20% price impact
// ceiling, 1000-token minimum liquidity, 99% drain cap.
func DefaultParams() Params {
	return Params{
		FeeBps:            30,
		MaxPriceImpactBps: 2_000,
		MinLiquidity:      MustParseAmount(1_000),
		MaxDrainBps:       9_900,
	}
}

// SwapRecord is the immutable settlement record appended per executed swap.
type SwapRecord struct {
	TxHash    string
	Trader    string
	TokenIn   string
	TokenOut  string
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
	ImpactBps uint64
	Nonce     uint64
	Deadline  time.Time
	Timestamp time.Time
}

// maxSwapRecords caps the in-memory settlement history.
const maxSwapRecords = 10_000

// Engine is the AMM settlement core. One mutex serializes every swap and
// liquidity mutation; the event emitter runs only after the lock releases.
type Engine struct {
	mu sync.Mutex

	pools        map[string]*Pool
	params       Params
	guard        common.Guard
	auth         common.Authority
	lastNonce    uint64
	liquiditySeq uint64
	records      []SwapRecord

	clock   func() time.Time
	emitter events.Emitter
}

// NewEngine constructs an engine with the supplied limits and capability
// authority. Nil MinLiquidity falls back to the default floor.
func NewEngine(params Params, auth common.Authority) *Engine {
	if params.MinLiquidity == nil {
		params.MinLiquidity = DefaultParams().MinLiquidity
	}
	return &Engine{
		pools:   make(map[string]*Pool),
		params:  params,
		auth:    auth,
		clock:   time.Now,
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter wires the event sink. Passing nil restores the no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetClock overrides the time source. Passing nil restores time.Now.
func (e *Engine) SetClock(clock func() time.Time) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if clock == nil {
		e.clock = time.Now
		return
	}
	e.clock = clock
}

// EmergencyPause halts swaps and liquidity changes. Callers need the
// system pause capability.
func (e *Engine) EmergencyPause(caller, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.auth == nil || !e.auth.HasCapability(caller, common.CapabilitySystemPause) {
		return common.ErrUnauthorized
	}
	e.guard.Pause(reason)
	return nil
}

// ResumeFromEmergency lifts the pause. Same capability gate as pausing.
func (e *Engine) ResumeFromEmergency(caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.auth == nil || !e.auth.HasCapability(caller, common.CapabilitySystemPause) {
		return common.ErrUnauthorized
	}
	e.guard.Resume()
	return nil
}

// Paused reports the engine pause flag and reason.
func (e *Engine) Paused() (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.guard.Paused()
}

func (e *Engine) txHashLocked(kind, trader, pair string, nonce uint64) string {
	payload := fmt.Sprintf("%s|%s|%s|%d", kind, trader, pair, nonce)
	sum := blake3.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// quoteLocked computes the fee-adjusted CPMM output and the price impact in
// basis points for a swap against the given reserves.
func (e *Engine) quoteLocked(reserveIn, reserveOut, amountIn *uint256.Int) (*uint256.Int, uint64, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, 0, ErrInsufficientLiquidity
	}
	feeKeep := safemath.BasisPoints - e.params.FeeBps
	amountInWithFee, err := safemath.U256MulDiv(amountIn, uint256.NewInt(feeKeep), uint256.NewInt(safemath.BasisPoints), "swap fee")
	if err != nil {
		return nil, 0, err
	}
	denominator, err := safemath.U256Add(reserveIn, amountInWithFee, "swap denominator")
	if err != nil {
		return nil, 0, err
	}
	amountOut, err := safemath.U256MulDiv(reserveOut, amountInWithFee, denominator, "swap output")
	if err != nil {
		return nil, 0, err
	}

	// Impact is the deviation of execution from the pre-trade spot price.
	spotOut, err := safemath.U256MulDiv(amountIn, reserveOut, reserveIn, "swap spot")
	if err != nil {
		return nil, 0, err
	}
	if spotOut.IsZero() {
		return nil, 0, ErrInsufficientLiquidity
	}
	shortfall, err := safemath.U256Sub(spotOut, amountOut, "swap shortfall")
	if err != nil {
		return nil, 0, err
	}
	impact, err := safemath.U256MulDiv(shortfall, uint256.NewInt(safemath.BasisPoints), spotOut, "swap impact")
	if err != nil {
		return nil, 0, err
	}
	if !impact.IsUint64() {
		return nil, 0, ErrPriceImpactTooHigh
	}
	return amountOut, impact.Uint64(), nil
}

// Quote is a read-only price check: it returns the settlement output and
// price impact for a prospective swap without touching state.
func (e *Engine) Quote(tokenIn, tokenOut string, amountIn *uint256.Int) (*uint256.Int, uint64, error) {
	tokenIn, err := normalizeToken(tokenIn)
	if err != nil {
		return nil, 0, err
	}
	tokenOut, err = normalizeToken(tokenOut)
	if err != nil {
		return nil, 0, err
	}
	if tokenIn == tokenOut {
		return nil, 0, ErrInvalidToken
	}
	if amountIn == nil || amountIn.IsZero() {
		return nil, 0, ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, ok := e.pools[PairKey(tokenIn, tokenOut)]
	if !ok {
		return nil, 0, ErrPoolNotFound
	}
	return e.quoteLocked(pool.ReserveA, pool.ReserveB, amountIn)
}

// Swap settles a trade against the directional pool tokenIn→tokenOut.
// minAmountOut is the trader's slippage floor; deadline and nonce defend
// against stale and replayed submissions. Checks run to completion before
// any effect is applied.
func (e *Engine) Swap(trader, tokenIn, tokenOut string, amountIn, minAmountOut *uint256.Int, deadline time.Time, nonce uint64) (SwapRecord, error) {
	e.mu.Lock()
	record, evt, err := e.swapLocked(trader, tokenIn, tokenOut, amountIn, minAmountOut, deadline, nonce)
	e.mu.Unlock()
	if err != nil {
		e.emitter.Emit(events.SwapRejected{
			Pair:   PairKey(tokenIn, tokenOut),
			User:   trader,
			Reason: rejectReason(err),
		})
		return SwapRecord{}, err
	}
	e.emitter.Emit(evt)
	return record, nil
}

// rejectReason buckets a swap failure for audit sinks and metrics.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, common.ErrEmergencyPaused):
		return "paused"
	case errors.Is(err, common.ErrReentrancyDetected):
		return "reentrancy"
	case errors.Is(err, ErrDeadlineExpired):
		return "deadline"
	case errors.Is(err, ErrNonceReused):
		return "nonce"
	case errors.Is(err, ErrInsufficientLiquidity):
		return "liquidity"
	case errors.Is(err, ErrPriceImpactTooHigh):
		return "price_impact"
	case errors.Is(err, ErrSlippageExceeded):
		return "slippage"
	case errors.Is(err, ErrKInvariantViolated):
		return "invariant"
	default:
		return "validation"
	}
}

func (e *Engine) swapLocked(trader, tokenIn, tokenOut string, amountIn, minAmountOut *uint256.Int, deadline time.Time, nonce uint64) (SwapRecord, events.Event, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return SwapRecord{}, nil, err
	}
	defer release()

	now := e.clock()
	if now.After(deadline) {
		return SwapRecord{}, nil, ErrDeadlineExpired
	}
	if nonce <= e.lastNonce {
		return SwapRecord{}, nil, ErrNonceReused
	}
	tokenIn, err = normalizeToken(tokenIn)
	if err != nil {
		return SwapRecord{}, nil, err
	}
	tokenOut, err = normalizeToken(tokenOut)
	if err != nil {
		return SwapRecord{}, nil, err
	}
	if tokenIn == tokenOut || !validTrader(trader) {
		return SwapRecord{}, nil, ErrInvalidToken
	}
	pool, ok := e.pools[PairKey(tokenIn, tokenOut)]
	if !ok {
		return SwapRecord{}, nil, ErrPoolNotFound
	}
	if amountIn == nil || amountIn.IsZero() {
		return SwapRecord{}, nil, ErrInvalidAmount
	}
	// Each reserve must clear the floor on its own; a deep side cannot
	// vouch for a dusty one.
	if pool.ReserveA.Lt(e.params.MinLiquidity) || pool.ReserveB.Lt(e.params.MinLiquidity) {
		return SwapRecord{}, nil, ErrInsufficientLiquidity
	}

	amountOut, impactBps, err := e.quoteLocked(pool.ReserveA, pool.ReserveB, amountIn)
	if err != nil {
		return SwapRecord{}, nil, err
	}

	// Drain guard: one swap may not take out more than MaxDrainBps of the
	// output reserve.
	drainCap, err := safemath.U256Percentage(pool.ReserveB, e.params.MaxDrainBps, "drain cap")
	if err != nil {
		return SwapRecord{}, nil, err
	}
	if amountOut.Gt(drainCap) {
		return SwapRecord{}, nil, fmt.Errorf("%w: output would drain the reserve", ErrInsufficientLiquidity)
	}
	if impactBps > e.params.MaxPriceImpactBps {
		return SwapRecord{}, nil, fmt.Errorf("%w: %d bps", ErrPriceImpactTooHigh, impactBps)
	}
	if minAmountOut != nil && amountOut.Lt(minAmountOut) {
		return SwapRecord{}, nil, ErrSlippageExceeded
	}

	newReserveA, err := safemath.U256Add(pool.ReserveA, amountIn, "swap reserve in")
	if err != nil {
		return SwapRecord{}, nil, err
	}
	newReserveB, err := safemath.U256Sub(pool.ReserveB, amountOut, "swap reserve out")
	if err != nil {
		return SwapRecord{}, nil, err
	}
	// The fee retained in the input reserve must keep the constant product
	// from shrinking.
	newK, err := safemath.U256Mul(newReserveA, newReserveB, "swap k")
	if err != nil {
		return SwapRecord{}, nil, err
	}
	if newK.Lt(pool.KLast) {
		return SwapRecord{}, nil, ErrKInvariantViolated
	}

	pool.ReserveA = newReserveA
	pool.ReserveB = newReserveB
	pool.KLast = newK
	e.lastNonce = nonce

	record := SwapRecord{
		TxHash:    e.txHashLocked("swap", trader, PairKey(tokenIn, tokenOut), nonce),
		Trader:    trader,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  new(uint256.Int).Set(amountIn),
		AmountOut: amountOut,
		ImpactBps: impactBps,
		Nonce:     nonce,
		Deadline:  deadline,
		Timestamp: now,
	}
	if len(e.records) >= maxSwapRecords {
		e.records = append(e.records[1:], record)
	} else {
		e.records = append(e.records, record)
	}

	evt := events.Swap{
		Pair:           PairKey(tokenIn, tokenOut),
		FromToken:      tokenIn,
		ToToken:        tokenOut,
		AmountIn:       record.AmountIn.Dec(),
		AmountOut:      record.AmountOut.Dec(),
		User:           trader,
		PriceImpactBps: impactBps,
		TxHash:         record.TxHash,
	}
	return record, evt, nil
}

// AddLiquidity funds the directional pool tokenA→tokenB, creating it when
// absent. Creation requires the pool-create capability and the combined
// deposit must clear the minimum liquidity floor. Liquidity units are
// credited one per reserve unit deposited.
func (e *Engine) AddLiquidity(provider, tokenA, tokenB string, amountA, amountB *uint256.Int) (*uint256.Int, string, error) {
	e.mu.Lock()
	minted, evt, err := e.addLiquidityLocked(provider, tokenA, tokenB, amountA, amountB)
	e.mu.Unlock()
	if err != nil {
		return nil, "", err
	}
	e.emitter.Emit(evt)
	return minted, evt.TxHash, nil
}

func (e *Engine) addLiquidityLocked(provider, tokenA, tokenB string, amountA, amountB *uint256.Int) (*uint256.Int, events.LiquidityAdded, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return nil, events.LiquidityAdded{}, err
	}
	defer release()

	tokenA, err = normalizeToken(tokenA)
	if err != nil {
		return nil, events.LiquidityAdded{}, err
	}
	tokenB, err = normalizeToken(tokenB)
	if err != nil {
		return nil, events.LiquidityAdded{}, err
	}
	if tokenA == tokenB || !validTrader(provider) {
		return nil, events.LiquidityAdded{}, ErrInvalidToken
	}
	if amountA == nil || amountB == nil || amountA.IsZero() || amountB.IsZero() {
		return nil, events.LiquidityAdded{}, ErrInvalidAmount
	}

	key := PairKey(tokenA, tokenB)
	pool, exists := e.pools[key]
	if !exists {
		if e.auth == nil || !e.auth.HasCapability(provider, common.CapabilityPoolCreate) {
			return nil, events.LiquidityAdded{}, common.ErrUnauthorized
		}
		combined, err := safemath.U256Add(amountA, amountB, "liquidity floor")
		if err != nil {
			return nil, events.LiquidityAdded{}, err
		}
		if combined.Lt(e.params.MinLiquidity) {
			return nil, events.LiquidityAdded{}, ErrBelowMinimumLiquidity
		}
		pool = newPool(tokenA, tokenB)
	}

	newReserveA, err := safemath.U256Add(pool.ReserveA, amountA, "liquidity reserve a")
	if err != nil {
		return nil, events.LiquidityAdded{}, err
	}
	newReserveB, err := safemath.U256Add(pool.ReserveB, amountB, "liquidity reserve b")
	if err != nil {
		return nil, events.LiquidityAdded{}, err
	}
	minted, err := safemath.U256Add(amountA, amountB, "liquidity units")
	if err != nil {
		return nil, events.LiquidityAdded{}, err
	}
	newTotal, err := safemath.U256Add(pool.totalLP, minted, "liquidity total")
	if err != nil {
		return nil, events.LiquidityAdded{}, err
	}
	newProvider, err := safemath.U256Add(pool.LPBalanceOf(provider), minted, "liquidity balance")
	if err != nil {
		return nil, events.LiquidityAdded{}, err
	}

	pool.ReserveA = newReserveA
	pool.ReserveB = newReserveB
	pool.totalLP = newTotal
	pool.lpBalances[provider] = newProvider
	pool.updateKLast()
	e.pools[key] = pool

	e.liquiditySeq++
	evt := events.LiquidityAdded{
		Pair:    key,
		AmountA: amountA.Dec(),
		AmountB: amountB.Dec(),
		LPUnits: minted.Dec(),
		User:    provider,
		TxHash:  e.txHashLocked("liquidity-add", provider, key, e.liquiditySeq),
	}
	return new(uint256.Int).Set(minted), evt, nil
}

// RemoveLiquidity burns lpAmount of the provider's units and pays out both
// reserves pro rata. A pool can only be drained toward the minimum
// liquidity floor, never past it, and is never deleted.
func (e *Engine) RemoveLiquidity(provider, tokenA, tokenB string, lpAmount *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	e.mu.Lock()
	outA, outB, evt, err := e.removeLiquidityLocked(provider, tokenA, tokenB, lpAmount)
	e.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	e.emitter.Emit(evt)
	return outA, outB, nil
}

func (e *Engine) removeLiquidityLocked(provider, tokenA, tokenB string, lpAmount *uint256.Int) (*uint256.Int, *uint256.Int, events.Event, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return nil, nil, nil, err
	}
	defer release()

	tokenA, err = normalizeToken(tokenA)
	if err != nil {
		return nil, nil, nil, err
	}
	tokenB, err = normalizeToken(tokenB)
	if err != nil {
		return nil, nil, nil, err
	}
	key := PairKey(tokenA, tokenB)
	pool, ok := e.pools[key]
	if !ok {
		return nil, nil, nil, ErrPoolNotFound
	}
	if lpAmount == nil || lpAmount.IsZero() {
		return nil, nil, nil, ErrInvalidAmount
	}
	providerBalance := pool.LPBalanceOf(provider)
	if lpAmount.Gt(providerBalance) {
		return nil, nil, nil, ErrInsufficientLPBalance
	}

	outA, err := safemath.U256MulDiv(pool.ReserveA, lpAmount, pool.totalLP, "burn payout a")
	if err != nil {
		return nil, nil, nil, err
	}
	outB, err := safemath.U256MulDiv(pool.ReserveB, lpAmount, pool.totalLP, "burn payout b")
	if err != nil {
		return nil, nil, nil, err
	}
	newReserveA, err := safemath.U256Sub(pool.ReserveA, outA, "burn reserve a")
	if err != nil {
		return nil, nil, nil, err
	}
	newReserveB, err := safemath.U256Sub(pool.ReserveB, outB, "burn reserve b")
	if err != nil {
		return nil, nil, nil, err
	}
	newTotal, err := safemath.U256Sub(pool.totalLP, lpAmount, "burn total")
	if err != nil {
		return nil, nil, nil, err
	}
	if newReserveA.Lt(e.params.MinLiquidity) || newReserveB.Lt(e.params.MinLiquidity) {
		return nil, nil, nil, ErrBelowMinimumLiquidity
	}

	newProvider, err := safemath.U256Sub(providerBalance, lpAmount, "burn balance")
	if err != nil {
		return nil, nil, nil, err
	}

	pool.ReserveA = newReserveA
	pool.ReserveB = newReserveB
	pool.totalLP = newTotal
	if newProvider.IsZero() {
		delete(pool.lpBalances, provider)
	} else {
		pool.lpBalances[provider] = newProvider
	}
	pool.updateKLast()

	e.liquiditySeq++
	evt := events.LiquidityRemoved{
		Pair:    key,
		AmountA: outA.Dec(),
		AmountB: outB.Dec(),
		LPUnits: lpAmount.Dec(),
		User:    provider,
		TxHash:  e.txHashLocked("liquidity-remove", provider, key, e.liquiditySeq),
	}
	return outA, outB, evt, nil
}

// PoolOf returns a deep copy of the pool for a pair.
func (e *Engine) PoolOf(tokenA, tokenB string) (Pool, bool) {
	tokenA, err := normalizeToken(tokenA)
	if err != nil {
		return Pool{}, false
	}
	tokenB, err = normalizeToken(tokenB)
	if err != nil {
		return Pool{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, ok := e.pools[PairKey(tokenA, tokenB)]
	if !ok {
		return Pool{}, false
	}
	return pool.snapshot(), true
}

// Records returns up to limit settlement records, newest first.
func (e *Engine) Records(limit int) []SwapRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]SwapRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, e.records[i])
	}
	return out
}

func validTrader(trader string) bool {
	return len(trader) > 0
}
