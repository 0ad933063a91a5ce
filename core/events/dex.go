package events

import "strconv"

const (
	// TypeSwap is emitted once per executed swap.
	TypeSwap = "dex.swap"
	// TypeLiquidityAdded is emitted when a pool is created or extended.
	TypeLiquidityAdded = "dex.liquidity.added"
	// TypeLiquidityRemoved is emitted when a provider redeems pool claims.
	TypeLiquidityRemoved = "dex.liquidity.removed"
	// TypeSwapRejected is emitted when a swap fails a market-safety check.
	TypeSwapRejected = "dex.swap.rejected"
)

// Swap captures an executed swap against a pool.
type Swap struct {
	Pair           string
	FromToken      string
	ToToken        string
	AmountIn       string
	AmountOut      string
	User           string
	PriceImpactBps uint64
	TxHash         string
}

func (Swap) EventType() string { return TypeSwap }

func (e Swap) Attributes() map[string]string {
	return map[string]string{
		"pair":           e.Pair,
		"fromToken":      e.FromToken,
		"toToken":        e.ToToken,
		"amountIn":       e.AmountIn,
		"amountOut":      e.AmountOut,
		"user":           e.User,
		"priceImpactBps": strconv.FormatUint(e.PriceImpactBps, 10),
		"txHash":         e.TxHash,
	}
}

// SwapRejected captures a swap turned away before any effect was applied.
type SwapRejected struct {
	Pair   string
	User   string
	Reason string
}

func (SwapRejected) EventType() string { return TypeSwapRejected }

func (e SwapRejected) Attributes() map[string]string {
	return map[string]string{
		"pair":   e.Pair,
		"user":   e.User,
		"reason": e.Reason,
	}
}

// LiquidityAdded captures a liquidity deposit.
type LiquidityAdded struct {
	Pair    string
	AmountA string
	AmountB string
	LPUnits string
	User    string
	TxHash  string
}

func (LiquidityAdded) EventType() string { return TypeLiquidityAdded }

func (e LiquidityAdded) Attributes() map[string]string {
	return map[string]string{
		"pair":    e.Pair,
		"amountA": e.AmountA,
		"amountB": e.AmountB,
		"lpUnits": e.LPUnits,
		"user":    e.User,
		"txHash":  e.TxHash,
	}
}

// LiquidityRemoved captures a liquidity redemption.
type LiquidityRemoved struct {
	Pair    string
	AmountA string
	AmountB string
	LPUnits string
	User    string
	TxHash  string
}

func (LiquidityRemoved) EventType() string { return TypeLiquidityRemoved }

func (e LiquidityRemoved) Attributes() map[string]string {
	return map[string]string{
		"pair":    e.Pair,
		"amountA": e.AmountA,
		"amountB": e.AmountB,
		"lpUnits": e.LPUnits,
		"user":    e.User,
		"txHash":  e.TxHash,
	}
}
