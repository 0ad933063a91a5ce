package dex

import "errors"

var (
	// ErrInvalidToken rejects blank or identical token symbols.
	ErrInvalidToken = errors.New("dex: invalid token")
	// ErrInvalidAmount rejects zero or nil amounts.
	ErrInvalidAmount = errors.New("dex: invalid amount")
	// ErrPoolNotFound is returned for unknown trading pairs.
	ErrPoolNotFound = errors.New("dex: pool not found")
	// ErrDeadlineExpired rejects swaps submitted past their deadline.
	ErrDeadlineExpired = errors.New("dex: deadline expired")
	// ErrNonceReused rejects swaps that do not advance the engine nonce.
	ErrNonceReused = errors.New("dex: nonce already used")
	// ErrInsufficientLiquidity rejects swaps against dusty reserves and
	// swaps that would drain one.
	ErrInsufficientLiquidity = errors.New("dex: insufficient liquidity")
	// ErrPriceImpactTooHigh rejects swaps past the price impact ceiling.
	ErrPriceImpactTooHigh = errors.New("dex: price impact too high")
	// ErrSlippageExceeded rejects swaps whose output lands under the floor.
	ErrSlippageExceeded = errors.New("dex: slippage tolerance exceeded")
	// ErrKInvariantViolated aborts a swap whose effects would shrink k.
	ErrKInvariantViolated = errors.New("dex: constant product invariant violated")
	// ErrBelowMinimumLiquidity rejects pools funded under the floor.
	ErrBelowMinimumLiquidity = errors.New("dex: below minimum liquidity")
	// ErrInsufficientLPBalance rejects burns beyond the provider's share.
	ErrInsufficientLPBalance = errors.New("dex: insufficient lp balance")
)
