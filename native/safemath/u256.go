package safemath

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Wide-domain helpers for the hardened settlement path, where reserves carry
// 18 implied decimal places and routinely exceed the uint64 range.

// Decimals is the scale factor for amounts with 18 implied decimal places.
var Decimals = uint256.NewInt(1_000_000_000_000_000_000)

var u256BasisPoints = uint256.NewInt(BasisPoints)

// U256Add returns a+b or ErrOverflow when the sum wraps the 256-bit domain.
func U256Add(a, b *uint256.Int, op string) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fail(op, ErrOverflow)
	}
	return sum, nil
}

// U256Sub returns a-b or ErrUnderflow when b exceeds a.
func U256Sub(a, b *uint256.Int, op string) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, fail(op, ErrUnderflow)
	}
	return diff, nil
}

// U256Mul returns a*b or ErrOverflow when the product wraps.
func U256Mul(a, b *uint256.Int, op string) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fail(op, ErrOverflow)
	}
	return product, nil
}

// U256Div returns a/b or ErrDivisionByZero when b is zero.
func U256Div(a, b *uint256.Int, op string) (*uint256.Int, error) {
	if b == nil || b.IsZero() {
		return nil, fail(op, ErrDivisionByZero)
	}
	return new(uint256.Int).Div(a, b), nil
}

// U256MulDiv computes a*b/den with the product held in the 512-bit domain.
func U256MulDiv(a, b, den *uint256.Int, op string) (*uint256.Int, error) {
	if den == nil || den.IsZero() {
		return nil, fail(op, ErrDivisionByZero)
	}
	result, overflow := new(uint256.Int).MulDivOverflow(a, b, den)
	if overflow {
		return nil, fail(op, ErrOverflow)
	}
	return result, nil
}

// U256Percentage computes amount*bps/10_000, rejecting basis points above
// 10_000 as invalid input.
func U256Percentage(amount *uint256.Int, bps uint64, op string) (*uint256.Int, error) {
	if bps > BasisPoints {
		return nil, fail(op, fmt.Errorf("%w: %d bps exceeds maximum %d", ErrInvalidInput, bps, BasisPoints))
	}
	return U256MulDiv(amount, uint256.NewInt(bps), u256BasisPoints, op)
}
