package safemath

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// Classified arithmetic failures. Every operation in this package returns one
// of these sentinels wrapped with the caller-supplied operation tag so that a
// failed balance or reserve computation can be traced back to its call site.
var (
	ErrOverflow       = errors.New("safemath: overflow")
	ErrUnderflow      = errors.New("safemath: underflow")
	ErrDivisionByZero = errors.New("safemath: division by zero")
	ErrInvalidInput   = errors.New("safemath: invalid input")
)

// BasisPoints is the denominator used for percentage style computations
// (10_000 bps == 100%).
const BasisPoints uint64 = 10_000

func fail(op string, err error) error {
	if op == "" {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Add returns a+b or ErrOverflow when the sum does not fit in a uint64.
func Add(a, b uint64, op string) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fail(op, ErrOverflow)
	}
	return sum, nil
}

// Sub returns a-b or ErrUnderflow when b exceeds a.
func Sub(a, b uint64, op string) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fail(op, ErrUnderflow)
	}
	return diff, nil
}

// Mul returns a*b or ErrOverflow when the product does not fit in a uint64.
func Mul(a, b uint64, op string) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fail(op, ErrOverflow)
	}
	return lo, nil
}

// Div returns a/b or ErrDivisionByZero when b is zero.
func Div(a, b uint64, op string) (uint64, error) {
	if b == 0 {
		return 0, fail(op, ErrDivisionByZero)
	}
	return a / b, nil
}

// Mod returns a%b or ErrDivisionByZero when b is zero.
func Mod(a, b uint64, op string) (uint64, error) {
	if b == 0 {
		return 0, fail(op, ErrDivisionByZero)
	}
	return a % b, nil
}

// MulDiv computes a*b/den with the intermediate product held in the 128-bit
// domain, so the multiply never overflows even when a is near math.MaxUint64.
// ErrOverflow is returned when the quotient itself does not fit in a uint64.
func MulDiv(a, b, den uint64, op string) (uint64, error) {
	if den == 0 {
		return 0, fail(op, ErrDivisionByZero)
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, fail(op, ErrOverflow)
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo, nil
}

// Percentage computes amount*bps/10_000 without intermediate overflow. Basis
// points above 10_000 (100%) are rejected as invalid input.
func Percentage(amount, bps uint64, op string) (uint64, error) {
	if bps > BasisPoints {
		return 0, fail(op, fmt.Errorf("%w: %d bps exceeds maximum %d", ErrInvalidInput, bps, BasisPoints))
	}
	return MulDiv(amount, bps, BasisPoints, op)
}

// Pow returns base**exp using checked multiplication for every step.
func Pow(base uint64, exp uint32, op string) (uint64, error) {
	if exp == 0 {
		return 1, nil
	}
	result := uint64(1)
	acc := base
	for exp > 0 {
		if exp&1 == 1 {
			r, err := Mul(result, acc, op)
			if err != nil {
				return 0, err
			}
			result = r
		}
		exp >>= 1
		if exp == 0 {
			break
		}
		a, err := Mul(acc, acc, op)
		if err != nil {
			return 0, err
		}
		acc = a
	}
	return result, nil
}

// CompoundInterest applies rateBps once per period: each iteration adds
// principal*rateBps/10_000 to the running total. Growth is cut off once the
// total crosses half of the uint64 range, mirroring the runaway-growth guard
// in the audit tooling this was lifted from.
func CompoundInterest(principal, rateBps, periods uint64, op string) (uint64, error) {
	if rateBps == 0 || periods == 0 {
		return principal, nil
	}
	result := principal
	for period := uint64(1); period <= periods; period++ {
		interest, err := Percentage(result, rateBps, op)
		if err != nil {
			return 0, err
		}
		next, err := Add(result, interest, op)
		if err != nil {
			return 0, err
		}
		result = next
		if result > math.MaxUint64/2 {
			break
		}
	}
	return result, nil
}

// Sqrt returns the integer square root of value (floor).
func Sqrt(value uint64, _ string) (uint64, error) {
	if value == 0 {
		return 0, nil
	}
	var left, result uint64 = 1, 0
	right := value
	for left <= right {
		mid := left + (right-left)/2
		hi, square := bits.Mul64(mid, mid)
		switch {
		case hi == 0 && square == value:
			return mid, nil
		case hi == 0 && square < value:
			result = mid
			left = mid + 1
		default:
			right = mid - 1
		}
	}
	return result, nil
}

// ValidateRange reports ErrInvalidInput when value falls outside [min, max].
func ValidateRange(value, min, max uint64, op string) error {
	if value < min {
		return fail(op, fmt.Errorf("%w: value %d below minimum %d", ErrInvalidInput, value, min))
	}
	if value > max {
		return fail(op, fmt.Errorf("%w: value %d above maximum %d", ErrInvalidInput, value, max))
	}
	return nil
}
