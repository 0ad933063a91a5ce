package safemath

import (
	"fmt"
	"math"
)

// Float helpers cover the legacy paths that still carry monetary quantities as
// float64. They share the integer taxonomy: NaN or infinite inputs are
// rejected outright, an infinite result classifies as overflow, and a
// negative result for a quantity that must stay non-negative classifies as
// underflow.

func validFloat(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// FAdd returns a+b with overflow detection.
func FAdd(a, b float64, op string) (float64, error) {
	if !validFloat(a, b) {
		return 0, fail(op, fmt.Errorf("%w: operand is NaN or infinite", ErrInvalidInput))
	}
	result := a + b
	if math.IsInf(result, 0) {
		return 0, fail(op, ErrOverflow)
	}
	return result, nil
}

// FSub returns a-b, rejecting results that would take a non-negative quantity
// below zero.
func FSub(a, b float64, op string) (float64, error) {
	if !validFloat(a, b) {
		return 0, fail(op, fmt.Errorf("%w: operand is NaN or infinite", ErrInvalidInput))
	}
	if a >= 0 && b > a {
		return 0, fail(op, ErrUnderflow)
	}
	result := a - b
	if math.IsInf(result, 0) {
		return 0, fail(op, ErrOverflow)
	}
	return result, nil
}

// FMul returns a*b with overflow detection.
func FMul(a, b float64, op string) (float64, error) {
	if !validFloat(a, b) {
		return 0, fail(op, fmt.Errorf("%w: operand is NaN or infinite", ErrInvalidInput))
	}
	result := a * b
	if math.IsInf(result, 0) {
		return 0, fail(op, ErrOverflow)
	}
	return result, nil
}

// FDiv returns a/b, classifying a zero denominator as division by zero.
func FDiv(a, b float64, op string) (float64, error) {
	if !validFloat(a) {
		return 0, fail(op, fmt.Errorf("%w: numerator is NaN or infinite", ErrInvalidInput))
	}
	if b == 0 || !validFloat(b) {
		return 0, fail(op, ErrDivisionByZero)
	}
	result := a / b
	if math.IsInf(result, 0) {
		return 0, fail(op, ErrOverflow)
	}
	return result, nil
}

// maxUint64Float is 2^64, the first float64 value that no longer fits.
const maxUint64Float = float64(1<<63) * 2

// FloatToUint64 converts a float64 monetary quantity into base units,
// rejecting negatives and values outside the uint64 range. float64 cannot
// represent every integer near the top of the range, so the comparison is
// against 2^64 rather than math.MaxUint64.
func FloatToUint64(value float64, op string) (uint64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fail(op, fmt.Errorf("%w: value is NaN or infinite", ErrInvalidInput))
	}
	if value < 0 {
		return 0, fail(op, fmt.Errorf("%w: negative value %g", ErrInvalidInput, value))
	}
	if value >= maxUint64Float {
		return 0, fail(op, ErrOverflow)
	}
	return uint64(value), nil
}
