package safemath

import (
	"errors"
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	if got, err := Add(1, 2, "test"); err != nil || got != 3 {
		t.Fatalf("Add(1,2) = %d, %v", got, err)
	}
	if got, err := Add(math.MaxUint64, 0, "test"); err != nil || got != math.MaxUint64 {
		t.Fatalf("Add(max,0) = %d, %v", got, err)
	}
	if _, err := Add(math.MaxUint64, 1, "test"); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestSub(t *testing.T) {
	if got, err := Sub(5, 3, "test"); err != nil || got != 2 {
		t.Fatalf("Sub(5,3) = %d, %v", got, err)
	}
	if got, err := Sub(0, 0, "test"); err != nil || got != 0 {
		t.Fatalf("Sub(0,0) = %d, %v", got, err)
	}
	if _, err := Sub(0, 1, "test"); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
}

func TestMul(t *testing.T) {
	if got, err := Mul(3, 4, "test"); err != nil || got != 12 {
		t.Fatalf("Mul(3,4) = %d, %v", got, err)
	}
	if got, err := Mul(math.MaxUint64, 1, "test"); err != nil || got != math.MaxUint64 {
		t.Fatalf("Mul(max,1) = %d, %v", got, err)
	}
	if _, err := Mul(math.MaxUint64, 2, "test"); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestDiv(t *testing.T) {
	if got, err := Div(10, 2, "test"); err != nil || got != 5 {
		t.Fatalf("Div(10,2) = %d, %v", got, err)
	}
	if got, err := Div(0, 5, "test"); err != nil || got != 0 {
		t.Fatalf("Div(0,5) = %d, %v", got, err)
	}
	if _, err := Div(5, 0, "test"); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestPercentage(t *testing.T) {
	if got, err := Percentage(1000, 500, "test"); err != nil || got != 50 {
		t.Fatalf("Percentage(1000, 500bps) = %d, %v", got, err)
	}
	if got, err := Percentage(1000, 10000, "test"); err != nil || got != 1000 {
		t.Fatalf("Percentage(1000, 10000bps) = %d, %v", got, err)
	}
	if _, err := Percentage(1000, 10001, "test"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	// Amounts near the top of the uint64 range must not overflow the
	// intermediate multiply.
	got, err := Percentage(math.MaxUint64, 30, "test")
	if err != nil {
		t.Fatalf("wide-domain percentage failed: %v", err)
	}
	want := mulDivOracle(math.MaxUint64, 30, 10000)
	if got != want {
		t.Fatalf("Percentage(max, 30bps) = %d, want %d", got, want)
	}
}

// mulDivOracle re-derives a*b/den via long division, giving the wide-domain
// production path an independent oracle for small b.
func mulDivOracle(a, b, den uint64) uint64 {
	return a/den*b + a%den*b/den
}

func TestMulDiv(t *testing.T) {
	if _, err := MulDiv(1, 1, 0, "test"); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if _, err := MulDiv(math.MaxUint64, math.MaxUint64, 1, "test"); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow for non-representable quotient, got %v", err)
	}
	if got, err := MulDiv(math.MaxUint64, 2, 2, "test"); err != nil || got != math.MaxUint64 {
		t.Fatalf("MulDiv(max,2,2) = %d, %v", got, err)
	}
}

func TestPow(t *testing.T) {
	cases := []struct {
		base uint64
		exp  uint32
		want uint64
	}{
		{0, 10, 0},
		{5, 0, 1},
		{2, 10, 1024},
		{10, 3, 1000},
	}
	for _, tc := range cases {
		got, err := Pow(tc.base, tc.exp, "test")
		if err != nil || got != tc.want {
			t.Fatalf("Pow(%d,%d) = %d, %v; want %d", tc.base, tc.exp, got, err, tc.want)
		}
	}
	if _, err := Pow(2, 64, "test"); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestCompoundInterest(t *testing.T) {
	got, err := CompoundInterest(1000, 100, 1, "test")
	if err != nil || got != 1010 {
		t.Fatalf("1%% over one period = %d, %v", got, err)
	}
	got, err = CompoundInterest(1000, 0, 10, "test")
	if err != nil || got != 1000 {
		t.Fatalf("zero rate should return principal, got %d, %v", got, err)
	}
	got, err = CompoundInterest(1000, 100, 2, "test")
	if err != nil || got != 1020 {
		t.Fatalf("1%% over two periods = %d, %v", got, err)
	}
}

func TestSqrt(t *testing.T) {
	cases := map[uint64]uint64{0: 0, 1: 1, 4: 2, 9: 3, 15: 3, 16: 4, math.MaxUint64: 4294967295}
	for value, want := range cases {
		got, err := Sqrt(value, "test")
		if err != nil || got != want {
			t.Fatalf("Sqrt(%d) = %d, %v; want %d", value, got, err, want)
		}
	}
}

func TestValidateRange(t *testing.T) {
	if err := ValidateRange(5, 1, 10, "test"); err != nil {
		t.Fatalf("in-range value rejected: %v", err)
	}
	if err := ValidateRange(0, 1, 10, "test"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput below minimum, got %v", err)
	}
	if err := ValidateRange(11, 1, 10, "test"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput above maximum, got %v", err)
	}
}
