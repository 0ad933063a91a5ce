package dex

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"dujyo/native/safemath"
)

// ParseAmount converts a whole-token count into reserve precision (18
// implied decimal places).
func ParseAmount(tokens uint64) (*uint256.Int, error) {
	return safemath.U256Mul(uint256.NewInt(tokens), safemath.Decimals, "parse amount")
}

// MustParseAmount is ParseAmount for test fixtures and constants known to
// fit; it panics on overflow.
func MustParseAmount(tokens uint64) *uint256.Int {
	amount, err := ParseAmount(tokens)
	if err != nil {
		panic(err)
	}
	return amount
}

// FormatAmount renders a reserve-precision amount as a decimal token string,
// trimming trailing fractional zeros.
func FormatAmount(amount *uint256.Int) string {
	if amount == nil {
		return "0"
	}
	whole := new(uint256.Int)
	frac := new(uint256.Int)
	whole.DivMod(amount, safemath.Decimals, frac)
	if frac.IsZero() {
		return whole.Dec()
	}
	fracStr := fmt.Sprintf("%018s", frac.Dec())
	fracStr = strings.TrimRight(fracStr, "0")
	return whole.Dec() + "." + fracStr
}
