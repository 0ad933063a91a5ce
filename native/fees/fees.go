package fees

import (
	"errors"
	"fmt"
	"strings"

	"dujyo/native/safemath"
)

// Tier classifies an account for fee discounting. The set is closed; any
// unrecognised label parses to TierRegular.
type Tier uint8

const (
	TierRegular Tier = iota
	TierPremium
	TierCreativeValidator
	TierCommunityValidator
	TierEconomicValidator
)

// ErrInvalidFee rejects base fees the discount math cannot express.
var ErrInvalidFee = errors.New("fees: invalid base fee")

// DiscountBps returns the tier's fee discount in basis points.
func (t Tier) DiscountBps() uint64 {
	switch t {
	case TierPremium, TierCreativeValidator:
		return 5_000
	case TierCommunityValidator:
		return 2_500
	default:
		return 0
	}
}

func (t Tier) String() string {
	switch t {
	case TierRegular:
		return "regular"
	case TierPremium:
		return "premium"
	case TierCreativeValidator:
		return "creative_validator"
	case TierCommunityValidator:
		return "community_validator"
	case TierEconomicValidator:
		return "economic_validator"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// ParseTier canonicalises a tier label. Unknown labels resolve to
// TierRegular so a misconfigured account never receives a discount.
func ParseTier(label string) Tier {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "premium":
		return TierPremium
	case "creative_validator":
		return TierCreativeValidator
	case "community_validator":
		return TierCommunityValidator
	case "economic_validator":
		return TierEconomicValidator
	default:
		return TierRegular
	}
}

// Result summarises the fee obligation after the tier discount.
type Result struct {
	BaseFee  uint64
	Discount uint64
	Fee      uint64
	Tier     Tier
}

// Apply computes the discounted fee for the account tier. The caller is
// responsible for collecting the fee.
func Apply(baseFee uint64, tier Tier) (Result, error) {
	result := Result{BaseFee: baseFee, Tier: tier}
	discountBps := tier.DiscountBps()
	if discountBps == 0 || baseFee == 0 {
		result.Fee = baseFee
		return result, nil
	}
	discount, err := safemath.Percentage(baseFee, discountBps, "fee discount")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidFee, err)
	}
	fee, err := safemath.Sub(baseFee, discount, "fee net")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidFee, err)
	}
	result.Discount = discount
	result.Fee = fee
	return result, nil
}
