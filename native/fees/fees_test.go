package fees

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyDiscounts(t *testing.T) {
	cases := []struct {
		name     string
		tier     Tier
		baseFee  uint64
		wantFee  uint64
		wantDisc uint64
	}{
		{name: "regular pays full", tier: TierRegular, baseFee: 1_000, wantFee: 1_000},
		{name: "premium pays half", tier: TierPremium, baseFee: 1_000, wantFee: 500, wantDisc: 500},
		{name: "creative validator pays half", tier: TierCreativeValidator, baseFee: 1_000, wantFee: 500, wantDisc: 500},
		{name: "community validator pays three quarters", tier: TierCommunityValidator, baseFee: 1_000, wantFee: 750, wantDisc: 250},
		{name: "economic validator pays full", tier: TierEconomicValidator, baseFee: 1_000, wantFee: 1_000},
		{name: "zero fee stays zero", tier: TierPremium, baseFee: 0, wantFee: 0},
		{name: "odd fee rounds discount down", tier: TierCommunityValidator, baseFee: 7, wantFee: 6, wantDisc: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Apply(tc.baseFee, tc.tier)
			require.NoError(t, err)
			require.Equal(t, tc.wantFee, result.Fee)
			require.Equal(t, tc.wantDisc, result.Discount)
			require.Equal(t, tc.tier, result.Tier)
		})
	}
}

func TestParseTier(t *testing.T) {
	require.Equal(t, TierPremium, ParseTier(" Premium "))
	require.Equal(t, TierCommunityValidator, ParseTier("community_validator"))
	require.Equal(t, TierEconomicValidator, ParseTier("economic_validator"))
	// Unknown labels never earn a discount.
	require.Equal(t, TierRegular, ParseTier("super-vip"))
	require.Equal(t, "regular", TierRegular.String())
}
