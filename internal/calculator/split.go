package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/models"
)

// GrossShare computes a participant's gross entitlement from the
// deal's total revenue, before commission and tax.
//
// The result is intentionally unrounded: full precision is carried
// through the pipeline and rounding happens once, at the GST boundary.
func GrossShare(p models.DealParticipant, totalRevenue decimal.Decimal) (decimal.Decimal, error) {
	switch p.SplitType {
	case models.SplitPercentage:
		return totalRevenue.Mul(p.SplitPercentage).Div(oneHundred), nil

	case models.SplitFlatFee:
		// Independent of revenue. The fee may exceed total revenue;
		// the settlement direction accounts for the promoter's loss.
		return p.FlatFeeAmount, nil

	case models.SplitMinimumPlusPercentage:
		// "Guaranteed $X + Y% of remainder". The remainder never goes
		// negative: a guarantee above revenue still pays the guarantee.
		remainder := totalRevenue.Sub(p.FlatFeeAmount)
		if remainder.IsNegative() {
			remainder = decimal.Zero
		}
		return p.FlatFeeAmount.Add(remainder.Mul(p.SplitPercentage).Div(oneHundred)), nil

	case models.SplitTiered:
		return tieredShare(p.Tiers, totalRevenue)

	default:
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrUnknownSplitType, p.SplitType)
	}
}

// tieredShare evaluates tiers as marginal brackets, like progressive
// taxation: the portion of revenue falling inside each bracket
// [threshold_i, threshold_i+1) earns that bracket's rate, and the last
// bracket is unbounded above.
func tieredShare(tiers []models.Tier, totalRevenue decimal.Decimal) (decimal.Decimal, error) {
	if len(tiers) == 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: at least one tier required", ErrInvalidTierConfiguration)
	}

	sorted := make([]models.Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RevenueThreshold.LessThan(sorted[j].RevenueThreshold)
	})

	for i := range sorted {
		if sorted[i].RevenueThreshold.IsNegative() {
			return decimal.Decimal{}, fmt.Errorf("%w: negative threshold %s",
				ErrInvalidTierConfiguration, sorted[i].RevenueThreshold)
		}
		if i > 0 && !sorted[i-1].RevenueThreshold.LessThan(sorted[i].RevenueThreshold) {
			return decimal.Decimal{}, fmt.Errorf("%w: thresholds must be strictly increasing",
				ErrInvalidTierConfiguration)
		}
	}

	share := decimal.Zero
	for i, tier := range sorted {
		if totalRevenue.LessThanOrEqual(tier.RevenueThreshold) {
			break
		}
		upper := totalRevenue
		if i+1 < len(sorted) && sorted[i+1].RevenueThreshold.LessThan(totalRevenue) {
			upper = sorted[i+1].RevenueThreshold
		}
		portion := upper.Sub(tier.RevenueThreshold)
		share = share.Add(portion.Mul(tier.RatePercentage).Div(oneHundred))
	}
	return share, nil
}
