// Package calculator holds the pure settlement math: GST breakdowns,
// per-participant gross shares, and manager commission deductions.
// Nothing in this package performs I/O or mutates its inputs.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/models"
)

var (
	oneHundred = decimal.NewFromInt(100)

	// Australian GST: 10%.
	gstRate    = decimal.RequireFromString("0.10")
	gstDivisor = decimal.RequireFromString("1.10")
)

// GSTBreakdown splits an amount into gross, tax, and net components.
type GSTBreakdown struct {
	Gross decimal.Decimal
	Tax   decimal.Decimal
	Net   decimal.Decimal
}

// CalculateGST converts an amount into a gross/tax/net breakdown under
// the given treatment:
//
//   - inclusive: the amount already contains GST; net = amount / 1.10.
//   - exclusive: GST is added on top; tax = amount × 0.10.
//   - none: amount passes through with zero tax.
//
// The three outputs are rounded to 2 decimal places half-up. Rounding
// happens only here, on the final results; intermediate values keep
// full precision so chained percentage math does not compound error.
func CalculateGST(amount decimal.Decimal, mode models.GSTTreatment) (GSTBreakdown, error) {
	switch mode {
	case models.GSTInclusive:
		net := amount.Div(gstDivisor)
		tax := amount.Sub(net)
		return roundBreakdown(amount, tax, net), nil
	case models.GSTExclusive:
		tax := amount.Mul(gstRate)
		return roundBreakdown(amount.Add(tax), tax, amount), nil
	case models.GSTNone:
		return roundBreakdown(amount, decimal.Zero, amount), nil
	default:
		return GSTBreakdown{}, fmt.Errorf("%w: %q", ErrInvalidTaxMode, mode)
	}
}

// roundBreakdown applies the 2dp half-up boundary rounding. The
// amounts flowing through settlement are non-negative, for which
// decimal's round-half-away-from-zero is exactly half-up.
func roundBreakdown(gross, tax, net decimal.Decimal) GSTBreakdown {
	return GSTBreakdown{
		Gross: gross.Round(2),
		Tax:   tax.Round(2),
		Net:   net.Round(2),
	}
}
