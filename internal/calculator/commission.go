package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CommissionResult is a gross share after the manager's cut.
type CommissionResult struct {
	// Payable is what remains for the participant.
	Payable decimal.Decimal

	// CommissionDeducted is the manager's cut.
	CommissionDeducted decimal.Decimal
}

// ApplyCommission deducts a manager commission from a computed gross
// share. A nil rate means no manager relationship: the share passes
// through untouched. Rates must be within [0,100].
//
// Rate resolution (relationship override, else the manager's default,
// else none) is the caller's job; this function only applies whatever
// rate was resolved.
func ApplyCommission(grossShare decimal.Decimal, rate *decimal.Decimal) (CommissionResult, error) {
	if rate == nil {
		return CommissionResult{Payable: grossShare, CommissionDeducted: decimal.Zero}, nil
	}
	if rate.IsNegative() || rate.GreaterThan(oneHundred) {
		return CommissionResult{}, fmt.Errorf("%w: %s", ErrInvalidCommissionRate, rate)
	}
	deducted := grossShare.Mul(*rate).Div(oneHundred)
	return CommissionResult{
		Payable:            grossShare.Sub(deducted),
		CommissionDeducted: deducted,
	}, nil
}
