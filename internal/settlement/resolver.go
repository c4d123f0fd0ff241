// Package settlement combines the split, commission, and GST
// calculators into the ordered pipeline that turns a deal's realised
// revenue into payable settlement lines, and finalizes a deal once
// those lines become binding.
//
// The pipeline order is a contract, not an implementation detail:
// gross share → commission deduction → GST breakdown → invoice
// direction. Participants are independent of each other, so lines can
// be computed in any order.
package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/calculator"
	"github.com/gigledger/gigledger/internal/models"
	"github.com/gigledger/gigledger/internal/validation"
)

// ValidationFailedError is the one expected business-rule failure in
// settlement: the deal is not ready to be made binding. It always
// carries the complete violation list so the owner sees everything
// blocking settlement at once.
type ValidationFailedError struct {
	Violations []validation.Violation
}

func (e *ValidationFailedError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "settlement validation failed: " + strings.Join(msgs, "; ")
}

// InvoiceDecision says whether an invoice is needed for a settled
// amount and, if so, who pays whom.
type InvoiceDecision struct {
	ShouldGenerate bool
	Direction      models.InvoiceDirection
	AbsoluteAmount decimal.Decimal
}

// CalculateInvoiceDirection maps a signed amount, seen from the
// promoter's receivable position, onto an invoice decision:
//
//   - zero: no invoice at all;
//   - positive: the participant owes the promoter;
//   - negative: the promoter owes the participant.
func CalculateInvoiceDirection(amount decimal.Decimal) InvoiceDecision {
	switch {
	case amount.IsZero():
		return InvoiceDecision{ShouldGenerate: false}
	case amount.IsPositive():
		return InvoiceDecision{
			ShouldGenerate: true,
			Direction:      models.ParticipantToPromoter,
			AbsoluteAmount: amount,
		}
	default:
		return InvoiceDecision{
			ShouldGenerate: true,
			Direction:      models.PromoterToParticipant,
			AbsoluteAmount: amount.Abs(),
		}
	}
}

// Rates maps participant ID to that participant's resolved commission
// rate. An absent key means no manager relationship and no deduction.
// Resolution (relationship override, else manager default, else none)
// happens at the store before the pipeline runs.
type Rates map[string]decimal.Decimal

// Calculate produces one settlement line per participant. It is pure:
// the deal is not mutated and nothing is persisted, so it serves both
// as the settlement computation and as a live preview while the deal
// is still being negotiated.
func Calculate(deal *models.Deal, rates Rates) ([]models.SettlementLine, error) {
	lines := make([]models.SettlementLine, 0, len(deal.Participants))
	for i := range deal.Participants {
		p := &deal.Participants[i]

		gross, err := calculator.GrossShare(*p, deal.TotalRevenue)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", p.ID, err)
		}

		var rate *decimal.Decimal
		if r, ok := rates[p.ID]; ok {
			rate = &r
		}
		commission, err := calculator.ApplyCommission(gross, rate)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", p.ID, err)
		}

		gst, err := calculator.CalculateGST(commission.Payable, deal.GSTTreatment)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", p.ID, err)
		}

		// The participant's net entitlement is money out of the
		// promoter's pocket, so the direction is evaluated on the
		// negated amount: a positive payout invoices promoter →
		// participant.
		decision := CalculateInvoiceDirection(gst.Net.Neg())

		lines = append(lines, models.SettlementLine{
			ParticipantID:      p.ID,
			GrossAmount:        gross.Round(2),
			CommissionDeducted: commission.CommissionDeducted.Round(2),
			TaxAmount:          gst.Tax,
			NetAmount:          gst.Net,
			ShouldInvoice:      decision.ShouldGenerate,
			Direction:          decision.Direction,
			AbsoluteAmount:     decision.AbsoluteAmount,
		})
	}
	return lines, nil
}

// Finalize validates the deal for settlement and, on success, computes
// the binding lines and flips the aggregate to settled. On validation
// failure it returns ValidationFailedError and changes nothing.
// Callers persist the returned state in a single transaction so a
// concurrent cancel cannot race a settle.
func Finalize(deal *models.Deal, rates Rates, settledBy string, now time.Time) ([]models.SettlementLine, error) {
	if violations := validation.ForSettlement(deal); len(violations) > 0 {
		return nil, &ValidationFailedError{Violations: violations}
	}

	lines, err := Calculate(deal, rates)
	if err != nil {
		return nil, err
	}

	deal.Status = models.DealStatusSettled
	deal.SettledAt = now.Unix()
	deal.SettledBy = settledBy
	return lines, nil
}
