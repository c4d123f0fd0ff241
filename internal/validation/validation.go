// Package validation checks a deal's configuration for
// submission-readiness and settlement-readiness.
//
// Both checks return the complete list of problems instead of failing
// on the first one, so a caller can present the whole checklist at
// once rather than forcing a fix-and-resubmit loop. Submission and
// settlement are deliberately separate gates: a deal can be fully
// configured and shared for review long before every participant has
// signed off.
package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/models"
)

var oneHundred = decimal.NewFromInt(100)

// Violation is one problem found in a deal's configuration.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// ForSubmission checks that a deal is well-formed enough to be sent to
// its participants for approval. An empty result means valid.
func ForSubmission(deal *models.Deal) []Violation {
	var violations []Violation

	if !deal.DealType.Valid() {
		violations = append(violations, Violation{
			Field:   "deal_type",
			Message: fmt.Sprintf("unknown deal type %q", deal.DealType),
		})
	}
	if !deal.GSTTreatment.Valid() {
		violations = append(violations, Violation{
			Field:   "gst_treatment",
			Message: fmt.Sprintf("unknown GST treatment %q", deal.GSTTreatment),
		})
	}
	if deal.TotalRevenue.IsNegative() {
		violations = append(violations, Violation{
			Field:   "total_revenue",
			Message: "total revenue cannot be negative",
		})
	}
	if len(deal.Participants) == 0 {
		violations = append(violations, Violation{
			Field:   "participants",
			Message: "deal must have at least one participant",
		})
	}

	for i := range deal.Participants {
		violations = append(violations, checkParticipant(i, &deal.Participants[i])...)
	}

	violations = append(violations, checkDealShape(deal)...)
	return violations
}

// ForSettlement runs every submission check plus the approval and
// status gates that make the numbers binding.
func ForSettlement(deal *models.Deal) []Violation {
	violations := ForSubmission(deal)

	for i := range deal.Participants {
		p := &deal.Participants[i]
		if p.ApprovalStatus != models.ApprovalApproved {
			violations = append(violations, Violation{
				Field: participantField(i, "approval_status"),
				Message: fmt.Sprintf("participant has not approved (status %q)",
					p.ApprovalStatus),
			})
		}
	}

	switch deal.Status {
	case models.DealStatusApproved, models.DealStatusActive:
		// Settlement-eligible.
	default:
		violations = append(violations, Violation{
			Field:   "status",
			Message: fmt.Sprintf("deal in status %q cannot be settled", deal.Status),
		})
	}

	return violations
}

// checkParticipant verifies the participant's split configuration is
// internally consistent for its split type.
func checkParticipant(i int, p *models.DealParticipant) []Violation {
	var violations []Violation

	if !p.PartyRole.Valid() {
		violations = append(violations, Violation{
			Field:   participantField(i, "party_role"),
			Message: fmt.Sprintf("unknown party role %q", p.PartyRole),
		})
	}

	switch p.SplitType {
	case models.SplitPercentage:
		violations = append(violations, checkPercentage(i, p.SplitPercentage)...)

	case models.SplitFlatFee:
		if p.FlatFeeAmount.IsNegative() {
			violations = append(violations, Violation{
				Field:   participantField(i, "flat_fee_amount"),
				Message: "flat fee cannot be negative",
			})
		}

	case models.SplitMinimumPlusPercentage:
		if p.FlatFeeAmount.IsNegative() {
			violations = append(violations, Violation{
				Field:   participantField(i, "flat_fee_amount"),
				Message: "guaranteed minimum cannot be negative",
			})
		}
		violations = append(violations, checkPercentage(i, p.SplitPercentage)...)

	case models.SplitTiered:
		violations = append(violations, checkTiers(i, p.Tiers)...)

	default:
		violations = append(violations, Violation{
			Field:   participantField(i, "split_type"),
			Message: fmt.Sprintf("unknown split type %q", p.SplitType),
		})
	}

	return violations
}

func checkPercentage(i int, pct decimal.Decimal) []Violation {
	if pct.IsNegative() || pct.GreaterThan(oneHundred) {
		return []Violation{{
			Field:   participantField(i, "split_percentage"),
			Message: "percentage must be between 0 and 100",
		}}
	}
	return nil
}

func checkTiers(i int, tiers []models.Tier) []Violation {
	if len(tiers) == 0 {
		return []Violation{{
			Field:   participantField(i, "tiers"),
			Message: "tiered split requires at least one tier",
		}}
	}
	var violations []Violation
	for j, tier := range tiers {
		if tier.RevenueThreshold.IsNegative() {
			violations = append(violations, Violation{
				Field:   participantField(i, fmt.Sprintf("tiers[%d].revenue_threshold", j)),
				Message: "threshold cannot be negative",
			})
		}
		if j > 0 && !tiers[j-1].RevenueThreshold.LessThan(tier.RevenueThreshold) {
			violations = append(violations, Violation{
				Field:   participantField(i, fmt.Sprintf("tiers[%d].revenue_threshold", j)),
				Message: "thresholds must be strictly increasing",
			})
		}
		if tier.RatePercentage.IsNegative() || tier.RatePercentage.GreaterThan(oneHundred) {
			violations = append(violations, Violation{
				Field:   participantField(i, fmt.Sprintf("tiers[%d].rate_percentage", j)),
				Message: "rate must be between 0 and 100",
			})
		}
	}
	return violations
}

// checkDealShape enforces the deal-type level invariants.
func checkDealShape(deal *models.Deal) []Violation {
	var violations []Violation

	switch deal.DealType {
	case models.DealTypeFlatSplit:
		// Every participant must be on a percentage split, and the
		// percentages may not over-allocate; any remainder is retained
		// by the promoter.
		sum := decimal.Zero
		for i := range deal.Participants {
			p := &deal.Participants[i]
			if p.SplitType != models.SplitPercentage {
				violations = append(violations, Violation{
					Field: participantField(i, "split_type"),
					Message: fmt.Sprintf("flat split deals only allow percentage splits, got %q",
						p.SplitType),
				})
				continue
			}
			sum = sum.Add(p.SplitPercentage)
		}
		if sum.GreaterThan(oneHundred) {
			violations = append(violations, Violation{
				Field:   "participants",
				Message: fmt.Sprintf("split percentages sum to %s, cannot exceed 100", sum),
			})
		}

	case models.DealTypeTiered:
		hasTiered := false
		for i := range deal.Participants {
			if deal.Participants[i].SplitType == models.SplitTiered {
				hasTiered = true
				break
			}
		}
		if !hasTiered && len(deal.Participants) > 0 {
			violations = append(violations, Violation{
				Field:   "participants",
				Message: "tiered deals require at least one tiered participant",
			})
		}
	}

	return violations
}

func participantField(i int, field string) string {
	return fmt.Sprintf("participants[%d].%s", i, field)
}
