package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// submittableDeal builds a deal that passes every submission check.
func submittableDeal() *models.Deal {
	return &models.Deal{
		ID:           "deal-1",
		EventID:      "event-1",
		DealType:     models.DealTypeFlatSplit,
		Status:       models.DealStatusDraft,
		TotalRevenue: dec("2000"),
		Currency:     "AUD",
		GSTTreatment: models.GSTNone,
		Participants: []models.DealParticipant{
			{
				ID:              "p-1",
				PartyRole:       models.RoleComedian,
				SplitType:       models.SplitPercentage,
				SplitPercentage: dec("60"),
				ApprovalStatus:  models.ApprovalPending,
			},
			{
				ID:              "p-2",
				PartyRole:       models.RoleVenue,
				SplitType:       models.SplitPercentage,
				SplitPercentage: dec("30"),
				ApprovalStatus:  models.ApprovalPending,
			},
		},
	}
}

func hasViolation(violations []Violation, fieldPart string) bool {
	for _, v := range violations {
		if strings.Contains(v.Field, fieldPart) {
			return true
		}
	}
	return false
}

func TestForSubmission(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(d *models.Deal)
		wantField string // empty = expect no violations
	}{
		{
			name:   "valid deal has no violations",
			mutate: func(d *models.Deal) {},
		},
		{
			name: "no participants",
			mutate: func(d *models.Deal) {
				d.Participants = nil
			},
			wantField: "participants",
		},
		{
			name: "negative revenue",
			mutate: func(d *models.Deal) {
				d.TotalRevenue = dec("-1")
			},
			wantField: "total_revenue",
		},
		{
			name: "unknown deal type",
			mutate: func(d *models.Deal) {
				d.DealType = "handshake"
			},
			wantField: "deal_type",
		},
		{
			name: "unknown gst treatment",
			mutate: func(d *models.Deal) {
				d.GSTTreatment = "vat"
			},
			wantField: "gst_treatment",
		},
		{
			name: "percentage out of range",
			mutate: func(d *models.Deal) {
				d.Participants[0].SplitPercentage = dec("120")
			},
			wantField: "participants[0].split_percentage",
		},
		{
			name: "flat split percentages over 100",
			mutate: func(d *models.Deal) {
				d.Participants[0].SplitPercentage = dec("80")
				d.Participants[1].SplitPercentage = dec("30")
			},
			wantField: "participants",
		},
		{
			name: "flat split rejects flat fee participant",
			mutate: func(d *models.Deal) {
				d.Participants[1].SplitType = models.SplitFlatFee
				d.Participants[1].FlatFeeAmount = dec("500")
			},
			wantField: "participants[1].split_type",
		},
		{
			name: "tiered participant without tiers",
			mutate: func(d *models.Deal) {
				d.DealType = models.DealTypeFullTerms
				d.Participants[0].SplitType = models.SplitTiered
				d.Participants[0].Tiers = nil
			},
			wantField: "participants[0].tiers",
		},
		{
			name: "tiered deal without tiered participant",
			mutate: func(d *models.Deal) {
				d.DealType = models.DealTypeTiered
			},
			wantField: "participants",
		},
		{
			name: "tier thresholds must increase",
			mutate: func(d *models.Deal) {
				d.DealType = models.DealTypeTiered
				d.Participants[0].SplitType = models.SplitTiered
				d.Participants[0].Tiers = []models.Tier{
					{RevenueThreshold: dec("1000"), RatePercentage: dec("10")},
					{RevenueThreshold: dec("1000"), RatePercentage: dec("20")},
				}
			},
			wantField: "tiers[1].revenue_threshold",
		},
		{
			name: "negative guarantee",
			mutate: func(d *models.Deal) {
				d.DealType = models.DealTypeFullTerms
				d.Participants[0].SplitType = models.SplitMinimumPlusPercentage
				d.Participants[0].FlatFeeAmount = dec("-100")
			},
			wantField: "participants[0].flat_fee_amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deal := submittableDeal()
			tt.mutate(deal)
			violations := ForSubmission(deal)
			if tt.wantField == "" {
				if len(violations) != 0 {
					t.Fatalf("expected no violations, got %v", violations)
				}
				return
			}
			if !hasViolation(violations, tt.wantField) {
				t.Errorf("expected violation on %q, got %v", tt.wantField, violations)
			}
		})
	}
}

func TestForSettlement(t *testing.T) {
	t.Run("approved deal with all approvals passes", func(t *testing.T) {
		deal := submittableDeal()
		deal.Status = models.DealStatusApproved
		for i := range deal.Participants {
			deal.Participants[i].ApprovalStatus = models.ApprovalApproved
		}
		if violations := ForSettlement(deal); len(violations) != 0 {
			t.Fatalf("expected no violations, got %v", violations)
		}
	})

	t.Run("active deal is settlement-eligible", func(t *testing.T) {
		deal := submittableDeal()
		deal.Status = models.DealStatusActive
		for i := range deal.Participants {
			deal.Participants[i].ApprovalStatus = models.ApprovalApproved
		}
		if violations := ForSettlement(deal); len(violations) != 0 {
			t.Fatalf("expected no violations, got %v", violations)
		}
	})

	t.Run("pending participant blocks settlement", func(t *testing.T) {
		deal := submittableDeal()
		deal.Status = models.DealStatusApproved
		deal.Participants[0].ApprovalStatus = models.ApprovalApproved
		// second participant remains pending
		violations := ForSettlement(deal)
		if !hasViolation(violations, "participants[1].approval_status") {
			t.Errorf("expected approval violation, got %v", violations)
		}
	})

	t.Run("declined participant blocks settlement without cancelling", func(t *testing.T) {
		deal := submittableDeal()
		deal.Status = models.DealStatusApproved
		deal.Participants[0].ApprovalStatus = models.ApprovalApproved
		deal.Participants[1].ApprovalStatus = models.ApprovalDeclined
		violations := ForSettlement(deal)
		if !hasViolation(violations, "participants[1].approval_status") {
			t.Errorf("expected approval violation, got %v", violations)
		}
	})

	t.Run("draft status blocks settlement", func(t *testing.T) {
		deal := submittableDeal()
		for i := range deal.Participants {
			deal.Participants[i].ApprovalStatus = models.ApprovalApproved
		}
		violations := ForSettlement(deal)
		if !hasViolation(violations, "status") {
			t.Errorf("expected status violation, got %v", violations)
		}
	})

	t.Run("all problems reported at once", func(t *testing.T) {
		deal := submittableDeal()
		deal.TotalRevenue = dec("-5")
		deal.Participants[0].SplitPercentage = dec("200")
		violations := ForSettlement(deal)
		if len(violations) < 3 {
			t.Errorf("expected revenue, percentage, approval and status violations together, got %v", violations)
		}
	})
}
