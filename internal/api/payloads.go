package api

import (
	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/models"
)

// Wire representations of the domain aggregates. The models package
// stays JSON-free; the shapes here are the API contract.

type tierPayload struct {
	RevenueThreshold decimal.Decimal `json:"revenue_threshold"`
	RatePercentage   decimal.Decimal `json:"rate_percentage"`
}

type participantPayload struct {
	ID                  string                `json:"id,omitempty"`
	PartyID             string                `json:"party_id"`
	PartyRole           models.PartyRole      `json:"party_role"`
	SplitType           models.SplitType      `json:"split_type"`
	SplitPercentage     decimal.Decimal       `json:"split_percentage"`
	FlatFeeAmount       decimal.Decimal       `json:"flat_fee_amount"`
	Tiers               []tierPayload         `json:"tiers,omitempty"`
	ApprovalStatus      models.ApprovalStatus `json:"approval_status,omitempty"`
	ManagerID           string                `json:"manager_id,omitempty"`
	ManagerOverrideRate *decimal.Decimal      `json:"manager_override_rate,omitempty"`
}

type dealPayload struct {
	ID                 string               `json:"id,omitempty"`
	EventID            string               `json:"event_id"`
	Name               string               `json:"name"`
	DealType           models.DealType      `json:"deal_type"`
	Status             models.DealStatus    `json:"status,omitempty"`
	TotalRevenue       decimal.Decimal      `json:"total_revenue"`
	Currency           string               `json:"currency,omitempty"`
	GSTTreatment       models.GSTTreatment  `json:"gst_treatment"`
	Participants       []participantPayload `json:"participants"`
	CreatedBy          string               `json:"created_by,omitempty"`
	CreatedAt          int64                `json:"created_at,omitempty"`
	UpdatedAt          int64                `json:"updated_at,omitempty"`
	SubmittedAt        int64                `json:"submitted_at,omitempty"`
	ApprovedAt         int64                `json:"approved_at,omitempty"`
	SettledAt          int64                `json:"settled_at,omitempty"`
	CancelledAt        int64                `json:"cancelled_at,omitempty"`
	SettledBy          string               `json:"settled_by,omitempty"`
	CancelledBy        string               `json:"cancelled_by,omitempty"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
	Version            int64                `json:"version,omitempty"`
}

type settlementLinePayload struct {
	ParticipantID      string                  `json:"participant_id"`
	GrossAmount        decimal.Decimal         `json:"gross_amount"`
	CommissionDeducted decimal.Decimal         `json:"commission_deducted"`
	TaxAmount          decimal.Decimal         `json:"tax_amount"`
	NetAmount          decimal.Decimal         `json:"net_amount"`
	ShouldInvoice      bool                    `json:"should_invoice"`
	Direction          models.InvoiceDirection `json:"direction,omitempty"`
	AbsoluteAmount     decimal.Decimal         `json:"absolute_amount"`
}

type managerPayload struct {
	ID          string           `json:"id,omitempty"`
	Name        string           `json:"name"`
	DefaultRate *decimal.Decimal `json:"default_rate,omitempty"`
}

func (p participantPayload) toModel() models.DealParticipant {
	m := models.DealParticipant{
		ID:              p.ID,
		PartyID:         p.PartyID,
		PartyRole:       p.PartyRole,
		SplitType:       p.SplitType,
		SplitPercentage: p.SplitPercentage,
		FlatFeeAmount:   p.FlatFeeAmount,
		ApprovalStatus:  p.ApprovalStatus,
	}
	for _, t := range p.Tiers {
		m.Tiers = append(m.Tiers, models.Tier{
			RevenueThreshold: t.RevenueThreshold,
			RatePercentage:   t.RatePercentage,
		})
	}
	if p.ManagerID != "" {
		m.Manager = &models.ManagerRelationship{
			ManagerID:    p.ManagerID,
			OverrideRate: p.ManagerOverrideRate,
		}
	}
	return m
}

func participantFromModel(m models.DealParticipant) participantPayload {
	p := participantPayload{
		ID:              m.ID,
		PartyID:         m.PartyID,
		PartyRole:       m.PartyRole,
		SplitType:       m.SplitType,
		SplitPercentage: m.SplitPercentage,
		FlatFeeAmount:   m.FlatFeeAmount,
		ApprovalStatus:  m.ApprovalStatus,
	}
	for _, t := range m.Tiers {
		p.Tiers = append(p.Tiers, tierPayload{
			RevenueThreshold: t.RevenueThreshold,
			RatePercentage:   t.RatePercentage,
		})
	}
	if m.Manager != nil {
		p.ManagerID = m.Manager.ManagerID
		p.ManagerOverrideRate = m.Manager.OverrideRate
	}
	return p
}

func (p dealPayload) toModel() *models.Deal {
	deal := &models.Deal{
		ID:           p.ID,
		EventID:      p.EventID,
		Name:         p.Name,
		DealType:     p.DealType,
		TotalRevenue: p.TotalRevenue,
		Currency:     p.Currency,
		GSTTreatment: p.GSTTreatment,
		CreatedBy:    p.CreatedBy,
	}
	for _, part := range p.Participants {
		deal.Participants = append(deal.Participants, part.toModel())
	}
	return deal
}

func dealFromModel(deal *models.Deal) dealPayload {
	p := dealPayload{
		ID:                 deal.ID,
		EventID:            deal.EventID,
		Name:               deal.Name,
		DealType:           deal.DealType,
		Status:             deal.Status,
		TotalRevenue:       deal.TotalRevenue,
		Currency:           deal.Currency,
		GSTTreatment:       deal.GSTTreatment,
		CreatedBy:          deal.CreatedBy,
		CreatedAt:          deal.CreatedAt,
		UpdatedAt:          deal.UpdatedAt,
		SubmittedAt:        deal.SubmittedAt,
		ApprovedAt:         deal.ApprovedAt,
		SettledAt:          deal.SettledAt,
		CancelledAt:        deal.CancelledAt,
		SettledBy:          deal.SettledBy,
		CancelledBy:        deal.CancelledBy,
		CancellationReason: deal.CancellationReason,
		Version:            deal.Version,
	}
	for _, part := range deal.Participants {
		p.Participants = append(p.Participants, participantFromModel(part))
	}
	return p
}

func linesFromModel(lines []models.SettlementLine) []settlementLinePayload {
	out := make([]settlementLinePayload, len(lines))
	for i, line := range lines {
		out[i] = settlementLinePayload{
			ParticipantID:      line.ParticipantID,
			GrossAmount:        line.GrossAmount,
			CommissionDeducted: line.CommissionDeducted,
			TaxAmount:          line.TaxAmount,
			NetAmount:          line.NetAmount,
			ShouldInvoice:      line.ShouldInvoice,
			Direction:          line.Direction,
			AbsoluteAmount:     line.AbsoluteAmount,
		}
	}
	return out
}
