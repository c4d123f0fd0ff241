package models

import "github.com/shopspring/decimal"

// InvoiceDirection says which party is payer and which is payee for a
// settled amount.
type InvoiceDirection string

const (
	// ParticipantToPromoter: the participant owes the promoter, e.g. a
	// venue hire fee charged against door takings.
	ParticipantToPromoter InvoiceDirection = "participant_to_promoter"

	// PromoterToParticipant: the promoter owes the participant, the
	// typical performance-fee case.
	PromoterToParticipant InvoiceDirection = "promoter_to_participant"
)

// SettlementLine is one participant's settled position within a deal.
// Lines are derived, never user-edited: each calculation run produces a
// fresh set. Once a deal is settled the persisted lines become the
// binding record and later recalculations never overwrite them.
type SettlementLine struct {
	ParticipantID string

	// GrossAmount is the participant's entitlement before commission
	// and tax.
	GrossAmount decimal.Decimal

	// CommissionDeducted is the manager's cut taken off the gross.
	CommissionDeducted decimal.Decimal

	// TaxAmount is the GST component under the deal's treatment.
	TaxAmount decimal.Decimal

	// NetAmount is the participant's payable after commission, net of
	// GST extraction or addition.
	NetAmount decimal.Decimal

	// ShouldInvoice is false when the settled amount is zero; Direction
	// and AbsoluteAmount are meaningless in that case.
	ShouldInvoice  bool
	Direction      InvoiceDirection
	AbsoluteAmount decimal.Decimal
}

// Manager is an entry in the commission registry: someone who
// represents performers and takes a cut of their deal payouts.
type Manager struct {
	// ID is the unique identifier for the manager (UUID format).
	ID string

	Name string

	// DefaultRate is the commission percentage applied when a
	// relationship carries no override. Nil means the manager has no
	// configured default and no commission is deducted.
	DefaultRate *decimal.Decimal
}
