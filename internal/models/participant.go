package models

import "github.com/shopspring/decimal"

// PartyRole identifies which side of the table a participant sits on.
type PartyRole string

const (
	RoleComedian PartyRole = "comedian"
	RoleVenue    PartyRole = "venue"
	RolePromoter PartyRole = "promoter"
	RoleManager  PartyRole = "manager"
	RoleOther    PartyRole = "other"
)

// Valid reports whether r is one of the known party roles.
func (r PartyRole) Valid() bool {
	switch r {
	case RoleComedian, RoleVenue, RolePromoter, RoleManager, RoleOther:
		return true
	}
	return false
}

// SplitType is the formula family used to compute a participant's share.
type SplitType string

const (
	// SplitPercentage: share = totalRevenue × percentage / 100.
	SplitPercentage SplitType = "percentage"

	// SplitFlatFee: share = flat fee, independent of revenue.
	SplitFlatFee SplitType = "flat_fee"

	// SplitMinimumPlusPercentage: guaranteed minimum plus a percentage
	// of whatever revenue remains above the guarantee.
	SplitMinimumPlusPercentage SplitType = "minimum_plus_percentage"

	// SplitTiered: marginal revenue brackets, each with its own rate.
	SplitTiered SplitType = "tiered"
)

// Valid reports whether t is one of the known split types.
func (t SplitType) Valid() bool {
	switch t {
	case SplitPercentage, SplitFlatFee, SplitMinimumPlusPercentage, SplitTiered:
		return true
	}
	return false
}

// ApprovalStatus tracks a participant's sign-off on their deal terms.
type ApprovalStatus string

const (
	ApprovalPending          ApprovalStatus = "pending"
	ApprovalApproved         ApprovalStatus = "approved"
	ApprovalChangesRequested ApprovalStatus = "changes_requested"
	ApprovalDeclined         ApprovalStatus = "declined"
)

// Valid reports whether s is one of the known approval statuses.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalChangesRequested, ApprovalDeclined:
		return true
	}
	return false
}

// Tier is one revenue bracket in a tiered split. The bracket covers
// revenue from RevenueThreshold up to the next tier's threshold (the
// last tier is unbounded above) at RatePercentage.
type Tier struct {
	RevenueThreshold decimal.Decimal
	RatePercentage   decimal.Decimal
}

// ManagerRelationship links a participant's payout to a manager who
// takes a commission off the top.
type ManagerRelationship struct {
	// ManagerID references the manager in the commission registry.
	ManagerID string

	// OverrideRate, when set, takes precedence over the manager's
	// configured default rate for this relationship.
	OverrideRate *decimal.Decimal
}

// DealParticipant is one party's terms within a deal. A participant
// belongs to exactly one deal and is destroyed with it.
//
// Exactly one of SplitPercentage / FlatFeeAmount / Tiers is
// semantically active for the participant's SplitType (minimum plus
// percentage uses both the fee and the percentage). The inactive
// fields are retained rather than zeroed so edits leave an audit trail.
type DealParticipant struct {
	// ID is the unique identifier for the participant row (UUID format).
	ID string

	// DealID is the owning deal.
	DealID string

	// PartyID is an opaque reference to the person or organisation
	// resolved by the identity collaborator.
	PartyID string

	PartyRole PartyRole
	SplitType SplitType

	// SplitPercentage in [0,100]; used by percentage and
	// minimum_plus_percentage splits.
	SplitPercentage decimal.Decimal

	// FlatFeeAmount ≥ 0; the fee for flat_fee splits or the guarantee
	// for minimum_plus_percentage splits.
	FlatFeeAmount decimal.Decimal

	// Tiers in ascending threshold order; only meaningful for tiered
	// splits. Thresholds must be strictly increasing and non-negative.
	Tiers []Tier

	// ApprovalStatus is mutated only through the workflow package.
	ApprovalStatus ApprovalStatus

	// Manager is set when this participant's payout passes through a
	// manager; nil means no commission is deducted.
	Manager *ManagerRelationship
}
