package models

import "github.com/shopspring/decimal"

// DealType categorises how a deal's revenue sharing is structured.
type DealType string

const (
	// DealTypeFlatSplit is a straight percentage carve-up of revenue.
	// Every participant must use a percentage split and the percentages
	// must sum to at most 100; the remainder stays with the promoter.
	DealTypeFlatSplit DealType = "flat_split"

	// DealTypeFullTerms allows each participant to carry its own split
	// configuration (flat fee, guarantee plus percentage, etc).
	DealTypeFullTerms DealType = "full_terms"

	// DealTypeTiered requires at least one participant on a tiered
	// (marginal bracket) split.
	DealTypeTiered DealType = "tiered"
)

// Valid reports whether t is one of the known deal types.
func (t DealType) Valid() bool {
	switch t {
	case DealTypeFlatSplit, DealTypeFullTerms, DealTypeTiered:
		return true
	}
	return false
}

// DealStatus is the lifecycle state of a deal.
type DealStatus string

const (
	DealStatusDraft           DealStatus = "draft"
	DealStatusPendingApproval DealStatus = "pending_approval"
	DealStatusApproved        DealStatus = "approved"
	DealStatusActive          DealStatus = "active"
	DealStatusSettled         DealStatus = "settled"
	DealStatusCancelled       DealStatus = "cancelled"
)

// Valid reports whether s is one of the known deal statuses.
func (s DealStatus) Valid() bool {
	switch s {
	case DealStatusDraft, DealStatusPendingApproval, DealStatusApproved,
		DealStatusActive, DealStatusSettled, DealStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status accepts no further transitions.
func (s DealStatus) Terminal() bool {
	return s == DealStatusSettled || s == DealStatusCancelled
}

// GSTTreatment selects how GST applies to a settled amount.
type GSTTreatment string

const (
	// GSTInclusive: the amount already contains GST; tax is extracted.
	GSTInclusive GSTTreatment = "inclusive"

	// GSTExclusive: GST is added on top of the amount.
	GSTExclusive GSTTreatment = "exclusive"

	// GSTNone: no GST applies (e.g. non-registered participant).
	GSTNone GSTTreatment = "none"
)

// Valid reports whether g is one of the known GST treatments.
func (g GSTTreatment) Valid() bool {
	switch g {
	case GSTInclusive, GSTExclusive, GSTNone:
		return true
	}
	return false
}

// Deal is a revenue-sharing agreement for one event among multiple
// participants. It is the aggregate root: participants are owned by the
// deal and destroyed with it, and every engine operation works on a
// single fully-loaded Deal.
type Deal struct {
	// ID is the unique identifier for the deal (UUID format).
	ID string

	// EventID is an opaque reference to the event this deal settles.
	EventID string

	// Name is a human-readable label, e.g. "Friday headline split".
	Name string

	DealType DealType
	Status   DealStatus

	// TotalRevenue is the event's realised revenue. Zero until the
	// promoter enters takings; never negative.
	TotalRevenue decimal.Decimal

	// Currency is an ISO 4217 code, e.g. "AUD".
	Currency string

	GSTTreatment GSTTreatment

	// Participants in insertion order. Order carries no calculation
	// meaning; tiered evaluation is ordered by tier thresholds instead.
	Participants []DealParticipant

	CreatedBy string

	// Unix timestamps. Zero means the transition has not happened.
	CreatedAt   int64
	UpdatedAt   int64
	SubmittedAt int64
	ApprovedAt  int64
	SettledAt   int64
	CancelledAt int64

	SettledBy          string
	CancelledBy        string
	CancellationReason string

	// Version supports optimistic concurrency at the store. Two
	// callers mutating the same deal race on this counter; the loser's
	// write is rejected instead of silently clobbering the aggregate.
	Version int64
}

// Participant returns the participant with the given ID, or nil.
func (d *Deal) Participant(participantID string) *DealParticipant {
	for i := range d.Participants {
		if d.Participants[i].ID == participantID {
			return &d.Participants[i]
		}
	}
	return nil
}

// AllApproved reports whether every participant has approved. A deal
// with no participants is never considered approved.
func (d *Deal) AllApproved() bool {
	if len(d.Participants) == 0 {
		return false
	}
	for i := range d.Participants {
		if d.Participants[i].ApprovalStatus != ApprovalApproved {
			return false
		}
	}
	return true
}
