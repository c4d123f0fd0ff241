// Package workflow implements the multi-party approval state machine
// that gates when a deal's numbers become binding.
//
// Participant approvals move pending → approved / changes_requested /
// declined, and back to pending only through an explicit re-invite
// (typically after the deal owner edits the participant's terms; the
// reset is never implicit, so an edit can't silently discard sign-offs).
// At the deal level, pending_approval advances to approved only once
// every participant has approved; a single decline blocks settlement
// but does not cancel the deal on its own.
//
// All functions mutate the in-memory aggregate only. Persisting the
// result, under the store's optimistic version check, is the caller's
// responsibility.
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gigledger/gigledger/internal/models"
	"github.com/gigledger/gigledger/internal/validation"
)

var (
	// ErrDealLocked: the deal is settled or cancelled; those states are
	// terminal and accept no further mutations.
	ErrDealLocked = errors.New("deal locked")

	// ErrInvalidTransition: the requested move is not permitted from
	// the current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnknownParticipant: the participant is not part of the deal.
	ErrUnknownParticipant = errors.New("participant not in deal")
)

// SubmissionBlockedError reports every configuration problem that
// prevented a draft deal from being submitted for approval.
type SubmissionBlockedError struct {
	Violations []validation.Violation
}

func (e *SubmissionBlockedError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "deal not ready for submission: " + strings.Join(msgs, "; ")
}

// guard rejects mutations on terminal deals.
func guard(deal *models.Deal) error {
	if deal.Status.Terminal() {
		return fmt.Errorf("%w: deal is %s", ErrDealLocked, deal.Status)
	}
	return nil
}

func participant(deal *models.Deal, participantID string) (*models.DealParticipant, error) {
	p := deal.Participant(participantID)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParticipant, participantID)
	}
	return p, nil
}

// Submit moves a draft deal into pending_approval, provided it passes
// every submission check. On validation failure nothing changes and
// the full violation list is returned.
func Submit(deal *models.Deal, now time.Time) error {
	if err := guard(deal); err != nil {
		return err
	}
	if deal.Status != models.DealStatusDraft {
		return fmt.Errorf("%w: cannot submit a %s deal", ErrInvalidTransition, deal.Status)
	}
	if violations := validation.ForSubmission(deal); len(violations) > 0 {
		return &SubmissionBlockedError{Violations: violations}
	}
	deal.Status = models.DealStatusPendingApproval
	deal.SubmittedAt = now.Unix()
	return nil
}

// ApproveParticipant records a participant's approval of their terms.
func ApproveParticipant(deal *models.Deal, participantID string) error {
	if err := guard(deal); err != nil {
		return err
	}
	p, err := participant(deal, participantID)
	if err != nil {
		return err
	}
	if p.ApprovalStatus != models.ApprovalPending {
		return fmt.Errorf("%w: cannot approve from %s", ErrInvalidTransition, p.ApprovalStatus)
	}
	p.ApprovalStatus = models.ApprovalApproved
	return nil
}

// RequestChanges records that a participant wants their terms
// renegotiated before they will sign off.
func RequestChanges(deal *models.Deal, participantID string) error {
	if err := guard(deal); err != nil {
		return err
	}
	p, err := participant(deal, participantID)
	if err != nil {
		return err
	}
	if p.ApprovalStatus != models.ApprovalPending {
		return fmt.Errorf("%w: cannot request changes from %s", ErrInvalidTransition, p.ApprovalStatus)
	}
	p.ApprovalStatus = models.ApprovalChangesRequested
	return nil
}

// DeclineParticipation records a participant's refusal. The deal is
// not cancelled: the decline surfaces as a settlement-blocking
// violation and the owner decides whether to renegotiate or remove
// the participant.
func DeclineParticipation(deal *models.Deal, participantID string) error {
	if err := guard(deal); err != nil {
		return err
	}
	p, err := participant(deal, participantID)
	if err != nil {
		return err
	}
	if p.ApprovalStatus != models.ApprovalPending {
		return fmt.Errorf("%w: cannot decline from %s", ErrInvalidTransition, p.ApprovalStatus)
	}
	p.ApprovalStatus = models.ApprovalDeclined
	return nil
}

// ReinviteParticipant sends revised terms back to a participant who
// requested changes or declined, returning them to pending.
func ReinviteParticipant(deal *models.Deal, participantID string) error {
	if err := guard(deal); err != nil {
		return err
	}
	p, err := participant(deal, participantID)
	if err != nil {
		return err
	}
	switch p.ApprovalStatus {
	case models.ApprovalChangesRequested, models.ApprovalDeclined:
		p.ApprovalStatus = models.ApprovalPending
		return nil
	default:
		return fmt.Errorf("%w: cannot re-invite from %s", ErrInvalidTransition, p.ApprovalStatus)
	}
}

// ApproveAllForParty approves every pending participant entry backed
// by the given party. A manager who appears in a deal both personally
// and on behalf of clients signs off on everything in one action.
// Returns how many entries were approved.
func ApproveAllForParty(deal *models.Deal, partyID string) (int, error) {
	if err := guard(deal); err != nil {
		return 0, err
	}
	approved := 0
	for i := range deal.Participants {
		p := &deal.Participants[i]
		if p.PartyID == partyID && p.ApprovalStatus == models.ApprovalPending {
			p.ApprovalStatus = models.ApprovalApproved
			approved++
		}
	}
	return approved, nil
}

// RefreshApproval re-evaluates the deal-level aggregation after a
// participant mutation: pending_approval advances to approved once
// everyone has approved, and an approved-but-not-yet-active deal falls
// back to pending_approval if an approval was withdrawn via re-invite.
// Returns true when the status changed.
func RefreshApproval(deal *models.Deal, now time.Time) bool {
	switch deal.Status {
	case models.DealStatusPendingApproval:
		if deal.AllApproved() {
			deal.Status = models.DealStatusApproved
			deal.ApprovedAt = now.Unix()
			return true
		}
	case models.DealStatusApproved:
		if !deal.AllApproved() {
			deal.Status = models.DealStatusPendingApproval
			deal.ApprovedAt = 0
			return true
		}
	}
	return false
}

// Activate marks a fully approved deal as live for its event.
func Activate(deal *models.Deal) error {
	if err := guard(deal); err != nil {
		return err
	}
	if deal.Status != models.DealStatusApproved {
		return fmt.Errorf("%w: cannot activate a %s deal", ErrInvalidTransition, deal.Status)
	}
	deal.Status = models.DealStatusActive
	return nil
}

// Cancel terminates the deal. The owner may cancel at any point before
// settlement without participant consent.
func Cancel(deal *models.Deal, cancelledBy, reason string, now time.Time) error {
	if err := guard(deal); err != nil {
		return err
	}
	deal.Status = models.DealStatusCancelled
	deal.CancelledBy = cancelledBy
	deal.CancellationReason = reason
	deal.CancelledAt = now.Unix()
	return nil
}
