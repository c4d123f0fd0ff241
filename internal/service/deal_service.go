// Package service orchestrates the settlement engine: it loads deal
// aggregates from storage, runs the pure calculation and workflow
// packages against them, persists the result under the optimistic
// version check, and records lifecycle events.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/eventlog"
	"github.com/gigledger/gigledger/internal/metrics"
	"github.com/gigledger/gigledger/internal/models"
	"github.com/gigledger/gigledger/internal/settlement"
	"github.com/gigledger/gigledger/internal/storage"
	"github.com/gigledger/gigledger/internal/workflow"
)

// ErrDealNotEditable: structural changes (participants, terms) are only
// allowed while the deal is in draft or pending approval.
var ErrDealNotEditable = errors.New("deal not editable")

// TransitionRecorder receives lifecycle events without blocking.
// Satisfied by eventlog.Worker.
type TransitionRecorder interface {
	Record(event eventlog.Event)
}

// DealService is the orchestration layer over the engine packages.
type DealService struct {
	store  storage.Store
	events TransitionRecorder
	feed   eventlog.Recorder
}

// NewDealService creates a DealService. feed is the read side of the
// event log, usually the same store backing the recorder.
func NewDealService(store storage.Store, events TransitionRecorder, feed eventlog.Recorder) *DealService {
	return &DealService{store: store, events: events, feed: feed}
}

func (s *DealService) record(opts ...eventlog.EventOption) {
	if s.events == nil {
		return
	}
	s.events.Record(eventlog.NewEvent(opts...))
}

// CreateDeal persists a new draft deal.
func (s *DealService) CreateDeal(ctx context.Context, deal *models.Deal) error {
	slog.Info("CreateDeal request received",
		"event_id", deal.EventID,
		"deal_type", deal.DealType,
		"participants_count", len(deal.Participants),
	)

	if deal.Currency == "" {
		deal.Currency = "AUD"
	}
	if !deal.DealType.Valid() {
		return fmt.Errorf("invalid deal type %q", deal.DealType)
	}
	if !deal.GSTTreatment.Valid() {
		return fmt.Errorf("invalid gst treatment %q", deal.GSTTreatment)
	}
	if deal.TotalRevenue.IsNegative() {
		return fmt.Errorf("total revenue cannot be negative")
	}

	if err := s.store.CreateDeal(ctx, deal); err != nil {
		slog.Error("CreateDeal failed", "error", err)
		return err
	}

	metrics.DealsCreated.Inc()
	s.record(eventlog.WithDeal(deal.ID), eventlog.WithKind(eventlog.KindDealCreated))
	slog.Info("Deal created", "deal_id", deal.ID)
	return nil
}

// GetDeal returns the fully-loaded aggregate.
func (s *DealService) GetDeal(ctx context.Context, dealID string) (*models.Deal, error) {
	return s.store.GetDeal(ctx, dealID)
}

// editable rejects structural changes outside draft / pending approval.
func editable(deal *models.Deal) error {
	switch deal.Status {
	case models.DealStatusDraft, models.DealStatusPendingApproval:
		return nil
	}
	return fmt.Errorf("%w: deal is %s", ErrDealNotEditable, deal.Status)
}

// AddParticipant appends a participant to a deal that is still being
// negotiated. The new participant starts pending, so a deal that was
// one approval away goes back to waiting on them.
func (s *DealService) AddParticipant(ctx context.Context, dealID string, p *models.DealParticipant) error {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return err
	}
	if err := editable(deal); err != nil {
		return err
	}

	p.DealID = dealID
	if err := s.store.AddParticipant(ctx, p); err != nil {
		slog.Error("AddParticipant failed", "deal_id", dealID, "error", err)
		return err
	}

	s.record(
		eventlog.WithDeal(dealID),
		eventlog.WithKind(eventlog.KindParticipantAdded),
		eventlog.WithParticipants(p.ID),
	)
	slog.Info("Participant added", "deal_id", dealID, "participant_id", p.ID, "party_role", p.PartyRole)
	return nil
}

// UpdateParticipantTerms rewrites a participant's split configuration
// while the deal is still negotiable. Approval status is untouched;
// re-inviting a participant after an edit is a separate, explicit step.
func (s *DealService) UpdateParticipantTerms(ctx context.Context, dealID string, p *models.DealParticipant) error {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return err
	}
	if err := editable(deal); err != nil {
		return err
	}
	if deal.Participant(p.ID) == nil {
		return fmt.Errorf("%w: %s", workflow.ErrUnknownParticipant, p.ID)
	}

	p.DealID = dealID
	if err := s.store.UpdateParticipantTerms(ctx, p); err != nil {
		slog.Error("UpdateParticipantTerms failed", "deal_id", dealID, "participant_id", p.ID, "error", err)
		return err
	}

	slog.Info("Participant terms updated", "deal_id", dealID, "participant_id", p.ID)
	return nil
}

// RemoveParticipant drops a participant from a negotiable deal, e.g.
// after they declined. If everyone remaining has approved, the deal
// advances.
func (s *DealService) RemoveParticipant(ctx context.Context, dealID, participantID string) error {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return err
	}
	if err := editable(deal); err != nil {
		return err
	}

	if err := s.store.RemoveParticipant(ctx, dealID, participantID); err != nil {
		return err
	}

	// Reload: the removal may have left only approved participants.
	deal, err = s.store.GetDeal(ctx, dealID)
	if err != nil {
		return err
	}
	if workflow.RefreshApproval(deal, time.Now()) {
		if err := s.persist(ctx, deal); err != nil {
			return err
		}
		s.recordRefresh(deal)
	}

	slog.Info("Participant removed", "deal_id", dealID, "participant_id", participantID)
	return nil
}

// persist writes the aggregate and maps version conflicts to metrics.
func (s *DealService) persist(ctx context.Context, deal *models.Deal) error {
	deal.UpdatedAt = time.Now().Unix()
	err := s.store.UpdateDeal(ctx, deal)
	if errors.Is(err, storage.ErrVersionConflict) {
		metrics.VersionConflicts.Inc()
	}
	return err
}

// SubmitForApproval validates the draft and moves it to pending
// approval.
func (s *DealService) SubmitForApproval(ctx context.Context, dealID string) (*models.Deal, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	if err := workflow.Submit(deal, time.Now()); err != nil {
		var blocked *workflow.SubmissionBlockedError
		if errors.As(err, &blocked) {
			metrics.ValidationFailures.WithLabelValues("submission").Inc()
			slog.Info("Submission blocked", "deal_id", dealID, "violations", len(blocked.Violations))
		}
		return nil, err
	}
	if err := s.persist(ctx, deal); err != nil {
		return nil, err
	}

	s.record(eventlog.WithDeal(dealID), eventlog.WithKind(eventlog.KindDealSubmitted))
	slog.Info("Deal submitted for approval", "deal_id", dealID, "participants_count", len(deal.Participants))
	return deal, nil
}

// approvalKind maps a workflow mutation to its event kind.
type approvalOp struct {
	apply func(*models.Deal, string) error
	kind  string
	label string
}

var approvalOps = map[string]approvalOp{
	"approve":         {workflow.ApproveParticipant, eventlog.KindApprovalRecorded, "approved"},
	"request_changes": {workflow.RequestChanges, eventlog.KindChangesRequested, "changes_requested"},
	"decline":         {workflow.DeclineParticipation, eventlog.KindDeclined, "declined"},
	"reinvite":        {workflow.ReinviteParticipant, eventlog.KindReinvited, "reinvited"},
}

// respond runs one participant-level workflow op, refreshes the deal
// status, and persists the aggregate.
func (s *DealService) respond(ctx context.Context, dealID, participantID, op string) (*models.Deal, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	o, ok := approvalOps[op]
	if !ok {
		return nil, fmt.Errorf("unknown approval operation %q", op)
	}
	if err := o.apply(deal, participantID); err != nil {
		return nil, err
	}
	advanced := workflow.RefreshApproval(deal, time.Now())
	if err := s.persist(ctx, deal); err != nil {
		return nil, err
	}

	metrics.ApprovalDecisions.WithLabelValues(o.label).Inc()
	s.record(
		eventlog.WithDeal(dealID),
		eventlog.WithKind(o.kind),
		eventlog.WithParticipants(participantID),
	)
	if advanced && deal.Status == models.DealStatusApproved {
		s.recordRefresh(deal)
	}

	slog.Info("Approval response recorded",
		"deal_id", dealID,
		"participant_id", participantID,
		"decision", o.label,
		"deal_status", deal.Status,
	)
	return deal, nil
}

func (s *DealService) recordRefresh(deal *models.Deal) {
	if deal.Status == models.DealStatusApproved {
		s.record(eventlog.WithDeal(deal.ID), eventlog.WithKind(eventlog.KindDealApproved))
	}
}

// Approve records a participant's sign-off on their terms.
func (s *DealService) Approve(ctx context.Context, dealID, participantID string) (*models.Deal, error) {
	return s.respond(ctx, dealID, participantID, "approve")
}

// RequestChanges records that a participant wants renegotiation.
func (s *DealService) RequestChanges(ctx context.Context, dealID, participantID string) (*models.Deal, error) {
	return s.respond(ctx, dealID, participantID, "request_changes")
}

// Decline records that a participant refused their terms.
func (s *DealService) Decline(ctx context.Context, dealID, participantID string) (*models.Deal, error) {
	return s.respond(ctx, dealID, participantID, "decline")
}

// Reinvite resets a changes_requested or declined participant to
// pending, typically after their terms were edited.
func (s *DealService) Reinvite(ctx context.Context, dealID, participantID string) (*models.Deal, error) {
	return s.respond(ctx, dealID, participantID, "reinvite")
}

// ApproveAllForParty approves every pending participant slot held by
// one party, e.g. a performer who appears as both act and producer.
func (s *DealService) ApproveAllForParty(ctx context.Context, dealID, partyID string) (*models.Deal, int, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, 0, err
	}

	approved, err := workflow.ApproveAllForParty(deal, partyID)
	if err != nil {
		return nil, 0, err
	}
	advanced := workflow.RefreshApproval(deal, time.Now())
	if err := s.persist(ctx, deal); err != nil {
		return nil, 0, err
	}

	var ids []string
	for i := range deal.Participants {
		if deal.Participants[i].PartyID == partyID {
			ids = append(ids, deal.Participants[i].ID)
		}
	}
	metrics.ApprovalDecisions.WithLabelValues("approved").Add(float64(approved))
	s.record(
		eventlog.WithDeal(dealID),
		eventlog.WithKind(eventlog.KindApprovalRecorded),
		eventlog.WithParticipants(ids...),
	)
	if advanced {
		s.recordRefresh(deal)
	}

	slog.Info("Bulk approval recorded", "deal_id", dealID, "party_id", partyID, "approved", approved)
	return deal, approved, nil
}

// Activate moves an approved deal into active, the state where revenue
// figures are being entered ahead of settlement.
func (s *DealService) Activate(ctx context.Context, dealID string) (*models.Deal, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	if err := workflow.Activate(deal); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, deal); err != nil {
		return nil, err
	}

	s.record(eventlog.WithDeal(dealID), eventlog.WithKind(eventlog.KindDealActivated))
	slog.Info("Deal activated", "deal_id", dealID)
	return deal, nil
}

// SetRevenue updates the realised revenue on a deal that has not been
// settled. The binding numbers only exist once the deal settles, so
// revenue stays editable through the whole approval cycle.
func (s *DealService) SetRevenue(ctx context.Context, dealID string, revenue decimal.Decimal) (*models.Deal, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status.Terminal() {
		return nil, fmt.Errorf("%w: deal is %s", workflow.ErrDealLocked, deal.Status)
	}
	if revenue.IsNegative() {
		return nil, fmt.Errorf("total revenue cannot be negative")
	}

	deal.TotalRevenue = revenue
	if err := s.persist(ctx, deal); err != nil {
		return nil, err
	}

	slog.Info("Deal revenue updated", "deal_id", dealID, "total_revenue", deal.TotalRevenue)
	return deal, nil
}

// Cancel abandons a deal from any non-terminal state.
func (s *DealService) Cancel(ctx context.Context, dealID, cancelledBy, reason string) (*models.Deal, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	if err := workflow.Cancel(deal, cancelledBy, reason, time.Now()); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, deal); err != nil {
		return nil, err
	}

	s.record(eventlog.WithDeal(dealID), eventlog.WithKind(eventlog.KindDealCancelled))
	slog.Info("Deal cancelled", "deal_id", dealID, "cancelled_by", cancelledBy, "reason", reason)
	return deal, nil
}

// resolveRates looks up each participant's commission rate.
func (s *DealService) resolveRates(ctx context.Context, deal *models.Deal) (settlement.Rates, error) {
	rates := settlement.Rates{}
	for i := range deal.Participants {
		p := &deal.Participants[i]
		rate, err := s.store.CommissionRate(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("resolving commission for participant %s: %w", p.ID, err)
		}
		if rate != nil {
			rates[p.ID] = *rate
		}
	}
	return rates, nil
}

// Preview computes settlement lines for the deal as it stands, without
// persisting anything. Valid in any state; the lines are advisory
// until the deal settles.
func (s *DealService) Preview(ctx context.Context, dealID string) ([]models.SettlementLine, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	rates, err := s.resolveRates(ctx, deal)
	if err != nil {
		return nil, err
	}
	return settlement.Calculate(deal, rates)
}

// Settle computes the binding settlement and persists it atomically
// with the status flip. Concurrent cancels or settles lose at the
// store's guard, never silently.
func (s *DealService) Settle(ctx context.Context, dealID, settledBy string) (*models.Deal, []models.SettlementLine, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}

	rates, err := s.resolveRates(ctx, deal)
	if err != nil {
		return nil, nil, err
	}

	lines, err := settlement.Finalize(deal, rates, settledBy, time.Now())
	if err != nil {
		var failed *settlement.ValidationFailedError
		if errors.As(err, &failed) {
			metrics.ValidationFailures.WithLabelValues("settlement").Inc()
			slog.Info("Settlement blocked", "deal_id", dealID, "violations", len(failed.Violations))
		}
		return nil, nil, err
	}

	if err := s.store.SettleDeal(ctx, deal, lines); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			metrics.VersionConflicts.Inc()
		}
		slog.Error("Settlement persist failed", "deal_id", dealID, "error", err)
		return nil, nil, err
	}

	metrics.DealsSettled.Inc()
	s.record(eventlog.WithDeal(dealID), eventlog.WithKind(eventlog.KindDealSettled))
	slog.Info("Deal settled", "deal_id", dealID, "settled_by", settledBy, "lines_count", len(lines))
	return deal, lines, nil
}

// SettlementLines returns the binding lines of a settled deal.
func (s *DealService) SettlementLines(ctx context.Context, dealID string) ([]models.SettlementLine, error) {
	return s.store.SettlementLines(ctx, dealID)
}

// History returns the deal's lifecycle event feed, oldest first.
func (s *DealService) History(ctx context.Context, dealID string) ([]eventlog.Event, error) {
	if s.feed == nil {
		return nil, nil
	}
	return s.feed.EventsByDeal(ctx, dealID)
}

// ParticipantStats summarises where a deal's percentage allocation and
// approvals stand.
type ParticipantStats struct {
	TotalParticipants     int             `json:"total_participants"`
	Approved              int             `json:"approved"`
	Pending               int             `json:"pending"`
	ChangesRequested      int             `json:"changes_requested"`
	Declined              int             `json:"declined"`
	AllocatedPercentage   decimal.Decimal `json:"allocated_percentage"`
	UnallocatedPercentage decimal.Decimal `json:"unallocated_percentage"`
}

// ParticipantStatsByDeal reports approval progress and how much of the
// revenue percentage is spoken for. Only percentage-style allocations
// count toward the allocated figure; flat fees and tiers do not consume
// a share of the 100%.
func (s *DealService) ParticipantStatsByDeal(ctx context.Context, dealID string) (ParticipantStats, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return ParticipantStats{}, err
	}

	stats := ParticipantStats{
		TotalParticipants:   len(deal.Participants),
		AllocatedPercentage: decimal.Zero,
	}
	for i := range deal.Participants {
		p := &deal.Participants[i]
		switch p.ApprovalStatus {
		case models.ApprovalApproved:
			stats.Approved++
		case models.ApprovalPending:
			stats.Pending++
		case models.ApprovalChangesRequested:
			stats.ChangesRequested++
		case models.ApprovalDeclined:
			stats.Declined++
		}
		if p.SplitType == models.SplitPercentage || p.SplitType == models.SplitMinimumPlusPercentage {
			stats.AllocatedPercentage = stats.AllocatedPercentage.Add(p.SplitPercentage)
		}
	}
	stats.UnallocatedPercentage = decimal.NewFromInt(100).Sub(stats.AllocatedPercentage)
	return stats, nil
}

// DealStats aggregates deal counts and revenue for one event.
func (s *DealService) DealStats(ctx context.Context, eventID string) (storage.DealStats, error) {
	return s.store.DealStatsByEvent(ctx, eventID)
}

// UpsertManager registers a manager in the commission registry.
func (s *DealService) UpsertManager(ctx context.Context, m models.Manager) error {
	if err := s.store.UpsertManager(ctx, m); err != nil {
		slog.Error("UpsertManager failed", "error", err)
		return err
	}
	slog.Info("Manager upserted", "manager_id", m.ID, "name", m.Name)
	return nil
}
