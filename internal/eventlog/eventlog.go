// Package eventlog records deal lifecycle transitions asynchronously.
// The persisted feed is what downstream notification tooling consumes:
// each entry carries the deal, the transition kind, and the affected
// participants. The engine itself never notifies anyone.
package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Transition kinds recorded against a deal.
const (
	KindDealCreated      = "deal_created"
	KindDealSubmitted    = "deal_submitted"
	KindParticipantAdded = "participant_added"
	KindApprovalRecorded = "approval_recorded"
	KindChangesRequested = "changes_requested"
	KindDeclined         = "participation_declined"
	KindReinvited        = "participant_reinvited"
	KindDealApproved     = "deal_approved"
	KindDealActivated    = "deal_activated"
	KindDealSettled      = "deal_settled"
	KindDealCancelled    = "deal_cancelled"
)

// Event is one recorded transition.
type Event struct {
	ID             uuid.UUID `json:"id"`
	DealID         string    `json:"deal_id"`
	Kind           string    `json:"kind"`
	ParticipantIDs []string  `json:"participant_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EventOption configures an Event under construction.
type EventOption func(*Event)

func WithDeal(dealID string) EventOption {
	return func(e *Event) {
		e.DealID = dealID
	}
}

func WithKind(kind string) EventOption {
	return func(e *Event) {
		e.Kind = kind
	}
}

func WithParticipants(participantIDs ...string) EventOption {
	return func(e *Event) {
		e.ParticipantIDs = participantIDs
	}
}

// NewEvent builds an event with a fresh ID and timestamp.
func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Recorder persists transition events.
type Recorder interface {
	SaveEvent(ctx context.Context, e Event) error
	EventsByDeal(ctx context.Context, dealID string) ([]Event, error)
}
