// Package storage provides abstractions for persisting deal aggregates.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/models"
)

var (
	// ErrNotFound: the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict: the aggregate changed underneath the caller;
	// reload and retry against the fresh snapshot.
	ErrVersionConflict = errors.New("deal version conflict")

	// ErrDealNotSettleable: a concurrent transition moved the deal out
	// of a settlement-eligible status before the settle committed.
	ErrDealNotSettleable = errors.New("deal not in a settleable status")
)

// DealStats summarises the deals attached to one event.
type DealStats struct {
	TotalDeals      int             `json:"total_deals"`
	Draft           int             `json:"draft"`
	PendingApproval int             `json:"pending_approval"`
	Approved        int             `json:"approved"`
	Active          int             `json:"active"`
	Settled         int             `json:"settled"`
	Cancelled       int             `json:"cancelled"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	SettledRevenue  decimal.Decimal `json:"settled_revenue"`
}

// Store is the persistence collaborator for the settlement engine.
// Implementations must serialize concurrent writes to one deal:
// UpdateDeal and SettleDeal check the aggregate's version so the
// "all participants approved" aggregation is always evaluated against
// a consistent snapshot.
type Store interface {
	// CreateDeal persists a new deal and its participants. Missing IDs
	// and timestamps are populated.
	CreateDeal(ctx context.Context, deal *models.Deal) error

	// GetDeal returns a fully-loaded aggregate:
	// participants in insertion order with tiers and manager links.
	GetDeal(ctx context.Context, dealID string) (*models.Deal, error)

	// UpdateDeal writes the deal row and participant approval
	// statuses, guarded by the version the aggregate was loaded at.
	// Returns ErrVersionConflict when the guard fails.
	UpdateDeal(ctx context.Context, deal *models.Deal) error

	// AddParticipant appends a participant to a deal.
	AddParticipant(ctx context.Context, p *models.DealParticipant) error

	// UpdateParticipantTerms rewrites a participant's split
	// configuration (type, percentage, fee, tiers, manager link).
	UpdateParticipantTerms(ctx context.Context, p *models.DealParticipant) error

	// RemoveParticipant deletes a participant and its tiers.
	RemoveParticipant(ctx context.Context, dealID, participantID string) error

	// SettleDeal atomically flips the deal to settled and stores the
	// binding settlement lines in a single transaction. The status and
	// version are re-checked inside the transaction so a concurrent
	// cancel or settle loses cleanly.
	SettleDeal(ctx context.Context, deal *models.Deal, lines []models.SettlementLine) error

	// SettlementLines returns the binding lines of a settled deal.
	SettlementLines(ctx context.Context, dealID string) ([]models.SettlementLine, error)

	// DealStatsByEvent aggregates deal counts and revenue for an event.
	DealStatsByEvent(ctx context.Context, eventID string) (DealStats, error)

	// UpsertManager registers a manager and their default commission
	// rate in the commission registry.
	UpsertManager(ctx context.Context, m models.Manager) error

	// CommissionRate resolves the rate for a participant: the
	// relationship's override rate, else the manager's default, else
	// nil for no deduction.
	CommissionRate(ctx context.Context, p *models.DealParticipant) (*decimal.Decimal, error)

	// Close releases any resources held by the store.
	Close() error
}
