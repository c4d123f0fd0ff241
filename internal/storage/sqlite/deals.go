package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/models"
	"github.com/gigledger/gigledger/internal/storage"
)

// CreateDeal persists a new deal and its participants.
func (s *SQLiteStore) CreateDeal(ctx context.Context, deal *models.Deal) error {
	// Generate IDs and timestamps if not set
	if deal.ID == "" {
		deal.ID = uuid.New().String()
	}
	if deal.CreatedAt == 0 {
		deal.CreatedAt = time.Now().Unix()
	}
	if deal.UpdatedAt == 0 {
		deal.UpdatedAt = deal.CreatedAt
	}
	if deal.Status == "" {
		deal.Status = models.DealStatusDraft
	}
	if deal.Version == 0 {
		deal.Version = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO deals (
			id, event_id, name, deal_type, status, total_revenue, currency,
			gst_treatment, created_by, created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deal.ID, deal.EventID, deal.Name, deal.DealType, deal.Status,
		deal.TotalRevenue.String(), deal.Currency, deal.GSTTreatment,
		deal.CreatedBy, deal.CreatedAt, deal.UpdatedAt, deal.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deal: %w", err)
	}

	for i := range deal.Participants {
		p := &deal.Participants[i]
		p.DealID = deal.ID
		if err := insertParticipantTx(ctx, tx, p, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetDeal retrieves a deal by ID, including all participants and tiers.
func (s *SQLiteStore) GetDeal(ctx context.Context, dealID string) (*models.Deal, error) {
	deal := &models.Deal{}
	var totalRevenue string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, event_id, name, deal_type, status, total_revenue, currency,
			gst_treatment, created_by, created_at, updated_at, submitted_at,
			approved_at, settled_at, cancelled_at, settled_by, cancelled_by,
			cancellation_reason, version
		FROM deals WHERE id = ?`,
		dealID,
	).Scan(
		&deal.ID, &deal.EventID, &deal.Name, &deal.DealType, &deal.Status,
		&totalRevenue, &deal.Currency, &deal.GSTTreatment, &deal.CreatedBy,
		&deal.CreatedAt, &deal.UpdatedAt, &deal.SubmittedAt, &deal.ApprovedAt,
		&deal.SettledAt, &deal.CancelledAt, &deal.SettledBy, &deal.CancelledBy,
		&deal.CancellationReason, &deal.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deal %s: %w", dealID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	if deal.TotalRevenue, err = scanDecimal(totalRevenue); err != nil {
		return nil, err
	}

	if deal.Participants, err = s.loadParticipants(ctx, dealID); err != nil {
		return nil, err
	}

	return deal, nil
}

// UpdateDeal writes the deal row and participant approval statuses.
// The write is guarded by the version the caller loaded the aggregate
// at; a mismatch returns storage.ErrVersionConflict and leaves the
// database untouched.
func (s *SQLiteStore) UpdateDeal(ctx context.Context, deal *models.Deal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE deals SET
			name = ?, status = ?, total_revenue = ?, currency = ?,
			gst_treatment = ?, updated_at = ?, submitted_at = ?,
			approved_at = ?, settled_at = ?, cancelled_at = ?, settled_by = ?,
			cancelled_by = ?, cancellation_reason = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		deal.Name, deal.Status, deal.TotalRevenue.String(), deal.Currency,
		deal.GSTTreatment, deal.UpdatedAt, deal.SubmittedAt, deal.ApprovedAt,
		deal.SettledAt, deal.CancelledAt, deal.SettledBy, deal.CancelledBy,
		deal.CancellationReason, deal.ID, deal.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	if err := checkGuardedWrite(ctx, tx, res, deal.ID); err != nil {
		return err
	}

	for i := range deal.Participants {
		p := &deal.Participants[i]
		_, err := tx.ExecContext(ctx,
			"UPDATE deal_participants SET approval_status = ? WHERE id = ? AND deal_id = ?",
			p.ApprovalStatus, p.ID, deal.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update participant approval: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	deal.Version++
	return nil
}

// SettleDeal flips the deal to settled and stores the binding lines in
// a single transaction. Status and version are re-checked inside the
// transaction so a concurrent cancel or settle loses cleanly.
func (s *SQLiteStore) SettleDeal(ctx context.Context, deal *models.Deal, lines []models.SettlementLine) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The status guard checks the stored row, not the in-memory deal:
	// the resolver already flipped deal.Status to settled.
	res, err := tx.ExecContext(ctx,
		`UPDATE deals SET
			status = ?, settled_at = ?, settled_by = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ? AND status IN (?, ?)`,
		models.DealStatusSettled, deal.SettledAt, deal.SettledBy,
		deal.UpdatedAt, deal.ID, deal.Version,
		models.DealStatusApproved, models.DealStatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to settle deal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return s.classifySettleFailure(ctx, tx, deal)
	}

	for _, line := range lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settlement_lines (
				deal_id, participant_id, gross_amount, commission_deducted,
				tax_amount, net_amount, should_invoice, direction, absolute_amount
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			deal.ID, line.ParticipantID, line.GrossAmount.String(),
			line.CommissionDeducted.String(), line.TaxAmount.String(),
			line.NetAmount.String(), line.ShouldInvoice, line.Direction,
			line.AbsoluteAmount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	deal.Version++
	return nil
}

// classifySettleFailure distinguishes why a guarded settle matched no
// rows: missing deal, stale version, or an ineligible status.
func (s *SQLiteStore) classifySettleFailure(ctx context.Context, tx *sql.Tx, deal *models.Deal) error {
	var status models.DealStatus
	var version int64
	err := tx.QueryRowContext(ctx,
		"SELECT status, version FROM deals WHERE id = ?", deal.ID,
	).Scan(&status, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("deal %s: %w", deal.ID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to inspect deal: %w", err)
	}
	if version != deal.Version {
		return fmt.Errorf("deal %s at version %d, expected %d: %w",
			deal.ID, version, deal.Version, storage.ErrVersionConflict)
	}
	return fmt.Errorf("deal %s is %s: %w", deal.ID, status, storage.ErrDealNotSettleable)
}

// checkGuardedWrite maps a zero-row guarded update to the right sentinel.
func checkGuardedWrite(ctx context.Context, tx *sql.Tx, res sql.Result, dealID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM deals WHERE id = ?", dealID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to inspect deal: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("deal %s: %w", dealID, storage.ErrNotFound)
	}
	return fmt.Errorf("deal %s: %w", dealID, storage.ErrVersionConflict)
}

// SettlementLines retrieves the binding lines of a settled deal.
func (s *SQLiteStore) SettlementLines(ctx context.Context, dealID string) ([]models.SettlementLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, gross_amount, commission_deducted, tax_amount,
			net_amount, should_invoice, direction, absolute_amount
		FROM settlement_lines WHERE deal_id = ?`,
		dealID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement lines: %w", err)
	}
	defer rows.Close()

	var lines []models.SettlementLine
	for rows.Next() {
		var line models.SettlementLine
		var gross, commission, tax, net, absolute string
		err := rows.Scan(&line.ParticipantID, &gross, &commission, &tax,
			&net, &line.ShouldInvoice, &line.Direction, &absolute)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement line: %w", err)
		}
		if line.GrossAmount, err = scanDecimal(gross); err != nil {
			return nil, err
		}
		if line.CommissionDeducted, err = scanDecimal(commission); err != nil {
			return nil, err
		}
		if line.TaxAmount, err = scanDecimal(tax); err != nil {
			return nil, err
		}
		if line.NetAmount, err = scanDecimal(net); err != nil {
			return nil, err
		}
		if line.AbsoluteAmount, err = scanDecimal(absolute); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement lines: %w", err)
	}

	return lines, nil
}

// DealStatsByEvent aggregates deal counts and revenue for an event.
func (s *SQLiteStore) DealStatsByEvent(ctx context.Context, eventID string) (storage.DealStats, error) {
	stats := storage.DealStats{
		TotalRevenue:   decimal.Zero,
		SettledRevenue: decimal.Zero,
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT status, total_revenue FROM deals WHERE event_id = ?",
		eventID,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to get deals for event: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.DealStatus
		var revenueText string
		if err := rows.Scan(&status, &revenueText); err != nil {
			return stats, fmt.Errorf("failed to scan deal: %w", err)
		}
		revenue, err := scanDecimal(revenueText)
		if err != nil {
			return stats, err
		}

		stats.TotalDeals++
		stats.TotalRevenue = stats.TotalRevenue.Add(revenue)
		switch status {
		case models.DealStatusDraft:
			stats.Draft++
		case models.DealStatusPendingApproval:
			stats.PendingApproval++
		case models.DealStatusApproved:
			stats.Approved++
		case models.DealStatusActive:
			stats.Active++
		case models.DealStatusSettled:
			stats.Settled++
			stats.SettledRevenue = stats.SettledRevenue.Add(revenue)
		case models.DealStatusCancelled:
			stats.Cancelled++
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("failed to iterate deals: %w", err)
	}

	return stats, nil
}
