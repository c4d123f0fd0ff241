package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/gigledger/gigledger/internal/models"
	"github.com/gigledger/gigledger/internal/storage"
)

// insertParticipantTx inserts one participant and its tiers at the
// given position within the owning deal.
func insertParticipantTx(ctx context.Context, tx *sql.Tx, p *models.DealParticipant, position int) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.ApprovalStatus == "" {
		p.ApprovalStatus = models.ApprovalPending
	}

	var managerID, overrideRate sql.NullString
	if p.Manager != nil {
		managerID = sql.NullString{String: p.Manager.ManagerID, Valid: true}
		overrideRate = nullableDecimal(p.Manager.OverrideRate)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO deal_participants (
			id, deal_id, position, party_id, party_role, split_type,
			split_percentage, flat_fee_amount, approval_status,
			manager_id, manager_override_rate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.DealID, position, p.PartyID, p.PartyRole, p.SplitType,
		p.SplitPercentage.String(), p.FlatFeeAmount.String(),
		p.ApprovalStatus, managerID, overrideRate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}

	return insertTiersTx(ctx, tx, p)
}

func insertTiersTx(ctx context.Context, tx *sql.Tx, p *models.DealParticipant) error {
	for i, tier := range p.Tiers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO participant_tiers (
				participant_id, position, revenue_threshold, rate_percentage
			) VALUES (?, ?, ?, ?)`,
			p.ID, i, tier.RevenueThreshold.String(), tier.RatePercentage.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert tier: %w", err)
		}
	}
	return nil
}

// AddParticipant appends a participant to an existing deal.
func (s *SQLiteStore) AddParticipant(ctx context.Context, p *models.DealParticipant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM deal_participants WHERE deal_id = ?", p.DealID,
	).Scan(&position)
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}

	if err := insertParticipantTx(ctx, tx, p, position); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateParticipantTerms rewrites a participant's split configuration.
// Tiers are replaced wholesale; approval status is untouched, the
// workflow decides when an edit resets it.
func (s *SQLiteStore) UpdateParticipantTerms(ctx context.Context, p *models.DealParticipant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var managerID, overrideRate sql.NullString
	if p.Manager != nil {
		managerID = sql.NullString{String: p.Manager.ManagerID, Valid: true}
		overrideRate = nullableDecimal(p.Manager.OverrideRate)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE deal_participants SET
			party_role = ?, split_type = ?, split_percentage = ?,
			flat_fee_amount = ?, manager_id = ?, manager_override_rate = ?
		WHERE id = ? AND deal_id = ?`,
		p.PartyRole, p.SplitType, p.SplitPercentage.String(),
		p.FlatFeeAmount.String(), managerID, overrideRate, p.ID, p.DealID,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("participant %s: %w", p.ID, storage.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM participant_tiers WHERE participant_id = ?", p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear tiers: %w", err)
	}
	if err := insertTiersTx(ctx, tx, p); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RemoveParticipant deletes a participant; tiers cascade.
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, dealID, participantID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM deal_participants WHERE id = ? AND deal_id = ?",
		participantID, dealID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("participant %s: %w", participantID, storage.ErrNotFound)
	}
	return nil
}

// loadParticipants retrieves a deal's participants in insertion order,
// with their tiers.
func (s *SQLiteStore) loadParticipants(ctx context.Context, dealID string) ([]models.DealParticipant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, party_id, party_role, split_type, split_percentage,
			flat_fee_amount, approval_status, manager_id, manager_override_rate
		FROM deal_participants WHERE deal_id = ? ORDER BY position`,
		dealID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []models.DealParticipant
	for rows.Next() {
		p := models.DealParticipant{DealID: dealID}
		var splitPct, flatFee string
		var managerID, overrideRate sql.NullString
		err := rows.Scan(&p.ID, &p.PartyID, &p.PartyRole, &p.SplitType,
			&splitPct, &flatFee, &p.ApprovalStatus, &managerID, &overrideRate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if p.SplitPercentage, err = scanDecimal(splitPct); err != nil {
			return nil, err
		}
		if p.FlatFeeAmount, err = scanDecimal(flatFee); err != nil {
			return nil, err
		}
		if managerID.Valid {
			override, err := scanNullableDecimal(overrideRate)
			if err != nil {
				return nil, err
			}
			p.Manager = &models.ManagerRelationship{
				ManagerID:    managerID.String,
				OverrideRate: override,
			}
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	for i := range participants {
		if participants[i].Tiers, err = s.loadTiers(ctx, participants[i].ID); err != nil {
			return nil, err
		}
	}

	return participants, nil
}

func (s *SQLiteStore) loadTiers(ctx context.Context, participantID string) ([]models.Tier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT revenue_threshold, rate_percentage
		FROM participant_tiers WHERE participant_id = ? ORDER BY position`,
		participantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiers: %w", err)
	}
	defer rows.Close()

	var tiers []models.Tier
	for rows.Next() {
		var tier models.Tier
		var threshold, rate string
		if err := rows.Scan(&threshold, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan tier: %w", err)
		}
		if tier.RevenueThreshold, err = scanDecimal(threshold); err != nil {
			return nil, err
		}
		if tier.RatePercentage, err = scanDecimal(rate); err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tiers: %w", err)
	}

	return tiers, nil
}
