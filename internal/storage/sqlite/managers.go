package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/models"
)

// UpsertManager registers a manager and their default commission rate.
func (s *SQLiteStore) UpsertManager(ctx context.Context, m models.Manager) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO managers (id, name, default_rate) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, default_rate = excluded.default_rate`,
		m.ID, m.Name, nullableDecimal(m.DefaultRate),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert manager: %w", err)
	}
	return nil
}

// CommissionRate resolves a participant's commission rate: the
// relationship's override wins, then the manager's default, then nil
// for no deduction. An unknown manager ID also resolves to nil so a
// registry gap never blocks settlement.
func (s *SQLiteStore) CommissionRate(ctx context.Context, p *models.DealParticipant) (*decimal.Decimal, error) {
	if p.Manager == nil {
		return nil, nil
	}
	if p.Manager.OverrideRate != nil {
		rate := *p.Manager.OverrideRate
		return &rate, nil
	}

	var defaultRate sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT default_rate FROM managers WHERE id = ?", p.Manager.ManagerID,
	).Scan(&defaultRate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get manager: %w", err)
	}

	return scanNullableDecimal(defaultRate)
}
