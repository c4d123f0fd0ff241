package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gigledger/gigledger/internal/eventlog"
)

// Ensure SQLiteStore can back the event worker
var _ eventlog.Recorder = (*SQLiteStore)(nil)

// SaveEvent persists one lifecycle transition event.
func (s *SQLiteStore) SaveEvent(ctx context.Context, e eventlog.Event) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO deal_events (id, deal_id, kind, participant_ids, created_at) VALUES (?, ?, ?, ?, ?)",
		e.ID.String(), e.DealID, e.Kind,
		strings.Join(e.ParticipantIDs, ","), e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// EventsByDeal retrieves a deal's transition feed, oldest first.
func (s *SQLiteStore) EventsByDeal(ctx context.Context, dealID string) ([]eventlog.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deal_id, kind, participant_ids, created_at
		FROM deal_events WHERE deal_id = ? ORDER BY created_at, id`,
		dealID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []eventlog.Event
	for rows.Next() {
		var e eventlog.Event
		var id, participantIDs string
		var createdAt int64
		if err := rows.Scan(&id, &e.DealID, &e.Kind, &participantIDs, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid stored event id %q: %w", id, err)
		}
		if participantIDs != "" {
			e.ParticipantIDs = strings.Split(participantIDs, ",")
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}
