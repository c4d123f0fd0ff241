package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Monetary values are stored as decimal strings, never floats, so the
// amounts round-trip exactly.
const schema = `
CREATE TABLE IF NOT EXISTS deals (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL,
    name TEXT NOT NULL,
    deal_type TEXT NOT NULL,
    status TEXT NOT NULL,
    total_revenue TEXT NOT NULL,
    currency TEXT NOT NULL,
    gst_treatment TEXT NOT NULL,
    created_by TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    submitted_at INTEGER NOT NULL DEFAULT 0,
    approved_at INTEGER NOT NULL DEFAULT 0,
    settled_at INTEGER NOT NULL DEFAULT 0,
    cancelled_at INTEGER NOT NULL DEFAULT 0,
    settled_by TEXT NOT NULL DEFAULT '',
    cancelled_by TEXT NOT NULL DEFAULT '',
    cancellation_reason TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS deal_participants (
    id TEXT PRIMARY KEY,
    deal_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    party_id TEXT NOT NULL,
    party_role TEXT NOT NULL,
    split_type TEXT NOT NULL,
    split_percentage TEXT NOT NULL,
    flat_fee_amount TEXT NOT NULL,
    approval_status TEXT NOT NULL,
    manager_id TEXT,
    manager_override_rate TEXT,
    FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS participant_tiers (
    participant_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    revenue_threshold TEXT NOT NULL,
    rate_percentage TEXT NOT NULL,
    PRIMARY KEY (participant_id, position),
    FOREIGN KEY (participant_id) REFERENCES deal_participants(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS managers (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    default_rate TEXT
);

CREATE TABLE IF NOT EXISTS settlement_lines (
    deal_id TEXT NOT NULL,
    participant_id TEXT NOT NULL,
    gross_amount TEXT NOT NULL,
    commission_deducted TEXT NOT NULL,
    tax_amount TEXT NOT NULL,
    net_amount TEXT NOT NULL,
    should_invoice INTEGER NOT NULL,
    direction TEXT NOT NULL,
    absolute_amount TEXT NOT NULL,
    PRIMARY KEY (deal_id, participant_id),
    FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS deal_events (
    id TEXT PRIMARY KEY,
    deal_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    participant_ids TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deals_event_id ON deals(event_id);
CREATE INDEX IF NOT EXISTS idx_deal_participants_deal_id ON deal_participants(deal_id);
CREATE INDEX IF NOT EXISTS idx_participant_tiers_participant_id ON participant_tiers(participant_id);
CREATE INDEX IF NOT EXISTS idx_settlement_lines_deal_id ON settlement_lines(deal_id);
CREATE INDEX IF NOT EXISTS idx_deal_events_deal_id ON deal_events(deal_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
