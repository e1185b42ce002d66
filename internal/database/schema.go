package database

import (
	"context"
	"fmt"
)

// schema is applied at startup. Every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS unlock_codes (
	id                UUID PRIMARY KEY,
	code              TEXT NOT NULL,
	issuing_device_id TEXT,
	payment_reference TEXT NOT NULL,
	used_count        INTEGER NOT NULL DEFAULT 0,
	max_uses          INTEGER NOT NULL,
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_used_at      TIMESTAMPTZ,
	CONSTRAINT unlock_codes_code_key UNIQUE (code),
	CONSTRAINT unlock_codes_payment_reference_key UNIQUE (payment_reference),
	CONSTRAINT unlock_codes_used_count_check CHECK (used_count >= 0 AND used_count <= max_uses),
	CONSTRAINT unlock_codes_exhausted_inactive_check CHECK (used_count < max_uses OR active = FALSE)
);

CREATE TABLE IF NOT EXISTS paid_devices (
	device_id         TEXT PRIMARY KEY,
	unlock_code       TEXT NOT NULL REFERENCES unlock_codes (code),
	payment_reference TEXT NOT NULL,
	amount            BIGINT NOT NULL DEFAULT 0,
	currency          TEXT NOT NULL DEFAULT '',
	paid_at           TIMESTAMPTZ NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_paid_devices_unlock_code ON paid_devices (unlock_code);
`

// Constraint names referenced when classifying unique violations.
const (
	ConstraintUnlockCode       = "unlock_codes_code_key"
	ConstraintPaymentReference = "unlock_codes_payment_reference_key"
)

// Migrate creates the tables this service owns.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
