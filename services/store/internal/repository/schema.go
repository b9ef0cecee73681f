package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            BIGSERIAL PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash TEXT NOT NULL,
		name          VARCHAR(255) NOT NULL,
		role          VARCHAR(32) NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_by    VARCHAR(255) NOT NULL DEFAULT '',
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_by    VARCHAR(255) NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_accounts_email ON accounts (LOWER(email))`,
	`CREATE TABLE IF NOT EXISTS categories (
		id         BIGSERIAL PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		parent_id  BIGINT NULL REFERENCES categories (id),
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_by VARCHAR(255) NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_by VARCHAR(255) NOT NULL DEFAULT '',
		CONSTRAINT ck_categories_not_self_parent CHECK (parent_id IS NULL OR parent_id <> id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_categories_name_active ON categories (LOWER(name)) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS orchids (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url   TEXT NOT NULL DEFAULT '',
		price       NUMERIC(18, 2) NOT NULL CHECK (price > 0),
		is_natural  BOOLEAN NOT NULL DEFAULT FALSE,
		category_id BIGINT NOT NULL REFERENCES categories (id),
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_by  VARCHAR(255) NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_by  VARCHAR(255) NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_orchids_name_active ON orchids (LOWER(name)) WHERE is_active`,
	`CREATE INDEX IF NOT EXISTS ix_orchids_category ON orchids (category_id) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS orders (
		id         BIGSERIAL PRIMARY KEY,
		account_id BIGINT NOT NULL REFERENCES accounts (id),
		order_date TIMESTAMPTZ NOT NULL,
		status     VARCHAR(32) NOT NULL,
		total      NUMERIC(18, 2) NOT NULL DEFAULT 0,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_by VARCHAR(255) NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_by VARCHAR(255) NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS ix_orders_account ON orders (account_id, order_date DESC)`,
	`CREATE TABLE IF NOT EXISTS order_details (
		id         BIGSERIAL PRIMARY KEY,
		order_id   BIGINT NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
		orchid_id  BIGINT NOT NULL REFERENCES orchids (id),
		price      NUMERIC(18, 2) NOT NULL,
		quantity   INT NOT NULL CHECK (quantity > 0),
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_by VARCHAR(255) NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_by VARCHAR(255) NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS ix_order_details_order ON order_details (order_id)`,
	`CREATE TABLE IF NOT EXISTS payment_attempts (
		id               BIGSERIAL PRIMARY KEY,
		order_id         BIGINT NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
		request_id       VARCHAR(64) NOT NULL,
		gateway_order_id VARCHAR(64) NOT NULL UNIQUE,
		amount           NUMERIC(18, 2) NOT NULL,
		pay_url          TEXT NOT NULL DEFAULT '',
		qr_code_url      TEXT NOT NULL DEFAULT '',
		deeplink         TEXT NOT NULL DEFAULT '',
		status           VARCHAR(16) NOT NULL DEFAULT 'PENDING',
		result_code      INT NULL,
		trans_id         BIGINT NULL,
		message          TEXT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_payment_attempts_order ON payment_attempts (order_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id             BIGSERIAL PRIMARY KEY,
		aggregate_type VARCHAR(64) NOT NULL,
		aggregate_id   BIGINT NOT NULL,
		event_type     VARCHAR(128) NOT NULL,
		payload        JSONB NOT NULL,
		status         VARCHAR(16) NOT NULL DEFAULT 'PENDING',
		attempts       INT NOT NULL DEFAULT 0,
		last_error     TEXT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		sent_at        TIMESTAMPTZ NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_outbox_events_pending ON outbox_events (created_at) WHERE status = 'PENDING'`,
}

// Migrate 스키마 생성 (멱등)
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
