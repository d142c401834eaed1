// Package migrations applies the database schema. Statements are idempotent
// so Apply can run on every boot.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS catalog_users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		eid TEXT NOT NULL DEFAULT '',
		firstname TEXT NOT NULL DEFAULT '',
		lastname TEXT NOT NULL DEFAULT '',
		phone_no TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		about_me TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT true,
		is_admin BOOLEAN NOT NULL DEFAULT false,
		is_verified BOOLEAN NOT NULL DEFAULT false,
		last_login TIMESTAMPTZ,
		last_resend_code TIMESTAMPTZ,
		date_joined TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS catalog_users_email_idx ON catalog_users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS catalog_account_codes (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL UNIQUE REFERENCES catalog_users (id) ON DELETE CASCADE,
		reg_code TEXT,
		reset_code TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS catalog_account_codes_reg_idx ON catalog_account_codes (reg_code)`,
	`CREATE TABLE IF NOT EXISTS catalog_apps (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		long_description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		stack TEXT NOT NULL DEFAULT '',
		development_stage TEXT NOT NULL DEFAULT '',
		version TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		playstore_link TEXT NOT NULL DEFAULT '',
		appstore_link TEXT NOT NULL DEFAULT '',
		external_link TEXT NOT NULL DEFAULT '',
		clicks BIGINT NOT NULL DEFAULT 0,
		views BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS catalog_apps_name_idx ON catalog_apps (name, category)`,
	`CREATE TABLE IF NOT EXISTS catalog_app_versions (
		id UUID PRIMARY KEY,
		app_id UUID NOT NULL REFERENCES catalog_apps (id) ON DELETE CASCADE,
		version TEXT NOT NULL DEFAULT '',
		release_notes TEXT NOT NULL DEFAULT '',
		release_type TEXT NOT NULL DEFAULT 'IN_DEVELOPMENT',
		is_upgrade BOOLEAN NOT NULL DEFAULT false,
		release_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS catalog_app_versions_app_idx ON catalog_app_versions (app_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS catalog_likes (
		id UUID PRIMARY KEY,
		app_id UUID NOT NULL UNIQUE,
		user_ids JSONB NOT NULL DEFAULT '[]',
		status BOOLEAN NOT NULL DEFAULT true,
		count BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_feedback (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		long_description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		external_link TEXT NOT NULL DEFAULT '',
		clicks BIGINT NOT NULL DEFAULT 0,
		views BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_timeline (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		app_id UUID,
		entity TEXT NOT NULL,
		category TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS catalog_timeline_idx ON catalog_timeline (user_id, app_id, entity, category)`,
}

// Apply executes every schema statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
