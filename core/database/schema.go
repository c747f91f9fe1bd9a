package database

import (
	"context"
	"fmt"

	"scheduling-engine/core/logger"
)

// schema is idempotent. The exclusion constraint on bookings backs up the
// per-host advisory lock: two confirmed bookings of one host can never hold
// overlapping blocked ranges.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`CREATE TABLE IF NOT EXISTS availability_rules (
		host_id UUID PRIMARY KEY,
		host_email TEXT NOT NULL,
		host_name TEXT NOT NULL DEFAULT '',
		timezone TEXT NOT NULL,
		weekly_hours JSONB NOT NULL,
		min_notice_minutes INT NOT NULL DEFAULT 0 CHECK (min_notice_minutes >= 0),
		max_advance_days INT NOT NULL DEFAULT 60 CHECK (max_advance_days >= 1),
		default_buffer_before_minutes INT NOT NULL DEFAULT 0,
		default_buffer_after_minutes INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS event_types (
		id UUID PRIMARY KEY,
		host_id UUID NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		duration_minutes INT NOT NULL CHECK (duration_minutes > 0),
		buffer_before_minutes INT,
		buffer_after_minutes INT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_types_host ON event_types (host_id)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		event_type_id UUID NOT NULL REFERENCES event_types (id),
		host_id UUID NOT NULL,
		guest_name TEXT NOT NULL,
		guest_email TEXT NOT NULL,
		guest_notes TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		buffer_before_minutes INT NOT NULL DEFAULT 0,
		buffer_after_minutes INT NOT NULL DEFAULT 0,
		blocked_start TIMESTAMPTZ NOT NULL,
		blocked_end TIMESTAMPTZ NOT NULL,
		timezone TEXT NOT NULL,
		status TEXT NOT NULL,
		cancel_token_hash TEXT NOT NULL UNIQUE,
		reschedule_token_hash TEXT NOT NULL UNIQUE,
		cancellation_reason TEXT,
		calendar_event_id TEXT,
		version INT NOT NULL DEFAULT 1,
		brief_invalidated_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (end_time > start_time),
		CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
			host_id WITH =,
			tstzrange(blocked_start, blocked_end, '[)') WITH &&
		) WHERE (status = 'confirmed')
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_host_range ON bookings (host_id, blocked_start, blocked_end)`,
	`CREATE TABLE IF NOT EXISTS calendar_connections (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		provider TEXT NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		token_expires_at TIMESTAMPTZ NOT NULL,
		calendar_email TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, provider)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		user_id UUID,
		recipient TEXT NOT NULL,
		template TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		data JSONB NOT NULL DEFAULT '{}',
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS notification_preferences (
		recipient TEXT PRIMARY KEY,
		new_booking BOOLEAN NOT NULL DEFAULT TRUE,
		cancellation BOOLEAN NOT NULL DEFAULT TRUE,
		reschedule BOOLEAN NOT NULL DEFAULT TRUE,
		daily_digest BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func (d *Database) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := d.sqlx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	logger.Info("Database:Migrate:Success", "statements", len(schema))
	return nil
}
