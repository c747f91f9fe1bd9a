package repository

import (
	"context"

	"scheduling-engine/core/database"
	"scheduling-engine/modules/availability/entity"

	"github.com/google/uuid"
)

type AvailabilityRepository interface {
	GetRules(ctx context.Context, hostID uuid.UUID) (*entity.AvailabilityRules, error)
	UpsertRules(ctx context.Context, rules *entity.AvailabilityRules) error
	ListRules(ctx context.Context) ([]entity.AvailabilityRules, error)

	CreateEventType(ctx context.Context, et *entity.EventType) error
	UpdateEventType(ctx context.Context, et *entity.EventType) error
	GetEventTypeByID(ctx context.Context, id uuid.UUID) (*entity.EventType, error)
	GetEventTypeBySlug(ctx context.Context, slug string) (*entity.EventType, error)
	ListEventTypes(ctx context.Context, hostID uuid.UUID) ([]entity.EventType, error)
}

type availabilityRepository struct {
	db database.IDatabase
}

func NewAvailabilityRepository(db database.IDatabase) AvailabilityRepository {
	return &availabilityRepository{db: db}
}

const rulesColumns = `host_id, host_email, host_name, timezone, weekly_hours, min_notice_minutes,
	max_advance_days, default_buffer_before_minutes, default_buffer_after_minutes, created_at, updated_at`

func (r *availabilityRepository) GetRules(ctx context.Context, hostID uuid.UUID) (*entity.AvailabilityRules, error) {
	var rules entity.AvailabilityRules
	query := `SELECT ` + rulesColumns + ` FROM availability_rules WHERE host_id = $1`
	if err := r.db.GetContext(ctx, &rules, query, hostID); err != nil {
		return nil, database.MapError(err)
	}
	return &rules, nil
}

func (r *availabilityRepository) UpsertRules(ctx context.Context, rules *entity.AvailabilityRules) error {
	query := `
		INSERT INTO availability_rules (host_id, host_email, host_name, timezone, weekly_hours,
			min_notice_minutes, max_advance_days, default_buffer_before_minutes, default_buffer_after_minutes,
			created_at, updated_at)
		VALUES (:host_id, :host_email, :host_name, :timezone, :weekly_hours,
			:min_notice_minutes, :max_advance_days, :default_buffer_before_minutes, :default_buffer_after_minutes,
			:created_at, :updated_at)
		ON CONFLICT (host_id) DO UPDATE SET
			host_email = EXCLUDED.host_email,
			host_name = EXCLUDED.host_name,
			timezone = EXCLUDED.timezone,
			weekly_hours = EXCLUDED.weekly_hours,
			min_notice_minutes = EXCLUDED.min_notice_minutes,
			max_advance_days = EXCLUDED.max_advance_days,
			default_buffer_before_minutes = EXCLUDED.default_buffer_before_minutes,
			default_buffer_after_minutes = EXCLUDED.default_buffer_after_minutes,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.NamedExecContext(ctx, query, rules)
	return database.MapError(err)
}

func (r *availabilityRepository) ListRules(ctx context.Context) ([]entity.AvailabilityRules, error) {
	var rules []entity.AvailabilityRules
	query := `SELECT ` + rulesColumns + ` FROM availability_rules ORDER BY host_id`
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, database.MapError(err)
	}
	return rules, nil
}

const eventTypeColumns = `id, host_id, slug, title, duration_minutes, buffer_before_minutes,
	buffer_after_minutes, is_active, created_at, updated_at`

func (r *availabilityRepository) CreateEventType(ctx context.Context, et *entity.EventType) error {
	query := `
		INSERT INTO event_types (` + eventTypeColumns + `)
		VALUES (:id, :host_id, :slug, :title, :duration_minutes, :buffer_before_minutes,
			:buffer_after_minutes, :is_active, :created_at, :updated_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, et)
	return database.MapError(err)
}

func (r *availabilityRepository) UpdateEventType(ctx context.Context, et *entity.EventType) error {
	query := `
		UPDATE event_types SET
			title = :title,
			duration_minutes = :duration_minutes,
			buffer_before_minutes = :buffer_before_minutes,
			buffer_after_minutes = :buffer_after_minutes,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, et)
	if err != nil {
		return database.MapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (r *availabilityRepository) GetEventTypeByID(ctx context.Context, id uuid.UUID) (*entity.EventType, error) {
	var et entity.EventType
	query := `SELECT ` + eventTypeColumns + ` FROM event_types WHERE id = $1`
	if err := r.db.GetContext(ctx, &et, query, id); err != nil {
		return nil, database.MapError(err)
	}
	return &et, nil
}

func (r *availabilityRepository) GetEventTypeBySlug(ctx context.Context, slug string) (*entity.EventType, error) {
	var et entity.EventType
	query := `SELECT ` + eventTypeColumns + ` FROM event_types WHERE slug = $1`
	if err := r.db.GetContext(ctx, &et, query, slug); err != nil {
		return nil, database.MapError(err)
	}
	return &et, nil
}

func (r *availabilityRepository) ListEventTypes(ctx context.Context, hostID uuid.UUID) ([]entity.EventType, error) {
	var ets []entity.EventType
	query := `SELECT ` + eventTypeColumns + ` FROM event_types WHERE host_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &ets, query, hostID); err != nil {
		return nil, database.MapError(err)
	}
	return ets, nil
}
