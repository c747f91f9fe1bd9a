package repository

import (
	"context"
	"fmt"

	"scheduling-engine/core/database"
	"scheduling-engine/core/timemath"
	"scheduling-engine/modules/booking/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Tx is the view of the store available while a host's lock is held.
type Tx interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	ListConfirmedOverlapping(ctx context.Context, hostID uuid.UUID, window timemath.Interval, excludeID uuid.UUID) ([]entity.Booking, error)
	Insert(ctx context.Context, b *entity.Booking) error
	Update(ctx context.Context, b *entity.Booking) error
}

type BookingRepository interface {
	// WithHostLock serializes fn against every other mutation of the same
	// host. Different hosts never contend.
	WithHostLock(ctx context.Context, hostID uuid.UUID, fn func(tx Tx) error) error

	GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	GetByCancelTokenHash(ctx context.Context, hash string) (*entity.Booking, error)
	GetByRescheduleTokenHash(ctx context.Context, hash string) (*entity.Booking, error)
	ListConfirmedOverlapping(ctx context.Context, hostID uuid.UUID, window timemath.Interval, excludeID uuid.UUID) ([]entity.Booking, error)
	ListByHost(ctx context.Context, hostID uuid.UUID, window timemath.Interval) ([]entity.Booking, error)
	// SetCalendarEventID records the external event only while the booking is
	// still at version. A mismatch returns database.ErrNotFound.
	SetCalendarEventID(ctx context.Context, id uuid.UUID, version int, eventID *string) error
}

const bookingColumns = `id, event_type_id, host_id, guest_name, guest_email, guest_notes, start_time, end_time,
	buffer_before_minutes, buffer_after_minutes, blocked_start, blocked_end, timezone, status,
	cancel_token_hash, reschedule_token_hash, cancellation_reason, calendar_event_id, version,
	brief_invalidated_at, created_at, updated_at`

type bookingRepository struct {
	db database.IDatabase
}

func NewBookingRepository(db database.IDatabase) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) WithHostLock(ctx context.Context, hostID uuid.UUID, fn func(tx Tx) error) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, hostID.String()); err != nil {
			return fmt.Errorf("acquire host lock: %w", err)
		}
		return fn(&pgTx{ext: tx})
	})
}

func (r *bookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return getOne(ctx, r.db.SQLx(), `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *bookingRepository) GetByCancelTokenHash(ctx context.Context, hash string) (*entity.Booking, error) {
	return getOne(ctx, r.db.SQLx(), `SELECT `+bookingColumns+` FROM bookings WHERE cancel_token_hash = $1`, hash)
}

func (r *bookingRepository) GetByRescheduleTokenHash(ctx context.Context, hash string) (*entity.Booking, error) {
	return getOne(ctx, r.db.SQLx(), `SELECT `+bookingColumns+` FROM bookings WHERE reschedule_token_hash = $1`, hash)
}

func (r *bookingRepository) ListConfirmedOverlapping(ctx context.Context, hostID uuid.UUID, window timemath.Interval, excludeID uuid.UUID) ([]entity.Booking, error) {
	return listOverlapping(ctx, r.db.SQLx(), hostID, window, excludeID)
}

func (r *bookingRepository) ListByHost(ctx context.Context, hostID uuid.UUID, window timemath.Interval) ([]entity.Booking, error) {
	var out []entity.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE host_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time`
	if err := r.db.SelectContext(ctx, &out, query, hostID, window.Start, window.End); err != nil {
		return nil, database.MapError(err)
	}
	return out, nil
}

func (r *bookingRepository) SetCalendarEventID(ctx context.Context, id uuid.UUID, version int, eventID *string) error {
	var updated uuid.UUID
	query := `UPDATE bookings SET calendar_event_id = $1, updated_at = NOW()
		WHERE id = $2 AND version = $3 AND status = 'confirmed'
		RETURNING id`
	if err := r.db.GetContext(ctx, &updated, query, eventID, id, version); err != nil {
		return database.MapError(err)
	}
	return nil
}

type pgTx struct {
	ext sqlx.ExtContext
}

func (t *pgTx) GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return getOne(ctx, t.ext, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (t *pgTx) ListConfirmedOverlapping(ctx context.Context, hostID uuid.UUID, window timemath.Interval, excludeID uuid.UUID) ([]entity.Booking, error) {
	return listOverlapping(ctx, t.ext, hostID, window, excludeID)
}

func (t *pgTx) Insert(ctx context.Context, b *entity.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (
		:id, :event_type_id, :host_id, :guest_name, :guest_email, :guest_notes, :start_time, :end_time,
		:buffer_before_minutes, :buffer_after_minutes, :blocked_start, :blocked_end, :timezone, :status,
		:cancel_token_hash, :reschedule_token_hash, :cancellation_reason, :calendar_event_id, :version,
		:brief_invalidated_at, :created_at, :updated_at)`
	_, err := sqlx.NamedExecContext(ctx, t.ext, query, b)
	return database.MapError(err)
}

func (t *pgTx) Update(ctx context.Context, b *entity.Booking) error {
	query := `UPDATE bookings SET
		start_time = :start_time,
		end_time = :end_time,
		blocked_start = :blocked_start,
		blocked_end = :blocked_end,
		status = :status,
		cancellation_reason = :cancellation_reason,
		calendar_event_id = :calendar_event_id,
		version = :version,
		brief_invalidated_at = :brief_invalidated_at,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, t.ext, query, b)
	if err != nil {
		return database.MapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func getOne(ctx context.Context, q sqlx.QueryerContext, query string, arg any) (*entity.Booking, error) {
	var b entity.Booking
	if err := sqlx.GetContext(ctx, q, &b, query, arg); err != nil {
		return nil, database.MapError(err)
	}
	return &b, nil
}

func listOverlapping(ctx context.Context, q sqlx.QueryerContext, hostID uuid.UUID, window timemath.Interval, excludeID uuid.UUID) ([]entity.Booking, error) {
	var out []entity.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE host_id = $1 AND status = 'confirmed' AND id <> $2
		AND blocked_start < $4 AND blocked_end > $3
		ORDER BY blocked_start`
	if err := sqlx.SelectContext(ctx, q, &out, query, hostID, excludeID, window.Start, window.End); err != nil {
		return nil, database.MapError(err)
	}
	return out, nil
}
