package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"scheduling-engine/core/constants"
	"scheduling-engine/core/database"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/timemath"
	"scheduling-engine/core/utils"
	availEntity "scheduling-engine/modules/availability/entity"
	"scheduling-engine/modules/booking/entity"
	"scheduling-engine/modules/booking/repository"

	"github.com/google/uuid"
)

type EventTypeReader interface {
	GetEventTypeByID(ctx context.Context, id uuid.UUID) (*availEntity.EventType, error)
}

// Draft is a booking that has passed validation and awaits commit.
type Draft struct {
	EventTypeID  uuid.UUID
	HostID       uuid.UUID
	GuestName    string
	GuestEmail   string
	GuestNotes   string
	Timezone     string
	Start        time.Time
	Duration     time.Duration
	BufferBefore time.Duration
	BufferAfter  time.Duration
}

// Tokens are the raw manage tokens. Only their hashes are stored.
type Tokens struct {
	Cancel     string `json:"cancel_token"`
	Reschedule string `json:"reschedule_token"`
}

// Ledger owns booking state. Every mutation runs under the host's lock on a
// context detached from the caller, bounded by constants.CommitTimeout.
type Ledger struct {
	repo       repository.BookingRepository
	eventTypes EventTypeReader
	now        func() time.Time
}

func NewLedger(repo repository.BookingRepository, eventTypes EventTypeReader) *Ledger {
	return &Ledger{repo: repo, eventTypes: eventTypes, now: time.Now}
}

// CheckConflict reports whether candidate, already expanded by buffers,
// overlaps any confirmed booking of the host other than excludeID.
func (l *Ledger) CheckConflict(ctx context.Context, hostID uuid.UUID, candidate timemath.Interval, excludeID uuid.UUID) (bool, error) {
	clash, err := l.repo.ListConfirmedOverlapping(ctx, hostID, candidate, excludeID)
	if err != nil {
		logger.Error("Ledger:CheckConflict:Error", "host_id", hostID, "error", err)
		return false, errors.NewAppError(errors.ErrInternalServer, "failed to check conflicts", err)
	}
	return len(clash) > 0, nil
}

// ListBlockedIntervals returns the blocked intervals of confirmed bookings
// overlapping window.
func (l *Ledger) ListBlockedIntervals(ctx context.Context, hostID uuid.UUID, window timemath.Interval) ([]timemath.Interval, error) {
	bookings, err := l.repo.ListConfirmedOverlapping(ctx, hostID, window, uuid.Nil)
	if err != nil {
		return nil, err
	}
	out := make([]timemath.Interval, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookings[i].Blocked())
	}
	return out, nil
}

func (l *Ledger) Create(ctx context.Context, d Draft) (*entity.Booking, *Tokens, error) {
	cancelToken, err := utils.NewManageToken()
	if err != nil {
		return nil, nil, errors.NewAppError(errors.ErrInternalServer, "failed to generate token", err)
	}
	rescheduleToken, err := utils.NewManageToken()
	if err != nil {
		return nil, nil, errors.NewAppError(errors.ErrInternalServer, "failed to generate token", err)
	}

	now := l.now().UTC()
	b := &entity.Booking{
		EventTypeID:         d.EventTypeID,
		HostID:              d.HostID,
		GuestName:           d.GuestName,
		GuestEmail:          d.GuestEmail,
		GuestNotes:          d.GuestNotes,
		BufferBeforeMinutes: int(d.BufferBefore / time.Minute),
		BufferAfterMinutes:  int(d.BufferAfter / time.Minute),
		Timezone:            d.Timezone,
		Status:              entity.StatusConfirmed,
		CancelTokenHash:     utils.HashToken(cancelToken),
		RescheduleTokenHash: utils.HashToken(rescheduleToken),
		Version:             1,
	}
	b.ID = uuid.New()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.SetTimes(d.Start, d.Duration)

	err = l.commit(ctx, d.HostID, func(tx repository.Tx) error {
		clash, err := tx.ListConfirmedOverlapping(ctx, d.HostID, b.Blocked(), uuid.Nil)
		if err != nil {
			return err
		}
		if len(clash) > 0 {
			return errors.NewAppError(errors.ErrConflict, "the selected time is no longer available", nil)
		}
		return tx.Insert(ctx, b)
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Ledger:Create:Success", "booking_id", b.ID, "host_id", b.HostID, "start", b.StartTime)
	return b, &Tokens{Cancel: cancelToken, Reschedule: rescheduleToken}, nil
}

// Reschedule moves a booking, keeping its buffer snapshot and tokens. The end
// is recomputed from the event type's current duration. The booking's
// external calendar event is detached and its id returned for deletion.
func (l *Ledger) Reschedule(ctx context.Context, bookingID uuid.UUID, newStart time.Time) (*entity.Booking, string, error) {
	current, err := l.Get(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	et, err := l.eventTypes.GetEventTypeByID(ctx, current.EventTypeID)
	if err != nil {
		return nil, "", err
	}

	var updated *entity.Booking
	var detached string
	err = l.commit(ctx, current.HostID, func(tx repository.Tx) error {
		b, err := tx.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := ensureActive(b); err != nil {
			return err
		}
		if b.StartTime.Equal(newStart) {
			return errors.NewAppError(errors.ErrNoOpReschedule, "booking is already at this time", nil)
		}

		now := l.now().UTC()
		b.SetTimes(newStart, et.Duration())
		clash, err := tx.ListConfirmedOverlapping(ctx, b.HostID, b.Blocked(), b.ID)
		if err != nil {
			return err
		}
		if len(clash) > 0 {
			return errors.NewAppError(errors.ErrConflict, "the selected time is no longer available", nil)
		}
		detached = detachEvent(b)
		b.BriefInvalidatedAt = &now
		b.Version++
		b.UpdatedAt = now
		if err := tx.Update(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	logger.Info("Ledger:Reschedule:Success", "booking_id", bookingID, "start", updated.StartTime, "version", updated.Version)
	return updated, detached, nil
}

// Cancel marks a booking cancelled and detaches its external calendar event.
func (l *Ledger) Cancel(ctx context.Context, bookingID uuid.UUID, reason string) (*entity.Booking, string, error) {
	current, err := l.Get(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}

	var updated *entity.Booking
	var detached string
	err = l.commit(ctx, current.HostID, func(tx repository.Tx) error {
		b, err := tx.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := ensureActive(b); err != nil {
			return err
		}
		now := l.now().UTC()
		detached = detachEvent(b)
		b.Status = entity.StatusCancelled
		b.CancellationReason = TruncateReason(reason)
		b.Version++
		b.UpdatedAt = now
		if err := tx.Update(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	logger.Info("Ledger:Cancel:Success", "booking_id", bookingID, "version", updated.Version)
	return updated, detached, nil
}

// MarkOutcome records completed or no_show for a confirmed booking.
func (l *Ledger) MarkOutcome(ctx context.Context, bookingID uuid.UUID, outcome entity.BookingStatus) (*entity.Booking, error) {
	if !outcome.IsOutcome() {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "outcome must be completed or no_show", nil)
	}
	current, err := l.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var updated *entity.Booking
	err = l.commit(ctx, current.HostID, func(tx repository.Tx) error {
		b, err := tx.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := ensureActive(b); err != nil {
			return err
		}
		b.Status = outcome
		b.Version++
		b.UpdatedAt = l.now().UTC()
		if err := tx.Update(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (l *Ledger) Get(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	b, err := l.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return b, nil
}

func (l *Ledger) FindByCancelToken(ctx context.Context, token string) (*entity.Booking, error) {
	hash := utils.HashToken(token)
	b, err := l.repo.GetByCancelTokenHash(ctx, hash)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if !utils.TokensEqual(b.CancelTokenHash, hash) {
		return nil, errors.NewAppError(errors.ErrNotFound, "booking not found", nil)
	}
	return b, nil
}

func (l *Ledger) FindByRescheduleToken(ctx context.Context, token string) (*entity.Booking, error) {
	hash := utils.HashToken(token)
	b, err := l.repo.GetByRescheduleTokenHash(ctx, hash)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if !utils.TokensEqual(b.RescheduleTokenHash, hash) {
		return nil, errors.NewAppError(errors.ErrNotFound, "booking not found", nil)
	}
	return b, nil
}

func (l *Ledger) ListHostBookings(ctx context.Context, hostID uuid.UUID, window timemath.Interval) ([]entity.Booking, error) {
	bookings, err := l.repo.ListByHost(ctx, hostID, window)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to list bookings", err)
	}
	if bookings == nil {
		bookings = []entity.Booking{}
	}
	return bookings, nil
}

// SetCalendarEventID links an external event to the booking at version. It
// returns false when the booking has moved on since.
func (l *Ledger) SetCalendarEventID(ctx context.Context, bookingID uuid.UUID, version int, eventID string) (bool, error) {
	err := l.repo.SetCalendarEventID(ctx, bookingID, version, &eventID)
	if stderrors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Ledger) commit(ctx context.Context, hostID uuid.UUID, fn func(tx repository.Tx) error) error {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.CommitTimeout)
	defer cancel()

	err := l.repo.WithHostLock(commitCtx, hostID, fn)
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, database.ErrExclusionViolation):
		return errors.NewAppError(errors.ErrConflict, "the selected time is no longer available", err)
	case stderrors.Is(err, database.ErrNotFound):
		return errors.NewAppError(errors.ErrNotFound, "booking not found", nil)
	case stderrors.Is(err, context.DeadlineExceeded):
		logger.Error("Ledger:Commit:Timeout", "host_id", hostID)
		return errors.NewAppError(errors.ErrInternalServer, "booking commit timed out", err)
	default:
		logger.Error("Ledger:Commit:Error", "host_id", hostID, "error", err)
		return errors.NewAppError(errors.ErrInternalServer, "failed to save booking", err)
	}
}

func detachEvent(b *entity.Booking) string {
	if b.CalendarEventID == nil {
		return ""
	}
	id := *b.CalendarEventID
	b.CalendarEventID = nil
	return id
}

func ensureActive(b *entity.Booking) error {
	switch b.Status {
	case entity.StatusConfirmed:
		return nil
	case entity.StatusCancelled:
		return errors.NewAppError(errors.ErrAlreadyCancelled, "booking is already cancelled", nil)
	default:
		return errors.NewAppError(errors.ErrInvalidInput, "booking is no longer active", nil)
	}
}

func notFoundOr(err error) error {
	if stderrors.Is(err, database.ErrNotFound) {
		return errors.NewAppError(errors.ErrNotFound, "booking not found", nil)
	}
	return errors.NewAppError(errors.ErrInternalServer, "failed to load booking", err)
}

// TruncateReason trims and caps a cancellation reason, keeping its prefix.
// An empty reason is stored as NULL.
func TruncateReason(reason string) *string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil
	}
	if runes := []rune(reason); len(runes) > constants.MaxCancellationReasonLength {
		reason = string(runes[:constants.MaxCancellationReasonLength])
	}
	return &reason
}
