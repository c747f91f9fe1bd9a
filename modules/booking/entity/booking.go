package entity

import (
	"time"

	"scheduling-engine/core/entity"
	"scheduling-engine/core/timemath"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
	StatusNoShow    BookingStatus = "no_show"
)

func (s BookingStatus) IsOutcome() bool {
	return s == StatusCompleted || s == StatusNoShow
}

type Booking struct {
	entity.BaseEntity
	EventTypeID         uuid.UUID     `db:"event_type_id" json:"event_type_id"`
	HostID              uuid.UUID     `db:"host_id" json:"host_id"`
	GuestName           string        `db:"guest_name" json:"guest_name"`
	GuestEmail          string        `db:"guest_email" json:"guest_email"`
	GuestNotes          string        `db:"guest_notes" json:"guest_notes"`
	StartTime           time.Time     `db:"start_time" json:"start_time"`
	EndTime             time.Time     `db:"end_time" json:"end_time"`
	BufferBeforeMinutes int           `db:"buffer_before_minutes" json:"buffer_before_minutes"`
	BufferAfterMinutes  int           `db:"buffer_after_minutes" json:"buffer_after_minutes"`
	BlockedStart        time.Time     `db:"blocked_start" json:"-"`
	BlockedEnd          time.Time     `db:"blocked_end" json:"-"`
	Timezone            string        `db:"timezone" json:"timezone"`
	Status              BookingStatus `db:"status" json:"status"`
	CancelTokenHash     string        `db:"cancel_token_hash" json:"-"`
	RescheduleTokenHash string        `db:"reschedule_token_hash" json:"-"`
	CancellationReason  *string       `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CalendarEventID     *string       `db:"calendar_event_id" json:"calendar_event_id,omitempty"`
	Version             int           `db:"version" json:"version"`
	BriefInvalidatedAt  *time.Time    `db:"brief_invalidated_at" json:"brief_invalidated_at,omitempty"`
}

func (b *Booking) BufferBefore() time.Duration {
	return time.Duration(b.BufferBeforeMinutes) * time.Minute
}

func (b *Booking) BufferAfter() time.Duration {
	return time.Duration(b.BufferAfterMinutes) * time.Minute
}

// SetTimes moves the booking and recomputes its blocked interval from the
// buffer snapshot.
func (b *Booking) SetTimes(start time.Time, duration time.Duration) {
	b.StartTime = start.UTC()
	b.EndTime = start.Add(duration).UTC()
	blocked := b.Blocked()
	b.BlockedStart = blocked.Start
	b.BlockedEnd = blocked.End
}

// Blocked is [start - bufferBefore, end + bufferAfter).
func (b *Booking) Blocked() timemath.Interval {
	return timemath.Interval{Start: b.StartTime, End: b.EndTime}.Expand(b.BufferBefore(), b.BufferAfter()).UTC()
}

func (b *Booking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}
