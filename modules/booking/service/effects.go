package service

import (
	"context"
	"time"

	"scheduling-engine/core/timemath"
	"scheduling-engine/modules/booking/entity"
	briefEntity "scheduling-engine/modules/brief/entity"

	"github.com/google/uuid"
)

// Notification templates.
const (
	TemplateBookingCreated     = "booking_created"
	TemplateBookingRescheduled = "booking_rescheduled"
	TemplateBookingCancelled   = "booking_cancelled"
	TemplateDailyDigest        = "daily_digest"
)

type BusyCalendar interface {
	GetBusyIntervals(ctx context.Context, hostID uuid.UUID, start, end time.Time) ([]timemath.Interval, error)
	CreateEvent(ctx context.Context, hostID uuid.UUID, b *entity.Booking) (string, error)
	DeleteEvent(ctx context.Context, hostID uuid.UUID, externalID string) error
}

type NotificationDispatcher interface {
	Send(ctx context.Context, template, recipient string, data map[string]any) error
}

// ArtifactStore holds derived per-booking artifacts such as meeting briefs.
type ArtifactStore interface {
	Invalidate(ctx context.Context, bookingID uuid.UUID) error
	Get(ctx context.Context, b *entity.Booking, eventTitle string) (*briefEntity.Brief, error)
}

// Outbox accepts effects after a commit. Publish never fails the caller;
// delivery errors are retried or logged by the implementation.
type Outbox interface {
	Publish(ctx context.Context, effects ...entity.Effect)
}
