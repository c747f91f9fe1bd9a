package entity

import (
	"time"

	"github.com/google/uuid"
)

// Brief is the meeting-prep summary derived from a booking.
type Brief struct {
	BookingID   uuid.UUID `json:"booking_id"`
	EventTitle  string    `json:"event_title"`
	GuestName   string    `json:"guest_name"`
	GuestEmail  string    `json:"guest_email"`
	GuestNotes  string    `json:"guest_notes,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Timezone    string    `json:"timezone"`
	GeneratedAt time.Time `json:"generated_at"`
}

// StaleAfter reports whether the brief predates invalidatedAt.
func (b *Brief) StaleAfter(invalidatedAt *time.Time) bool {
	return invalidatedAt != nil && !b.GeneratedAt.After(*invalidatedAt)
}
