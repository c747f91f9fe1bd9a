package dto

import (
	"time"

	availService "scheduling-engine/modules/availability/service"
	"scheduling-engine/modules/booking/entity"
)

type CreateBookingRequest struct {
	StartTime  string `json:"start_time"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestNotes string `json:"guest_notes"`
	Timezone   string `json:"timezone"`
}

type RescheduleBookingRequest struct {
	StartTime string `json:"start_time"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type MarkOutcomeRequest struct {
	Status string `json:"status"`
}

type EventTypeSummary struct {
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
	HostName        string `json:"host_name"`
}

type SlotsResponse struct {
	EventType EventTypeSummary    `json:"event_type"`
	Date      string              `json:"date"`
	Timezone  string              `json:"timezone"`
	Slots     []availService.Slot `json:"slots"`
}

// BookingCreatedResponse carries the manage tokens. They are returned once
// and cannot be recovered later.
type BookingCreatedResponse struct {
	Booking         *entity.Booking `json:"booking"`
	CancelToken     string          `json:"cancel_token"`
	RescheduleToken string          `json:"reschedule_token"`
}

// ManageView is what a token holder sees before cancelling or rescheduling.
type ManageView struct {
	Booking   *entity.Booking  `json:"booking"`
	EventType EventTypeSummary `json:"event_type"`
	LocalTime string           `json:"local_time"`
}

type CancelBookingResponse struct {
	Booking      *entity.Booking `json:"booking"`
	WithinNotice bool            `json:"within_notice"`
}

type BookingListResponse struct {
	From     time.Time        `json:"from"`
	To       time.Time        `json:"to"`
	Bookings []entity.Booking `json:"bookings"`
}
