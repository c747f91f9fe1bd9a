package dto

import "github.com/google/uuid"

type MarkAsReadRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

// UpdatePreferencesRequest leaves unset categories unchanged.
type UpdatePreferencesRequest struct {
	NewBooking   *bool `json:"new_booking"`
	Cancellation *bool `json:"cancellation"`
	Reschedule   *bool `json:"reschedule"`
	DailyDigest  *bool `json:"daily_digest"`
}
