package dto

import "scheduling-engine/modules/availability/entity"

type SaveRulesRequest struct {
	HostName                   string             `json:"host_name"`
	Timezone                   string             `json:"timezone"`
	WeeklyHours                entity.WeeklyHours `json:"weekly_hours"`
	MinNoticeMinutes           int                `json:"min_notice_minutes"`
	MaxAdvanceDays             int                `json:"max_advance_days"`
	DefaultBufferBeforeMinutes int                `json:"default_buffer_before_minutes"`
	DefaultBufferAfterMinutes  int                `json:"default_buffer_after_minutes"`
}

type CreateEventTypeRequest struct {
	Title               string `json:"title"`
	DurationMinutes     int    `json:"duration_minutes"`
	BufferBeforeMinutes *int   `json:"buffer_before_minutes"`
	BufferAfterMinutes  *int   `json:"buffer_after_minutes"`
}

// UpdateEventTypeRequest replaces the editable fields. Nil buffers fall back
// to the host defaults.
type UpdateEventTypeRequest struct {
	Title               string `json:"title"`
	DurationMinutes     int    `json:"duration_minutes"`
	BufferBeforeMinutes *int   `json:"buffer_before_minutes"`
	BufferAfterMinutes  *int   `json:"buffer_after_minutes"`
	IsActive            *bool  `json:"is_active"`
}

