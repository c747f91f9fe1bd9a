package entity

import (
	"fmt"

	"github.com/google/uuid"
)

type EffectKind string

const (
	EffectCalendarCreate  EffectKind = "calendar:create"
	EffectCalendarDelete  EffectKind = "calendar:delete"
	EffectNotify          EffectKind = "notify"
	EffectBriefInvalidate EffectKind = "brief:invalidate"
)

// Effect is a post-commit side effect. Effects are retried independently and
// never roll back the booking that produced them.
type Effect struct {
	Kind            EffectKind     `json:"kind"`
	BookingID       uuid.UUID      `json:"booking_id"`
	HostID          uuid.UUID      `json:"host_id"`
	Version         int            `json:"version"`
	ExternalEventID string         `json:"external_event_id,omitempty"`
	Template        string         `json:"template,omitempty"`
	Recipient       string         `json:"recipient,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
}

// Key is unique per booking version and effect, so a re-enqueued effect is
// recognized as a duplicate.
func (e Effect) Key() string {
	suffix := string(e.Kind)
	if e.Recipient != "" {
		suffix += ":" + e.Template + ":" + e.Recipient
	}
	return fmt.Sprintf("%s:%d:%s", e.BookingID, e.Version, suffix)
}
