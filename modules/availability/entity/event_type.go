package entity

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"scheduling-engine/core/constants"
	"scheduling-engine/core/entity"

	"github.com/google/uuid"
)

type EventType struct {
	entity.BaseEntity
	HostID              uuid.UUID `db:"host_id" json:"host_id"`
	Slug                string    `db:"slug" json:"slug"`
	Title               string    `db:"title" json:"title"`
	DurationMinutes     int       `db:"duration_minutes" json:"duration_minutes"`
	BufferBeforeMinutes *int      `db:"buffer_before_minutes" json:"buffer_before_minutes"`
	BufferAfterMinutes  *int      `db:"buffer_after_minutes" json:"buffer_after_minutes"`
	IsActive            bool      `db:"is_active" json:"is_active"`
}

func (e *EventType) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// EffectiveBuffers applies the event type override, falling back to the
// host's defaults.
func (e *EventType) EffectiveBuffers(rules *AvailabilityRules) (before, after time.Duration) {
	b, a := rules.DefaultBufferBeforeMinutes, rules.DefaultBufferAfterMinutes
	if e.BufferBeforeMinutes != nil {
		b = *e.BufferBeforeMinutes
	}
	if e.BufferAfterMinutes != nil {
		a = *e.BufferAfterMinutes
	}
	return time.Duration(b) * time.Minute, time.Duration(a) * time.Minute
}

func (e *EventType) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return stderrors.New("title is required")
	}
	if e.DurationMinutes <= 0 || e.DurationMinutes > constants.MaxEventDurationMinutes {
		return fmt.Errorf("duration_minutes must be between 1 and %d", constants.MaxEventDurationMinutes)
	}
	for _, b := range []*int{e.BufferBeforeMinutes, e.BufferAfterMinutes} {
		if b != nil {
			if err := validateBuffer(*b); err != nil {
				return err
			}
		}
	}
	return nil
}
