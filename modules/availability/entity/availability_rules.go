package entity

import (
	"database/sql/driver"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"scheduling-engine/core/constants"
	"scheduling-engine/core/timemath"

	"github.com/google/uuid"
)

// DayHours is the ordered list of working blocks for one weekday. Nil or
// empty means the host is unavailable that day.
type DayHours []timemath.Block

// WeeklyHours is indexed by time.Weekday.
type WeeklyHours [7]DayHours

func (w WeeklyHours) Day(d time.Weekday) DayHours {
	return w[d]
}

func (w WeeklyHours) MarshalJSON() ([]byte, error) {
	out := make(map[string]DayHours, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		out[strings.ToLower(d.String())] = w[d]
	}
	return json.Marshal(out)
}

func (w *WeeklyHours) UnmarshalJSON(data []byte) error {
	var in map[string]DayHours
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var parsed WeeklyHours
	for name, hours := range in {
		d, ok := parseWeekday(name)
		if !ok {
			return fmt.Errorf("unknown weekday %q", name)
		}
		parsed[d] = hours
	}
	*w = parsed
	return nil
}

func parseWeekday(name string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, true
		}
	}
	return 0, false
}

func (w WeeklyHours) Value() (driver.Value, error) {
	return json.Marshal(w)
}

func (w *WeeklyHours) Scan(value any) error {
	if value == nil {
		*w = WeeklyHours{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return stderrors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, w)
}

// Validate checks the per-day invariants: sorted, non-overlapping blocks with
// start before end, at most constants.MaxBlocksPerDay per day.
func (w WeeklyHours) Validate() error {
	for d := time.Sunday; d <= time.Saturday; d++ {
		blocks := w[d]
		if len(blocks) > constants.MaxBlocksPerDay {
			return fmt.Errorf("%s: at most %d blocks per day", d, constants.MaxBlocksPerDay)
		}
		for i, b := range blocks {
			if err := b.Validate(); err != nil {
				return fmt.Errorf("%s: %w", d, err)
			}
			if i > 0 && b.Start.Minutes() < blocks[i-1].End.Minutes() {
				return fmt.Errorf("%s: blocks must be sorted and non-overlapping", d)
			}
		}
	}
	return nil
}

type AvailabilityRules struct {
	HostID                     uuid.UUID   `db:"host_id" json:"host_id"`
	HostEmail                  string      `db:"host_email" json:"host_email"`
	HostName                   string      `db:"host_name" json:"host_name"`
	Timezone                   string      `db:"timezone" json:"timezone"`
	WeeklyHours                WeeklyHours `db:"weekly_hours" json:"weekly_hours"`
	MinNoticeMinutes           int         `db:"min_notice_minutes" json:"min_notice_minutes"`
	MaxAdvanceDays             int         `db:"max_advance_days" json:"max_advance_days"`
	DefaultBufferBeforeMinutes int         `db:"default_buffer_before_minutes" json:"default_buffer_before_minutes"`
	DefaultBufferAfterMinutes  int         `db:"default_buffer_after_minutes" json:"default_buffer_after_minutes"`
	CreatedAt                  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt                  time.Time   `db:"updated_at" json:"updated_at"`
}

func (r *AvailabilityRules) Validate() error {
	if _, err := timemath.LoadLocation(r.Timezone); err != nil {
		return err
	}
	if r.MinNoticeMinutes < 0 {
		return stderrors.New("min_notice_minutes must be >= 0")
	}
	if r.MaxAdvanceDays < 1 || r.MaxAdvanceDays > constants.MaxAdvanceDaysLimit {
		return fmt.Errorf("max_advance_days must be between 1 and %d", constants.MaxAdvanceDaysLimit)
	}
	if err := validateBuffer(r.DefaultBufferBeforeMinutes); err != nil {
		return err
	}
	if err := validateBuffer(r.DefaultBufferAfterMinutes); err != nil {
		return err
	}
	return r.WeeklyHours.Validate()
}

func validateBuffer(minutes int) error {
	if minutes < 0 || minutes > constants.MaxBufferMinutes {
		return fmt.Errorf("buffers must be between 0 and %d minutes", constants.MaxBufferMinutes)
	}
	return nil
}

func (r *AvailabilityRules) MinNotice() time.Duration {
	return time.Duration(r.MinNoticeMinutes) * time.Minute
}

func (r *AvailabilityRules) MaxAdvance() time.Duration {
	return time.Duration(r.MaxAdvanceDays) * 24 * time.Hour
}
