// Package timemath holds the pure time arithmetic used by slot resolution and
// booking validation. All intervals are half-open [Start, End) and absolute.
package timemath

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
	_ "time/tzdata"
)

var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidClock    = errors.New("invalid clock time")
	ErrWeekdayMismatch = errors.New("date does not fall on weekday")
)

// Interval is a half-open range of absolute instants.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (i Interval) IsEmpty() bool {
	return !i.End.After(i.Start)
}

func (i Interval) Duration() time.Duration {
	if i.IsEmpty() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Expand widens the interval by before at the start and after at the end.
func (i Interval) Expand(before, after time.Duration) Interval {
	return Interval{Start: i.Start.Add(-before), End: i.End.Add(after)}
}

// Contains reports whether o lies entirely within i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

func (i Interval) UTC() Interval {
	return Interval{Start: i.Start.UTC(), End: i.End.UTC()}
}

// ClockTime is a wall-clock time of day. 24:00 is accepted as an end of day.
type ClockTime struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (ClockTime, error) {
	if len(s) != 5 || s[2] != ':' || !isDigits(s[:2]) || !isDigits(s[3:]) {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	c := ClockTime{
		Hour:   int(s[0]-'0')*10 + int(s[1]-'0'),
		Minute: int(s[3]-'0')*10 + int(s[4]-'0'),
	}
	if !c.valid() {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return c, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (c ClockTime) valid() bool {
	if c.Hour == 24 {
		return c.Minute == 0
	}
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Block is a host-local working block within one day.
type Block struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

func (b Block) Validate() error {
	if !b.Start.valid() || !b.End.valid() {
		return ErrInvalidClock
	}
	if b.Start.Minutes() >= b.End.Minutes() {
		return fmt.Errorf("block %s-%s: start must be before end", b.Start, b.End)
	}
	return nil
}

// LoadLocation accepts IANA ids only. "" and "Local" are rejected because
// they silently resolve to UTC or the server's zone.
func LoadLocation(id string) (*time.Location, error) {
	if id == "" || id == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, id)
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, id)
	}
	return loc, nil
}

// ToTimezone projects an instant into the named zone.
func ToTimezone(instant time.Time, id string) (time.Time, error) {
	loc, err := LoadLocation(id)
	if err != nil {
		return time.Time{}, err
	}
	return instant.In(loc), nil
}

// FromTimezone reads the wall-clock fields of wall as a time in the named zone
// and returns the matching UTC instant.
func FromTimezone(wall time.Time, id string) (time.Time, error) {
	loc, err := LoadLocation(id)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), loc).UTC(), nil
}

// ExpandWeeklyBlock resolves a host-local block on the calendar date of
// targetDate (its year, month and day fields) into an absolute interval.
// Wall-clock times that fall into a DST gap are normalized by time.Date; if
// the resolved end is not after the resolved start the interval is empty.
func ExpandWeeklyBlock(weekday time.Weekday, block Block, hostLoc *time.Location, targetDate time.Time) (Interval, error) {
	if hostLoc == nil {
		return Interval{}, ErrInvalidTimezone
	}
	if err := block.Validate(); err != nil {
		return Interval{}, err
	}
	y, m, d := targetDate.Date()
	if got := time.Date(y, m, d, 12, 0, 0, 0, hostLoc).Weekday(); got != weekday {
		return Interval{}, fmt.Errorf("%w: %s is a %s, not %s", ErrWeekdayMismatch, targetDate.Format(time.DateOnly), got, weekday)
	}

	start := time.Date(y, m, d, block.Start.Hour, block.Start.Minute, 0, 0, hostLoc).UTC()
	end := time.Date(y, m, d, block.End.Hour, block.End.Minute, 0, 0, hostLoc).UTC()
	if !end.After(start) {
		return Interval{}, nil
	}
	return Interval{Start: start, End: end}, nil
}

// IntervalsOverlap is symmetric; intervals that only touch do not overlap.
func IntervalsOverlap(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// MergeIntervals returns the sorted union of in, joining adjacent intervals
// and dropping empty ones. The input is not modified.
func MergeIntervals(in []Interval) []Interval {
	sorted := make([]Interval, 0, len(in))
	for _, iv := range in {
		if !iv.IsEmpty() {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, cur := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !cur.Start.After(last.End) {
			if cur.End.After(last.End) {
				last.End = cur.End
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// SubtractIntervals removes busy from base. Busy may be unsorted and
// overlapping; the result is sorted, disjoint and has no empty intervals.
func SubtractIntervals(base Interval, busy []Interval) []Interval {
	if base.IsEmpty() {
		return nil
	}
	var free []Interval
	cursor := base.Start
	for _, b := range MergeIntervals(busy) {
		if !b.End.After(cursor) {
			continue
		}
		if !b.Start.Before(base.End) {
			break
		}
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		cursor = b.End
		if !cursor.Before(base.End) {
			return free
		}
	}
	if cursor.Before(base.End) {
		free = append(free, Interval{Start: cursor, End: base.End})
	}
	return free
}

// CeilToQuantum returns the first instant >= t whose wall clock in loc sits on
// a multiple of q past midnight. q must divide one hour.
func CeilToQuantum(t time.Time, loc *time.Location, q time.Duration) time.Time {
	if OnQuantum(t, loc, q) {
		return t
	}
	local := t.In(loc)
	qm := int(q / time.Minute)
	wall := local.Hour()*60 + local.Minute()
	next := (wall/qm + 1) * qm
	y, m, d := local.Date()
	candidate := time.Date(y, m, d, 0, next, 0, 0, loc)
	// A repeated wall-clock hour can resolve to the earlier occurrence.
	for candidate.Before(t) {
		candidate = candidate.Add(q)
	}
	return candidate
}

// OnQuantum reports whether t's wall clock in loc is aligned to q.
func OnQuantum(t time.Time, loc *time.Location, q time.Duration) bool {
	local := t.In(loc)
	qm := int(q / time.Minute)
	if qm <= 0 {
		return true
	}
	return local.Second() == 0 && local.Nanosecond() == 0 && (local.Hour()*60+local.Minute())%qm == 0
}

// RoundUpToQuantum rounds a duration up to a multiple of q.
func RoundUpToQuantum(d, q time.Duration) time.Duration {
	if q <= 0 || d%q == 0 {
		return d
	}
	return (d/q + 1) * q
}

// DayBounds returns the absolute interval covering the calendar date of day in loc.
func DayBounds(day time.Time, loc *time.Location) Interval {
	y, m, d := day.Date()
	return Interval{
		Start: time.Date(y, m, d, 0, 0, 0, 0, loc).UTC(),
		End:   time.Date(y, m, d+1, 0, 0, 0, 0, loc).UTC(),
	}
}
