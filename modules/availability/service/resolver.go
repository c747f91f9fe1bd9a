package service

import (
	"context"
	"sort"
	"time"

	"scheduling-engine/core/constants"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/timemath"
	"scheduling-engine/modules/availability/entity"

	"github.com/google/uuid"
)

// BookingSource yields the blocked intervals of a host's confirmed bookings.
type BookingSource interface {
	ListBlockedIntervals(ctx context.Context, hostID uuid.UUID, window timemath.Interval) ([]timemath.Interval, error)
}

// BusySource yields externally busy time, e.g. from a connected calendar.
type BusySource interface {
	GetBusyIntervals(ctx context.Context, hostID uuid.UUID, start, end time.Time) ([]timemath.Interval, error)
}

type Slot struct {
	LocalLabel string    `json:"local_label"`
	LocalTime  string    `json:"local_time"`
	UTCInstant time.Time `json:"utc_instant"`
	Available  bool      `json:"available"`
}

type Query struct {
	EventType     *entity.EventType
	Rules         *entity.AvailabilityRules
	Date          time.Time // host-local calendar date; only Y/M/D are read
	GuestTimezone string
	Now           time.Time
}

// Resolver computes bookable slots. It holds no locks and never writes.
type Resolver struct {
	bookings BookingSource
	busy     BusySource
	quantum  time.Duration
}

func NewResolver(bookings BookingSource, busy BusySource) *Resolver {
	return &Resolver{bookings: bookings, busy: busy, quantum: constants.SlotQuantum}
}

func (r *Resolver) Resolve(ctx context.Context, q Query) ([]Slot, error) {
	hostLoc, err := timemath.LoadLocation(q.Rules.Timezone)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "host timezone is invalid", err)
	}
	guestLoc, err := timemath.LoadLocation(q.GuestTimezone)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "timezone must be a valid IANA zone", err)
	}

	bufferBefore, bufferAfter := q.EventType.EffectiveBuffers(q.Rules)
	duration := q.EventType.Duration()

	y, m, d := q.Date.Date()
	weekday := time.Date(y, m, d, 12, 0, 0, 0, hostLoc).Weekday()
	blocks := q.Rules.WeeklyHours.Day(weekday)
	if len(blocks) == 0 {
		return []Slot{}, nil
	}

	working := make([]timemath.Interval, 0, len(blocks))
	for _, b := range blocks {
		iv, err := timemath.ExpandWeeklyBlock(weekday, b, hostLoc, q.Date)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "availability block is invalid", err)
		}
		if !iv.IsEmpty() {
			working = append(working, iv)
		}
	}
	if len(working) == 0 {
		return []Slot{}, nil
	}

	window := timemath.Interval{Start: working[0].Start.Add(-bufferBefore), End: working[len(working)-1].End}
	busy, err := r.busyIntervals(ctx, q.Rules.HostID, window)
	if err != nil {
		return nil, err
	}

	earliest := q.Now.Add(q.Rules.MinNotice())
	latest := q.Now.Add(min(q.Rules.MaxAdvance(), constants.HardAdvanceCeiling))
	// Each free window restarts the stride at its first quantum, so listed starts
	// shift after a booking that ends off the duration grid.
	stride := timemath.RoundUpToQuantum(duration, r.quantum)

	seen := make(map[int64]bool)
	var starts []time.Time
	for _, w := range working {
		extended := timemath.Interval{Start: w.Start.Add(-bufferBefore), End: w.End}
		for _, rem := range timemath.SubtractIntervals(extended, busy) {
			first := rem.Start.Add(bufferBefore)
			if first.Before(w.Start) {
				first = w.Start
			}
			for s := timemath.CeilToQuantum(first, hostLoc, r.quantum); ; s = s.Add(stride) {
				blocked := timemath.Interval{Start: s, End: s.Add(duration)}.Expand(bufferBefore, bufferAfter)
				if blocked.End.After(rem.End) {
					break
				}
				if !rem.Contains(blocked) || s.Before(earliest) || s.After(latest) {
					continue
				}
				key := s.UnixNano()
				if !seen[key] {
					seen[key] = true
					starts = append(starts, s.UTC())
				}
			}
		}
	}

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	slots := make([]Slot, 0, len(starts))
	for _, s := range starts {
		local := s.In(guestLoc)
		slots = append(slots, Slot{
			LocalLabel: local.Format("15:04"),
			LocalTime:  local.Format(time.RFC3339),
			UTCInstant: s,
			Available:  true,
		})
	}
	return slots, nil
}

// busyIntervals merges ledger bookings with the external calendar. A calendar
// failure is logged and treated as no busy time.
func (r *Resolver) busyIntervals(ctx context.Context, hostID uuid.UUID, window timemath.Interval) ([]timemath.Interval, error) {
	busy, err := r.bookings.ListBlockedIntervals(ctx, hostID, window)
	if err != nil {
		logger.Error("Resolver:ListBlockedIntervals:Error", "host_id", hostID, "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load bookings", err)
	}
	if r.busy == nil {
		return busy, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, constants.BusyFetchTimeout)
	defer cancel()
	external, err := r.busy.GetBusyIntervals(fetchCtx, hostID, window.Start, window.End)
	if err != nil {
		logger.Warn("Resolver:GetBusyIntervals:FailOpen", "host_id", hostID, "error", err)
		return busy, nil
	}
	return append(busy, external...), nil
}

// BookableQuery checks one requested start independent of busy time.
type BookableQuery struct {
	EventType *entity.EventType
	Rules     *entity.AvailabilityRules
	Start     time.Time
	Now       time.Time
}

// IsBookableStart applies the same grid, working-hours, notice and advance
// rules as Resolve to a single start instant.
func (r *Resolver) IsBookableStart(q BookableQuery) error {
	hostLoc, err := timemath.LoadLocation(q.Rules.Timezone)
	if err != nil {
		return errors.NewAppError(errors.ErrInvalidInput, "host timezone is invalid", err)
	}

	if q.Start.Before(q.Now) {
		return errors.NewAppError(errors.ErrOutOfWindow, "start time is in the past", nil)
	}
	if q.Start.Before(q.Now.Add(q.Rules.MinNotice())) {
		return errors.NewAppError(errors.ErrOutOfWindow, "start time is inside the minimum notice period", nil)
	}
	if q.Start.After(q.Now.Add(constants.HardAdvanceCeiling)) || q.Start.After(q.Now.Add(q.Rules.MaxAdvance())) {
		return errors.NewAppError(errors.ErrOutOfWindow, "start time is too far in the future", nil)
	}
	if !timemath.OnQuantum(q.Start, hostLoc, r.quantum) {
		return errors.NewAppError(errors.ErrInvalidInput, "start time is not on the booking grid", nil)
	}

	_, bufferAfter := q.EventType.EffectiveBuffers(q.Rules)
	local := q.Start.In(hostLoc)
	weekday := local.Weekday()
	blocked := timemath.Interval{Start: q.Start, End: q.Start.Add(q.EventType.Duration())}.Expand(0, bufferAfter)
	for _, b := range q.Rules.WeeklyHours.Day(weekday) {
		w, err := timemath.ExpandWeeklyBlock(weekday, b, hostLoc, local)
		if err != nil || w.IsEmpty() {
			continue
		}
		if w.Contains(blocked) {
			return nil
		}
	}
	return errors.NewAppError(errors.ErrOutOfWindow, "start time is outside the host's working hours", nil)
}
