package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"scheduling-engine/core/constants"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/timemath"
	availEntity "scheduling-engine/modules/availability/entity"
	availService "scheduling-engine/modules/availability/service"
	"scheduling-engine/modules/booking/dto"
	"scheduling-engine/modules/booking/entity"
	briefEntity "scheduling-engine/modules/brief/entity"

	"github.com/google/uuid"
)

const (
	dateLayout        = "2006-01-02"
	maxGuestNameLen   = 200
	maxGuestNotesLen  = 2000
	defaultListWindow = 30 * 24 * time.Hour
)

type AvailabilityReader interface {
	GetBookable(ctx context.Context, slug string) (*availEntity.EventType, *availEntity.AvailabilityRules, error)
	GetRulesForEventType(ctx context.Context, eventTypeID uuid.UUID) (*availEntity.EventType, *availEntity.AvailabilityRules, error)
}

// SchedulingService runs the guest and host booking flows. Each mutation
// resolves identity first, then status, then input, then conflicts, then
// commits, and only then publishes side effects.
type SchedulingService struct {
	availability AvailabilityReader
	resolver     *availService.Resolver
	ledger       *Ledger
	calendar     BusyCalendar
	artifacts    ArtifactStore
	outbox       Outbox
	now          func() time.Time
}

func NewSchedulingService(
	availability AvailabilityReader,
	resolver *availService.Resolver,
	ledger *Ledger,
	calendar BusyCalendar,
	artifacts ArtifactStore,
	outbox Outbox,
) *SchedulingService {
	return &SchedulingService{
		availability: availability,
		resolver:     resolver,
		ledger:       ledger,
		calendar:     calendar,
		artifacts:    artifacts,
		outbox:       outbox,
		now:          time.Now,
	}
}

func (s *SchedulingService) ListSlots(ctx context.Context, slug, date, timezone string) (*dto.SlotsResponse, error) {
	et, rules, err := s.availability.GetBookable(ctx, slug)
	if err != nil {
		return nil, err
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "date must be formatted as YYYY-MM-DD", err)
	}
	if timezone == "" {
		timezone = rules.Timezone
	}
	now := s.now().UTC()
	if err := ensureDayInWindow(day, rules.Timezone, now); err != nil {
		return nil, err
	}

	slots, err := s.resolver.Resolve(ctx, availService.Query{
		EventType:     et,
		Rules:         rules,
		Date:          day,
		GuestTimezone: timezone,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	return &dto.SlotsResponse{
		EventType: summarize(et, rules),
		Date:      date,
		Timezone:  timezone,
		Slots:     slots,
	}, nil
}

func (s *SchedulingService) CreateBooking(ctx context.Context, slug string, req *dto.CreateBookingRequest) (*dto.BookingCreatedResponse, error) {
	et, rules, err := s.availability.GetBookable(ctx, slug)
	if err != nil {
		return nil, err
	}

	guestName := strings.TrimSpace(req.GuestName)
	if guestName == "" || len(guestName) > maxGuestNameLen {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "guest_name is required", nil)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.GuestEmail))
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "guest_email is invalid", err)
	}
	notes := strings.TrimSpace(req.GuestNotes)
	if len(notes) > maxGuestNotesLen {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "guest_notes is too long", nil)
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = rules.Timezone
	}
	if _, err := timemath.LoadLocation(timezone); err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "timezone must be a valid IANA zone", err)
	}
	start, err := parseStart(req.StartTime)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.resolver.IsBookableStart(availService.BookableQuery{EventType: et, Rules: rules, Start: start, Now: now}); err != nil {
		return nil, err
	}

	bufferBefore, bufferAfter := et.EffectiveBuffers(rules)
	blocked := timemath.Interval{Start: start, End: start.Add(et.Duration())}.Expand(bufferBefore, bufferAfter)
	clash, err := s.ledger.CheckConflict(ctx, et.HostID, blocked, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if clash || s.externallyBusy(ctx, et.HostID, blocked) {
		return nil, errors.NewAppError(errors.ErrConflict, "the selected time is no longer available", nil)
	}

	b, tokens, err := s.ledger.Create(ctx, Draft{
		EventTypeID:  et.ID,
		HostID:       et.HostID,
		GuestName:    guestName,
		GuestEmail:   addr.Address,
		GuestNotes:   notes,
		Timezone:     timezone,
		Start:        start,
		Duration:     et.Duration(),
		BufferBefore: bufferBefore,
		BufferAfter:  bufferAfter,
	})
	if err != nil {
		return nil, err
	}

	data := notificationData(b, et, rules)
	s.outbox.Publish(ctx,
		calendarCreate(b),
		notify(b, TemplateBookingCreated, rules.HostEmail, data),
		notify(b, TemplateBookingCreated, b.GuestEmail, data),
	)
	return &dto.BookingCreatedResponse{
		Booking:         b,
		CancelToken:     tokens.Cancel,
		RescheduleToken: tokens.Reschedule,
	}, nil
}

// ensureDayInWindow rejects a listing day that has already ended or starts
// past the hard ceiling, before any external calendar is read.
func ensureDayInWindow(day time.Time, hostTimezone string, now time.Time) error {
	hostLoc, err := timemath.LoadLocation(hostTimezone)
	if err != nil {
		return errors.NewAppError(errors.ErrInvalidInput, "host timezone is invalid", err)
	}
	bounds := timemath.DayBounds(day, hostLoc)
	if !bounds.End.After(now) {
		return errors.NewAppError(errors.ErrOutOfWindow, "date is in the past", nil)
	}
	if bounds.Start.After(now.Add(constants.HardAdvanceCeiling)) {
		return errors.NewAppError(errors.ErrOutOfWindow, "date is too far in the future", nil)
	}
	return nil
}

// externallyBusy re-reads the host's calendar for the requested interval.
// Busy time inside own is the booking's own event and is ignored.
// A failed read does not block the booking.
func (s *SchedulingService) externallyBusy(ctx context.Context, hostID uuid.UUID, blocked timemath.Interval, own ...timemath.Interval) bool {
	if s.calendar == nil {
		return false
	}
	fetchCtx, cancel := context.WithTimeout(ctx, constants.BusyFetchTimeout)
	defer cancel()
	busy, err := s.calendar.GetBusyIntervals(fetchCtx, hostID, blocked.Start, blocked.End)
	if err != nil {
		logger.Warn("SchedulingService:ExternallyBusy:FailOpen", "host_id", hostID, "error", err)
		return false
	}
	for _, iv := range busy {
		for _, rem := range timemath.SubtractIntervals(iv, own) {
			if timemath.IntervalsOverlap(rem, blocked) {
				return true
			}
		}
	}
	return false
}

func (s *SchedulingService) RescheduleBooking(ctx context.Context, token string, req *dto.RescheduleBookingRequest) (*entity.Booking, error) {
	current, err := s.ledger.FindByRescheduleToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := ensureActive(current); err != nil {
		return nil, err
	}

	start, err := parseStart(req.StartTime)
	if err != nil {
		return nil, err
	}
	et, rules, err := s.availability.GetRulesForEventType(ctx, current.EventTypeID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.IsBookableStart(availService.BookableQuery{EventType: et, Rules: rules, Start: start, Now: s.now().UTC()}); err != nil {
		return nil, err
	}
	if start.Equal(current.StartTime) {
		return nil, errors.NewAppError(errors.ErrNoOpReschedule, "booking is already at this time", nil)
	}

	blocked := timemath.Interval{Start: start, End: start.Add(et.Duration())}.Expand(current.BufferBefore(), current.BufferAfter())
	clash, err := s.ledger.CheckConflict(ctx, current.HostID, blocked, current.ID)
	if err != nil {
		return nil, err
	}
	ownEvent := timemath.Interval{Start: current.StartTime, End: current.EndTime}
	if clash || s.externallyBusy(ctx, current.HostID, blocked, ownEvent) {
		return nil, errors.NewAppError(errors.ErrConflict, "the selected time is no longer available", nil)
	}

	b, detached, err := s.ledger.Reschedule(ctx, current.ID, start)
	if err != nil {
		return nil, err
	}

	data := notificationData(b, et, rules)
	data["previous_start_time"] = current.StartTime
	effects := make([]entity.Effect, 0, 5)
	if detached != "" {
		effects = append(effects, calendarDelete(b, detached))
	}
	effects = append(effects,
		calendarCreate(b),
		notify(b, TemplateBookingRescheduled, rules.HostEmail, data),
		notify(b, TemplateBookingRescheduled, b.GuestEmail, data),
		briefInvalidate(b),
	)
	s.outbox.Publish(ctx, effects...)
	return b, nil
}

func (s *SchedulingService) CancelBooking(ctx context.Context, token, reason string) (*dto.CancelBookingResponse, error) {
	current, err := s.ledger.FindByCancelToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, current, reason)
}

// HostCancelBooking lets the host cancel one of their own bookings.
func (s *SchedulingService) HostCancelBooking(ctx context.Context, hostID, bookingID uuid.UUID, reason string) (*dto.CancelBookingResponse, error) {
	current, err := s.hostBooking(ctx, hostID, bookingID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, current, reason)
}

func (s *SchedulingService) cancel(ctx context.Context, current *entity.Booking, reason string) (*dto.CancelBookingResponse, error) {
	if err := ensureActive(current); err != nil {
		return nil, err
	}

	// Cancelling inside the notice period is allowed but flagged.
	withinNotice := false
	et, rules, err := s.availability.GetRulesForEventType(ctx, current.EventTypeID)
	if err != nil {
		logger.Warn("SchedulingService:Cancel:RulesUnavailable", "booking_id", current.ID, "error", err)
	} else {
		withinNotice = current.StartTime.Before(s.now().UTC().Add(rules.MinNotice()))
	}

	b, detached, err := s.ledger.Cancel(ctx, current.ID, reason)
	if err != nil {
		return nil, err
	}

	effects := make([]entity.Effect, 0, 4)
	if detached != "" {
		effects = append(effects, calendarDelete(b, detached))
	}
	if rules != nil {
		data := notificationData(b, et, rules)
		data["within_notice"] = withinNotice
		if b.CancellationReason != nil {
			data["reason"] = *b.CancellationReason
		}
		effects = append(effects,
			notify(b, TemplateBookingCancelled, rules.HostEmail, data),
			notify(b, TemplateBookingCancelled, b.GuestEmail, data),
		)
	}
	effects = append(effects, briefInvalidate(b))
	s.outbox.Publish(ctx, effects...)

	if withinNotice {
		logger.Info("SchedulingService:Cancel:WithinNotice", "booking_id", b.ID)
	}
	return &dto.CancelBookingResponse{Booking: b, WithinNotice: withinNotice}, nil
}

func (s *SchedulingService) GetCancelView(ctx context.Context, token string) (*dto.ManageView, error) {
	b, err := s.ledger.FindByCancelToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.manageView(ctx, b)
}

func (s *SchedulingService) GetRescheduleView(ctx context.Context, token string) (*dto.ManageView, error) {
	b, err := s.ledger.FindByRescheduleToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.manageView(ctx, b)
}

func (s *SchedulingService) manageView(ctx context.Context, b *entity.Booking) (*dto.ManageView, error) {
	et, rules, err := s.availability.GetRulesForEventType(ctx, b.EventTypeID)
	if err != nil {
		return nil, err
	}
	local, err := timemath.ToTimezone(b.StartTime, b.Timezone)
	if err != nil {
		local = b.StartTime
	}
	return &dto.ManageView{
		Booking:   b,
		EventType: summarize(et, rules),
		LocalTime: local.Format(time.RFC3339),
	}, nil
}

func (s *SchedulingService) MarkOutcome(ctx context.Context, hostID, bookingID uuid.UUID, status string) (*entity.Booking, error) {
	if _, err := s.hostBooking(ctx, hostID, bookingID); err != nil {
		return nil, err
	}
	outcome := entity.BookingStatus(status)
	if !outcome.IsOutcome() {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "status must be completed or no_show", nil)
	}
	b, err := s.ledger.MarkOutcome(ctx, bookingID, outcome)
	if err != nil {
		return nil, err
	}
	logger.Info("SchedulingService:MarkOutcome:Success", "booking_id", bookingID, "status", outcome)
	return b, nil
}

// ListHostBookings lists bookings starting in [from, to). Empty bounds
// default to the next 30 days.
func (s *SchedulingService) ListHostBookings(ctx context.Context, hostID uuid.UUID, from, to string) (*dto.BookingListResponse, error) {
	window := timemath.Interval{Start: s.now().UTC().Truncate(24 * time.Hour)}
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "from must be RFC3339", err)
		}
		window.Start = t.UTC()
	}
	window.End = window.Start.Add(defaultListWindow)
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "to must be RFC3339", err)
		}
		window.End = t.UTC()
	}
	if !window.End.After(window.Start) || window.Duration() > constants.HardAdvanceCeiling {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid date range", nil)
	}

	bookings, err := s.ledger.ListHostBookings(ctx, hostID, window)
	if err != nil {
		return nil, err
	}
	return &dto.BookingListResponse{From: window.Start, To: window.End, Bookings: bookings}, nil
}

func (s *SchedulingService) GetBrief(ctx context.Context, hostID, bookingID uuid.UUID) (*briefEntity.Brief, error) {
	b, err := s.hostBooking(ctx, hostID, bookingID)
	if err != nil {
		return nil, err
	}
	et, _, err := s.availability.GetRulesForEventType(ctx, b.EventTypeID)
	if err != nil {
		return nil, err
	}
	return s.artifacts.Get(ctx, b, et.Title)
}

// hostBooking loads a booking owned by hostID. Other hosts' bookings read as
// not found.
func (s *SchedulingService) hostBooking(ctx context.Context, hostID, bookingID uuid.UUID) (*entity.Booking, error) {
	b, err := s.ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.HostID != hostID {
		return nil, errors.NewAppError(errors.ErrNotFound, "booking not found", nil)
	}
	return b, nil
}

func parseStart(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.NewAppError(errors.ErrInvalidInput, "start_time is required", nil)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.NewAppError(errors.ErrInvalidInput, "start_time must be RFC3339", err)
	}
	return t.UTC(), nil
}

func summarize(et *availEntity.EventType, rules *availEntity.AvailabilityRules) dto.EventTypeSummary {
	return dto.EventTypeSummary{
		Slug:            et.Slug,
		Title:           et.Title,
		DurationMinutes: et.DurationMinutes,
		HostName:        rules.HostName,
	}
}

func notificationData(b *entity.Booking, et *availEntity.EventType, rules *availEntity.AvailabilityRules) map[string]any {
	return map[string]any{
		"booking_id":  b.ID,
		"host_id":     b.HostID,
		"host_email":  rules.HostEmail,
		"host_name":   rules.HostName,
		"event_title": et.Title,
		"guest_name":  b.GuestName,
		"guest_email": b.GuestEmail,
		"start_time":  b.StartTime,
		"end_time":    b.EndTime,
		"timezone":    b.Timezone,
	}
}

func calendarCreate(b *entity.Booking) entity.Effect {
	return entity.Effect{Kind: entity.EffectCalendarCreate, BookingID: b.ID, HostID: b.HostID, Version: b.Version}
}

func calendarDelete(b *entity.Booking, externalID string) entity.Effect {
	return entity.Effect{Kind: entity.EffectCalendarDelete, BookingID: b.ID, HostID: b.HostID, Version: b.Version, ExternalEventID: externalID}
}

func notify(b *entity.Booking, template, recipient string, data map[string]any) entity.Effect {
	return entity.Effect{
		Kind:      entity.EffectNotify,
		BookingID: b.ID,
		HostID:    b.HostID,
		Version:   b.Version,
		Template:  template,
		Recipient: recipient,
		Data:      data,
	}
}

func briefInvalidate(b *entity.Booking) entity.Effect {
	return entity.Effect{Kind: entity.EffectBriefInvalidate, BookingID: b.ID, HostID: b.HostID, Version: b.Version}
}
