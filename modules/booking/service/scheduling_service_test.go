package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"scheduling-engine/core/errors"
	"scheduling-engine/core/storage"
	"scheduling-engine/core/timemath"
	availEntity "scheduling-engine/modules/availability/entity"
	availRepository "scheduling-engine/modules/availability/repository"
	availService "scheduling-engine/modules/availability/service"
	"scheduling-engine/modules/booking/dto"
	"scheduling-engine/modules/booking/entity"
	"scheduling-engine/modules/booking/repository"
	briefService "scheduling-engine/modules/brief/service"

	"github.com/google/uuid"
)

type recordingOutbox struct {
	mu      sync.Mutex
	effects []entity.Effect
}

func (o *recordingOutbox) Publish(_ context.Context, effects ...entity.Effect) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.effects = append(o.effects, effects...)
}

func (o *recordingOutbox) kinds() []entity.EffectKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]entity.EffectKind, 0, len(o.effects))
	for _, e := range o.effects {
		out = append(out, e.Kind)
	}
	return out
}

func (o *recordingOutbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.effects)
}

type fixture struct {
	svc    *SchedulingService
	ledger *Ledger
	outbox *recordingOutbox
	et     *availEntity.EventType
	rules  *availEntity.AvailabilityRules

	mu  sync.Mutex
	now time.Time
}

// busyCalendar reports fixed busy time and counts reads.
type busyCalendar struct {
	mu    sync.Mutex
	busy  []timemath.Interval
	reads int
}

func (c *busyCalendar) GetBusyIntervals(context.Context, uuid.UUID, time.Time, time.Time) ([]timemath.Interval, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return c.busy, nil
}

func (c *busyCalendar) CreateEvent(context.Context, uuid.UUID, *entity.Booking) (string, error) {
	return "", nil
}

func (c *busyCalendar) DeleteEvent(context.Context, uuid.UUID, string) error {
	return nil
}

func (c *busyCalendar) readCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func (f *fixture) setNow(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// newFixture hosts a 30 minute "intro-call" event, Mon-Fri 09:00-17:00 in
// New York with one hour of notice.
func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	ctx := context.Background()

	availRepo := availRepository.NewMemoryRepository()
	avail := availService.NewAvailabilityService(availRepo)

	hostID := uuid.New()
	var hours availEntity.WeeklyHours
	for d := time.Monday; d <= time.Friday; d++ {
		hours[d] = availEntity.DayHours{block(t, "09:00", "17:00")}
	}
	rules := &availEntity.AvailabilityRules{
		HostID:           hostID,
		HostEmail:        "host@example.com",
		HostName:         "Grace",
		Timezone:         "America/New_York",
		WeeklyHours:      hours,
		MinNoticeMinutes: 60,
		MaxAdvanceDays:   60,
	}
	if err := availRepo.UpsertRules(ctx, rules); err != nil {
		t.Fatalf("upsert rules: %v", err)
	}
	et := &availEntity.EventType{HostID: hostID, Slug: "intro-call", Title: "Intro call", DurationMinutes: 30, IsActive: true}
	et.ID = uuid.New()
	if err := availRepo.CreateEventType(ctx, et); err != nil {
		t.Fatalf("create event type: %v", err)
	}

	f := &fixture{outbox: &recordingOutbox{}, et: et, rules: rules, now: now}
	f.ledger = NewLedger(repository.NewMemoryRepository(), avail)
	f.ledger.now = f.clock
	resolver := availService.NewResolver(f.ledger, nil)
	f.svc = NewSchedulingService(avail, resolver, f.ledger, nil, briefService.NewBriefService(storage.NewMemoryStore()), f.outbox)
	f.svc.now = f.clock
	return f
}

func block(t *testing.T, start, end string) timemath.Block {
	t.Helper()
	s, err := timemath.ParseClock(start)
	if err != nil {
		t.Fatal(err)
	}
	e, err := timemath.ParseClock(end)
	if err != nil {
		t.Fatal(err)
	}
	return timemath.Block{Start: s, End: e}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return v.UTC()
}

func (f *fixture) book(t *testing.T, start string) *dto.BookingCreatedResponse {
	t.Helper()
	res, err := f.svc.CreateBooking(context.Background(), "intro-call", &dto.CreateBookingRequest{
		StartTime:  start,
		GuestName:  "Ada Lovelace",
		GuestEmail: "ada@example.com",
		Timezone:   "Europe/London",
	})
	if err != nil {
		t.Fatalf("create booking at %s: %v", start, err)
	}
	return res
}

func expectCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if !errors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestCreateBooking_ConfirmsAndPublishesEffects(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	res := f.book(t, "2026-11-17T10:00:00-05:00")

	b := res.Booking
	if b.Status != entity.StatusConfirmed || b.Version != 1 {
		t.Errorf("got status %s version %d", b.Status, b.Version)
	}
	if !b.StartTime.Equal(mustTime(t, "2026-11-17T15:00:00Z")) || !b.EndTime.Equal(mustTime(t, "2026-11-17T15:30:00Z")) {
		t.Errorf("got %v-%v", b.StartTime, b.EndTime)
	}
	if len(res.CancelToken) != 32 || len(res.RescheduleToken) != 32 || res.CancelToken == res.RescheduleToken {
		t.Errorf("unexpected tokens %q %q", res.CancelToken, res.RescheduleToken)
	}
	if b.CancelTokenHash == res.CancelToken {
		t.Error("raw token stored")
	}

	kinds := f.outbox.kinds()
	want := []entity.EffectKind{entity.EffectCalendarCreate, entity.EffectNotify, entity.EffectNotify}
	if len(kinds) != len(want) {
		t.Fatalf("got effects %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("effect %d: got %s, want %s", i, kinds[i], want[i])
		}
	}
	keys := map[string]bool{}
	for _, e := range f.outbox.effects {
		if keys[e.Key()] {
			t.Errorf("duplicate effect key %s", e.Key())
		}
		keys[e.Key()] = true
	}
}

func TestListSlots_ExcludesBookedTime(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	f.book(t, "2026-11-17T15:00:00Z")

	res, err := f.svc.ListSlots(context.Background(), "intro-call", "2026-11-17", "America/New_York")
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	if len(res.Slots) != 15 {
		t.Fatalf("got %d slots, want 15", len(res.Slots))
	}
	booked := mustTime(t, "2026-11-17T15:00:00Z")
	for _, s := range res.Slots {
		if s.UTCInstant.Equal(booked) {
			t.Error("booked slot still offered")
		}
	}
	if res.EventType.HostName != "Grace" || res.Timezone != "America/New_York" {
		t.Errorf("unexpected summary %+v", res)
	}
}

func TestListSlots_Errors(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	ctx := context.Background()

	_, err := f.svc.ListSlots(ctx, "missing", "2026-11-17", "UTC")
	expectCode(t, err, errors.ErrNotFound)
	_, err = f.svc.ListSlots(ctx, "intro-call", "17/11/2026", "UTC")
	expectCode(t, err, errors.ErrInvalidInput)
	_, err = f.svc.ListSlots(ctx, "intro-call", "2026-11-17", "Mars/Olympus")
	expectCode(t, err, errors.ErrInvalidInput)
}

func TestListSlots_OutOfWindowSkipsCalendar(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	cal := &busyCalendar{}
	f.svc.resolver = availService.NewResolver(f.ledger, cal)
	ctx := context.Background()

	tests := []struct {
		name string
		date string
	}{
		{"past day", "2026-11-09"},
		{"long past", "2020-11-17"},
		{"beyond hard ceiling", "2027-11-12"},
		{"far future", "2999-11-18"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ListSlots(ctx, "intro-call", tt.date, "UTC")
			expectCode(t, err, errors.ErrOutOfWindow)
		})
	}
	if n := cal.readCount(); n != 0 {
		t.Errorf("calendar read %d times, want 0", n)
	}

	// The current host-local day is still listable.
	if _, err := f.svc.ListSlots(ctx, "intro-call", "2026-11-10", "UTC"); err != nil {
		t.Fatalf("ListSlots today: %v", err)
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))

	tests := []struct {
		name string
		slug string
		req  dto.CreateBookingRequest
		code errors.ErrorCode
	}{
		{"unknown slug", "missing", dto.CreateBookingRequest{StartTime: "2026-11-17T15:00:00Z", GuestName: "A", GuestEmail: "a@example.com"}, errors.ErrNotFound},
		{"missing name", "intro-call", dto.CreateBookingRequest{StartTime: "2026-11-17T15:00:00Z", GuestEmail: "a@example.com"}, errors.ErrInvalidInput},
		{"bad email", "intro-call", dto.CreateBookingRequest{StartTime: "2026-11-17T15:00:00Z", GuestName: "A", GuestEmail: "not-an-email"}, errors.ErrInvalidInput},
		{"bad timezone", "intro-call", dto.CreateBookingRequest{StartTime: "2026-11-17T15:00:00Z", GuestName: "A", GuestEmail: "a@example.com", Timezone: "Nowhere/City"}, errors.ErrInvalidInput},
		{"unparseable start", "intro-call", dto.CreateBookingRequest{StartTime: "tomorrow", GuestName: "A", GuestEmail: "a@example.com"}, errors.ErrInvalidInput},
		{"off grid", "intro-call", dto.CreateBookingRequest{StartTime: "2026-11-17T15:05:00Z", GuestName: "A", GuestEmail: "a@example.com"}, errors.ErrInvalidInput},
		{"past", "intro-call", dto.CreateBookingRequest{StartTime: "2026-11-09T15:00:00Z", GuestName: "A", GuestEmail: "a@example.com"}, errors.ErrOutOfWindow},
		{"inside notice", "intro-call", dto.CreateBookingRequest{StartTime: "2026-11-10T12:30:00Z", GuestName: "A", GuestEmail: "a@example.com"}, errors.ErrOutOfWindow},
		{"beyond advance", "intro-call", dto.CreateBookingRequest{StartTime: "2027-02-16T15:00:00Z", GuestName: "A", GuestEmail: "a@example.com"}, errors.ErrOutOfWindow},
		{"weekend", "intro-call", dto.CreateBookingRequest{StartTime: "2026-11-21T15:00:00Z", GuestName: "A", GuestEmail: "a@example.com"}, errors.ErrOutOfWindow},
		{"after hours", "intro-call", dto.CreateBookingRequest{StartTime: "2026-11-17T21:45:00Z", GuestName: "A", GuestEmail: "a@example.com"}, errors.ErrOutOfWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.svc.CreateBooking(context.Background(), tt.slug, &req)
			expectCode(t, err, tt.code)
		})
	}
	if n := f.outbox.len(); n != 0 {
		t.Errorf("rejected bookings published %d effects", n)
	}
}

func TestCreateBooking_ConflictWithExistingBooking(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	f.book(t, "2026-11-17T15:00:00Z")

	for _, start := range []string{"2026-11-17T15:00:00Z", "2026-11-17T15:15:00Z", "2026-11-17T14:45:00Z"} {
		_, err := f.svc.CreateBooking(context.Background(), "intro-call", &dto.CreateBookingRequest{
			StartTime: start, GuestName: "B", GuestEmail: "b@example.com",
		})
		expectCode(t, err, errors.ErrConflict)
	}
	// Adjacent intervals do not overlap.
	f.book(t, "2026-11-17T15:30:00Z")
}

func TestCreateBooking_ConcurrentRequestsHaveOneWinner(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))

	const n = 20
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateBooking(context.Background(), "intro-call", &dto.CreateBookingRequest{
				StartTime: "2026-11-17T15:00:00Z", GuestName: "Racer", GuestEmail: "racer@example.com",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.HasCode(err, errors.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != n-1 {
		t.Errorf("got %d wins and %d conflicts", wins, conflicts)
	}
}

func TestRescheduleBooking_SameInstantIsNoOp(t *testing.T) {
	f := newFixture(t, mustTime(t, "2027-02-01T12:00:00Z"))
	// Monday 2027-02-15 14:00 in New York.
	res := f.book(t, "2027-02-15T14:00:00-05:00")
	before := f.outbox.len()

	_, err := f.svc.RescheduleBooking(context.Background(), res.RescheduleToken, &dto.RescheduleBookingRequest{
		StartTime: "2027-02-15T19:00:00Z",
	})
	expectCode(t, err, errors.ErrNoOpReschedule)

	if f.outbox.len() != before {
		t.Errorf("no-op reschedule published %d effects", f.outbox.len()-before)
	}
	b, err := f.ledger.Get(context.Background(), res.Booking.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.Version != 1 {
		t.Errorf("no-op reschedule bumped version to %d", b.Version)
	}
}

func TestRescheduleBooking_MovesAndKeepsTokens(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	ctx := context.Background()
	res := f.book(t, "2026-11-17T15:00:00Z")
	before := f.outbox.len()

	b, err := f.svc.RescheduleBooking(ctx, res.RescheduleToken, &dto.RescheduleBookingRequest{StartTime: "2026-11-17T18:00:00Z"})
	if err != nil {
		t.Fatalf("RescheduleBooking: %v", err)
	}
	if !b.StartTime.Equal(mustTime(t, "2026-11-17T18:00:00Z")) || !b.EndTime.Equal(mustTime(t, "2026-11-17T18:30:00Z")) {
		t.Errorf("got %v-%v", b.StartTime, b.EndTime)
	}
	if b.Version != 2 || b.BriefInvalidatedAt == nil {
		t.Errorf("got version %d, brief invalidated %v", b.Version, b.BriefInvalidatedAt)
	}

	view, err := f.svc.GetCancelView(ctx, res.CancelToken)
	if err != nil {
		t.Fatalf("cancel token no longer valid: %v", err)
	}
	if !view.Booking.StartTime.Equal(b.StartTime) || view.EventType.Title != "Intro call" {
		t.Errorf("unexpected view %+v", view)
	}

	var sawInvalidate, sawCreate bool
	for _, e := range f.outbox.effects[before:] {
		switch e.Kind {
		case entity.EffectBriefInvalidate:
			sawInvalidate = true
		case entity.EffectCalendarCreate:
			sawCreate = e.Version == 2
		case entity.EffectCalendarDelete:
			t.Error("delete published without a linked calendar event")
		}
	}
	if !sawInvalidate || !sawCreate {
		t.Errorf("missing effects after reschedule: %v", f.outbox.kinds()[before:])
	}

	// The old time is free again.
	f.book(t, "2026-11-17T15:00:00Z")
}

func TestRescheduleBooking_OverlappingItselfIsAllowed(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	res := f.book(t, "2026-11-17T15:00:00Z")

	b, err := f.svc.RescheduleBooking(context.Background(), res.RescheduleToken, &dto.RescheduleBookingRequest{StartTime: "2026-11-17T15:15:00Z"})
	if err != nil {
		t.Fatalf("RescheduleBooking: %v", err)
	}
	if !b.StartTime.Equal(mustTime(t, "2026-11-17T15:15:00Z")) {
		t.Errorf("got start %v", b.StartTime)
	}
}

func TestRescheduleBooking_RejectsExternallyBusyTime(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	res := f.book(t, "2026-11-17T15:00:00Z")
	cal := &busyCalendar{busy: []timemath.Interval{
		{Start: mustTime(t, "2026-11-17T15:00:00Z"), End: mustTime(t, "2026-11-17T15:30:00Z")},
		{Start: mustTime(t, "2026-11-17T18:00:00Z"), End: mustTime(t, "2026-11-17T19:00:00Z")},
	}}
	f.svc.calendar = cal
	ctx := context.Background()

	_, err := f.svc.RescheduleBooking(ctx, res.RescheduleToken, &dto.RescheduleBookingRequest{StartTime: "2026-11-17T18:15:00Z"})
	expectCode(t, err, errors.ErrConflict)

	// The booking's own event does not block a move that overlaps it.
	b, err := f.svc.RescheduleBooking(ctx, res.RescheduleToken, &dto.RescheduleBookingRequest{StartTime: "2026-11-17T15:15:00Z"})
	if err != nil {
		t.Fatalf("RescheduleBooking: %v", err)
	}
	if !b.StartTime.Equal(mustTime(t, "2026-11-17T15:15:00Z")) {
		t.Errorf("got start %v", b.StartTime)
	}
	if cal.readCount() != 2 {
		t.Errorf("calendar read %d times, want 2", cal.readCount())
	}
}

func TestRescheduleBooking_ConflictWithOtherBooking(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	res := f.book(t, "2026-11-17T15:00:00Z")
	f.book(t, "2026-11-17T16:00:00Z")

	_, err := f.svc.RescheduleBooking(context.Background(), res.RescheduleToken, &dto.RescheduleBookingRequest{StartTime: "2026-11-17T16:15:00Z"})
	expectCode(t, err, errors.ErrConflict)
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	ctx := context.Background()
	res := f.book(t, "2026-11-17T15:00:00Z")

	reason := strings.Repeat("x", 5000)
	out, err := f.svc.CancelBooking(ctx, res.CancelToken, reason)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if out.Booking.Status != entity.StatusCancelled || out.WithinNotice {
		t.Errorf("got status %s within notice %v", out.Booking.Status, out.WithinNotice)
	}
	if out.Booking.CancellationReason == nil || len(*out.Booking.CancellationReason) != 1000 {
		t.Errorf("reason not truncated to 1000 characters")
	}

	_, err = f.svc.CancelBooking(ctx, res.CancelToken, "")
	expectCode(t, err, errors.ErrAlreadyCancelled)

	// Status is checked before the start time is parsed.
	_, err = f.svc.RescheduleBooking(ctx, res.RescheduleToken, &dto.RescheduleBookingRequest{StartTime: "garbage"})
	expectCode(t, err, errors.ErrAlreadyCancelled)

	f.book(t, "2026-11-17T15:00:00Z")
}

func TestCancelBooking_InsideNoticeIsFlagged(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	res := f.book(t, "2026-11-17T15:00:00Z")
	f.setNow(mustTime(t, "2026-11-17T14:30:00Z"))
	before := f.outbox.len()

	out, err := f.svc.CancelBooking(context.Background(), res.CancelToken, "running late")
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if !out.WithinNotice {
		t.Error("expected within-notice flag")
	}
	flagged := 0
	for _, e := range f.outbox.effects[before:] {
		if e.Kind == entity.EffectNotify && e.Data["within_notice"] == true {
			flagged++
		}
	}
	if flagged != 2 {
		t.Errorf("got %d flagged notifications, want 2", flagged)
	}
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	ctx := context.Background()
	res := f.book(t, "2026-11-17T15:00:00Z")

	_, err := f.svc.CancelBooking(ctx, "does-not-exist", "")
	expectCode(t, err, errors.ErrNotFound)
	_, err = f.svc.CancelBooking(ctx, res.RescheduleToken, "")
	expectCode(t, err, errors.ErrNotFound)
	_, err = f.svc.GetRescheduleView(ctx, res.CancelToken)
	expectCode(t, err, errors.ErrNotFound)
	if _, err := f.svc.GetRescheduleView(ctx, res.RescheduleToken); err != nil {
		t.Errorf("GetRescheduleView: %v", err)
	}
}

func TestMarkOutcome(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	ctx := context.Background()
	res := f.book(t, "2026-11-17T15:00:00Z")

	_, err := f.svc.MarkOutcome(ctx, uuid.New(), res.Booking.ID, "completed")
	expectCode(t, err, errors.ErrNotFound)
	_, err = f.svc.MarkOutcome(ctx, f.rules.HostID, res.Booking.ID, "cancelled")
	expectCode(t, err, errors.ErrInvalidInput)

	b, err := f.svc.MarkOutcome(ctx, f.rules.HostID, res.Booking.ID, "no_show")
	if err != nil {
		t.Fatalf("MarkOutcome: %v", err)
	}
	if b.Status != entity.StatusNoShow || b.Version != 2 {
		t.Errorf("got status %s version %d", b.Status, b.Version)
	}

	_, err = f.svc.CancelBooking(ctx, res.CancelToken, "")
	expectCode(t, err, errors.ErrInvalidInput)
}

func TestHostBookingsAndBrief(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	ctx := context.Background()
	res := f.book(t, "2026-11-17T15:00:00Z")
	f.book(t, "2026-11-18T15:00:00Z")

	list, err := f.svc.ListHostBookings(ctx, f.rules.HostID, "2026-11-17T00:00:00Z", "2026-11-18T00:00:00Z")
	if err != nil {
		t.Fatalf("ListHostBookings: %v", err)
	}
	if len(list.Bookings) != 1 || list.Bookings[0].ID != res.Booking.ID {
		t.Errorf("got %d bookings", len(list.Bookings))
	}
	_, err = f.svc.ListHostBookings(ctx, f.rules.HostID, "2026-11-18T00:00:00Z", "2026-11-17T00:00:00Z")
	expectCode(t, err, errors.ErrInvalidInput)

	brief, err := f.svc.GetBrief(ctx, f.rules.HostID, res.Booking.ID)
	if err != nil {
		t.Fatalf("GetBrief: %v", err)
	}
	if brief.EventTitle != "Intro call" || brief.GuestEmail != "ada@example.com" {
		t.Errorf("unexpected brief %+v", brief)
	}
	_, err = f.svc.GetBrief(ctx, uuid.New(), res.Booking.ID)
	expectCode(t, err, errors.ErrNotFound)
}

func TestHostCancelBooking(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	ctx := context.Background()
	res := f.book(t, "2026-11-17T15:00:00Z")

	_, err := f.svc.HostCancelBooking(ctx, uuid.New(), res.Booking.ID, "")
	expectCode(t, err, errors.ErrNotFound)
	out, err := f.svc.HostCancelBooking(ctx, f.rules.HostID, res.Booking.ID, "  ")
	if err != nil {
		t.Fatalf("HostCancelBooking: %v", err)
	}
	if out.Booking.CancellationReason != nil {
		t.Errorf("blank reason stored as %q", *out.Booking.CancellationReason)
	}
}
