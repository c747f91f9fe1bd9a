package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"scheduling-engine/core/errors"
	"scheduling-engine/core/timemath"

	"github.com/google/uuid"
)

func TestTruncateReason(t *testing.T) {
	if got := TruncateReason("   "); got != nil {
		t.Errorf("blank reason: got %q", *got)
	}
	if got := TruncateReason(" late "); got == nil || *got != "late" {
		t.Errorf("got %v", got)
	}

	long := strings.Repeat("é", 1500)
	got := TruncateReason(long)
	if got == nil || utf8.RuneCountInString(*got) != 1000 || !utf8.ValidString(*got) {
		t.Fatalf("multi-byte reason not truncated on a rune boundary")
	}
	if !strings.HasPrefix(long, *got) {
		t.Error("truncation did not keep the prefix")
	}
}

func draftAt(f *fixture, start time.Time) Draft {
	return Draft{
		EventTypeID: f.et.ID,
		HostID:      f.et.HostID,
		GuestName:   "Ada",
		GuestEmail:  "ada@example.com",
		Timezone:    "UTC",
		Start:       start,
		Duration:    30 * time.Minute,
		BufferAfter: 15 * time.Minute,
	}
}

func TestLedger_CreateRejectsOverlapInsideLock(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	ctx := context.Background()

	first, _, err := f.ledger.Create(ctx, draftAt(f, mustTime(t, "2026-11-17T15:00:00Z")))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !first.BlockedEnd.Equal(mustTime(t, "2026-11-17T15:45:00Z")) {
		t.Errorf("blocked end %v", first.BlockedEnd)
	}

	// The buffer after the first booking covers 15:30-15:45.
	_, _, err = f.ledger.Create(ctx, draftAt(f, mustTime(t, "2026-11-17T15:30:00Z")))
	expectCode(t, err, errors.ErrConflict)

	if _, _, err := f.ledger.Create(ctx, draftAt(f, mustTime(t, "2026-11-17T15:45:00Z"))); err != nil {
		t.Errorf("booking at the buffer edge: %v", err)
	}

	clash, err := f.ledger.CheckConflict(ctx, f.et.HostID, first.Blocked(), first.ID)
	if err != nil || clash {
		t.Errorf("self-exclusion: clash=%v err=%v", clash, err)
	}
	clash, _ = f.ledger.CheckConflict(ctx, uuid.New(), first.Blocked(), uuid.Nil)
	if clash {
		t.Error("another host's booking reported as conflict")
	}
}

func TestLedger_CommitIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, _, err := f.ledger.Create(ctx, draftAt(f, mustTime(t, "2026-11-17T15:00:00Z")))
	if err != nil {
		t.Fatalf("Create with cancelled context: %v", err)
	}
	if _, err := f.ledger.Get(context.Background(), b.ID); err != nil {
		t.Errorf("booking not committed: %v", err)
	}
}

func TestLedger_SetCalendarEventIDIsVersionGuarded(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	ctx := context.Background()
	b, _, err := f.ledger.Create(ctx, draftAt(f, mustTime(t, "2026-11-17T15:00:00Z")))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	linked, err := f.ledger.SetCalendarEventID(ctx, b.ID, 1, "evt-1")
	if err != nil || !linked {
		t.Fatalf("link at current version: linked=%v err=%v", linked, err)
	}

	moved, detached, err := f.ledger.Reschedule(ctx, b.ID, mustTime(t, "2026-11-17T17:00:00Z"))
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if detached != "evt-1" || moved.CalendarEventID != nil {
		t.Errorf("detached %q, remaining %v", detached, moved.CalendarEventID)
	}

	linked, err = f.ledger.SetCalendarEventID(ctx, b.ID, 1, "evt-stale")
	if err != nil || linked {
		t.Errorf("stale link accepted: linked=%v err=%v", linked, err)
	}
}

func TestLedger_ListBlockedIntervals(t *testing.T) {
	f := newFixture(t, mustTime(t, "2026-11-10T12:00:00Z"))
	ctx := context.Background()
	b, _, err := f.ledger.Create(ctx, draftAt(f, mustTime(t, "2026-11-17T15:00:00Z")))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := f.ledger.Cancel(ctx, b.ID, ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	day := timemath.Interval{Start: mustTime(t, "2026-11-17T00:00:00Z"), End: mustTime(t, "2026-11-18T00:00:00Z")}
	blocked, err := f.ledger.ListBlockedIntervals(ctx, f.et.HostID, day)
	if err != nil {
		t.Fatalf("ListBlockedIntervals: %v", err)
	}
	if len(blocked) != 0 {
		t.Errorf("cancelled booking still blocks: %v", blocked)
	}
}
