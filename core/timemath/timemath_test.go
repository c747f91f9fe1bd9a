package timemath

import (
	"errors"
	"testing"
	"time"
)

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func iv(start, end string) Interval {
	return Interval{Start: utc(start), End: utc(end)}
}

func sameInterval(a, b Interval) bool {
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}

func mustLoc(t *testing.T, id string) *time.Location {
	t.Helper()
	loc, err := LoadLocation(id)
	if err != nil {
		t.Fatalf("load %s: %v", id, err)
	}
	return loc
}

func clock(t *testing.T, s string) ClockTime {
	t.Helper()
	c, err := ParseClock(s)
	if err != nil {
		t.Fatalf("parse clock %s: %v", s, err)
	}
	return c
}

func TestIntervalsOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", iv("2026-01-01T09:00:00Z", "2026-01-01T10:00:00Z"), iv("2026-01-01T11:00:00Z", "2026-01-01T12:00:00Z"), false},
		{"adjacent", iv("2026-01-01T09:00:00Z", "2026-01-01T10:00:00Z"), iv("2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z"), false},
		{"partial", iv("2026-01-01T09:00:00Z", "2026-01-01T10:30:00Z"), iv("2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z"), true},
		{"contained", iv("2026-01-01T09:00:00Z", "2026-01-01T12:00:00Z"), iv("2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z"), true},
		{"identical", iv("2026-01-01T09:00:00Z", "2026-01-01T10:00:00Z"), iv("2026-01-01T09:00:00Z", "2026-01-01T10:00:00Z"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IntervalsOverlap(tt.a, tt.b); got != tt.want {
				t.Errorf("overlap(a, b) = %v, want %v", got, tt.want)
			}
			if got := IntervalsOverlap(tt.b, tt.a); got != tt.want {
				t.Errorf("overlap(b, a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubtractIntervals(t *testing.T) {
	base := iv("2026-01-01T09:00:00Z", "2026-01-01T17:00:00Z")

	tests := []struct {
		name string
		busy []Interval
		want []Interval
	}{
		{
			name: "no busy",
			want: []Interval{base},
		},
		{
			name: "unsorted and overlapping",
			busy: []Interval{
				iv("2026-01-01T14:00:00Z", "2026-01-01T15:00:00Z"),
				iv("2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z"),
				iv("2026-01-01T10:30:00Z", "2026-01-01T12:00:00Z"),
			},
			want: []Interval{
				iv("2026-01-01T09:00:00Z", "2026-01-01T10:00:00Z"),
				iv("2026-01-01T12:00:00Z", "2026-01-01T14:00:00Z"),
				iv("2026-01-01T15:00:00Z", "2026-01-01T17:00:00Z"),
			},
		},
		{
			name: "adjacent busy merged",
			busy: []Interval{
				iv("2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z"),
				iv("2026-01-01T11:00:00Z", "2026-01-01T12:00:00Z"),
			},
			want: []Interval{
				iv("2026-01-01T09:00:00Z", "2026-01-01T10:00:00Z"),
				iv("2026-01-01T12:00:00Z", "2026-01-01T17:00:00Z"),
			},
		},
		{
			name: "busy covers base",
			busy: []Interval{iv("2026-01-01T08:00:00Z", "2026-01-01T18:00:00Z")},
			want: nil,
		},
		{
			name: "busy outside base",
			busy: []Interval{
				iv("2026-01-01T06:00:00Z", "2026-01-01T09:00:00Z"),
				iv("2026-01-01T17:00:00Z", "2026-01-01T19:00:00Z"),
			},
			want: []Interval{base},
		},
		{
			name: "busy clips both edges",
			busy: []Interval{
				iv("2026-01-01T08:00:00Z", "2026-01-01T09:30:00Z"),
				iv("2026-01-01T16:30:00Z", "2026-01-01T18:00:00Z"),
			},
			want: []Interval{iv("2026-01-01T09:30:00Z", "2026-01-01T16:30:00Z")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SubtractIntervals(base, tt.busy)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d intervals %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if !got[i].Start.Equal(tt.want[i].Start) || !got[i].End.Equal(tt.want[i].End) {
					t.Errorf("interval %d = %v, want %v", i, got[i], tt.want[i])
				}
				if got[i].IsEmpty() {
					t.Errorf("interval %d is empty", i)
				}
			}
		})
	}
}

func TestSubtractIntervals_DoesNotMutateInput(t *testing.T) {
	busy := []Interval{
		iv("2026-01-01T14:00:00Z", "2026-01-01T15:00:00Z"),
		iv("2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z"),
	}
	SubtractIntervals(iv("2026-01-01T09:00:00Z", "2026-01-01T17:00:00Z"), busy)
	if !busy[0].Start.Equal(utc("2026-01-01T14:00:00Z")) {
		t.Fatal("input slice was reordered")
	}
}

func TestExpandWeeklyBlock(t *testing.T) {
	ny := mustLoc(t, "America/New_York")

	t.Run("winter offset", func(t *testing.T) {
		block := Block{Start: clock(t, "09:00"), End: clock(t, "17:00")}
		got, err := ExpandWeeklyBlock(time.Tuesday, block, ny, time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := iv("2026-01-13T14:00:00Z", "2026-01-13T22:00:00Z")
		if !sameInterval(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("spring forward shortens block", func(t *testing.T) {
		// 2026-03-08 02:00 EST jumps to 03:00 EDT.
		block := Block{Start: clock(t, "01:00"), End: clock(t, "04:00")}
		got, err := ExpandWeeklyBlock(time.Sunday, block, ny, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := iv("2026-03-08T06:00:00Z", "2026-03-08T08:00:00Z")
		if !sameInterval(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		if got.Duration() != 2*time.Hour {
			t.Errorf("duration = %v, want 2h", got.Duration())
		}
	})

	t.Run("end of day", func(t *testing.T) {
		block := Block{Start: clock(t, "22:00"), End: clock(t, "24:00")}
		got, err := ExpandWeeklyBlock(time.Tuesday, block, ny, time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := iv("2026-01-14T03:00:00Z", "2026-01-14T05:00:00Z")
		if !sameInterval(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("weekday mismatch", func(t *testing.T) {
		block := Block{Start: clock(t, "09:00"), End: clock(t, "17:00")}
		_, err := ExpandWeeklyBlock(time.Monday, block, ny, time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC))
		if !errors.Is(err, ErrWeekdayMismatch) {
			t.Errorf("expected ErrWeekdayMismatch, got %v", err)
		}
	})
}

func TestLoadLocation_RejectsInvalid(t *testing.T) {
	for _, id := range []string{"", "Local", "Mars/Olympus", "EST5EDT,M3"} {
		if _, err := LoadLocation(id); !errors.Is(err, ErrInvalidTimezone) {
			t.Errorf("LoadLocation(%q) = %v, want ErrInvalidTimezone", id, err)
		}
	}
}

func TestTimezoneRoundTrip(t *testing.T) {
	zones := []string{"UTC", "America/New_York", "Asia/Kolkata", "Australia/Lord_Howe", "Europe/London"}
	start := utc("2026-06-15T00:00:00Z")
	for _, zone := range zones {
		for i := 0; i < 96; i++ {
			instant := start.Add(time.Duration(i) * 15 * time.Minute)
			local, err := ToTimezone(instant, zone)
			if err != nil {
				t.Fatalf("ToTimezone(%s): %v", zone, err)
			}
			back, err := FromTimezone(local, zone)
			if err != nil {
				t.Fatalf("FromTimezone(%s): %v", zone, err)
			}
			if !back.Equal(instant) {
				t.Fatalf("%s: round trip of %s gave %s", zone, instant, back)
			}
		}
	}
}

func TestCeilToQuantum(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	kolkata := mustLoc(t, "Asia/Kolkata")

	tests := []struct {
		name string
		in   time.Time
		loc  *time.Location
		want time.Time
	}{
		{"aligned", utc("2026-01-13T14:15:00Z"), ny, utc("2026-01-13T14:15:00Z")},
		{"rounds up", utc("2026-01-13T14:07:00Z"), ny, utc("2026-01-13T14:15:00Z")},
		{"seconds past boundary", utc("2026-01-13T14:15:01Z"), ny, utc("2026-01-13T14:30:00Z")},
		{"hour rollover", utc("2026-01-13T14:50:00Z"), ny, utc("2026-01-13T15:00:00Z")},
		// 09:10 IST sits on a half-hour UTC offset.
		{"half hour offset", utc("2026-01-13T03:40:00Z"), kolkata, utc("2026-01-13T03:45:00Z")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CeilToQuantum(tt.in, tt.loc, 15*time.Minute)
			if !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got.UTC(), tt.want)
			}
		})
	}
}

func TestRoundUpToQuantum(t *testing.T) {
	q := 15 * time.Minute
	if got := RoundUpToQuantum(30*time.Minute, q); got != 30*time.Minute {
		t.Errorf("30m -> %v", got)
	}
	if got := RoundUpToQuantum(20*time.Minute, q); got != 30*time.Minute {
		t.Errorf("20m -> %v", got)
	}
}

func TestParseClock(t *testing.T) {
	valid := map[string]int{"00:00": 0, "09:30": 570, "23:59": 1439, "24:00": 1440}
	for s, minutes := range valid {
		c, err := ParseClock(s)
		if err != nil {
			t.Errorf("ParseClock(%q): %v", s, err)
			continue
		}
		if c.Minutes() != minutes {
			t.Errorf("ParseClock(%q).Minutes() = %d, want %d", s, c.Minutes(), minutes)
		}
	}
	for _, s := range []string{"", "9:00", "24:01", "12:60", "ab:cd", "+9:00"} {
		if _, err := ParseClock(s); err == nil {
			t.Errorf("ParseClock(%q) expected error", s)
		}
	}
}
