package model

import (
	"testing"
	"time"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCompleted, StatusCompleted, true},
		{StatusCancelled, StatusCancelled, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if _, ok := ParseStatus("booked"); ok {
		t.Fatalf("expected unknown status to be rejected")
	}
	if s, ok := ParseStatus("completed"); !ok || s != StatusCompleted {
		t.Fatalf("expected completed, got %q", s)
	}
}

func TestProfessionalFilter(t *testing.T) {
	if !ParseProfessionalFilter("").IsAny() || !ParseProfessionalFilter("any").IsAny() {
		t.Fatalf("expected blank and any to mean any professional")
	}
	f := ParseProfessionalFilter("p-1")
	if id, ok := f.ID(); !ok || id != "p-1" {
		t.Fatalf("expected specific p-1, got %q", id)
	}
	if f.Matches("p-2") || !f.Matches("p-1") || !AnyProfessional().Matches("p-2") {
		t.Fatalf("unexpected match result")
	}
}

func TestAppointmentOverlapIsHalfOpen(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	a := Appointment{StartTime: day.Add(10 * time.Hour), EndTime: day.Add(11 * time.Hour)}

	if a.Overlaps(day.Add(9*time.Hour), day.Add(10*time.Hour)) {
		t.Fatalf("touching intervals must not overlap")
	}
	if a.Overlaps(day.Add(11*time.Hour), day.Add(12*time.Hour)) {
		t.Fatalf("touching intervals must not overlap")
	}
	if !a.Overlaps(day.Add(9*time.Hour+30*time.Minute), day.Add(10*time.Hour+30*time.Minute)) {
		t.Fatalf("expected overlap")
	}
}

func TestDayHoursWindowAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2026-03-08 is the spring-forward day in New York.
	day := time.Date(2026, 3, 8, 0, 0, 0, 0, loc)
	start, end, ok := DefaultDayHours(time.Sunday).Window(day, loc)
	if !ok {
		t.Fatalf("expected open window")
	}
	if start.Hour() != 9 || end.Hour() != 18 {
		t.Fatalf("expected 09:00-18:00 local, got %s-%s", start, end)
	}
	if end.Sub(start) != 9*time.Hour {
		t.Fatalf("expected 9h window, got %s", end.Sub(start))
	}
}

func TestDayHoursValid(t *testing.T) {
	if (DayHours{Weekday: time.Monday, IsOpen: true, OpenMinute: 600, CloseMinute: 540}).Valid() {
		t.Fatalf("close before open must be invalid")
	}
	if !(DayHours{Weekday: time.Sunday}).Valid() {
		t.Fatalf("closed day must be valid")
	}
	if (DayHours{Weekday: 7, IsOpen: true, OpenMinute: 0, CloseMinute: 60}).Valid() {
		t.Fatalf("weekday 7 must be invalid")
	}
}
