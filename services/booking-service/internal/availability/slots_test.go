package availability

import (
	"testing"
	"time"

	"github.com/turnly/turnly/services/booking-service/internal/model"
)

func TestAvailableSlots_Basic(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, loc)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)

	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)},
	}

	slots := AvailableSlots(windowStart, windowEnd, 15*time.Minute, 15*time.Minute, busy, day)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
	if !slots[1].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Format(time.RFC3339))
	}
}

func TestAvailableSlots_SkipsPast(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	now := day.Add(9*time.Hour + 31*time.Minute)

	slots := AvailableSlots(day.Add(9*time.Hour), day.Add(10*time.Hour), 15*time.Minute, 15*time.Minute, nil, now)
	// 09:00, 09:15 and 09:30 start before now.
	if len(slots) != 1 || !slots[0].Equal(day.Add(9*time.Hour+45*time.Minute)) {
		t.Fatalf("expected only 09:45, got %v", slots)
	}
}

func TestAvailableSlots_FullDayHourService(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	windowStart, windowEnd := day.Add(9*time.Hour), day.Add(18*time.Hour)

	slots := AvailableSlots(windowStart, windowEnd, time.Hour, 30*time.Minute, nil, day.Add(8*time.Hour))
	// 09:00 through 17:00 every 30 minutes
	if len(slots) != 17 {
		t.Fatalf("expected 17 slots, got %d", len(slots))
	}
	if !slots[0].Equal(windowStart) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0])
	}
	if last := slots[len(slots)-1]; !last.Equal(day.Add(17 * time.Hour)) {
		t.Fatalf("expected last slot 17:00, got %s", last)
	}
	for i, s := range slots {
		if s.Add(time.Hour).After(windowEnd) {
			t.Fatalf("slot %s ends after the window", s)
		}
		if i > 0 && s.Sub(slots[i-1]) < 30*time.Minute {
			t.Fatalf("slots %s and %s closer than the step", slots[i-1], s)
		}
	}
}

func TestAvailableSlots_BusyBlocksOverlappingCandidates(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	busy := []Interval{{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)}}

	slots := AvailableSlots(day.Add(9*time.Hour), day.Add(18*time.Hour), 30*time.Minute, 30*time.Minute, busy, day)
	set := map[time.Time]bool{}
	for _, s := range slots {
		set[s] = true
	}
	for _, absent := range []time.Duration{10 * time.Hour, 10*time.Hour + 30*time.Minute} {
		if set[day.Add(absent)] {
			t.Fatalf("expected %s to be blocked", day.Add(absent))
		}
	}
	for _, present := range []time.Duration{9*time.Hour + 30*time.Minute, 11 * time.Hour} {
		if !set[day.Add(present)] {
			t.Fatalf("expected %s to be available", day.Add(present))
		}
	}
}

func TestAvailableSlots_LongServiceCannotSwallowShortAppointment(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	// A 15 minute appointment at 09:30 sits inside a 09:00 candidate of 60 minutes.
	busy := []Interval{{Start: day.Add(9*time.Hour + 30*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)}}

	slots := AvailableSlots(day.Add(9*time.Hour), day.Add(11*time.Hour), time.Hour, 30*time.Minute, busy, day)
	for _, s := range slots {
		if s.Before(day.Add(9*time.Hour + 45*time.Minute)) {
			t.Fatalf("slot %s overlaps the 09:30 appointment", s)
		}
	}
	if len(slots) != 1 || !slots[0].Equal(day.Add(10*time.Hour)) {
		t.Fatalf("expected only 10:00, got %v", slots)
	}
}

func TestAvailableSlots_DegenerateInput(t *testing.T) {
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if AvailableSlots(day, day.Add(time.Hour), 0, 30*time.Minute, nil, day) != nil {
		t.Fatalf("zero duration must yield no slots")
	}
	if AvailableSlots(day, day.Add(30*time.Minute), time.Hour, 30*time.Minute, nil, day) != nil {
		t.Fatalf("service longer than window must yield no slots")
	}
}

func TestBusyIntervalsIgnoresCancelled(t *testing.T) {
	day := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	busy := BusyIntervals([]model.Appointment{
		{StartTime: day, EndTime: day.Add(time.Hour), Status: model.StatusCancelled},
		{StartTime: day, EndTime: day.Add(time.Hour), Status: model.StatusPending},
	})
	if len(busy) != 1 {
		t.Fatalf("expected one busy interval, got %d", len(busy))
	}
}
