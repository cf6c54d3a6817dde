package model

import "time"

const (
	DefaultSlotStepMinutes = 30
	DefaultOpenMinute      = 9 * 60
	DefaultCloseMinute     = 18 * 60
)

type Organization struct {
	ID              string
	Slug            string
	Name            string
	Timezone        string
	WhatsAppNumber  string
	LogoURL         string
	SlotStepMinutes int
	CreatedAt       time.Time
}

// Location falls back to UTC when the stored zone cannot be loaded.
func (o Organization) Location() (*time.Location, bool) {
	if o.Timezone == "" {
		return time.UTC, false
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}

func (o Organization) SlotStep() time.Duration {
	if o.SlotStepMinutes <= 0 {
		return DefaultSlotStepMinutes * time.Minute
	}
	return time.Duration(o.SlotStepMinutes) * time.Minute
}

// DayHours is the operating window of one weekday, in minutes after local
// midnight: [OpenMinute, CloseMinute).
type DayHours struct {
	Weekday     time.Weekday
	IsOpen      bool
	OpenMinute  int
	CloseMinute int
}

func DefaultDayHours(day time.Weekday) DayHours {
	return DayHours{Weekday: day, IsOpen: true, OpenMinute: DefaultOpenMinute, CloseMinute: DefaultCloseMinute}
}

func (h DayHours) Valid() bool {
	if h.Weekday < time.Sunday || h.Weekday > time.Saturday {
		return false
	}
	if !h.IsOpen {
		return true
	}
	return h.OpenMinute >= 0 && h.OpenMinute < h.CloseMinute && h.CloseMinute <= 24*60
}

// Window returns the operating interval of day (a date in loc). Building the
// bounds with time.Date keeps them on local wall-clock time across DST changes.
func (h DayHours) Window(day time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	if !h.IsOpen || h.CloseMinute <= h.OpenMinute {
		return time.Time{}, time.Time{}, false
	}
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, h.OpenMinute/60, h.OpenMinute%60, 0, 0, loc)
	end := time.Date(y, m, d, h.CloseMinute/60, h.CloseMinute%60, 0, 0, loc)
	return start, end, true
}
