package model

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return s, true
	default:
		return "", false
	}
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether staff may move an appointment from s to next.
// Setting the current status again is always allowed and changes nothing.
// Completed and cancelled are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OccupiesSchedule is false only for cancelled appointments.
func (s Status) OccupiesSchedule() bool {
	return s != StatusCancelled
}

type Appointment struct {
	ID             string
	OrganizationID string
	CustomerID     string
	ServiceID      string
	ProfessionalID string
	StartTime      time.Time
	EndTime        time.Time
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Overlaps uses half-open intervals: [start,end) and [StartTime,EndTime)
// overlap iff start < EndTime && StartTime < end.
func (a Appointment) Overlaps(start, end time.Time) bool {
	return start.Before(a.EndTime) && a.StartTime.Before(end)
}

// AgendaEntry is an appointment joined with the names staff need to read it.
type AgendaEntry struct {
	Appointment
	CustomerName     string
	CustomerPhone    string
	ServiceName      string
	ProfessionalName string
}
