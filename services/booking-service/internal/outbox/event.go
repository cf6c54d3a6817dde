package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	AggregateAppointment = "appointment"

	// EventAppointmentConfirmed is also the Kafka topic name.
	EventAppointmentConfirmed = "booking.appointment.confirmed.v1"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// ConfirmationPayload is everything a notifier needs to message the customer
// without reading booking tables.
type ConfirmationPayload struct {
	AppointmentID  string    `json:"appointment_id"`
	OrganizationID string    `json:"organization_id"`
	RecipientPhone string    `json:"recipient_phone"`
	MessageText    string    `json:"message_text"`
	StartTime      time.Time `json:"start_time"`
}

func NewConfirmationEvent(p ConfirmationPayload) (Event, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Event{}, fmt.Errorf("encode confirmation payload: %w", err)
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   p.AppointmentID,
		EventType:     EventAppointmentConfirmed,
		Payload:       raw,
	}, nil
}

func DecodeConfirmation(raw []byte) (ConfirmationPayload, error) {
	var p ConfirmationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ConfirmationPayload{}, err
	}
	if p.AppointmentID == "" || p.RecipientPhone == "" || p.MessageText == "" {
		return ConfirmationPayload{}, fmt.Errorf("confirmation payload missing required fields")
	}
	return p, nil
}
