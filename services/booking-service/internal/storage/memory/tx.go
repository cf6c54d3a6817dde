package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/model"
	"github.com/turnly/turnly/services/booking-service/internal/outbox"
)

// tx stages customer and appointment writes; InTx swaps them in on success.
// The store lock is held for the whole transaction.
type tx struct {
	store        *Store
	customers    map[string]model.Customer
	appointments map[string]model.Appointment
	events       []outbox.Event
	keys         map[string]string
}

func (t *tx) ClaimIdempotencyKey(_ context.Context, organizationID, key string) (string, error) {
	if _, ok := t.store.orgs[organizationID]; !ok {
		return "", apperr.ErrOrganizationNotFound
	}
	return t.keys[organizationID+"/"+key], nil
}

func (t *tx) FinalizeIdempotencyKey(_ context.Context, organizationID, key, appointmentID string) error {
	t.keys[organizationID+"/"+key] = appointmentID
	return nil
}

func (t *tx) CustomerByID(_ context.Context, organizationID, id string) (model.Customer, error) {
	c, ok := t.customers[id]
	if !ok || c.OrganizationID != organizationID {
		return model.Customer{}, apperr.ErrCustomerNotFound
	}
	return c, nil
}

func (t *tx) UpsertCustomer(_ context.Context, organizationID, fullName, phone string) (model.Customer, error) {
	if _, ok := t.store.orgs[organizationID]; !ok {
		return model.Customer{}, apperr.ErrOrganizationNotFound
	}
	for _, c := range t.customers {
		if c.OrganizationID == organizationID && c.WhatsAppNumber == phone {
			return c, nil
		}
	}
	c := model.Customer{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		FullName:       fullName,
		WhatsAppNumber: phone,
		CreatedAt:      t.store.now(),
	}
	t.customers[c.ID] = c
	return c, nil
}

func (t *tx) ListProfessionals(_ context.Context, organizationID string) ([]model.Professional, error) {
	return listProfessionals(t.store.professionals, organizationID), nil
}

func (t *tx) ProfessionalByID(_ context.Context, organizationID, id string) (model.Professional, error) {
	p, ok := t.store.professionals[id]
	if !ok || p.OrganizationID != organizationID {
		return model.Professional{}, apperr.ErrProfessionalNotFound
	}
	return p, nil
}

func (t *tx) ListOccupying(_ context.Context, organizationID string, professional model.ProfessionalFilter, start, end time.Time) ([]model.Appointment, error) {
	return occupying(t.appointments, organizationID, professional, start, end), nil
}

func (t *tx) InsertAppointment(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	if !appt.EndTime.After(appt.StartTime) {
		return model.Appointment{}, apperr.Validation("invalid_interval", "end must be after start")
	}
	if _, ok := t.customers[appt.CustomerID]; !ok {
		return model.Appointment{}, apperr.Validation("invalid_reference", "referenced record does not exist")
	}
	if appt.Status.OccupiesSchedule() {
		busy := occupying(t.appointments, appt.OrganizationID, model.SpecificProfessional(appt.ProfessionalID), appt.StartTime, appt.EndTime)
		if len(busy) > 0 {
			return model.Appointment{}, apperr.ErrSlotTaken
		}
	}
	if appt.Status == "" {
		appt.Status = model.StatusPending
	}
	now := t.store.now()
	appt.ID = uuid.NewString()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	t.appointments[appt.ID] = appt
	return appt, nil
}

func (t *tx) AppointmentForUpdate(_ context.Context, organizationID, id string) (model.Appointment, error) {
	a, ok := t.appointments[id]
	if !ok || a.OrganizationID != organizationID {
		return model.Appointment{}, apperr.ErrAppointmentNotFound
	}
	return a, nil
}

func (t *tx) UpdateAppointmentStatus(_ context.Context, organizationID, id string, status model.Status) (model.Appointment, error) {
	a, ok := t.appointments[id]
	if !ok || a.OrganizationID != organizationID {
		return model.Appointment{}, apperr.ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = t.store.now()
	t.appointments[id] = a
	return a, nil
}

func (t *tx) EnqueueEvent(_ context.Context, evt outbox.Event) error {
	if t.store.failEvents {
		return ErrEventsUnavailable
	}
	t.events = append(t.events, evt)
	return nil
}
