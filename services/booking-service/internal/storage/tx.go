package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/model"
	"github.com/turnly/turnly/services/booking-service/internal/outbox"
)

// Tx implements booking.Tx on one pgx transaction.
type Tx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *Tx) ClaimIdempotencyKey(ctx context.Context, organizationID, key string) (string, error) {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (organization_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (organization_id, idempotency_key) DO NOTHING
	`, organizationID, key)
	if err != nil {
		return "", classify(err, apperr.ErrOrganizationNotFound)
	}
	var appointmentID string
	err = t.tx.QueryRow(ctx, `
		SELECT COALESCE(appointment_id::text, '')
		FROM booking_idempotency_keys
		WHERE organization_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, organizationID, key).Scan(&appointmentID)
	return appointmentID, classify(err, nil)
}

func (t *Tx) FinalizeIdempotencyKey(ctx context.Context, organizationID, key, appointmentID string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $3
		WHERE organization_id = $1 AND idempotency_key = $2
	`, organizationID, key, appointmentID)
	return classify(err, nil)
}

func (t *Tx) UpsertCustomer(ctx context.Context, organizationID, fullName, phone string) (model.Customer, error) {
	return upsertCustomer(ctx, t.tx, organizationID, fullName, phone)
}

func (t *Tx) CustomerByID(ctx context.Context, organizationID, id string) (model.Customer, error) {
	return customerByID(ctx, t.tx, organizationID, id)
}

func (t *Tx) ListProfessionals(ctx context.Context, organizationID string) ([]model.Professional, error) {
	return listProfessionals(ctx, t.tx, organizationID)
}

func (t *Tx) ProfessionalByID(ctx context.Context, organizationID, id string) (model.Professional, error) {
	return professionalByID(ctx, t.tx, organizationID, id)
}

func (t *Tx) ListOccupying(ctx context.Context, organizationID string, professional model.ProfessionalFilter, start, end time.Time) ([]model.Appointment, error) {
	return listOccupying(ctx, t.tx, organizationID, professional, start, end)
}

// InsertAppointment relies on appointments_no_overlap: a concurrent commit for
// the same professional and time fails here with ErrSlotTaken.
func (t *Tx) InsertAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	var status string
	err := t.tx.QueryRow(ctx, `
		INSERT INTO appointments
			(organization_id, customer_id, service_id, professional_id, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text, status, created_at, updated_at
	`, appt.OrganizationID, appt.CustomerID, appt.ServiceID, appt.ProfessionalID,
		appt.StartTime, appt.EndTime, string(appt.Status)).Scan(&appt.ID, &status, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return model.Appointment{}, classify(err, nil)
	}
	appt.Status = model.Status(status)
	return appt, nil
}

func (t *Tx) AppointmentForUpdate(ctx context.Context, organizationID, id string) (model.Appointment, error) {
	a, err := scanAppointment(t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.organization_id = $1 AND a.id = $2
		FOR UPDATE
	`, organizationID, id))
	return a, classify(err, apperr.ErrAppointmentNotFound)
}

func (t *Tx) UpdateAppointmentStatus(ctx context.Context, organizationID, id string, status model.Status) (model.Appointment, error) {
	a, err := scanAppointment(t.tx.QueryRow(ctx, `
		UPDATE appointments a
		SET status = $3, updated_at = now()
		WHERE a.organization_id = $1 AND a.id = $2
		RETURNING `+appointmentColumns,
		organizationID, id, string(status)))
	return a, classify(err, apperr.ErrAppointmentNotFound)
}

func (t *Tx) EnqueueEvent(ctx context.Context, evt outbox.Event) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return classify(err, nil)
	}
	if err := t.outbox.Insert(ctx, sp, evt); err != nil {
		_ = sp.Rollback(ctx)
		return classify(err, nil)
	}
	return classify(sp.Commit(ctx), nil)
}
