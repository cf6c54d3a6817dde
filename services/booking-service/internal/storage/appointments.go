package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/model"
)

const appointmentColumns = `a.id::text, a.organization_id::text, a.customer_id::text, a.service_id::text,
	a.professional_id::text, a.start_time, a.end_time, a.status, a.created_at, a.updated_at`

func scanAppointment(row interface{ Scan(...any) error }, extra ...any) (model.Appointment, error) {
	var a model.Appointment
	var status string
	dest := append([]any{&a.ID, &a.OrganizationID, &a.CustomerID, &a.ServiceID, &a.ProfessionalID,
		&a.StartTime, &a.EndTime, &status, &a.CreatedAt, &a.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.Status(status)
	return a, nil
}

func (s *Store) ListOccupying(ctx context.Context, organizationID string, professional model.ProfessionalFilter, start, end time.Time) ([]model.Appointment, error) {
	return listOccupying(ctx, s.pool, organizationID, professional, start, end)
}

// listOccupying returns non-cancelled appointments overlapping [start, end).
func listOccupying(ctx context.Context, q querier, organizationID string, professional model.ProfessionalFilter, start, end time.Time) ([]model.Appointment, error) {
	var professionalID *string
	if id, ok := professional.ID(); ok {
		professionalID = &id
	}
	rows, err := q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.organization_id = $1
			AND a.status <> 'cancelled'
			AND a.start_time < $3
			AND a.end_time > $2
			AND ($4::uuid IS NULL OR a.professional_id = $4::uuid)
		ORDER BY a.start_time, a.id
	`, organizationID, start, end, professionalID)
	if err != nil {
		return nil, classify(err, apperr.ErrProfessionalNotFound)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Appointment, error) {
		return scanAppointment(row)
	})
	return out, classify(err, nil)
}

const agendaQuery = `
	SELECT ` + appointmentColumns + `, c.full_name, c.whatsapp_number, s.name, p.name
	FROM appointments a
	JOIN customers c ON c.id = a.customer_id
	JOIN services s ON s.id = a.service_id
	JOIN professionals p ON p.id = a.professional_id
`

func collectAgenda(rows pgx.Rows) ([]model.AgendaEntry, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AgendaEntry, error) {
		var e model.AgendaEntry
		appt, err := scanAppointment(row, &e.CustomerName, &e.CustomerPhone, &e.ServiceName, &e.ProfessionalName)
		e.Appointment = appt
		return e, err
	})
}

// Agenda lists every appointment starting in [start, end), cancelled ones
// included, with the names staff need on screen.
func (s *Store) Agenda(ctx context.Context, organizationID string, start, end time.Time) ([]model.AgendaEntry, error) {
	rows, err := s.pool.Query(ctx, agendaQuery+`
		WHERE a.organization_id = $1 AND a.start_time >= $2 AND a.start_time < $3
		ORDER BY a.start_time, p.name
	`, organizationID, start, end)
	if err != nil {
		return nil, classify(err, apperr.ErrOrganizationNotFound)
	}
	out, err := collectAgenda(rows)
	return out, classify(err, nil)
}

// CustomerHistory lists a customer's appointments, newest first.
func (s *Store) CustomerHistory(ctx context.Context, organizationID, customerID string) ([]model.AgendaEntry, error) {
	rows, err := s.pool.Query(ctx, agendaQuery+`
		WHERE a.organization_id = $1 AND a.customer_id = $2
		ORDER BY a.start_time DESC
	`, organizationID, customerID)
	if err != nil {
		return nil, classify(err, apperr.ErrCustomerNotFound)
	}
	out, err := collectAgenda(rows)
	return out, classify(err, nil)
}
