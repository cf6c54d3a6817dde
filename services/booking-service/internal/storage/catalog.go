package storage

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/model"
)

const serviceColumns = `id::text, organization_id::text, name, COALESCE(description, ''),
	duration_minutes, price::float8, is_active`

func scanService(row interface{ Scan(...any) error }) (model.Service, error) {
	var svc model.Service
	err := row.Scan(&svc.ID, &svc.OrganizationID, &svc.Name, &svc.Description, &svc.DurationMinutes, &svc.Price, &svc.IsActive)
	return svc, err
}

func (s *Store) ServiceByID(ctx context.Context, organizationID, serviceID string) (model.Service, error) {
	svc, err := scanService(s.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE organization_id = $1 AND id = $2
	`, organizationID, serviceID))
	return svc, classify(err, apperr.ErrServiceNotFound)
}

// ListServices returns the catalog ordered by name; inactive services are
// only included for staff.
func (s *Store) ListServices(ctx context.Context, organizationID string, includeInactive bool) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE organization_id = $1 AND (is_active OR $2)
		ORDER BY name, id
	`, organizationID, includeInactive)
	if err != nil {
		return nil, classify(err, apperr.ErrOrganizationNotFound)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Service, error) {
		return scanService(row)
	})
	return out, classify(err, nil)
}

func (s *Store) CreateService(ctx context.Context, svc model.Service) (model.Service, error) {
	if err := svc.Validate(); err != nil {
		return model.Service{}, err
	}
	out, err := scanService(s.pool.QueryRow(ctx, `
		INSERT INTO services (organization_id, name, description, duration_minutes, price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+serviceColumns,
		svc.OrganizationID, strings.TrimSpace(svc.Name), nullable(svc.Description), svc.DurationMinutes, svc.Price, svc.IsActive))
	return out, classify(err, nil)
}

func (s *Store) UpdateService(ctx context.Context, svc model.Service) (model.Service, error) {
	if err := svc.Validate(); err != nil {
		return model.Service{}, err
	}
	out, err := scanService(s.pool.QueryRow(ctx, `
		UPDATE services
		SET name = $3,
			description = $4,
			duration_minutes = $5,
			price = $6,
			is_active = $7
		WHERE organization_id = $1 AND id = $2
		RETURNING `+serviceColumns,
		svc.OrganizationID, svc.ID, strings.TrimSpace(svc.Name), nullable(svc.Description), svc.DurationMinutes, svc.Price, svc.IsActive))
	return out, classify(err, apperr.ErrServiceNotFound)
}

const professionalColumns = `id::text, organization_id::text, name, color_code`

func scanProfessional(row interface{ Scan(...any) error }) (model.Professional, error) {
	var p model.Professional
	err := row.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.ColorCode)
	return p, err
}

func (s *Store) ListProfessionals(ctx context.Context, organizationID string) ([]model.Professional, error) {
	return listProfessionals(ctx, s.pool, organizationID)
}

func listProfessionals(ctx context.Context, q querier, organizationID string) ([]model.Professional, error) {
	rows, err := q.Query(ctx, `
		SELECT `+professionalColumns+`
		FROM professionals
		WHERE organization_id = $1
		ORDER BY name, id
	`, organizationID)
	if err != nil {
		return nil, classify(err, apperr.ErrOrganizationNotFound)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Professional, error) {
		return scanProfessional(row)
	})
	return out, classify(err, nil)
}

func (s *Store) ProfessionalByID(ctx context.Context, organizationID, id string) (model.Professional, error) {
	return professionalByID(ctx, s.pool, organizationID, id)
}

func professionalByID(ctx context.Context, q querier, organizationID, id string) (model.Professional, error) {
	p, err := scanProfessional(q.QueryRow(ctx, `
		SELECT `+professionalColumns+`
		FROM professionals
		WHERE organization_id = $1 AND id = $2
	`, organizationID, id))
	return p, classify(err, apperr.ErrProfessionalNotFound)
}

func (s *Store) CreateProfessional(ctx context.Context, p model.Professional) (model.Professional, error) {
	if err := p.Validate(); err != nil {
		return model.Professional{}, err
	}
	if p.ColorCode == "" {
		p.ColorCode = "#3b82f6"
	}
	out, err := scanProfessional(s.pool.QueryRow(ctx, `
		INSERT INTO professionals (organization_id, name, color_code)
		VALUES ($1, $2, $3)
		RETURNING `+professionalColumns,
		p.OrganizationID, strings.TrimSpace(p.Name), p.ColorCode))
	return out, classify(err, nil)
}
