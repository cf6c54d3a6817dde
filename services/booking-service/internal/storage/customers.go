package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/model"
)

const customerColumns = `id::text, organization_id::text, full_name, whatsapp_number,
	COALESCE(internal_notes, ''), created_at`

func scanCustomer(row interface{ Scan(...any) error }) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.OrganizationID, &c.FullName, &c.WhatsAppNumber, &c.InternalNotes, &c.CreatedAt)
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context, organizationID string) ([]model.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE organization_id = $1
		ORDER BY full_name, id
	`, organizationID)
	if err != nil {
		return nil, classify(err, apperr.ErrOrganizationNotFound)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Customer, error) {
		return scanCustomer(row)
	})
	return out, classify(err, nil)
}

func (s *Store) CustomerByID(ctx context.Context, organizationID, id string) (model.Customer, error) {
	return customerByID(ctx, s.pool, organizationID, id)
}

func customerByID(ctx context.Context, q querier, organizationID, id string) (model.Customer, error) {
	c, err := scanCustomer(q.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE organization_id = $1 AND id = $2
	`, organizationID, id))
	return c, classify(err, apperr.ErrCustomerNotFound)
}

func (s *Store) UpdateCustomerNotes(ctx context.Context, organizationID, id, notes string) (model.Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx, `
		UPDATE customers
		SET internal_notes = $3
		WHERE organization_id = $1 AND id = $2
		RETURNING `+customerColumns,
		organizationID, id, nullable(notes)))
	return c, classify(err, apperr.ErrCustomerNotFound)
}

// upsertCustomer keeps the stored name when the phone is already known.
func upsertCustomer(ctx context.Context, q querier, organizationID, fullName, phone string) (model.Customer, error) {
	c, err := scanCustomer(q.QueryRow(ctx, `
		INSERT INTO customers (organization_id, full_name, whatsapp_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, whatsapp_number) DO UPDATE
		SET full_name = customers.full_name
		RETURNING `+customerColumns,
		organizationID, fullName, phone))
	return c, classify(err, apperr.ErrOrganizationNotFound)
}
