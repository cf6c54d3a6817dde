package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/model"
)

const organizationColumns = `id::text, slug, name, timezone, COALESCE(whatsapp_number, ''),
	COALESCE(logo_url, ''), slot_step_minutes, created_at`

func scanOrganization(row interface{ Scan(...any) error }) (model.Organization, error) {
	var o model.Organization
	err := row.Scan(&o.ID, &o.Slug, &o.Name, &o.Timezone, &o.WhatsAppNumber, &o.LogoURL, &o.SlotStepMinutes, &o.CreatedAt)
	return o, err
}

func (s *Store) OrganizationBySlug(ctx context.Context, slug string) (model.Organization, error) {
	o, err := scanOrganization(s.pool.QueryRow(ctx, `
		SELECT `+organizationColumns+`
		FROM organizations
		WHERE slug = $1
	`, slug))
	return o, classify(err, apperr.ErrOrganizationNotFound)
}

func (s *Store) OrganizationByID(ctx context.Context, id string) (model.Organization, error) {
	o, err := scanOrganization(s.pool.QueryRow(ctx, `
		SELECT `+organizationColumns+`
		FROM organizations
		WHERE id = $1
	`, id))
	return o, classify(err, apperr.ErrOrganizationNotFound)
}

// UpdateOrganization saves the editable settings. The slug never changes.
func (s *Store) UpdateOrganization(ctx context.Context, org model.Organization) (model.Organization, error) {
	if org.SlotStepMinutes <= 0 {
		org.SlotStepMinutes = model.DefaultSlotStepMinutes
	}
	if err := org.Validate(); err != nil {
		return model.Organization{}, err
	}
	o, err := scanOrganization(s.pool.QueryRow(ctx, `
		UPDATE organizations
		SET name = $2,
			timezone = $3,
			whatsapp_number = $4,
			logo_url = $5,
			slot_step_minutes = $6
		WHERE id = $1
		RETURNING `+organizationColumns,
		org.ID, org.Name, org.Timezone, nullable(org.WhatsAppNumber), nullable(org.LogoURL), org.SlotStepMinutes))
	return o, classify(err, apperr.ErrOrganizationNotFound)
}

// CreateOrganization seeds a tenant with default opening hours.
func (s *Store) CreateOrganization(ctx context.Context, org model.Organization) (model.Organization, error) {
	if org.SlotStepMinutes <= 0 {
		org.SlotStepMinutes = model.DefaultSlotStepMinutes
	}
	if org.Timezone == "" {
		org.Timezone = "UTC"
	}
	if err := org.Validate(); err != nil {
		return model.Organization{}, err
	}
	var out model.Organization
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanOrganization(tx.QueryRow(ctx, `
			INSERT INTO organizations (slug, name, timezone, whatsapp_number, logo_url, slot_step_minutes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+organizationColumns,
			org.Slug, org.Name, org.Timezone, nullable(org.WhatsAppNumber), nullable(org.LogoURL), org.SlotStepMinutes))
		if err != nil {
			return err
		}
		for day := time.Sunday; day <= time.Saturday; day++ {
			if err := upsertHours(ctx, tx, out.ID, model.DefaultDayHours(day)); err != nil {
				return err
			}
		}
		return nil
	})
	return out, classify(err, nil)
}
