package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
	"github.com/turnly/turnly/services/booking-service/internal/model"
)

// DayHours falls back to the default 09:00-18:00 window when the weekday has
// no row.
func (s *Store) DayHours(ctx context.Context, organizationID string, day time.Weekday) (model.DayHours, error) {
	h := model.DayHours{Weekday: day}
	err := s.pool.QueryRow(ctx, `
		SELECT is_open, open_minute, close_minute
		FROM operating_hours
		WHERE organization_id = $1 AND weekday = $2
	`, organizationID, int(day)).Scan(&h.IsOpen, &h.OpenMinute, &h.CloseMinute)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DefaultDayHours(day), nil
	}
	return h, classify(err, apperr.ErrOrganizationNotFound)
}

// ListHours returns all seven weekdays, Sunday first.
func (s *Store) ListHours(ctx context.Context, organizationID string) ([]model.DayHours, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT weekday, is_open, open_minute, close_minute
		FROM operating_hours
		WHERE organization_id = $1
	`, organizationID)
	if err != nil {
		return nil, classify(err, apperr.ErrOrganizationNotFound)
	}
	stored, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.DayHours, error) {
		var h model.DayHours
		var wd int16
		err := row.Scan(&wd, &h.IsOpen, &h.OpenMinute, &h.CloseMinute)
		h.Weekday = time.Weekday(wd)
		return h, err
	})
	if err != nil {
		return nil, classify(err, nil)
	}
	week := make([]model.DayHours, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		week[day] = model.DefaultDayHours(day)
	}
	for _, h := range stored {
		week[h.Weekday] = h
	}
	return week, nil
}

func (s *Store) ReplaceHours(ctx context.Context, organizationID string, week []model.DayHours) error {
	if err := model.ValidateWeek(week); err != nil {
		return err
	}
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		for _, h := range week {
			if err := upsertHours(ctx, tx, organizationID, h); err != nil {
				return err
			}
		}
		return nil
	})
	return classify(err, apperr.ErrOrganizationNotFound)
}

func upsertHours(ctx context.Context, q querier, organizationID string, h model.DayHours) error {
	_, err := q.Exec(ctx, `
		INSERT INTO operating_hours (organization_id, weekday, is_open, open_minute, close_minute)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, weekday) DO UPDATE
		SET is_open = EXCLUDED.is_open,
			open_minute = EXCLUDED.open_minute,
			close_minute = EXCLUDED.close_minute
	`, organizationID, int16(h.Weekday), h.IsOpen, h.OpenMinute, h.CloseMinute)
	return err
}
