package storage

import (
	"context"
	"errors"

	"github.com/turnly/turnly/libs/db"
	"github.com/turnly/turnly/services/notification-service/internal/notify"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n notify.Notification) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (
			event_id, appointment_id, organization_id, recipient, message_text, status, provider
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text
	`, n.EventID, n.AppointmentID, n.OrganizationID, n.Recipient, n.MessageText,
		string(n.Status), n.Provider).Scan(&id)
	return id, err
}

func (r *Repository) Complete(ctx context.Context, id string, n notify.Notification) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $2,
		    provider_message_id = NULLIF($3, ''),
		    error_reason = NULLIF($4, ''),
		    updated_at = now()
		WHERE id = $1
	`, id, string(n.Status), n.ProviderMessageID, n.ErrorReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// ByEventID returns the notification recorded for one event.
func (r *Repository) ByEventID(ctx context.Context, eventID string) (notify.Notification, error) {
	var (
		n      notify.Notification
		status string
		msgID  *string
		reason *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT event_id, appointment_id::text, organization_id::text, recipient, message_text,
		       status, provider, provider_message_id, error_reason
		FROM notifications
		WHERE event_id = $1
	`, eventID).Scan(&n.EventID, &n.AppointmentID, &n.OrganizationID, &n.Recipient, &n.MessageText,
		&status, &n.Provider, &msgID, &reason)
	if err != nil {
		return notify.Notification{}, err
	}
	n.Status = notify.Status(status)
	if msgID != nil {
		n.ProviderMessageID = *msgID
	}
	if reason != nil {
		n.ErrorReason = *reason
	}
	return n, nil
}
