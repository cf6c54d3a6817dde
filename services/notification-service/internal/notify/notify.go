// Package notify turns booking confirmation events into WhatsApp messages.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/turnly/turnly/libs/kafkax"
	"github.com/turnly/turnly/libs/whatsapp"
)

// EventAppointmentConfirmed is the topic booking-service publishes to.
const EventAppointmentConfirmed = "booking.appointment.confirmed.v1"

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Confirmation mirrors the payload booking-service writes to its outbox.
type Confirmation struct {
	AppointmentID  string    `json:"appointment_id"`
	OrganizationID string    `json:"organization_id"`
	RecipientPhone string    `json:"recipient_phone"`
	MessageText    string    `json:"message_text"`
	StartTime      time.Time `json:"start_time"`
}

func (c Confirmation) validate() error {
	if c.AppointmentID == "" || c.OrganizationID == "" || c.RecipientPhone == "" || c.MessageText == "" {
		return errors.New("confirmation payload missing required fields")
	}
	return nil
}

type Notification struct {
	EventID           string
	AppointmentID     string
	OrganizationID    string
	Recipient         string
	MessageText       string
	Status            Status
	Provider          string
	ProviderMessageID string
	ErrorReason       string
}

type Inbox interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Notifications interface {
	// Insert stores n as pending and returns its id.
	Insert(ctx context.Context, n Notification) (string, error)
	// Complete records the outcome of the send for a pending notification.
	Complete(ctx context.Context, id string, n Notification) error
}

type Handler struct {
	inbox  Inbox
	store  Notifications
	sender whatsapp.Sender
	logger *slog.Logger
}

func NewHandler(inbox Inbox, store Notifications, sender whatsapp.Sender, logger *slog.Logger) *Handler {
	return &Handler{inbox: inbox, store: store, sender: sender, logger: logger}
}

// Handle processes one confirmation event at most once. The notification row
// is written as pending before the send, so a failure up to that point
// releases the inbox entry and asks for redelivery, while anything after the
// send is only logged: a message that went out is never sent twice. A send
// failure is recorded as failed and not retried.
func (h *Handler) Handle(ctx context.Context, meta kafkax.EventMeta, msg kafka.Message) error {
	if meta.EventType != EventAppointmentConfirmed {
		h.logger.Debug("ignoring event", "event_type", meta.EventType)
		return nil
	}
	var c Confirmation
	if err := json.Unmarshal(msg.Value, &c); err != nil {
		h.logger.Error("invalid confirmation payload", "err", err, "event_id", meta.EventID)
		return nil
	}
	if err := c.validate(); err != nil {
		h.logger.Error("invalid confirmation payload", "err", err, "event_id", meta.EventID)
		return nil
	}

	fresh, err := h.inbox.Record(ctx, meta.EventID, meta.EventType)
	if err != nil {
		return fmt.Errorf("inbox record: %w", err)
	}
	if !fresh {
		h.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}

	n := Notification{
		EventID:        meta.EventID,
		AppointmentID:  c.AppointmentID,
		OrganizationID: c.OrganizationID,
		Recipient:      c.RecipientPhone,
		MessageText:    c.MessageText,
		Status:         StatusPending,
		Provider:       h.sender.ProviderID(),
	}
	id, err := h.store.Insert(ctx, n)
	if err != nil {
		if ferr := h.inbox.Forget(ctx, meta.EventID); ferr != nil {
			h.logger.Error("inbox release failed", "err", ferr, "event_id", meta.EventID)
		}
		return fmt.Errorf("persist notification: %w", err)
	}

	msgID, err := h.sender.Send(ctx, c.RecipientPhone, c.MessageText)
	if err != nil {
		n.Status = StatusFailed
		n.ErrorReason = err.Error()
		h.logger.Error("whatsapp send failed", "err", err, "appointment_id", c.AppointmentID)
	} else {
		n.Status = StatusSent
		n.ProviderMessageID = msgID
	}

	if err := h.store.Complete(ctx, id, n); err != nil {
		// the row stays pending; redelivering would message the customer again
		h.logger.Error("notification outcome not saved",
			"err", err,
			"notification_id", id,
			"status", n.Status,
			"appointment_id", c.AppointmentID,
		)
		return nil
	}

	h.logger.Info("confirmation processed",
		"appointment_id", c.AppointmentID,
		"status", n.Status,
		"provider", n.Provider,
	)
	return nil
}
