package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turnly/turnly/libs/kafkax"
)

type recordingSender struct {
	to, text string
	err      error
}

func (s *recordingSender) ProviderID() string { return "test" }

func (s *recordingSender) Send(_ context.Context, to, text string) (string, error) {
	s.to, s.text = to, text
	if s.err != nil {
		return "", s.err
	}
	return "msg-1", nil
}

func confirmationRecord(t *testing.T) Record {
	t.Helper()
	evt, err := NewConfirmationEvent(ConfirmationPayload{
		AppointmentID:  "appt-1",
		OrganizationID: "org-1",
		RecipientPhone: "+5491100000000",
		MessageText:    "hola",
		StartTime:      time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return Record{ID: 1, EventID: "evt-1", AggregateID: evt.AggregateID, EventType: evt.EventType, Payload: evt.Payload}
}

func TestDirectDispatcherSendsConfirmation(t *testing.T) {
	sender := &recordingSender{}
	d := NewDirectDispatcher(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, d.Dispatch(context.Background(), confirmationRecord(t)))
	assert.Equal(t, "+5491100000000", sender.to)
	assert.Equal(t, "hola", sender.text)
	assert.Equal(t, "direct:test", d.Name())
}

func TestDirectDispatcherReportsSendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("provider down")}
	d := NewDirectDispatcher(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := d.Dispatch(context.Background(), confirmationRecord(t))
	assert.ErrorContains(t, err, "provider down")
}

func TestDirectDispatcherDropsMalformedPayload(t *testing.T) {
	sender := &recordingSender{}
	d := NewDirectDispatcher(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := d.Dispatch(context.Background(), Record{EventType: EventAppointmentConfirmed, Payload: []byte(`{"appointment_id":"x"}`)})
	assert.NoError(t, err)
	assert.Empty(t, sender.to)
}

func TestRecordMessage(t *testing.T) {
	r := confirmationRecord(t)
	msg := recordMessage(context.Background(), r)
	assert.Equal(t, EventAppointmentConfirmed, msg.Topic)
	assert.Equal(t, "appt-1", string(msg.Key))
	assert.Equal(t, "evt-1", kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID))
}

func TestDecodeConfirmationRequiresFields(t *testing.T) {
	_, err := DecodeConfirmation([]byte(`{"appointment_id":"a","message_text":"x"}`))
	assert.Error(t, err)
	_, err = DecodeConfirmation([]byte(`not json`))
	assert.Error(t, err)
}
