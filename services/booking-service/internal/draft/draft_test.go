package draft

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
)

func TestGuardRedirectsToFirstMissingStep(t *testing.T) {
	var d Draft
	require.NoError(t, d.Guard(StepService))

	var redirect *RedirectError
	require.True(t, errors.As(d.Guard(StepSlot), &redirect))
	assert.Equal(t, StepService, redirect.To)
	assert.Equal(t, StepSlot, redirect.Requested)

	d = d.withService(ServiceChoice{ID: "svc", DurationMinutes: 45})
	require.True(t, errors.As(d.Guard(StepContact), &redirect))
	assert.Equal(t, StepProfessional, redirect.To)

	d = d.withProfessional(ProfessionalChoice{Any: true})
	require.NoError(t, d.Guard(StepSlot))
	require.True(t, errors.As(d.Guard(StepCommitted), &redirect))
	assert.Equal(t, StepSlot, redirect.To)
}

func TestServiceWithoutDurationDoesNotCount(t *testing.T) {
	d := Draft{}.withService(ServiceChoice{ID: "svc"})
	var redirect *RedirectError
	require.True(t, errors.As(d.Guard(StepSlot), &redirect))
	assert.Equal(t, StepService, redirect.To)
	assert.Equal(t, StepStart, d.CurrentStep())
}

func TestCurrentAndNextStep(t *testing.T) {
	start := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)
	d := Draft{}
	assert.Equal(t, StepStart, d.CurrentStep())
	assert.Equal(t, StepService, d.NextStep())

	d = d.withService(ServiceChoice{ID: "svc", DurationMinutes: 30})
	d = d.withProfessional(ProfessionalChoice{ID: "p1"})
	d = d.withSlot(start)
	assert.Equal(t, StepSlot, d.CurrentStep())
	assert.Equal(t, StepContact, d.NextStep())

	d = d.withContact(Contact{FullName: "Lucia", Phone: "5491122334455"})
	assert.Equal(t, StepContact, d.CurrentStep())
	assert.Equal(t, StepCommitted, d.NextStep())
}

func TestBackwardNavigationKeepsLaterFields(t *testing.T) {
	start := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)
	d := Draft{}.
		withService(ServiceChoice{ID: "short", DurationMinutes: 30}).
		withProfessional(ProfessionalChoice{ID: "p1"}).
		withSlot(start).
		withContact(Contact{FullName: "Lucia", Phone: "5491122334455"})

	d = d.withService(ServiceChoice{ID: "long", DurationMinutes: 90})

	require.NotNil(t, d.Professional)
	assert.Equal(t, "p1", d.Professional.ID)
	require.NotNil(t, d.Contact)
	require.NotNil(t, d.Slot)
	assert.Equal(t, start, d.Slot.Start)
	assert.Equal(t, start.Add(90*time.Minute), d.Slot.End)
	assert.Equal(t, StepContact, d.CurrentStep())
}

func TestStepText(t *testing.T) {
	raw, err := json.Marshal(struct {
		Step Step `json:"step"`
	}{StepProfessional})
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":"professional"}`, string(raw))

	var s Step
	require.NoError(t, s.UnmarshalText([]byte("slot")))
	assert.Equal(t, StepSlot, s)
	assert.Error(t, s.UnmarshalText([]byte("payment")))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, Draft{ID: "d1", OrganizationSlug: "barber"}))
	require.NoError(t, s.SaveReceipt(ctx, "d1", Receipt{AppointmentID: "a1"}))

	got, err := s.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "barber", got.OrganizationSlug)

	now = now.Add(59 * time.Minute)
	require.NoError(t, s.Save(ctx, got)) // sliding expiry

	now = now.Add(30 * time.Minute)
	_, err = s.Get(ctx, "d1")
	require.NoError(t, err)
	_, err = s.Receipt(ctx, "d1")
	require.ErrorIs(t, err, ErrReceiptNotFound)

	now = now.Add(time.Hour)
	_, err = s.Get(ctx, "d1")
	require.ErrorIs(t, err, apperr.ErrDraftNotFound)

	require.NoError(t, s.Delete(ctx, "missing"))
}
