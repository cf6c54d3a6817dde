package draft

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
)

func newRedisStore(t *testing.T, ttl time.Duration) *RedisStore {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return NewRedisStore(rdb, ttl, "turnly-test:"+uuid.NewString()+":")
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s := newRedisStore(t, time.Minute)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	start := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)
	d := Draft{ID: uuid.NewString(), OrganizationSlug: "barber"}.
		withService(ServiceChoice{ID: "svc", Name: "Cut", DurationMinutes: 30}).
		withProfessional(ProfessionalChoice{Any: true}).
		withSlot(start)
	require.NoError(t, s.Save(ctx, d))

	got, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StepSlot, got.CurrentStep())
	assert.True(t, got.Professional.Any)
	assert.True(t, got.Slot.End.Equal(start.Add(30*time.Minute)))

	require.NoError(t, s.SaveReceipt(ctx, d.ID, Receipt{AppointmentID: "appt", Status: "confirmed"}))
	require.NoError(t, s.Delete(ctx, d.ID))
	_, err = s.Get(ctx, d.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	r, err := s.Receipt(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "appt", r.AppointmentID)
}

func TestRedisStoreExpires(t *testing.T) {
	s := newRedisStore(t, time.Second)
	ctx := context.Background()

	d := Draft{ID: uuid.NewString(), OrganizationSlug: "barber"}
	require.NoError(t, s.Save(ctx, d))
	time.Sleep(1500 * time.Millisecond)

	_, err := s.Get(ctx, d.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
