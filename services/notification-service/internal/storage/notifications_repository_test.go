package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turnly/turnly/libs/db"
	"github.com/turnly/turnly/services/notification-service/internal/migrations"
	"github.com/turnly/turnly/services/notification-service/internal/notify"
)

// Runs against a disposable database: TEST_DATABASE_URL=postgres://... go test ./...
func openTestRepository(t *testing.T) *Repository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Open(ctx, url, db.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, db.Migrate(ctx, pool, migrations.FS, migrations.Dir, migrations.Table, logger))
	return NewRepository(pool)
}

func pendingNotification() notify.Notification {
	return notify.Notification{
		EventID:        uuid.NewString(),
		AppointmentID:  uuid.NewString(),
		OrganizationID: uuid.NewString(),
		Recipient:      "5491122334455",
		MessageText:    "confirmed",
		Status:         notify.StatusPending,
		Provider:       "stub",
	}
}

func TestInsertPendingThenComplete(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	n := pendingNotification()

	id, err := repo.Insert(ctx, n)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := repo.ByEventID(ctx, n.EventID)
	require.NoError(t, err)
	assert.Equal(t, notify.StatusPending, got.Status)
	assert.Empty(t, got.ProviderMessageID)

	n.Status = notify.StatusSent
	n.ProviderMessageID = "msg-1"
	require.NoError(t, repo.Complete(ctx, id, n))

	got, err = repo.ByEventID(ctx, n.EventID)
	require.NoError(t, err)
	assert.Equal(t, notify.StatusSent, got.Status)
	assert.Equal(t, "msg-1", got.ProviderMessageID)
	assert.Empty(t, got.ErrorReason)
}

func TestInsertRejectsSecondRowForEvent(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	n := pendingNotification()

	_, err := repo.Insert(ctx, n)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, n)
	require.Error(t, err)
}

func TestCompleteUnknownNotification(t *testing.T) {
	repo := openTestRepository(t)

	err := repo.Complete(context.Background(), uuid.NewString(), notify.Notification{Status: notify.StatusFailed, ErrorReason: "x"})
	require.ErrorIs(t, err, ErrNotificationNotFound)
}
