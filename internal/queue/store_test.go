package queue

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobooth/boothsync/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	tempDir, err := os.MkdirTemp("", "boothsync-queue-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := Open(filepath.Join(tempDir, "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func newTestRecord(t *testing.T, layout string) *models.PhotoRecord {
	record, err := models.NewPhotoRecord([]byte("jpeg bytes"), 1200, 1800, layout)
	require.NoError(t, err)
	return record
}

func TestStoreSaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("saved record is readable", func(t *testing.T) {
		record := newTestRecord(t, "classic-strip")
		require.NoError(t, store.Save(ctx, record))

		got, err := store.Get(ctx, record.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, record.ID, got.ID)
		assert.Equal(t, record.LayoutName, got.LayoutName)
		assert.False(t, got.Synced)
		assert.Equal(t, 0, got.RetryCount)
	})

	t.Run("get omits the image payload", func(t *testing.T) {
		record := newTestRecord(t, "grid")
		require.NoError(t, store.Save(ctx, record))

		got, err := store.Get(ctx, record.ID)
		require.NoError(t, err)
		assert.Empty(t, got.ImageData)

		data, err := store.GetImageData(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg bytes"), data)
	})

	t.Run("missing record is nil without error", func(t *testing.T) {
		got, err := store.Get(ctx, "no-such-id")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing payload is ErrRecordNotFound", func(t *testing.T) {
		_, err := store.GetImageData(ctx, "no-such-id")
		assert.ErrorIs(t, err, models.ErrRecordNotFound)
	})

	t.Run("save overwrites an existing id", func(t *testing.T) {
		record := newTestRecord(t, "grid")
		require.NoError(t, store.Save(ctx, record))

		record.LayoutName = "polaroid"
		require.NoError(t, store.Save(ctx, record))

		got, err := store.Get(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, "polaroid", got.LayoutName)
	})
}

func TestStoreListPending(t *testing.T) {
	ctx := context.Background()

	t.Run("empty queue returns empty slice", func(t *testing.T) {
		store := setupTestStore(t)

		pending, err := store.ListPending(ctx)
		require.NoError(t, err)
		assert.NotNil(t, pending)
		assert.Empty(t, pending)
	})

	t.Run("returns unsynced records oldest first", func(t *testing.T) {
		store := setupTestStore(t)

		older := newTestRecord(t, "first")
		older.CapturedAt = time.Now().UTC().Add(-2 * time.Hour)
		newer := newTestRecord(t, "second")
		newer.CapturedAt = time.Now().UTC().Add(-1 * time.Hour)

		require.NoError(t, store.Save(ctx, newer))
		require.NoError(t, store.Save(ctx, older))

		pending, err := store.ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, older.ID, pending[0].ID)
		assert.Equal(t, newer.ID, pending[1].ID)
	})

	t.Run("synced records drop out of pending", func(t *testing.T) {
		store := setupTestStore(t)

		record := newTestRecord(t, "grid")
		require.NoError(t, store.Save(ctx, record))
		require.NoError(t, store.MarkSynced(ctx, record.ID, "remote-1"))

		pending, err := store.ListPending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)

		count, err := store.PendingCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestStoreMarkSynced(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("records remote id", func(t *testing.T) {
		record := newTestRecord(t, "grid")
		require.NoError(t, store.Save(ctx, record))
		require.NoError(t, store.MarkSynced(ctx, record.ID, "remote-42"))

		got, err := store.Get(ctx, record.ID)
		require.NoError(t, err)
		assert.True(t, got.Synced)
		require.NotNil(t, got.RemoteID)
		assert.Equal(t, "remote-42", *got.RemoteID)
	})

	t.Run("missing record is a silent no-op", func(t *testing.T) {
		assert.NoError(t, store.MarkSynced(ctx, "no-such-id", "remote-x"))
	})

	t.Run("repeat call is idempotent", func(t *testing.T) {
		record := newTestRecord(t, "grid")
		require.NoError(t, store.Save(ctx, record))
		require.NoError(t, store.MarkSynced(ctx, record.ID, "remote-a"))
		require.NoError(t, store.MarkSynced(ctx, record.ID, "remote-a"))

		got, err := store.Get(ctx, record.ID)
		require.NoError(t, err)
		assert.True(t, got.Synced)
	})
}

func TestStoreIncrementRetry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("counter only increases", func(t *testing.T) {
		record := newTestRecord(t, "grid")
		require.NoError(t, store.Save(ctx, record))

		for i := 1; i <= 3; i++ {
			require.NoError(t, store.IncrementRetry(ctx, record.ID))

			got, err := store.Get(ctx, record.ID)
			require.NoError(t, err)
			assert.Equal(t, i, got.RetryCount)
		}
	})

	t.Run("missing record is a silent no-op", func(t *testing.T) {
		assert.NoError(t, store.IncrementRetry(ctx, "no-such-id"))
	})
}

func TestStoreListExhausted(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	fresh := newTestRecord(t, "fresh")
	require.NoError(t, store.Save(ctx, fresh))

	stuck := newTestRecord(t, "stuck")
	require.NoError(t, store.Save(ctx, stuck))
	for i := 0; i < 6; i++ {
		require.NoError(t, store.IncrementRetry(ctx, stuck.ID))
	}

	exhausted, err := store.ListExhausted(ctx, 5)
	require.NoError(t, err)
	require.Len(t, exhausted, 1)
	assert.Equal(t, stuck.ID, exhausted[0].ID)

	// The stuck record stays queued rather than being deleted
	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestStoreSurvivesReopen(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "boothsync-queue-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "queue.db")
	ctx := context.Background()

	store, err := Open(dbPath)
	require.NoError(t, err)

	record := newTestRecord(t, "classic-strip")
	require.NoError(t, store.Save(ctx, record))
	require.NoError(t, store.Close())

	// Simulates the kiosk restarting after a crash or power cut
	reopened, err := Open(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	pending, err := reopened.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, record.ID, pending[0].ID)

	data, err := reopened.GetImageData(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), data)
}
