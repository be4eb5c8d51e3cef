package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobooth/boothsync/internal/models"
	"github.com/photobooth/boothsync/internal/queue"
)

// fakeObjects is an in-memory ObjectStorage that can simulate an
// unreachable remote
type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	offline bool
	uploads int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.offline {
		return models.NewUploadError("object", key, errors.New("connection refused"))
	}
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "http://share.test/" + key
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) setOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

func (f *fakeObjects) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// fakeMeta is an in-memory MetadataService
type fakeMeta struct {
	mu      sync.Mutex
	metas   map[string]*models.RemotePhotoMeta
	failing bool
	upserts int
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{metas: map[string]*models.RemotePhotoMeta{}}
}

func (f *fakeMeta) Upsert(ctx context.Context, meta *models.RemotePhotoMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.failing {
		return models.NewUploadError("metadata", meta.ID, errors.New("service unavailable"))
	}
	copied := *meta
	f.metas[meta.ID] = &copied
	return nil
}

func (f *fakeMeta) Get(ctx context.Context, id string) (*models.RemotePhotoMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if meta, ok := f.metas[id]; ok {
		copied := *meta
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeMeta) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func setupEngine(t *testing.T) (*Engine, *queue.Store, *fakeObjects, *fakeMeta) {
	tempDir, err := os.MkdirTemp("", "boothsync-engine-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := queue.Open(filepath.Join(tempDir, "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	objects := newFakeObjects()
	meta := newFakeMeta()
	engine := New(store, objects, meta, Config{RetryCeiling: 5})

	return engine, store, objects, meta
}

func TestEnqueueCapture(t *testing.T) {
	ctx := context.Background()

	t.Run("online capture uploads immediately", func(t *testing.T) {
		engine, store, objects, meta := setupEngine(t)

		result, err := engine.EnqueueCapture(ctx, []byte("jpeg"), 1200, 1800, "classic-strip")
		require.NoError(t, err)
		assert.True(t, result.Synced)
		assert.Empty(t, result.SyncError)

		assert.True(t, objects.has("photos/"+result.ID+".jpg"))
		remoteMeta, err := meta.Get(ctx, result.ID)
		require.NoError(t, err)
		require.NotNil(t, remoteMeta)
		assert.Equal(t, "http://share.test/photos/"+result.ID+".jpg", remoteMeta.FileURL)

		record, err := store.Get(ctx, result.ID)
		require.NoError(t, err)
		assert.True(t, record.Synced)
	})

	t.Run("offline capture is saved locally and reported", func(t *testing.T) {
		engine, store, objects, _ := setupEngine(t)
		objects.setOffline(true)

		result, err := engine.EnqueueCapture(ctx, []byte("jpeg"), 1200, 1800, "classic-strip")
		require.NoError(t, err, "a failed upload must not fail the capture")
		assert.False(t, result.Synced)
		assert.NotEmpty(t, result.SyncError)

		record, err := store.Get(ctx, result.ID)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.False(t, record.Synced)

		// The immediate attempt does not count against the retry ceiling
		assert.Equal(t, 0, record.RetryCount)
	})

	t.Run("invalid capture is rejected before saving", func(t *testing.T) {
		engine, store, _, _ := setupEngine(t)

		_, err := engine.EnqueueCapture(ctx, nil, 1200, 1800, "classic-strip")
		assert.ErrorIs(t, err, models.ErrEmptyImageData)

		count, err := store.PendingCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestRunSync(t *testing.T) {
	ctx := context.Background()

	t.Run("pending records sync once the remote recovers", func(t *testing.T) {
		engine, store, objects, meta := setupEngine(t)
		objects.setOffline(true)

		result, err := engine.EnqueueCapture(ctx, []byte("jpeg"), 1200, 1800, "grid")
		require.NoError(t, err)
		require.False(t, result.Synced)

		objects.setOffline(false)
		engine.RunSync(ctx)

		record, err := store.Get(ctx, result.ID)
		require.NoError(t, err)
		assert.True(t, record.Synced)
		assert.Equal(t, 1, record.RetryCount)

		remoteMeta, err := meta.Get(ctx, result.ID)
		require.NoError(t, err)
		assert.NotNil(t, remoteMeta)

		status := engine.GetStatus()
		assert.Equal(t, 1, status.Synced)
		assert.Equal(t, 0, status.Failed)
	})

	t.Run("retry count grows by one per failed run", func(t *testing.T) {
		engine, store, objects, _ := setupEngine(t)
		objects.setOffline(true)

		result, err := engine.EnqueueCapture(ctx, []byte("jpeg"), 1200, 1800, "grid")
		require.NoError(t, err)

		engine.RunSync(ctx)
		engine.RunSync(ctx)

		record, err := store.Get(ctx, result.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, record.RetryCount)
		assert.False(t, record.Synced)
	})

	t.Run("records beyond the ceiling are skipped but stay queued", func(t *testing.T) {
		engine, store, objects, _ := setupEngine(t)
		objects.setOffline(true)

		result, err := engine.EnqueueCapture(ctx, []byte("jpeg"), 1200, 1800, "grid")
		require.NoError(t, err)

		// Drive the counter past the ceiling
		for i := 0; i < 6; i++ {
			require.NoError(t, store.IncrementRetry(ctx, result.ID))
		}

		uploadsBefore := objects.uploads
		engine.RunSync(ctx)

		assert.Equal(t, uploadsBefore, objects.uploads, "no attempt for an exhausted record")
		assert.Equal(t, 1, engine.GetStatus().Skipped)

		record, err := store.Get(ctx, result.ID)
		require.NoError(t, err)
		assert.False(t, record.Synced)
		assert.Equal(t, 6, record.RetryCount)

		exhausted, err := store.ListExhausted(ctx, 5)
		require.NoError(t, err)
		assert.Len(t, exhausted, 1)
	})

	t.Run("one failing record does not block the rest", func(t *testing.T) {
		engine, store, objects, meta := setupEngine(t)
		objects.setOffline(true)

		first, err := engine.EnqueueCapture(ctx, []byte("a"), 100, 100, "first")
		require.NoError(t, err)
		second, err := engine.EnqueueCapture(ctx, []byte("b"), 100, 100, "second")
		require.NoError(t, err)

		// Object uploads recover but the metadata service stays down for
		// the run; then only metadata recovers for a second pass.
		objects.setOffline(false)
		meta.setFailing(true)
		engine.RunSync(ctx)

		status := engine.GetStatus()
		assert.Equal(t, 0, status.Synced)
		assert.Equal(t, 2, status.Failed)

		firstRecord, err := store.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, firstRecord.Synced, "partial success must not mark synced")

		meta.setFailing(false)
		engine.RunSync(ctx)

		for _, id := range []string{first.ID, second.ID} {
			record, err := store.Get(ctx, id)
			require.NoError(t, err)
			assert.True(t, record.Synced)
		}
	})

	t.Run("empty queue is a quiet no-op", func(t *testing.T) {
		engine, _, objects, _ := setupEngine(t)

		engine.RunSync(ctx)

		assert.Equal(t, 0, objects.uploads)
		status := engine.GetStatus()
		assert.Equal(t, 0, status.Synced+status.Failed+status.Skipped)
	})
}

// Covers the offline-capture lifecycle end to end: capture while the
// network is down, fail twice in the background, then recover.
func TestOfflineCaptureLifecycle(t *testing.T) {
	ctx := context.Background()
	engine, store, objects, meta := setupEngine(t)

	objects.setOffline(true)

	result, err := engine.EnqueueCapture(ctx, []byte("composite jpeg"), 1200, 1800, "classic-strip")
	require.NoError(t, err)
	assert.NotEmpty(t, result.SyncError)

	record, err := store.Get(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, record.RetryCount)

	// Two scheduled passes while still offline
	engine.RunSync(ctx)
	engine.RunSync(ctx)

	record, err = store.Get(ctx, result.ID)
	require.NoError(t, err)
	assert.False(t, record.Synced)
	assert.Equal(t, 2, record.RetryCount)

	// Network returns
	objects.setOffline(false)
	engine.RunSync(ctx)

	record, err = store.Get(ctx, result.ID)
	require.NoError(t, err)
	assert.True(t, record.Synced)
	require.NotNil(t, record.RemoteID)
	assert.Equal(t, result.ID, *record.RemoteID)

	assert.True(t, objects.has("photos/"+result.ID+".jpg"))
	remoteMeta, err := meta.Get(ctx, result.ID)
	require.NoError(t, err)
	require.NotNil(t, remoteMeta)
	assert.Equal(t, 1200, remoteMeta.Width)
	assert.Equal(t, "classic-strip", remoteMeta.LayoutName)

	count, err := store.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
