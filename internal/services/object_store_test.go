package services

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobooth/boothsync/internal/models"
)

func setupTestObjectStore(t *testing.T) *ObjectStore {
	tempDir, err := os.MkdirTemp("", "boothsync-objects-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := NewObjectStore(tempDir, nil, 20)
	require.NoError(t, err)

	return store
}

func TestObjectStoreStore(t *testing.T) {
	t.Run("stores and reads back an object", func(t *testing.T) {
		store := setupTestObjectStore(t)

		content := []byte("fake jpeg content")
		err := store.Store("photos/abc.jpg", bytes.NewReader(content), int64(len(content)))
		require.NoError(t, err)

		assert.True(t, store.Exists("photos/abc.jpg"))

		reader, size, err := store.Open("photos/abc.jpg")
		require.NoError(t, err)
		defer reader.Close()

		assert.Equal(t, int64(len(content)), size)
		got, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("overwrites an existing key", func(t *testing.T) {
		store := setupTestObjectStore(t)

		require.NoError(t, store.Store("photos/abc.jpg", bytes.NewReader([]byte("first")), 5))
		require.NoError(t, store.Store("photos/abc.jpg", bytes.NewReader([]byte("second upload")), 13))

		reader, _, err := store.Open("photos/abc.jpg")
		require.NoError(t, err)
		defer reader.Close()

		got, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, []byte("second upload"), got)
	})

	t.Run("rejects disallowed extensions", func(t *testing.T) {
		store := setupTestObjectStore(t)

		for _, key := range []string{"photos/x.exe", "photos/x.sh", "photos/x.php"} {
			err := store.Store(key, bytes.NewReader([]byte("content")), 7)
			assert.ErrorIs(t, err, models.ErrInvalidExtension, "key %s should be rejected", key)
		}
	})

	t.Run("rejects oversized declared length", func(t *testing.T) {
		store := setupTestObjectStore(t)

		err := store.Store("photos/big.jpg", bytes.NewReader([]byte("x")), 21*1024*1024)
		assert.ErrorIs(t, err, models.ErrFileTooLarge)
	})

	t.Run("rejects path traversal keys", func(t *testing.T) {
		store := setupTestObjectStore(t)

		for _, key := range []string{"../escape.jpg", "photos/../../etc/passwd.jpg", "/etc/passwd.jpg"} {
			err := store.Store(key, bytes.NewReader([]byte("content")), 7)
			assert.ErrorIs(t, err, models.ErrPathTraversal, "key %s should be rejected", key)
		}
	})
}

func TestObjectStoreDelete(t *testing.T) {
	t.Run("deletes existing object", func(t *testing.T) {
		store := setupTestObjectStore(t)

		require.NoError(t, store.Store("photos/abc.jpg", bytes.NewReader([]byte("content")), 7))
		assert.True(t, store.Delete("photos/abc.jpg"))
		assert.False(t, store.Exists("photos/abc.jpg"))
	})

	t.Run("returns false for missing object", func(t *testing.T) {
		store := setupTestObjectStore(t)
		assert.False(t, store.Delete("photos/nope.jpg"))
	})
}

func TestObjectStoreOpen(t *testing.T) {
	t.Run("missing object is ErrPhotoNotFound", func(t *testing.T) {
		store := setupTestObjectStore(t)

		_, _, err := store.Open("photos/nope.jpg")
		assert.ErrorIs(t, err, models.ErrPhotoNotFound)
	})
}

func TestObjectStoreSize(t *testing.T) {
	store := setupTestObjectStore(t)

	content := []byte("twelve bytes")
	require.NoError(t, store.Store("photos/abc.jpg", bytes.NewReader(content), int64(len(content))))

	assert.Equal(t, int64(len(content)), store.Size("photos/abc.jpg"))
	assert.Equal(t, int64(0), store.Size("photos/nope.jpg"))
}
