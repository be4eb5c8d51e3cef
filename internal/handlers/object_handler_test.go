package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobooth/boothsync/internal/models"
	"github.com/photobooth/boothsync/internal/observability"
	"github.com/photobooth/boothsync/internal/repository"
	"github.com/photobooth/boothsync/internal/services"
)

func setupObjectHandler(t *testing.T) (*ObjectHandler, *repository.MetaRepository, *services.ObjectStore) {
	tempDir, err := os.MkdirTemp("", "boothsync-handler-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	db, err := repository.NewSQLiteDB(filepath.Join(tempDir, "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	metaRepo := repository.NewMetaRepository(db)

	store, err := services.NewObjectStore(filepath.Join(tempDir, "objects"), nil, 20)
	require.NoError(t, err)

	handler := NewObjectHandler(store, metaRepo, observability.GetLogger(), 24*time.Hour)
	return handler, metaRepo, store
}

func objectRouter(handler *ObjectHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Put("/api/objects/*", handler.Put)
	r.Get("/api/objects/*", handler.Get)
	r.Delete("/api/objects/*", handler.Delete)
	return r
}

func TestObjectHandlerPut(t *testing.T) {
	t.Run("stores the body and answers 201", func(t *testing.T) {
		handler, _, store := setupObjectHandler(t)
		router := objectRouter(handler)

		req := httptest.NewRequest(http.MethodPut, "/api/objects/photos/abc.jpg", bytes.NewReader([]byte("jpeg")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, store.Exists("photos/abc.jpg"))
	})

	t.Run("repeated put for the same key succeeds", func(t *testing.T) {
		handler, _, _ := setupObjectHandler(t)
		router := objectRouter(handler)

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodPut, "/api/objects/photos/abc.jpg", bytes.NewReader([]byte("jpeg")))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusCreated, rec.Code)
		}
	})

	t.Run("rejects disallowed extension", func(t *testing.T) {
		handler, _, _ := setupObjectHandler(t)
		router := objectRouter(handler)

		req := httptest.NewRequest(http.MethodPut, "/api/objects/photos/abc.exe", bytes.NewReader([]byte("x")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestObjectHandlerGet(t *testing.T) {
	ctx := context.Background()

	upsertMeta := func(t *testing.T, repo *repository.MetaRepository, id string, createdAt time.Time) {
		require.NoError(t, repo.Upsert(ctx, &models.RemotePhotoMeta{
			ID:         id,
			FileURL:    "http://share.test/api/objects/photos/" + id + ".jpg",
			Width:      1200,
			Height:     1800,
			LayoutName: "classic-strip",
			CreatedAt:  createdAt,
		}))
	}

	t.Run("serves a fresh photo", func(t *testing.T) {
		handler, metaRepo, store := setupObjectHandler(t)
		router := objectRouter(handler)

		require.NoError(t, store.Store("photos/fresh.jpg", bytes.NewReader([]byte("jpeg bytes")), 10))
		upsertMeta(t, metaRepo, "fresh", time.Now().UTC().Add(-1*time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/api/objects/photos/fresh.jpg", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
		assert.Equal(t, []byte("jpeg bytes"), rec.Body.Bytes())
	})

	t.Run("expired photo answers 410 Gone", func(t *testing.T) {
		handler, metaRepo, store := setupObjectHandler(t)
		router := objectRouter(handler)

		require.NoError(t, store.Store("photos/old.jpg", bytes.NewReader([]byte("jpeg")), 4))
		upsertMeta(t, metaRepo, "old", time.Now().UTC().Add(-25*time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/api/objects/photos/old.jpg", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusGone, rec.Code)
	})

	t.Run("unknown photo answers 404", func(t *testing.T) {
		handler, _, _ := setupObjectHandler(t)
		router := objectRouter(handler)

		req := httptest.NewRequest(http.MethodGet, "/api/objects/photos/nope.jpg", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestObjectHandlerDelete(t *testing.T) {
	handler, _, store := setupObjectHandler(t)
	router := objectRouter(handler)

	require.NoError(t, store.Store("photos/abc.jpg", bytes.NewReader([]byte("jpeg")), 4))

	req := httptest.NewRequest(http.MethodDelete, "/api/objects/photos/abc.jpg", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, store.Exists("photos/abc.jpg"))
}
