package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/photobooth/boothsync/internal/expiry"
	"github.com/photobooth/boothsync/internal/models"
	"github.com/photobooth/boothsync/internal/observability"
	"github.com/photobooth/boothsync/internal/repository"
	"github.com/photobooth/boothsync/internal/services"
)

// ObjectHandler handles raw photo object upload and download
type ObjectHandler struct {
	store        *services.ObjectStore
	metaRepo     repository.MetaRepo
	logger       *observability.Logger
	metrics      *observability.ServerMetrics
	expiryWindow time.Duration
}

// NewObjectHandler creates a new ObjectHandler
func NewObjectHandler(
	store *services.ObjectStore,
	metaRepo repository.MetaRepo,
	logger *observability.Logger,
	expiryWindow time.Duration,
) *ObjectHandler {
	if expiryWindow <= 0 {
		expiryWindow = expiry.DefaultWindow
	}
	return &ObjectHandler{
		store:        store,
		metaRepo:     metaRepo,
		logger:       logger,
		expiryWindow: expiryWindow,
	}
}

// SetMetrics attaches server metrics recording
func (h *ObjectHandler) SetMetrics(metrics *observability.ServerMetrics) {
	h.metrics = metrics
}

// Put stores the request body under the object key. An existing object
// is overwritten: booths resend the same key when a sync retries after
// a partial failure.
func (h *ObjectHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		h.respondError(w, http.StatusBadRequest, "Object key is required.")
		return
	}

	defer r.Body.Close()
	if err := h.store.Store(key, r.Body, r.ContentLength); err != nil {
		switch {
		case errors.Is(err, models.ErrFileTooLarge):
			h.respondError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, models.ErrInvalidExtension), errors.Is(err, models.ErrPathTraversal):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.WithField("key", key).Errorf("Failed to store object: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to store object.")
		}
		if h.metrics != nil {
			h.metrics.RecordUpload(r.Context(), 0, false)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUpload(r.Context(), r.ContentLength, true)
	}

	w.WriteHeader(http.StatusCreated)
}

// Get serves the object at key, gated on the photo's share window.
// Expired photos answer 410 Gone so guests see a clear "link expired"
// rather than a broken image.
func (h *ObjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		h.respondError(w, http.StatusBadRequest, "Object key is required.")
		return
	}

	meta, err := h.metaRepo.Get(r.Context(), keyPhotoID(key))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if meta == nil {
		h.respondError(w, http.StatusNotFound, "Photo not found.")
		return
	}

	info, err := expiry.Compute(meta.CreatedAt, time.Now().UTC(), h.expiryWindow)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Invalid photo record.")
		return
	}
	if info.IsExpired {
		h.respondError(w, http.StatusGone, "This photo has expired.")
		return
	}

	reader, size, err := h.store.Open(key)
	if err != nil {
		if errors.Is(err, models.ErrPhotoNotFound) {
			h.respondError(w, http.StatusNotFound, "Photo not found.")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to read object.")
		return
	}
	defer reader.Close()

	if h.metrics != nil {
		h.metrics.RecordDownload(r.Context())
	}

	w.Header().Set("Content-Type", contentTypeForKey(key))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Cache-Control", "private, max-age=300")
	io.Copy(w, reader)
}

// Delete removes the object at key
func (h *ObjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		h.respondError(w, http.StatusBadRequest, "Object key is required.")
		return
	}

	if !h.store.Delete(key) {
		h.respondError(w, http.StatusNotFound, "Object not found.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ObjectHandler) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}

// keyPhotoID extracts the photo ID from a storage key like
// "photos/<id>.jpg"
func keyPhotoID(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
