package handlers

import (
	"encoding/json"
	"io"
	"net/http"
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

// PhotoMetaHandler handles photo metadata and gallery endpoints
type PhotoMetaHandler struct {
	metaRepo     repository.MetaRepo
	store        *services.ObjectStore
	thumbnails   *services.ThumbnailService
	hub          *services.EventHub
	logger       *observability.Logger
	expiryWindow time.Duration
}

// NewPhotoMetaHandler creates a new PhotoMetaHandler
func NewPhotoMetaHandler(
	metaRepo repository.MetaRepo,
	store *services.ObjectStore,
	thumbnails *services.ThumbnailService,
	hub *services.EventHub,
	logger *observability.Logger,
	expiryWindow time.Duration,
) *PhotoMetaHandler {
	if expiryWindow <= 0 {
		expiryWindow = expiry.DefaultWindow
	}
	return &PhotoMetaHandler{
		metaRepo:     metaRepo,
		store:        store,
		thumbnails:   thumbnails,
		hub:          hub,
		logger:       logger,
		expiryWindow: expiryWindow,
	}
}

// Upsert inserts or updates a photo's metadata. Booths repeat this call
// when a sync retries, so an existing record is overwritten rather than
// rejected; the original created_at survives so the share window never
// restarts.
func (h *PhotoMetaHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req models.UpsertMetaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	meta := &models.RemotePhotoMeta{
		ID:         req.ID,
		FileURL:    req.FileURL,
		Width:      req.Width,
		Height:     req.Height,
		LayoutName: req.LayoutName,
	}
	if err := meta.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.metaRepo.Get(r.Context(), meta.ID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	if err := h.metaRepo.Upsert(r.Context(), meta); err != nil {
		h.logger.WithField("photoId", meta.ID).Errorf("Failed to upsert metadata: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to save metadata.")
		return
	}

	if existing == nil {
		// First sight of this photo: build gallery thumbnails and tell
		// connected viewers. Both are best effort.
		h.generateThumbnails(meta.ID)
		if h.hub != nil {
			h.hub.BroadcastToTopic(services.TopicGallery, services.EventMessage{
				Type: services.EventPhotoSynced,
				Payload: map[string]string{
					"id":      meta.ID,
					"fileUrl": meta.FileURL,
				},
			})
		}
		w.WriteHeader(http.StatusCreated)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Get returns a photo's metadata with its computed expiry state. The
// record stays readable after expiry; IsExpired tells the client the
// download link is gone.
func (h *PhotoMetaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	meta, err := h.metaRepo.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if meta == nil {
		h.respondError(w, http.StatusNotFound, "Photo not found.")
		return
	}

	resp, err := h.toResponse(meta)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Invalid photo record.")
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Gallery lists photos newest first with pagination, each carrying its
// expiry state so the UI can grey out expired entries
func (h *PhotoMetaHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	skip := parseIntParam(r, "skip", 0)
	take := parseIntParam(r, "take", 50)
	if take < 1 || take > 200 {
		take = 50
	}
	if skip < 0 {
		skip = 0
	}

	metas, err := h.metaRepo.GetAll(r.Context(), skip, take)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	total, err := h.metaRepo.GetCount(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	photos := make([]models.PhotoMetaResponse, 0, len(metas))
	for _, meta := range metas {
		resp, err := h.toResponse(meta)
		if err != nil {
			continue
		}
		photos = append(photos, resp)
	}

	h.respondJSON(w, http.StatusOK, models.GalleryResponse{
		Photos:     photos,
		TotalCount: total,
		Skip:       skip,
		Take:       take,
	})
}

// Thumbnail serves a gallery thumbnail, subject to the same expiry gate
// as the full object
func (h *PhotoMetaHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	size := r.URL.Query().Get("size")
	if size != services.ThumbMedium.Name {
		size = services.ThumbSmall.Name
	}

	meta, err := h.metaRepo.Get(r.Context(), id)
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

	relPath := "photos/.thumbs/" + id + "_" + size + ".jpg"
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeFile(w, r, h.thumbnails.GetPath(relPath))
}

// Delete removes a photo's metadata, its object, and its thumbnails
func (h *PhotoMetaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.metaRepo.Delete(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if !deleted {
		h.respondError(w, http.StatusNotFound, "Photo not found.")
		return
	}

	h.store.Delete("photos/" + id + ".jpg")
	if h.thumbnails != nil {
		h.thumbnails.Delete(id)
	}

	w.WriteHeader(http.StatusNoContent)
}

// generateThumbnails builds gallery thumbnails from the stored object.
// Failures are logged, never surfaced: the full-size photo is already
// safe and the gallery falls back to it.
func (h *PhotoMetaHandler) generateThumbnails(photoID string) {
	if h.thumbnails == nil || h.store == nil {
		return
	}

	reader, _, err := h.store.Open("photos/" + photoID + ".jpg")
	if err != nil {
		h.logger.WithField("photoId", photoID).Debugf("No object for thumbnails: %v", err)
		return
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		h.logger.WithField("photoId", photoID).Errorf("Failed to read object: %v", err)
		return
	}

	if _, err := h.thumbnails.Generate(data, photoID); err != nil {
		h.logger.WithField("photoId", photoID).Errorf("Failed to generate thumbnails: %v", err)
	}
}

func (h *PhotoMetaHandler) toResponse(meta *models.RemotePhotoMeta) (models.PhotoMetaResponse, error) {
	info, err := expiry.Compute(meta.CreatedAt, time.Now().UTC(), h.expiryWindow)
	if err != nil {
		return models.PhotoMetaResponse{}, err
	}

	return models.PhotoMetaResponse{
		ID:         meta.ID,
		FileURL:    meta.FileURL,
		Width:      meta.Width,
		Height:     meta.Height,
		LayoutName: meta.LayoutName,
		CreatedAt:  meta.CreatedAt,
		Expiry:     info,
	}, nil
}

func (h *PhotoMetaHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *PhotoMetaHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}

func parseIntParam(r *http.Request, name string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
