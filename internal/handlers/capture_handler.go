package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/photobooth/boothsync/internal/expiry"
	"github.com/photobooth/boothsync/internal/models"
	"github.com/photobooth/boothsync/internal/observability"
	"github.com/photobooth/boothsync/internal/queue"
	"github.com/photobooth/boothsync/internal/syncer"
)

// CaptureHandler is the booth UI's API on the kiosk agent: queueing
// captures, inspecting the local queue, and driving the sync engine.
type CaptureHandler struct {
	store        *queue.Store
	engine       *syncer.Engine
	logger       *observability.Logger
	retryCeiling int
	expiryWindow time.Duration
}

// NewCaptureHandler creates a new CaptureHandler
func NewCaptureHandler(
	store *queue.Store,
	engine *syncer.Engine,
	logger *observability.Logger,
	retryCeiling int,
	expiryWindow time.Duration,
) *CaptureHandler {
	if expiryWindow <= 0 {
		expiryWindow = expiry.DefaultWindow
	}
	return &CaptureHandler{
		store:        store,
		engine:       engine,
		logger:       logger,
		retryCeiling: retryCeiling,
		expiryWindow: expiryWindow,
	}
}

// Enqueue accepts a finished composite from the capture UI. The photo
// is durably queued before any network is touched; a failed immediate
// upload comes back as syncError on a 200, not as a request failure.
func (h *CaptureHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req models.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	result, err := h.engine.EnqueueCapture(r.Context(), req.ImageData, req.Width, req.Height, req.LayoutName)
	if err != nil {
		var storageErr *models.StorageError
		switch {
		case errors.As(err, &storageErr):
			h.logger.Errorf("Failed to queue capture: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to save photo locally.")
		default:
			h.respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, result)
}

// QueueStatus lists pending and retry-exhausted records, payloads
// excluded
func (h *CaptureHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := h.store.ListPending(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to read queue.")
		return
	}

	exhausted, err := h.store.ListExhausted(r.Context(), h.retryCeiling)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to read queue.")
		return
	}

	resp := models.QueueStatusResponse{
		Pending:   make([]models.QueueItem, 0, len(pending)),
		Exhausted: make([]models.QueueItem, 0, len(exhausted)),
		Count:     len(pending),
	}
	for _, record := range pending {
		resp.Pending = append(resp.Pending, models.RecordToQueueItem(record, h.retryCeiling))
	}
	for _, record := range exhausted {
		resp.Exhausted = append(resp.Exhausted, models.RecordToQueueItem(record, h.retryCeiling))
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// RunSync triggers an immediate sync pass. The pass runs in the
// background; a pass already in flight absorbs the trigger.
func (h *CaptureHandler) RunSync(w http.ResponseWriter, r *http.Request) {
	go h.engine.RunSync(context.Background())
	h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "sync started"})
}

// SyncStatus returns the engine's last-run snapshot
func (h *CaptureHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.engine.GetStatus())
}

// Expiry computes the share-window state for a queued record from its
// capture time. The booth UI shows this as "link expires in HH:MM:SS".
func (h *CaptureHandler) Expiry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to read queue.")
		return
	}
	if record == nil {
		h.respondError(w, http.StatusNotFound, "Photo not found.")
		return
	}

	info, err := expiry.Compute(record.CapturedAt, time.Now().UTC(), h.expiryWindow)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Invalid record.")
		return
	}

	h.respondJSON(w, http.StatusOK, info)
}

func (h *CaptureHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *CaptureHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
