package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/photobooth/boothsync/internal/models"
	"github.com/photobooth/boothsync/internal/repository"
	"github.com/photobooth/boothsync/internal/services"
)

// AdminHandler exposes operator endpoints on the share server
type AdminHandler struct {
	metaRepo repository.MetaRepo
	cleanup  *services.CleanupService
	hub      *services.EventHub
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	metaRepo repository.MetaRepo,
	cleanup *services.CleanupService,
	hub *services.EventHub,
) *AdminHandler {
	return &AdminHandler{
		metaRepo: metaRepo,
		cleanup:  cleanup,
		hub:      hub,
	}
}

// Stats reports photo count and connected gallery viewers
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	count, err := h.metaRepo.GetCount(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"photoCount":       count,
		"connectedClients": h.hub.GetClientCount(),
		"cleanup":          h.cleanup.GetStatus(),
	})
}

// CleanupStatus returns the expired-photo sweeper's state
func (h *AdminHandler) CleanupStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.cleanup.GetStatus())
}

// RunCleanup triggers an immediate sweep
func (h *AdminHandler) RunCleanup(w http.ResponseWriter, r *http.Request) {
	h.cleanup.RunNow()
	h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "cleanup started"})
}

func (h *AdminHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *AdminHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
