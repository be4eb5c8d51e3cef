package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PhotoRecord is the locally persisted unit of a captured photo awaiting
// or having completed remote sync
type PhotoRecord struct {
	ID         string    `json:"id"`
	ImageData  []byte    `json:"imageData,omitempty"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	LayoutName string    `json:"layoutName"`
	CapturedAt time.Time `json:"capturedAt"`
	Synced     bool      `json:"synced"`
	RemoteID   *string   `json:"remoteId,omitempty"`
	RetryCount int       `json:"retryCount"`
}

// NewPhotoRecord creates a new PhotoRecord with validation
func NewPhotoRecord(imageData []byte, width, height int, layoutName string) (*PhotoRecord, error) {
	if len(imageData) == 0 {
		return nil, ErrEmptyImageData
	}
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if strings.TrimSpace(layoutName) == "" {
		return nil, ErrEmptyLayoutName
	}

	return &PhotoRecord{
		ID:         uuid.New().String(),
		ImageData:  imageData,
		Width:      width,
		Height:     height,
		LayoutName: layoutName,
		CapturedAt: time.Now().UTC(),
		Synced:     false,
		RetryCount: 0,
	}, nil
}

// ObjectKey returns the deterministic remote storage key for this record.
// Retries re-upload to the same key, so remote storage must allow overwrite.
func (r *PhotoRecord) ObjectKey() string {
	return "photos/" + r.ID + ".jpg"
}
