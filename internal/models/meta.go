package models

import (
	"strings"
	"time"
)

// RemotePhotoMeta is the server-side metadata record for a synced photo.
// CreatedAt is server-assigned and authoritative for expiry.
type RemotePhotoMeta struct {
	ID         string    `json:"id"`
	FileURL    string    `json:"fileUrl"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	LayoutName string    `json:"layoutName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Validate checks the fields a metadata upsert requires
func (m *RemotePhotoMeta) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return ErrEmptyID
	}
	if m.Width <= 0 || m.Height <= 0 {
		return ErrInvalidDimensions
	}
	if strings.TrimSpace(m.LayoutName) == "" {
		return ErrEmptyLayoutName
	}
	return nil
}

// ExpiryInfo is the derived remaining-lifetime state of a photo. It is
// recomputed on demand and never persisted.
type ExpiryInfo struct {
	IsExpired          bool      `json:"isExpired"`
	RemainingMs        int64     `json:"remainingMs"`
	RemainingFormatted string    `json:"remainingFormatted"`
	ExpiresAt          time.Time `json:"expiresAt"`
}
