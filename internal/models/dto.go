package models

import "time"

// ErrorResponse is a generic API error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by the health check endpoints
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// EnqueueRequest is the capture UI's request to queue a photo
type EnqueueRequest struct {
	ImageData  []byte `json:"imageData"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	LayoutName string `json:"layoutName"`
}

// EnqueueResult is returned after a capture is durably queued
type EnqueueResult struct {
	ID         string    `json:"id"`
	CapturedAt time.Time `json:"capturedAt"`
	Synced     bool      `json:"synced"`
	// SyncError carries the immediate upload attempt's failure, if any.
	// The capture itself is safe locally regardless.
	SyncError string `json:"syncError,omitempty"`
}

// QueueItem is a pending record in queue status responses, without the
// image payload
type QueueItem struct {
	ID         string    `json:"id"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	LayoutName string    `json:"layoutName"`
	CapturedAt time.Time `json:"capturedAt"`
	RetryCount int       `json:"retryCount"`
	Exhausted  bool      `json:"exhausted"`
}

// QueueStatusResponse summarizes the local queue
type QueueStatusResponse struct {
	Pending   []QueueItem `json:"pending"`
	Exhausted []QueueItem `json:"exhausted"`
	Count     int         `json:"count"`
}

// RecordToQueueItem converts a record for status responses
func RecordToQueueItem(r *PhotoRecord, retryCeiling int) QueueItem {
	return QueueItem{
		ID:         r.ID,
		Width:      r.Width,
		Height:     r.Height,
		LayoutName: r.LayoutName,
		CapturedAt: r.CapturedAt,
		RetryCount: r.RetryCount,
		Exhausted:  r.RetryCount > retryCeiling,
	}
}

// UpsertMetaRequest is the body for metadata insert-or-update
type UpsertMetaRequest struct {
	ID         string `json:"id"`
	FileURL    string `json:"fileUrl"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	LayoutName string `json:"layoutName"`
}

// PhotoMetaResponse is a single photo with its computed expiry state
type PhotoMetaResponse struct {
	ID         string     `json:"id"`
	FileURL    string     `json:"fileUrl"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	LayoutName string     `json:"layoutName"`
	CreatedAt  time.Time  `json:"createdAt"`
	Expiry     ExpiryInfo `json:"expiry"`
}

// GalleryResponse is returned when listing photos for the gallery
type GalleryResponse struct {
	Photos     []PhotoMetaResponse `json:"photos"`
	TotalCount int                 `json:"totalCount"`
	Skip       int                 `json:"skip"`
	Take       int                 `json:"take"`
}
