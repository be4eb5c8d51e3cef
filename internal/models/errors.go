package models

import "fmt"

// RecordError is a validation error on a photo record or metadata value
type RecordError struct {
	Message string
}

func (e RecordError) Error() string {
	return e.Message
}

var (
	ErrEmptyImageData    = RecordError{"image data cannot be empty"}
	ErrInvalidDimensions = RecordError{"width and height must be positive"}
	ErrEmptyLayoutName   = RecordError{"layout name cannot be empty"}
	ErrEmptyID           = RecordError{"id cannot be empty"}
	ErrZeroCreatedAt     = RecordError{"created-at timestamp is not set"}
	ErrRecordNotFound    = RecordError{"photo record not found"}
	ErrPhotoNotFound     = RecordError{"photo not found"}
	ErrPhotoExpired      = RecordError{"photo has expired"}
	ErrInvalidExtension  = RecordError{"file extension not allowed"}
	ErrFileTooLarge      = RecordError{"file size exceeds maximum allowed"}
	ErrPathTraversal     = RecordError{"invalid path - path traversal detected"}
)

// StorageError wraps a local persistent storage failure. It is fatal to the
// operation in progress and must not be mistaken for an empty queue.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("local storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err as a StorageError for the named operation
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// UploadError wraps a failure reaching remote object storage or the metadata
// service. It is recoverable; the sync engine retries on the next run.
type UploadError struct {
	Stage string // "object" or "metadata"
	Key   string
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s %s: %v", e.Stage, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// NewUploadError wraps err as an UploadError for the given stage and key
func NewUploadError(stage, key string, err error) *UploadError {
	return &UploadError{Stage: stage, Key: key, Err: err}
}
