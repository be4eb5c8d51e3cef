package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/photobooth/boothsync/internal/models"
)

// ObjectStore persists uploaded photo objects on the local filesystem,
// addressed by their storage key (e.g. "photos/<id>.jpg").
type ObjectStore struct {
	basePath          string
	allowedExtensions map[string]bool
	maxFileSizeBytes  int64
}

// NewObjectStore creates a new ObjectStore rooted at basePath
func NewObjectStore(basePath string, allowedExtensions []string, maxFileSizeMB int64) (*ObjectStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, err
	}

	extSet := make(map[string]bool)
	if len(allowedExtensions) == 0 {
		for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp"} {
			extSet[ext] = true
		}
	} else {
		for _, ext := range allowedExtensions {
			extSet[strings.ToLower(ext)] = true
		}
	}

	return &ObjectStore{
		basePath:          absPath,
		allowedExtensions: extSet,
		maxFileSizeBytes:  maxFileSizeMB * 1024 * 1024,
	}, nil
}

// Store saves an object under the given key, overwriting any existing
// object. Booths retry interrupted uploads with the same key, so a
// second write for a key must succeed and replace the first.
func (s *ObjectStore) Store(key string, reader io.Reader, size int64) error {
	if size > s.maxFileSizeBytes {
		return models.ErrFileTooLarge
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(fullPath))
	if !s.allowedExtensions[ext] {
		return models.ErrInvalidExtension
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	// Write to a temp file first so a torn upload never leaves a
	// half-written object visible at the key.
	tmpPath := fullPath + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	written, err := io.Copy(file, io.LimitReader(reader, s.maxFileSizeBytes+1))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if written > s.maxFileSizeBytes {
		os.Remove(tmpPath)
		return models.ErrFileTooLarge
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}

// Open returns a reader for the object at key along with its size
func (s *ObjectStore) Open(key string) (io.ReadCloser, int64, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, 0, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, models.ErrPhotoNotFound
		}
		return nil, 0, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, 0, err
	}

	return file, info.Size(), nil
}

// Delete removes the object at key. Missing objects are not an error.
func (s *ObjectStore) Delete(key string) bool {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false
	}

	if err := os.Remove(fullPath); err != nil {
		return false
	}

	return true
}

// Size returns the stored size of the object at key, or 0 if missing
func (s *ObjectStore) Size(key string) int64 {
	fullPath, err := s.resolve(key)
	if err != nil {
		return 0
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return 0
	}

	return info.Size()
}

// Exists checks whether an object is stored under key
func (s *ObjectStore) Exists(key string) bool {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false
	}

	_, err = os.Stat(fullPath)
	return err == nil
}

// BasePath returns the absolute storage root
func (s *ObjectStore) BasePath() string {
	return s.basePath
}

// resolve maps a storage key to an absolute path under basePath,
// rejecting keys that would escape the storage root
func (s *ObjectStore) resolve(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("object key cannot be empty")
	}

	cleaned := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", models.ErrPathTraversal
	}

	fullPath := filepath.Join(s.basePath, cleaned)

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(absPath, s.basePath+string(os.PathSeparator)) {
		return "", models.ErrPathTraversal
	}

	return absPath, nil
}
