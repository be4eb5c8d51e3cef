package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ThumbnailSize represents a thumbnail size configuration
type ThumbnailSize struct {
	Name    string
	MaxDim  int // Maximum dimension (width or height)
	Quality int // JPEG quality (1-100)
}

var (
	// ThumbSmall is 200px max dimension, used for gallery grids
	ThumbSmall = ThumbnailSize{Name: "small", MaxDim: 200, Quality: 80}
	// ThumbMedium is 640px max dimension, used for gallery previews
	ThumbMedium = ThumbnailSize{Name: "medium", MaxDim: 640, Quality: 85}
)

// ThumbnailService generates downscaled JPEG previews for gallery views
type ThumbnailService struct {
	basePath string
}

// NewThumbnailService creates a new ThumbnailService rooted at basePath
func NewThumbnailService(basePath string) *ThumbnailService {
	return &ThumbnailService{basePath: basePath}
}

// Generate creates the gallery thumbnails for a stored photo and
// returns their relative paths keyed by size name. Booth composites
// are always JPEG, but any format image.Decode understands works.
func (s *ThumbnailService) Generate(imageData []byte, photoID string) (map[string]string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumbDir := filepath.Join("photos", ".thumbs")
	if err := os.MkdirAll(filepath.Join(s.basePath, thumbDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	paths := make(map[string]string, 2)
	for _, size := range []ThumbnailSize{ThumbSmall, ThumbMedium} {
		relPath, err := s.generateOne(img, photoID, thumbDir, size)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s thumbnail: %w", size.Name, err)
		}
		paths[size.Name] = relPath
	}

	return paths, nil
}

// generateOne writes a single resized JPEG and returns its relative path
func (s *ThumbnailService) generateOne(img image.Image, photoID, thumbDir string, size ThumbnailSize) (string, error) {
	resized := fitWithin(img, size.MaxDim)

	filename := fmt.Sprintf("%s_%s.jpg", photoID, size.Name)
	relativePath := filepath.Join(thumbDir, filename)
	fullPath := filepath.Join(s.basePath, relativePath)

	out, err := os.Create(fullPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	opts := &jpeg.Options{Quality: size.Quality}
	if err := jpeg.Encode(out, resized, opts); err != nil {
		os.Remove(fullPath)
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// GenerateInMemory creates a single resized JPEG and returns its bytes
func (s *ThumbnailService) GenerateInMemory(imageData []byte, maxDim int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := fitWithin(img, maxDim)

	var buf bytes.Buffer
	opts := &jpeg.Options{Quality: 80}
	if err := jpeg.Encode(&buf, resized, opts); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}

// Delete removes all thumbnails for a photo. Missing files are ignored.
func (s *ThumbnailService) Delete(photoID string) {
	thumbDir := filepath.Join(s.basePath, "photos", ".thumbs")
	for _, size := range []ThumbnailSize{ThumbSmall, ThumbMedium} {
		os.Remove(filepath.Join(thumbDir, fmt.Sprintf("%s_%s.jpg", photoID, size.Name)))
	}
}

// GetPath returns the full filesystem path for a thumbnail relative path
func (s *ThumbnailService) GetPath(relativePath string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(relativePath))
}

// fitWithin downscales img so its longest side is at most maxDim,
// never upscaling
func fitWithin(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxDim && height <= maxDim {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxDim
		newHeight = height * maxDim / width
	} else {
		newHeight = maxDim
		newWidth = width * maxDim / height
	}

	return imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
}
