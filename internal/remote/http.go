package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/photobooth/boothsync/internal/models"
)

// ClientConfig holds settings shared by the HTTP object and metadata
// clients. When TokenURL is set, requests authenticate with an OAuth2
// client-credentials token source instead of the static API key.
type ClientConfig struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

func (c ClientConfig) httpClient(ctx context.Context) *http.Client {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	if c.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			TokenURL:     c.TokenURL,
		}
		client := cc.Client(ctx)
		client.Timeout = timeout
		return client
	}

	return &http.Client{Timeout: timeout}
}

func (c ClientConfig) apply(req *http.Request) {
	if c.TokenURL == "" && c.APIKey != "" {
		header := c.APIKeyHeader
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, c.APIKey)
	}
}

// HTTPObjectStorage implements ObjectStorage against the share server's
// object endpoints.
type HTTPObjectStorage struct {
	cfg    ClientConfig
	client *http.Client
}

// NewHTTPObjectStorage creates an object storage client for the share server
func NewHTTPObjectStorage(cfg ClientConfig) *HTTPObjectStorage {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &HTTPObjectStorage{
		cfg:    cfg,
		client: cfg.httpClient(context.Background()),
	}
}

// Upload PUTs data to the object endpoint for key. The server overwrites
// an existing object, which retried syncs rely on.
func (s *HTTPObjectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	url := s.cfg.BaseURL + "/api/objects/" + key
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return models.NewUploadError("object", key, err)
	}
	req.Header.Set("Content-Type", contentType)
	s.cfg.apply(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return models.NewUploadError("object", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.NewUploadError("object", key, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return nil
}

// PublicURL returns the share server's public URL for key
func (s *HTTPObjectStorage) PublicURL(key string) string {
	return s.cfg.BaseURL + "/api/objects/" + key
}

// Delete removes the object at key
func (s *HTTPObjectStorage) Delete(ctx context.Context, key string) error {
	url := s.cfg.BaseURL + "/api/objects/" + key
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return models.NewUploadError("object", key, err)
	}
	s.cfg.apply(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return models.NewUploadError("object", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return models.NewUploadError("object", key, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return nil
}

// HTTPMetadataService implements MetadataService against the share server
type HTTPMetadataService struct {
	cfg    ClientConfig
	client *http.Client
}

// NewHTTPMetadataService creates a metadata client for the share server
func NewHTTPMetadataService(cfg ClientConfig) *HTTPMetadataService {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &HTTPMetadataService{
		cfg:    cfg,
		client: cfg.httpClient(context.Background()),
	}
}

// Upsert inserts or overwrites the metadata record for meta.ID
func (s *HTTPMetadataService) Upsert(ctx context.Context, meta *models.RemotePhotoMeta) error {
	body, err := json.Marshal(models.UpsertMetaRequest{
		ID:         meta.ID,
		FileURL:    meta.FileURL,
		Width:      meta.Width,
		Height:     meta.Height,
		LayoutName: meta.LayoutName,
	})
	if err != nil {
		return models.NewUploadError("metadata", meta.ID, err)
	}

	url := s.cfg.BaseURL + "/api/photos"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.NewUploadError("metadata", meta.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.cfg.apply(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return models.NewUploadError("metadata", meta.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.NewUploadError("metadata", meta.ID, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return nil
}

// Get fetches the metadata record for id, or nil if it does not exist
func (s *HTTPMetadataService) Get(ctx context.Context, id string) (*models.RemotePhotoMeta, error) {
	url := s.cfg.BaseURL + "/api/photos/" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.NewUploadError("metadata", id, err)
	}
	s.cfg.apply(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, models.NewUploadError("metadata", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, models.NewUploadError("metadata", id, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var meta models.RemotePhotoMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, models.NewUploadError("metadata", id, err)
	}

	return &meta, nil
}
