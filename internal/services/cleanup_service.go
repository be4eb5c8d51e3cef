package services

import (
	"context"
	"sync"
	"time"

	"github.com/photobooth/boothsync/internal/expiry"
	"github.com/photobooth/boothsync/internal/observability"
	"github.com/photobooth/boothsync/internal/repository"
)

// CleanupStatus reports the state of the expired-photo sweeper
type CleanupStatus struct {
	Running          bool      `json:"running"`
	Enabled          bool      `json:"enabled"`
	LastRun          time.Time `json:"lastRun,omitempty"`
	LastRunDuration  string    `json:"lastRunDuration,omitempty"`
	ExpiredRemoved   int       `json:"expiredRemoved"`
	Errors           []string  `json:"errors,omitempty"`
	NextScheduledRun time.Time `json:"nextScheduledRun,omitempty"`
}

// CleanupService periodically removes photos whose share window has
// elapsed: the object, its thumbnails, and the metadata row.
type CleanupService struct {
	metaRepo   repository.MetaRepo
	objects    *ObjectStore
	thumbnails *ThumbnailService
	hub        *EventHub
	logger     *observability.Logger
	metrics    *observability.ServerMetrics

	window   time.Duration
	interval time.Duration

	mu       sync.RWMutex
	enabled  bool
	running  bool
	stopChan chan struct{}
	ticker   *time.Ticker
	status   CleanupStatus
}

// NewCleanupService creates a new CleanupService
func NewCleanupService(
	metaRepo repository.MetaRepo,
	objects *ObjectStore,
	thumbnails *ThumbnailService,
	hub *EventHub,
	logger *observability.Logger,
	window time.Duration,
	interval time.Duration,
) *CleanupService {
	if window <= 0 {
		window = expiry.DefaultWindow
	}
	if interval <= 0 {
		interval = time.Hour
	}

	return &CleanupService{
		metaRepo:   metaRepo,
		objects:    objects,
		thumbnails: thumbnails,
		hub:        hub,
		logger:     logger,
		window:     window,
		interval:   interval,
		stopChan:   make(chan struct{}),
		enabled:    true,
		status: CleanupStatus{
			Enabled: true,
			Errors:  []string{},
		},
	}
}

// SetMetrics attaches server metrics recording
func (s *CleanupService) SetMetrics(metrics *observability.ServerMetrics) {
	s.metrics = metrics
}

// Start begins the background cleanup loop
func (s *CleanupService) Start() {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return // Already started
	}
	s.enabled = true
	s.status.Enabled = true
	s.stopChan = make(chan struct{})
	s.ticker = time.NewTicker(s.interval)
	s.status.NextScheduledRun = time.Now().Add(s.interval)
	s.mu.Unlock()

	s.logger.WithField("interval", s.interval.String()).Info("Cleanup service started")

	// Run immediately on startup
	go s.runCleanup()

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.mu.Lock()
				s.status.NextScheduledRun = time.Now().Add(s.interval)
				s.mu.Unlock()
				s.runCleanup()
			case <-s.stopChan:
				s.mu.Lock()
				s.ticker.Stop()
				s.ticker = nil
				s.mu.Unlock()
				s.logger.Info("Cleanup service stopped")
				return
			}
		}
	}()
}

// Stop stops the cleanup service
func (s *CleanupService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return // Already stopped
	}

	s.enabled = false
	s.status.Enabled = false
	close(s.stopChan)
}

// GetStatus returns the current cleanup status
func (s *CleanupService) GetStatus() CleanupStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// RunNow triggers an immediate cleanup run
func (s *CleanupService) RunNow() {
	go s.runCleanup()
}

// runCleanup removes all photos past their share window
func (s *CleanupService) runCleanup() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("Cleanup already running, skipping")
		return
	}
	s.running = true
	s.status.Running = true
	s.status.Errors = []string{}
	s.mu.Unlock()

	startTime := time.Now()
	ctx, span := observability.StartServiceSpan(context.Background(), "cleanup", "run")
	defer span.End()

	removed, errs := s.removeExpired(ctx)

	duration := time.Since(startTime)

	s.mu.Lock()
	s.running = false
	s.status.Running = false
	s.status.LastRun = startTime
	s.status.LastRunDuration = duration.Round(time.Millisecond).String()
	s.status.ExpiredRemoved = removed
	s.status.Errors = errs
	s.mu.Unlock()

	observability.SetSuccess(span)

	if removed > 0 || len(errs) > 0 {
		s.logger.WithField("removed", removed).
			WithField("errors", len(errs)).
			WithField("duration", duration.Round(time.Millisecond).String()).
			Info("Cleanup run completed")
	}
}

// removeExpired deletes photos created before the expiry cutoff
func (s *CleanupService) removeExpired(ctx context.Context) (int, []string) {
	var errs []string

	cutoff := time.Now().UTC().Add(-s.window)
	removed := 0

	// Batches keep each run bounded when a backlog built up
	for {
		photos, err := s.metaRepo.GetCreatedBefore(ctx, cutoff, 100)
		if err != nil {
			errMsg := "failed to list expired photos: " + err.Error()
			s.logger.Error(errMsg)
			return removed, append(errs, errMsg)
		}

		if len(photos) == 0 {
			break
		}

		for _, photo := range photos {
			key := "photos/" + photo.ID + ".jpg"
			size := s.objects.Size(key)
			s.objects.Delete(key)
			if s.thumbnails != nil {
				s.thumbnails.Delete(photo.ID)
			}

			deleted, err := s.metaRepo.Delete(ctx, photo.ID)
			if err != nil {
				errMsg := "failed to delete metadata for " + photo.ID + ": " + err.Error()
				s.logger.Error(errMsg)
				errs = append(errs, errMsg)
				continue
			}
			if !deleted {
				continue
			}

			removed++
			if s.metrics != nil {
				s.metrics.RecordExpired(ctx, size)
			}
			if s.hub != nil {
				s.hub.BroadcastToTopic(TopicGallery, EventMessage{
					Type:    EventPhotoExpired,
					Payload: map[string]string{"id": photo.ID},
				})
			}
		}

		if len(photos) < 100 {
			break
		}
	}

	return removed, errs
}
