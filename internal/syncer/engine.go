// Package syncer drives best-effort upload of queued captures to remote
// storage. Runs are sequential and never overlap; a record that fails is
// retried on the next run until the retry ceiling is reached.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/photobooth/boothsync/internal/models"
	"github.com/photobooth/boothsync/internal/observability"
	"github.com/photobooth/boothsync/internal/queue"
	"github.com/photobooth/boothsync/internal/remote"
)

// Config holds the engine's policy constants
type Config struct {
	// Interval between scheduled runs.
	Interval time.Duration
	// RetryCeiling is the maximum retry count before a record is left
	// permanently queued without further automatic attempts.
	RetryCeiling int
}

// Status is a snapshot of the engine's most recent activity
type Status struct {
	Running          bool      `json:"running"`
	LastRun          time.Time `json:"lastRun,omitempty"`
	LastRunDuration  string    `json:"lastRunDuration,omitempty"`
	Synced           int       `json:"synced"`
	Failed           int       `json:"failed"`
	Skipped          int       `json:"skipped"`
	NextScheduledRun time.Time `json:"nextScheduledRun,omitempty"`
}

// Engine reconciles the local queue with the remote service
type Engine struct {
	store   *queue.Store
	objects remote.ObjectStorage
	meta    remote.MetadataService
	cfg     Config
	logger  *observability.Logger
	metrics *observability.SyncMetrics

	mu       sync.RWMutex
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	status   Status
}

// New creates a sync engine over the given store and remote services
func New(store *queue.Store, objects remote.ObjectStorage, meta remote.MetadataService, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.RetryCeiling <= 0 {
		cfg.RetryCeiling = 5
	}

	return &Engine{
		store:   store,
		objects: objects,
		meta:    meta,
		cfg:     cfg,
		logger:  observability.GetLogger().WithField("component", "syncer"),
	}
}

// SetMetrics attaches sync metrics instruments. Optional; the engine works
// without them.
func (e *Engine) SetMetrics(m *observability.SyncMetrics) {
	e.metrics = m
}

// Start runs a sync immediately and then on every interval tick until Stop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.ticker != nil {
		e.mu.Unlock()
		return // already started
	}
	e.stopChan = make(chan struct{})
	e.ticker = time.NewTicker(e.cfg.Interval)
	e.status.NextScheduledRun = time.Now().Add(e.cfg.Interval)
	e.mu.Unlock()

	e.logger.Infof("Sync engine started (interval %s, retry ceiling %d)", e.cfg.Interval, e.cfg.RetryCeiling)

	go e.RunSync(context.Background())

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.mu.Lock()
				e.status.NextScheduledRun = time.Now().Add(e.cfg.Interval)
				e.mu.Unlock()
				e.RunSync(context.Background())
			case <-e.stopChan:
				e.mu.Lock()
				e.ticker.Stop()
				e.ticker = nil
				e.mu.Unlock()
				e.logger.Info("Sync engine stopped")
				return
			}
		}
	}()
}

// Stop halts the periodic loop. An in-flight run finishes on its own;
// abandoning it mid-run is safe because every record is durable.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ticker == nil {
		return
	}
	close(e.stopChan)
}

// GetStatus returns a snapshot of the engine state
func (e *Engine) GetStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// EnqueueCapture durably saves a new capture, then makes one best-effort
// immediate upload attempt. A storage failure is returned as the error; an
// upload failure is reported in the result and the record stays queued.
// The immediate attempt does not count against the retry ceiling.
func (e *Engine) EnqueueCapture(ctx context.Context, imageData []byte, width, height int, layoutName string) (*models.EnqueueResult, error) {
	record, err := models.NewPhotoRecord(imageData, width, height, layoutName)
	if err != nil {
		return nil, err
	}

	// Durability before any network attempt: Save must commit first.
	if err := e.store.Save(ctx, record); err != nil {
		return nil, err
	}

	result := &models.EnqueueResult{
		ID:         record.ID,
		CapturedAt: record.CapturedAt,
	}

	if err := e.attempt(ctx, record); err != nil {
		e.logger.Warnf("Immediate sync failed for %s, will retry in background: %v", record.ID, err)
		result.SyncError = err.Error()
		return result, nil
	}

	result.Synced = true
	return result, nil
}

// RunSync performs one pass over all pending records. Safe to call on a
// timer or on demand; a trigger that fires while a run is in progress is
// ignored rather than run in parallel.
func (e *Engine) RunSync(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		e.logger.Debug("Sync already running, skipping trigger")
		return
	}
	e.running = true
	e.status.Running = true
	e.mu.Unlock()

	ctx, span := observability.StartServiceSpan(ctx, "syncer", "run")
	defer span.End()

	start := time.Now()
	synced, failed, skipped := e.runOnce(ctx)
	duration := time.Since(start)

	e.mu.Lock()
	e.running = false
	e.status.Running = false
	e.status.LastRun = start
	e.status.LastRunDuration = duration.Round(time.Millisecond).String()
	e.status.Synced = synced
	e.status.Failed = failed
	e.status.Skipped = skipped
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordRun(ctx, synced, failed, skipped)
	}

	if synced > 0 || failed > 0 || skipped > 0 {
		e.logger.Infof("Sync run finished in %s: %d synced, %d failed, %d skipped",
			duration.Round(time.Millisecond), synced, failed, skipped)
	}
}

func (e *Engine) runOnce(ctx context.Context) (synced, failed, skipped int) {
	pending, err := e.store.ListPending(ctx)
	if err != nil {
		// A storage failure is not an empty queue; report and bail.
		e.logger.Errorf("Failed to list pending records: %v", err)
		return 0, 0, 0
	}

	if len(pending) == 0 {
		return 0, 0, 0
	}

	for _, record := range pending {
		if record.RetryCount > e.cfg.RetryCeiling {
			skipped++
			continue
		}

		// Count the attempt before the network call so a crash mid-upload
		// still moves the record toward the ceiling.
		if err := e.store.IncrementRetry(ctx, record.ID); err != nil {
			e.logger.Errorf("Failed to increment retry for %s: %v", record.ID, err)
			failed++
			continue
		}

		if err := e.attempt(ctx, record); err != nil {
			e.logger.Warnf("Sync failed for %s (attempt %d): %v", record.ID, record.RetryCount+1, err)
			failed++
			continue
		}

		synced++
	}

	return synced, failed, skipped
}

// attempt uploads one record's payload and metadata, then marks it synced.
// Both the object upload and the metadata upsert must succeed before
// MarkSynced; a partial failure leaves the record queued for a full retry.
func (e *Engine) attempt(ctx context.Context, record *models.PhotoRecord) error {
	imageData := record.ImageData
	if len(imageData) == 0 {
		data, err := e.store.GetImageData(ctx, record.ID)
		if err != nil {
			return err
		}
		imageData = data
	}

	key := record.ObjectKey()
	if err := e.objects.Upload(ctx, key, imageData, "image/jpeg"); err != nil {
		if e.metrics != nil {
			e.metrics.RecordAttempt(ctx, false)
		}
		return err
	}

	meta := &models.RemotePhotoMeta{
		ID:         record.ID,
		FileURL:    e.objects.PublicURL(key),
		Width:      record.Width,
		Height:     record.Height,
		LayoutName: record.LayoutName,
	}
	if err := e.meta.Upsert(ctx, meta); err != nil {
		if e.metrics != nil {
			e.metrics.RecordAttempt(ctx, false)
		}
		return err
	}

	if err := e.store.MarkSynced(ctx, record.ID, meta.ID); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.RecordAttempt(ctx, true)
	}
	return nil
}
