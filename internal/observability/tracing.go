package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a tracer for the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartDBSpan starts a span for database operations
func StartDBSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("DB %s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			attribute.String("service.operation", operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SyncMetrics holds the kiosk agent's sync instruments
type SyncMetrics struct {
	runs       metric.Int64Counter
	attempts   metric.Int64Counter
	queueDepth metric.Int64UpDownCounter
}

// NewSyncMetrics creates sync metrics instruments
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(instrumentationName)

	runs, err := meter.Int64Counter(
		"boothsync.sync.runs",
		metric.WithDescription("Total number of sync runs"),
		metric.WithUnit("{runs}"),
	)
	if err != nil {
		return nil, err
	}

	attempts, err := meter.Int64Counter(
		"boothsync.sync.attempts",
		metric.WithDescription("Total number of upload attempts"),
		metric.WithUnit("{attempts}"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64UpDownCounter(
		"boothsync.queue.depth",
		metric.WithDescription("Number of captures pending sync"),
		metric.WithUnit("{records}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runs:       runs,
		attempts:   attempts,
		queueDepth: queueDepth,
	}, nil
}

// RecordRun records the outcome counts of one sync run
func (m *SyncMetrics) RecordRun(ctx context.Context, synced, failed, skipped int) {
	m.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("synced", synced),
		attribute.Int("failed", failed),
		attribute.Int("skipped", skipped),
	))
	m.queueDepth.Add(ctx, int64(-synced))
}

// RecordAttempt records a single upload attempt
func (m *SyncMetrics) RecordAttempt(ctx context.Context, success bool) {
	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordEnqueue records a new capture entering the queue
func (m *SyncMetrics) RecordEnqueue(ctx context.Context) {
	m.queueDepth.Add(ctx, 1)
}

// ServerMetrics holds the share server's instruments
type ServerMetrics struct {
	uploads   metric.Int64Counter
	downloads metric.Int64Counter
	expired   metric.Int64Counter
	stored    metric.Int64UpDownCounter
}

// NewServerMetrics creates share server metrics instruments
func NewServerMetrics() (*ServerMetrics, error) {
	meter := otel.Meter(instrumentationName)

	uploads, err := meter.Int64Counter(
		"boothsync.server.uploads",
		metric.WithDescription("Total number of photo object uploads"),
		metric.WithUnit("{uploads}"),
	)
	if err != nil {
		return nil, err
	}

	downloads, err := meter.Int64Counter(
		"boothsync.server.downloads",
		metric.WithDescription("Total number of photo downloads"),
		metric.WithUnit("{downloads}"),
	)
	if err != nil {
		return nil, err
	}

	expired, err := meter.Int64Counter(
		"boothsync.server.expired_removed",
		metric.WithDescription("Total number of expired photos removed"),
		metric.WithUnit("{photos}"),
	)
	if err != nil {
		return nil, err
	}

	stored, err := meter.Int64UpDownCounter(
		"boothsync.server.storage_bytes",
		metric.WithDescription("Bytes of photo objects stored"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &ServerMetrics{
		uploads:   uploads,
		downloads: downloads,
		expired:   expired,
		stored:    stored,
	}, nil
}

// RecordUpload records an object upload
func (m *ServerMetrics) RecordUpload(ctx context.Context, size int64, success bool) {
	m.uploads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	if success {
		m.stored.Add(ctx, size)
	}
}

// RecordDownload records a photo download
func (m *ServerMetrics) RecordDownload(ctx context.Context) {
	m.downloads.Add(ctx, 1)
}

// RecordExpired records removal of an expired photo
func (m *ServerMetrics) RecordExpired(ctx context.Context, size int64) {
	m.expired.Add(ctx, 1)
	m.stored.Add(ctx, -size)
}
