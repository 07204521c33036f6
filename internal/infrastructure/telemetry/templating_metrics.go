package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Render modes and delete reasons used as metric labels.
const (
	RenderModeInMemory  = "in_memory"
	RenderModePersisted = "persisted"

	DeleteReasonExplicit = "delete"
	DeleteReasonExpired  = "sweep"

	ResultSuccess = "success"
)

// TemplatingMetrics holds the render, persist and sweep instruments.
// A nil *TemplatingMetrics records nothing.
type TemplatingMetrics struct {
	renderTotal    *Counter
	renderDuration *Histogram
	persistedTotal *Counter
	deletedTotal   *Counter
	sweepTotal     *Counter
}

// NewTemplatingMetrics creates the templating instruments on meter.
func NewTemplatingMetrics(meter metric.Meter) (*TemplatingMetrics, error) {
	renderTotal, err := NewCounter(meter, "templating_render_total",
		"Total number of template renders by mode and result", "{render}")
	if err != nil {
		return nil, err
	}
	renderDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "templating_render_duration_seconds",
		Description: "Template render latency in seconds, including persistence",
		Unit:        "s",
		Boundaries:  RenderDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	persistedTotal, err := NewCounter(meter, "templating_rendered_files_created_total",
		"Total number of rendered files registered", "{file}")
	if err != nil {
		return nil, err
	}
	deletedTotal, err := NewCounter(meter, "templating_rendered_files_deleted_total",
		"Total number of rendered files deleted by reason", "{file}")
	if err != nil {
		return nil, err
	}
	sweepTotal, err := NewCounter(meter, "templating_sweep_total",
		"Total number of expired file sweeps by result", "{sweep}")
	if err != nil {
		return nil, err
	}

	return &TemplatingMetrics{
		renderTotal:    renderTotal,
		renderDuration: renderDuration,
		persistedTotal: persistedTotal,
		deletedTotal:   deletedTotal,
		sweepTotal:     sweepTotal,
	}, nil
}

// RecordRender records one render. result is ResultSuccess or an error code.
func (m *TemplatingMetrics) RecordRender(ctx context.Context, mode string, duration time.Duration, result string) {
	if m == nil {
		return
	}
	m.renderTotal.Inc(ctx, AttrRenderMode.String(mode), AttrResult.String(result))
	m.renderDuration.RecordDuration(ctx, duration, AttrRenderMode.String(mode))
	if mode == RenderModePersisted && result == ResultSuccess {
		m.persistedTotal.Inc(ctx)
	}
}

// RecordDeleted records n rendered files removed for reason.
func (m *TemplatingMetrics) RecordDeleted(ctx context.Context, reason string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.deletedTotal.Add(ctx, n, AttrDeleteReason.String(reason))
}

// RecordSweep records one sweep batch. result is ResultSuccess or an error code.
func (m *TemplatingMetrics) RecordSweep(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.sweepTotal.Inc(ctx, AttrResult.String(result))
}
