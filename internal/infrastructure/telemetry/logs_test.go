package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// memoryLogExporter keeps exported records for assertions.
type memoryLogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryLogExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryLogExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryLogExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func newMemoryLoggerProvider(t *testing.T) (*LoggerProvider, *memoryLogExporter) {
	t.Helper()
	exporter := &memoryLogExporter{}
	lp := &LoggerProvider{
		provider: sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter))),
		logger:   zap.NewNop(),
		config:   LogsConfig{Enabled: true, ServiceName: "rendered-templates"},
	}
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })
	return lp, exporter
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.Nil(t, lp.provider)
	assert.NoError(t, lp.ForceFlush(ctx))
	assert.NoError(t, lp.Shutdown(ctx))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestNewLoggerProvider_EnabledWithoutCollector(t *testing.T) {
	ctx := context.Background()

	// The gRPC exporter connects lazily, so construction succeeds.
	lp, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:19999",
		ServiceName:       "rendered-templates",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, lp.IsEnabled())

	shutdownCtx, cancel := context.WithCancel(ctx)
	cancel()
	_ = lp.Shutdown(shutdownCtx)
}

func TestNewZapOTELCore_NoProvider(t *testing.T) {
	core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "rendered-templates"})
	assert.False(t, core.Enabled(zapcore.ErrorLevel))

	disabled, err := NewLoggerProvider(context.Background(), LogsConfig{}, zap.NewNop())
	require.NoError(t, err)
	core = NewZapOTELCore(ZapBridgeConfig{Provider: disabled})
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewZapOTELCore_LevelFilter(t *testing.T) {
	lp, _ := newMemoryLoggerProvider(t)

	core := NewZapOTELCore(ZapBridgeConfig{
		ServiceName: "rendered-templates",
		Provider:    lp,
		Level:       zapcore.WarnLevel,
	})
	_, filtered := core.(*levelFilterCore)
	assert.True(t, filtered)
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))

	core = NewZapOTELCore(ZapBridgeConfig{Provider: lp, Level: zapcore.DebugLevel})
	_, filtered = core.(*levelFilterCore)
	assert.False(t, filtered)
}

func TestLevelFilterCore(t *testing.T) {
	observedCore, observed := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: observedCore, minLevel: zapcore.WarnLevel}

	logger := zap.New(core.With([]zapcore.Field{zap.String("component", "sweep")}))
	logger.Info("skipped")
	logger.Warn("kept")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, "sweep", entries[0].ContextMap()["component"])
}

func TestBridgeLogger(t *testing.T) {
	lp, exporter := newMemoryLoggerProvider(t)
	baseCore, observed := observer.New(zapcore.DebugLevel)
	base := zap.New(baseCore).With(zap.String("service", "rendered-templates"))

	logger := BridgeLogger(base, NewZapOTELCore(ZapBridgeConfig{
		ServiceName: "rendered-templates",
		Provider:    lp,
		Level:       zapcore.InfoLevel,
	}))

	logger.Debug("debug only local")
	logger.Info("rendered file persisted")
	logger.Error("sweep failed")

	assert.Len(t, observed.All(), 3)
	assert.Equal(t, []string{"rendered file persisted", "sweep failed"}, exporter.bodies())

	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	require.Len(t, exporter.records, 2)
	assert.Equal(t, otellog.SeverityInfo, exporter.records[0].Severity())
	assert.Equal(t, otellog.SeverityError, exporter.records[1].Severity())
}
