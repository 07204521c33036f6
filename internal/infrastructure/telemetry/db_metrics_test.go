package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func int64Points(t *testing.T, rm metricdata.ResourceMetrics, name string) []metricdata.DataPoint[int64] {
	t.Helper()
	m, ok := findMetric(rm, name)
	require.True(t, ok, "%s not recorded", name)
	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		return data.DataPoints
	case metricdata.Gauge[int64]:
		return data.DataPoints
	}
	t.Fatalf("%s has unexpected data type %T", name, m.Data)
	return nil
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := telemetry.DefaultDBMetricsConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	reader, provider := newManualMeter(t)
	ctx := context.Background()

	metrics, err := telemetry.NewDBMetrics(provider.Meter("db.client"), telemetry.DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 100 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	metrics.RecordQuery(ctx, "select", "wc_rendered_templates", 10*time.Millisecond, nil)
	metrics.RecordQuery(ctx, "DELETE", "wc_rendered_templates", 250*time.Millisecond, errors.New("lock timeout"))
	metrics.RecordQuery(ctx, "", "", time.Millisecond, nil)

	rm := collect(t, reader)

	byOp := map[string]int64{}
	statuses := map[string]int64{}
	for _, dp := range int64Points(t, rm, "db_query_total") {
		op, _ := dp.Attributes.Value(telemetry.AttrDBOperation)
		status, _ := dp.Attributes.Value(telemetry.AttrDBStatus)
		byOp[op.AsString()] += dp.Value
		statuses[status.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"SELECT": 1, "DELETE": 1, "UNKNOWN": 1}, byOp)
	assert.Equal(t, map[string]int64{"ok": 2, "error": 1}, statuses)

	slow := int64Points(t, rm, "db_slow_query_total")
	require.Len(t, slow, 1)
	assert.Equal(t, int64(1), slow[0].Value)
	table, _ := slow[0].Attributes.Value(telemetry.AttrDBTable)
	assert.Equal(t, "wc_rendered_templates", table.AsString())

	_, ok := findMetric(rm, "db_query_duration_seconds")
	assert.True(t, ok)
}

func TestDBMetrics_PoolStats(t *testing.T) {
	reader, provider := newManualMeter(t)

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(7)

	metrics, err := telemetry.NewDBMetrics(provider.Meter("db.client"), telemetry.DBMetricsConfig{
		Enabled:           true,
		PoolStatsInterval: 20 * time.Millisecond,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	metrics.SetSQLDB(sqlDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	metrics.StartPoolStatsCollection(ctx)

	require.Eventually(t, func() bool {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(context.Background(), &rm); err != nil {
			return false
		}
		_, ok := findMetric(rm, "db_pool_connections_max")
		return ok
	}, time.Second, 10*time.Millisecond)

	metrics.Stop()
	metrics.Stop()

	rm := collect(t, reader)
	maxPoints := int64Points(t, rm, "db_pool_connections_max")
	require.Len(t, maxPoints, 1)
	assert.Equal(t, int64(7), maxPoints[0].Value)

	states := map[string]bool{}
	for _, dp := range int64Points(t, rm, "db_pool_connections") {
		state, _ := dp.Attributes.Value(telemetry.AttrDBState)
		states[state.AsString()] = true
	}
	assert.Equal(t, map[string]bool{"idle": true, "in_use": true, "open": true}, states)
}

func TestDBMetrics_PoolStatsWithoutDB(t *testing.T) {
	_, provider := newManualMeter(t)

	metrics, err := telemetry.NewDBMetrics(provider.Meter("db.client"), telemetry.DefaultDBMetricsConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	metrics.StartPoolStatsCollection(context.Background())
	assert.NotPanics(t, metrics.Stop)
}

func TestDBMetricsPlugin_RecordsGormQueries(t *testing.T) {
	reader, provider := newManualMeter(t)
	db := openTracedDB(t)

	metrics, err := telemetry.NewDBMetrics(provider.Meter("db.client"), telemetry.DefaultDBMetricsConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	plugin := telemetry.NewDBMetricsPlugin(metrics, nil)
	assert.Equal(t, "db_metrics", plugin.Name())
	require.NoError(t, db.Use(plugin))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	require.NoError(t, db.WithContext(ctx).Where("name = ?", "a").Delete(&tracedRow{}).Error)
	var count int64
	require.NoError(t, db.WithContext(ctx).Raw("SELECT count(*) FROM traced_rows").Scan(&count).Error)

	byOp := map[string]int64{}
	for _, dp := range int64Points(t, collect(t, reader), "db_query_total") {
		op, _ := dp.Attributes.Value(telemetry.AttrDBOperation)
		byOp[op.AsString()] += dp.Value
	}
	assert.Equal(t, int64(1), byOp["INSERT"])
	assert.Equal(t, int64(1), byOp["DELETE"])
	assert.GreaterOrEqual(t, byOp["SELECT"], int64(2))
}

func TestRegisterDBMetrics_Skipped(t *testing.T) {
	db := openTracedDB(t)
	logger := zaptest.NewLogger(t)

	metrics, err := telemetry.RegisterDBMetrics(db, nil, telemetry.DBMetricsConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.Nil(t, metrics)

	disabled, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{}, logger)
	require.NoError(t, err)
	metrics, err = telemetry.RegisterDBMetrics(db, disabled, telemetry.DefaultDBMetricsConfig(), logger)
	require.NoError(t, err)
	assert.Nil(t, metrics)
	assert.Nil(t, db.Callback().Query().Get("db_metrics:after_query"))
}
