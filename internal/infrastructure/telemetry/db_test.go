package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type probeRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&probeRow{}))
	return db
}

func TestInstrumentDB_RecordsQueries(t *testing.T) {
	db := setupSQLite(t)
	reader := sdkmetric.NewManualReader()
	mp, err := NewMeterProviderWithReader(reader, "pharmapos-test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	core, logs := observer.New(zap.WarnLevel)
	require.NoError(t, InstrumentDB(db, mp.Meter("db"), DBConfig{SlowQueryThresh: time.Nanosecond}, zap.New(core)))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&probeRow{Name: "paracetamol"}).Error)
	var row probeRow
	require.NoError(t, db.WithContext(ctx).First(&row).Error)
	err = db.WithContext(ctx).Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)

	metrics := collect(t, reader)
	assert.Contains(t, metrics, "db_query_duration_seconds")
	assert.Contains(t, metrics, "db_pool_open_connections")
	assert.Equal(t, int64(1), intSum(t, metrics["db_query_errors_total"], AttrDBOperation.String("raw")))
	assert.Positive(t, intSum(t, metrics["db_slow_queries_total"], AttrDBOperation.String("create")))

	slow := logs.FilterMessage("Slow query").All()
	require.NotEmpty(t, slow)
	for _, entry := range slow {
		assert.NotContains(t, entry.ContextMap(), "sql", "SQL is only logged when LogFullSQL is set")
	}
}

func TestInstrumentDB_NotFoundIsNotAnError(t *testing.T) {
	db := setupSQLite(t)
	reader := sdkmetric.NewManualReader()
	mp, err := NewMeterProviderWithReader(reader, "pharmapos-test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	require.NoError(t, InstrumentDB(db, mp.Meter("db"), DBConfig{}, zap.NewNop()))

	var row probeRow
	assert.ErrorIs(t, db.First(&row, 42).Error, gorm.ErrRecordNotFound)

	metrics := collect(t, reader)
	if m, ok := metrics["db_query_errors_total"]; ok {
		assert.Zero(t, intSum(t, m, AttrDBOperation.String("select")))
	}
}

func TestInstrumentDB_WithTracing(t *testing.T) {
	db := setupSQLite(t)
	err := InstrumentDB(db, noop.NewMeterProvider().Meter("db"), DBConfig{TraceEnabled: true, LogFullSQL: true}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, db.Create(&probeRow{Name: "ibuprofen"}).Error)
	var count int64
	require.NoError(t, db.Model(&probeRow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDBInstrumentation_Name(t *testing.T) {
	inst, err := NewDBInstrumentation(noop.NewMeterProvider().Meter("db"), DBConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, dbInstrumentationID, inst.Name())
	assert.Equal(t, defaultSlowQuery, inst.config.SlowQueryThresh)
}
