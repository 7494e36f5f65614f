package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dbStartKey          = "telemetry:query_start"
	defaultSlowQuery    = 200 * time.Millisecond
	dbInstrumentationID = "pharmapos:db_metrics"
)

// DBConfig controls query tracing and metrics
type DBConfig struct {
	TraceEnabled bool
	// LogFullSQL keeps bound variables in spans; never enable in production
	LogFullSQL      bool
	SlowQueryThresh time.Duration
}

// DBInstrumentation is a GORM plugin recording query durations, errors and slow queries.
// Pool statistics are published through observable gauges.
type DBInstrumentation struct {
	config   DBConfig
	logger   *zap.Logger
	duration *Histogram
	errors   *Counter
	slow     *Counter
}

// NewDBInstrumentation creates the query instruments on meter
func NewDBInstrumentation(meter metric.Meter, cfg DBConfig, logger *zap.Logger) (*DBInstrumentation, error) {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQuery
	}
	d := &DBInstrumentation{config: cfg, logger: logger}
	var err error
	if d.duration, err = NewHistogram(meter, "db_query_duration_seconds", "Database query duration", "s", DBDurationBuckets...); err != nil {
		return nil, err
	}
	if d.errors, err = NewCounter(meter, "db_query_errors_total", "Failed database queries", "{queries}"); err != nil {
		return nil, err
	}
	if d.slow, err = NewCounter(meter, "db_slow_queries_total", "Queries slower than the slow query threshold", "{queries}"); err != nil {
		return nil, err
	}
	return d, nil
}

// Name implements gorm.Plugin
func (d *DBInstrumentation) Name() string {
	return dbInstrumentationID
}

// Initialize implements gorm.Plugin
func (d *DBInstrumentation) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op       string
		before   func(name string, fn func(*gorm.DB)) error
		after    func(name string, fn func(*gorm.DB)) error
		anchored string
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "create"},
		{"select", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "query"},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "update"},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "delete"},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, "row"},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, "raw"},
	}
	for _, h := range hooks {
		op := h.op
		if err := h.before(dbInstrumentationID+":before_"+h.anchored, d.before); err != nil {
			return err
		}
		if err := h.after(dbInstrumentationID+":after_"+h.anchored, func(tx *gorm.DB) { d.after(tx, op) }); err != nil {
			return err
		}
	}
	return nil
}

func (d *DBInstrumentation) before(tx *gorm.DB) {
	tx.InstanceSet(dbStartKey, time.Now())
}

func (d *DBInstrumentation) after(tx *gorm.DB, op string) {
	v, ok := tx.InstanceGet(dbStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	table := tx.Statement.Table

	d.duration.RecordDuration(ctx, elapsed, AttrDBOperation.String(op), AttrDBTable.String(table))
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		d.errors.Inc(ctx, AttrDBOperation.String(op), AttrDBTable.String(table))
	}
	if elapsed >= d.config.SlowQueryThresh {
		d.slow.Inc(ctx, AttrDBOperation.String(op), AttrDBTable.String(table))
		fields := []zap.Field{
			zap.String("operation", op),
			zap.String("table", table),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", tx.Statement.RowsAffected),
		}
		if d.config.LogFullSQL {
			fields = append(fields, zap.String("sql", tx.Statement.SQL.String()))
		}
		d.logger.Warn("Slow query", fields...)
	}
}

// RegisterPoolStats publishes sql.DBStats as observable gauges
func RegisterPoolStats(meter metric.Meter, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	open, err := meter.Int64ObservableGauge("db_pool_open_connections", metric.WithDescription("Open connections"))
	if err != nil {
		return err
	}
	inUse, err := meter.Int64ObservableGauge("db_pool_in_use_connections", metric.WithDescription("Connections in use"))
	if err != nil {
		return err
	}
	idle, err := meter.Int64ObservableGauge("db_pool_idle_connections", metric.WithDescription("Idle connections"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total", metric.WithDescription("Connections waited for"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := sqlDB.Stats()
		o.ObserveInt64(open, int64(s.OpenConnections))
		o.ObserveInt64(inUse, int64(s.InUse))
		o.ObserveInt64(idle, int64(s.Idle))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, open, inUse, idle, waits)
	return err
}

// InstrumentDB installs otelgorm tracing when enabled, then query metrics and pool gauges
func InstrumentDB(db *gorm.DB, meter metric.Meter, cfg DBConfig, logger *zap.Logger) error {
	if cfg.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}
	inst, err := NewDBInstrumentation(meter, cfg, logger)
	if err != nil {
		return err
	}
	if err := db.Use(inst); err != nil {
		return err
	}
	if err := RegisterPoolStats(meter, db); err != nil {
		return err
	}
	logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", cfg.TraceEnabled),
		zap.Duration("slow_query_threshold", inst.config.SlowQueryThresh),
	)
	return nil
}
