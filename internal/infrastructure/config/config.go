package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. PHARMA_DATABASE_PASSWORD.
const EnvPrefix = "PHARMA"

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Sales        SalesConfig
	Inventory    InventoryConfig
	Notification NotificationConfig
	Cache        CacheConfig
	Scheduler    SchedulerConfig
	Storage      StorageConfig
	Printing     PrintingConfig
	Telemetry    TelemetryConfig
	Profiling    ProfilingConfig
	Metrics      MetricsConfig
	Swagger      SwaggerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string
	Env      string
	Port     string
	Timezone string
}

// Location resolves the configured timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the app runs in production mode.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	Issuer                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	MaxRefreshCount        int
	MaxLoginAttempts       int
	LockDuration           time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	ShutdownTimeout       time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRPS          float64
	RateLimitBurst        int
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// SalesConfig holds point-of-sale settings
type SalesConfig struct {
	TaxRate            decimal.Decimal
	Currency           string
	VoidWindow         time.Duration
	LargeSaleThreshold decimal.Decimal
	ReceiptPrefix      string
	StoreName          string
	StoreAddress       string
	StorePhone         string
}

// InventoryConfig holds stock and expiry thresholds
type InventoryConfig struct {
	ExpiryWarnDays      int
	DefaultReorderLevel int
}

// NotificationConfig holds polling and realtime delivery settings
type NotificationConfig struct {
	PollInterval      time.Duration
	DedupWindow       time.Duration
	Retention         time.Duration
	HeartbeatInterval time.Duration
	MaxStreamClients  int
	Channel           string
}

// PollIntervalSeconds clamps the advertised poll interval to 30s..5m.
func (n NotificationConfig) PollIntervalSeconds() int {
	d := n.PollInterval
	if d < 30*time.Second {
		d = 30 * time.Second
	}
	if d > 5*time.Minute {
		d = 5 * time.Minute
	}
	return int(d / time.Second)
}

// CacheConfig holds analytics cache settings
type CacheConfig struct {
	Backend         string // memory, redis, tiered
	DefaultTTL      time.Duration
	StaleTime       time.Duration
	CleanupInterval time.Duration
	KeyPrefix       string
	ViewTTLs        map[string]time.Duration
}

// TTLFor returns the TTL configured for an analytics view.
func (c CacheConfig) TTLFor(view string) time.Duration {
	if ttl, ok := c.ViewTTLs[view]; ok && ttl > 0 {
		return ttl
	}
	return c.DefaultTTL
}

// SchedulerConfig holds background job settings
type SchedulerConfig struct {
	Enabled        bool
	Workers        int
	QueueSize      int
	JobTimeout     time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	DashboardSpec  string
	FinancialSpec  string
	ExpiryScanSpec string
	RetentionSpec  string
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PresignExpiry   time.Duration
	MaxImageBytes   int64
}

// PrintingConfig holds receipt PDF rendering settings
type PrintingConfig struct {
	Enabled         bool
	ChromeRemoteURL string
	Timeout         time.Duration
	PaperWidthMM    float64
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration
	MetricsInterval   time.Duration
	LogExportEnabled  bool
}

// ProfilingConfig holds Pyroscope continuous profiling settings
type ProfilingConfig struct {
	Enabled       bool
	ServerAddress string
	AuthToken     string
	SampleRate    int
}

// MetricsConfig holds Prometheus scrape endpoint settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	AllowedIPs  []string
}

// Load loads configuration from an optional .env file, config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with PHARMA_ prefix (e.g., PHARMA_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads the given config file when path is not empty.
func LoadFrom(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/pharmapos")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			Timezone: v.GetString("app.timezone"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
			MigrationsPath:  v.GetString("database.migrations_path"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			Issuer:                 v.GetString("jwt.issuer"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
			MaxLoginAttempts:       v.GetInt("jwt.max_login_attempts"),
			LockDuration:           v.GetDuration("jwt.lock_duration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:       v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRPS:          v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:        v.GetInt("http.rate_limit_burst"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		Sales: SalesConfig{
			TaxRate:            decimalValue(v, "sales.tax_rate"),
			Currency:           v.GetString("sales.currency"),
			VoidWindow:         v.GetDuration("sales.void_window"),
			LargeSaleThreshold: decimalValue(v, "sales.large_sale_threshold"),
			ReceiptPrefix:      v.GetString("sales.receipt_prefix"),
			StoreName:          v.GetString("sales.store_name"),
			StoreAddress:       v.GetString("sales.store_address"),
			StorePhone:         v.GetString("sales.store_phone"),
		},
		Inventory: InventoryConfig{
			ExpiryWarnDays:      v.GetInt("inventory.expiry_warn_days"),
			DefaultReorderLevel: v.GetInt("inventory.default_reorder_level"),
		},
		Notification: NotificationConfig{
			PollInterval:      v.GetDuration("notification.poll_interval"),
			DedupWindow:       v.GetDuration("notification.dedup_window"),
			Retention:         v.GetDuration("notification.retention"),
			HeartbeatInterval: v.GetDuration("notification.heartbeat_interval"),
			MaxStreamClients:  v.GetInt("notification.max_stream_clients"),
			Channel:           v.GetString("notification.channel"),
		},
		Cache: CacheConfig{
			Backend:         v.GetString("cache.backend"),
			DefaultTTL:      v.GetDuration("cache.default_ttl"),
			StaleTime:       v.GetDuration("cache.stale_time"),
			CleanupInterval: v.GetDuration("cache.cleanup_interval"),
			KeyPrefix:       v.GetString("cache.key_prefix"),
			ViewTTLs:        durationMap(v, "cache.view_ttls"),
		},
		Scheduler: SchedulerConfig{
			Enabled:        v.GetBool("scheduler.enabled"),
			Workers:        v.GetInt("scheduler.workers"),
			QueueSize:      v.GetInt("scheduler.queue_size"),
			JobTimeout:     v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:  v.GetInt("scheduler.retry_attempts"),
			RetryDelay:     v.GetDuration("scheduler.retry_delay"),
			DashboardSpec:  v.GetString("scheduler.dashboard_spec"),
			FinancialSpec:  v.GetString("scheduler.financial_spec"),
			ExpiryScanSpec: v.GetString("scheduler.expiry_scan_spec"),
			RetentionSpec:  v.GetString("scheduler.retention_spec"),
		},
		Storage: StorageConfig{
			Enabled:         v.GetBool("storage.enabled"),
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			PresignExpiry:   v.GetDuration("storage.presign_expiry"),
			MaxImageBytes:   v.GetInt64("storage.max_image_bytes"),
		},
		Printing: PrintingConfig{
			Enabled:         v.GetBool("printing.enabled"),
			ChromeRemoteURL: v.GetString("printing.chrome_remote_url"),
			Timeout:         v.GetDuration("printing.timeout"),
			PaperWidthMM:    v.GetFloat64("printing.paper_width_mm"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogExportEnabled:  v.GetBool("telemetry.log_export_enabled"),
		},
		Profiling: ProfilingConfig{
			Enabled:       v.GetBool("profiling.enabled"),
			ServerAddress: v.GetString("profiling.server_address"),
			AuthToken:     v.GetString("profiling.auth_token"),
			SampleRate:    v.GetInt("profiling.sample_rate"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pharmapos")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "pharmapos")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("jwt.issuer", "pharmapos")
	v.SetDefault("jwt.access_token_expiration", 15*time.Minute)
	v.SetDefault("jwt.refresh_token_expiration", 7*24*time.Hour)
	v.SetDefault("jwt.max_refresh_count", 10)
	v.SetDefault("jwt.max_login_attempts", 5)
	v.SetDefault("jwt.lock_duration", 15*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)
	v.SetDefault("http.max_header_bytes", 1<<20)
	v.SetDefault("http.max_body_size", 10<<20)
	v.SetDefault("http.rate_limit_enabled", true)
	v.SetDefault("http.rate_limit_rps", 20.0)
	v.SetDefault("http.rate_limit_burst", 40)
	v.SetDefault("http.auth_rate_limit_requests", 5)
	v.SetDefault("http.auth_rate_limit_window", time.Minute)
	v.SetDefault("http.cors_allow_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("http.cors_allow_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})

	v.SetDefault("sales.tax_rate", "0")
	v.SetDefault("sales.currency", "USD")
	v.SetDefault("sales.void_window", 24*time.Hour)
	v.SetDefault("sales.large_sale_threshold", "1000")
	v.SetDefault("sales.receipt_prefix", "RCP")
	v.SetDefault("sales.store_name", "PharmaPOS Pharmacy")

	v.SetDefault("inventory.expiry_warn_days", 30)
	v.SetDefault("inventory.default_reorder_level", 10)

	v.SetDefault("notification.poll_interval", 30*time.Second)
	v.SetDefault("notification.dedup_window", 24*time.Hour)
	v.SetDefault("notification.retention", 30*24*time.Hour)
	v.SetDefault("notification.heartbeat_interval", 30*time.Second)
	v.SetDefault("notification.max_stream_clients", 500)
	v.SetDefault("notification.channel", "pharmapos:notifications")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.default_ttl", 5*time.Minute)
	v.SetDefault("cache.stale_time", 30*time.Second)
	v.SetDefault("cache.cleanup_interval", time.Minute)
	v.SetDefault("cache.key_prefix", "pharmapos:")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.workers", 2)
	v.SetDefault("scheduler.queue_size", 32)
	v.SetDefault("scheduler.job_timeout", 2*time.Minute)
	v.SetDefault("scheduler.retry_attempts", 2)
	v.SetDefault("scheduler.retry_delay", 5*time.Second)
	v.SetDefault("scheduler.dashboard_spec", "@every 1m")
	v.SetDefault("scheduler.financial_spec", "@every 5m")
	v.SetDefault("scheduler.expiry_scan_spec", "0 6 * * *")
	v.SetDefault("scheduler.retention_spec", "30 3 * * *")

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "pharmapos")
	v.SetDefault("storage.presign_expiry", 15*time.Minute)
	v.SetDefault("storage.max_image_bytes", 5<<20)

	v.SetDefault("printing.timeout", 30*time.Second)
	v.SetDefault("printing.paper_width_mm", 80.0)

	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.service_name", "pharmapos")
	v.SetDefault("telemetry.db_slow_query_threshold", 200*time.Millisecond)
	v.SetDefault("telemetry.metrics_interval", 60*time.Second)

	v.SetDefault("profiling.server_address", "http://localhost:4040")
	v.SetDefault("profiling.sample_rate", 100)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("swagger.enabled", true)
}

func decimalValue(v *viper.Viper, key string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func durationMap(v *viper.Viper, key string) map[string]time.Duration {
	out := make(map[string]time.Duration)
	for view, raw := range v.GetStringMapString(key) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			continue
		}
		out[view] = d
	}
	return out
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone %q is invalid: %w", c.App.Timezone, err)
	}
	if c.Sales.TaxRate.IsNegative() || c.Sales.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("sales.tax_rate must be in [0, 1), got %s", c.Sales.TaxRate)
	}
	if c.Sales.VoidWindow < 0 {
		return fmt.Errorf("sales.void_window cannot be negative")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "tiered":
	default:
		return fmt.Errorf("cache.backend must be memory, redis or tiered, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend != "memory" && !c.Redis.Enabled {
		return fmt.Errorf("cache.backend %q requires redis.enabled", c.Cache.Backend)
	}
	if c.Cache.StaleTime > c.Cache.DefaultTTL {
		return fmt.Errorf("cache.stale_time cannot exceed cache.default_ttl")
	}
	if c.Scheduler.Enabled && c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be positive")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
