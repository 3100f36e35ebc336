package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/salesops/backend/internal/domain/access"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Scheduler    SchedulerConfig
	Fiscal       FiscalConfig
	Access       AccessConfig
	Report       ReportConfig
	Notification NotificationConfig
	Telemetry    TelemetryConfig
	Storage      StorageConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string // file path when Driver is sqlite
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	Swagger          SwaggerConfig
	RateLimit        RateLimitConfig
}

// RateLimitConfig throttles report requests per effective owner
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// SwaggerConfig controls the /swagger UI. Disabled in production unless set.
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	AllowedIPs  []string
}

// SchedulerConfig holds notice job scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	DailyRunTime      string // HH:MM, local time
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// FiscalConfig holds the fiscal calendar settings
type FiscalConfig struct {
	StartMonth    int // 1-12, first month of the fiscal year
	TrailingYears int // complete fiscal years shown before the current one
}

// AccessConfig holds the access scope settings
type AccessConfig struct {
	AdminCode            string
	NarrowAllOwners      bool
	RegionNarrowedOwners []string
	Exceptions           []access.Exception
}

// ReportConfig holds report execution settings
type ReportConfig struct {
	Sources      []string // source ids, each backed by sales_history_<id>
	MaxParallel  int
	QueryTimeout time.Duration
	// DataSource is gorm or memory; memory serves SeedFile and is for development
	DataSource string
	SeedFile   string
}

// Report data source backends
const (
	DataSourceGorm   = "gorm"
	DataSourceMemory = "memory"
)

// NotificationConfig holds expiry notice settings
type NotificationConfig struct {
	NoticeDays   []int
	DedupBackend string // gorm, redis or memory
	From         string
	// Retention keeps redis and memory dedup records this long past the
	// expiration date they guard; zero (the default) keeps them forever
	Retention time.Duration
}

// TelemetryConfig holds OpenTelemetry and profiling settings
type TelemetryConfig struct {
	Enabled               bool
	CollectorEndpoint     string
	Insecure              bool
	SamplingRatio         float64
	MetricsEnabled        bool
	MetricsExporter       string // otlp or prometheus
	MetricsExportInterval time.Duration
	LogsEnabled           bool
	DBTracing             bool
	DBLogFullSQL          bool
	DBSlowQueryThreshold  time.Duration
	ProfilingEnabled      bool
	PyroscopeAddress      string
	SpanProfiles          bool
}

// StorageConfig holds S3-compatible object storage settings for report
// snapshots
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SALESOPS_ prefix (e.g., SALESOPS_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}
	return build(v)
}

// LoadFile loads configuration from an explicit TOML file plus environment
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("SALESOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans whose zero value is not the default
	v.SetDefault("access.narrow_all_owners", true)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("storage.use_path_style", true)
	v.SetDefault("http.swagger.enabled", v.GetString("app.env") != "production")

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			Issuer:                v.GetString("jwt.issuer"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			Swagger: SwaggerConfig{
				Enabled:     v.GetBool("http.swagger.enabled"),
				RequireAuth: v.GetBool("http.swagger.require_auth"),
				AllowedIPs:  v.GetStringSlice("http.swagger.allowed_ips"),
			},
			RateLimit: RateLimitConfig{
				Enabled:           v.GetBool("http.rate_limit.enabled"),
				RequestsPerSecond: v.GetFloat64("http.rate_limit.requests_per_second"),
				Burst:             v.GetInt("http.rate_limit.burst"),
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			DailyRunTime:      v.GetString("scheduler.daily_run_time"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:     v.GetInt("scheduler.retry_attempts"),
			RetryDelay:        v.GetDuration("scheduler.retry_delay"),
		},
		Fiscal: FiscalConfig{
			StartMonth:    v.GetInt("fiscal.start_month"),
			TrailingYears: v.GetInt("fiscal.trailing_years"),
		},
		Access: AccessConfig{
			AdminCode:            v.GetString("access.admin_code"),
			NarrowAllOwners:      v.GetBool("access.narrow_all_owners"),
			RegionNarrowedOwners: v.GetStringSlice("access.region_narrowed_owners"),
		},
		Report: ReportConfig{
			Sources:      v.GetStringSlice("report.sources"),
			MaxParallel:  v.GetInt("report.max_parallel"),
			QueryTimeout: v.GetDuration("report.query_timeout"),
			DataSource:   v.GetString("report.data_source"),
			SeedFile:     v.GetString("report.seed_file"),
		},
		Notification: NotificationConfig{
			NoticeDays:   v.GetIntSlice("notification.notice_days"),
			DedupBackend: v.GetString("notification.dedup_backend"),
			From:         v.GetString("notification.from"),
			Retention:    v.GetDuration("notification.retention"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			Insecure:              v.GetBool("telemetry.insecure"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			MetricsEnabled:        v.GetBool("telemetry.metrics_enabled"),
			MetricsExporter:       v.GetString("telemetry.metrics_exporter"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
			DBTracing:             v.GetBool("telemetry.db_tracing"),
			DBLogFullSQL:          v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThreshold:  v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:      v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:      v.GetString("telemetry.pyroscope_address"),
			SpanProfiles:          v.GetBool("telemetry.span_profiles"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
	}

	// Exception tables are arrays of tables and only come from the file
	if err := v.UnmarshalKey("access.exceptions", &cfg.Access.Exceptions); err != nil {
		return nil, fmt.Errorf("error decoding access.exceptions: %w", err)
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "salesops-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "salesops"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "salesops-backend"
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	// No CORS origin default: cross-origin requests stay disabled until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.HTTP.RateLimit.RequestsPerSecond == 0 {
		cfg.HTTP.RateLimit.RequestsPerSecond = 2
	}
	if cfg.HTTP.RateLimit.Burst == 0 {
		cfg.HTTP.RateLimit.Burst = 10
	}
	if cfg.Scheduler.DailyRunTime == "" {
		cfg.Scheduler.DailyRunTime = "02:00"
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 2
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = 5 * time.Minute
	}
	if cfg.Fiscal.StartMonth == 0 {
		cfg.Fiscal.StartMonth = 1
	}
	if cfg.Fiscal.TrailingYears == 0 {
		cfg.Fiscal.TrailingYears = 2
	}
	if cfg.Access.AdminCode == "" {
		cfg.Access.AdminCode = "ADMIN"
	}
	if len(cfg.Report.Sources) == 0 {
		cfg.Report.Sources = []string{"current"}
	}
	if cfg.Report.MaxParallel == 0 {
		cfg.Report.MaxParallel = 4
	}
	if cfg.Report.QueryTimeout == 0 {
		cfg.Report.QueryTimeout = 30 * time.Second
	}
	if cfg.Report.DataSource == "" {
		cfg.Report.DataSource = DataSourceGorm
	}
	if len(cfg.Notification.NoticeDays) == 0 {
		cfg.Notification.NoticeDays = []int{30, 15}
	}
	if cfg.Notification.DedupBackend == "" {
		cfg.Notification.DedupBackend = "gorm"
	}
	if cfg.Notification.From == "" {
		cfg.Notification.From = "noreply@salesops.local"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThreshold == 0 {
		cfg.Telemetry.DBSlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "salesops-reports"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
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

	if c.Fiscal.StartMonth < 1 || c.Fiscal.StartMonth > 12 {
		return fmt.Errorf("fiscal.start_month must be between 1 and 12, got %d", c.Fiscal.StartMonth)
	}
	if c.Fiscal.TrailingYears < 0 {
		return fmt.Errorf("fiscal.trailing_years cannot be negative")
	}

	for i, e := range c.Access.Exceptions {
		if strings.TrimSpace(e.Owner) == "" {
			return fmt.Errorf("access.exceptions[%d].owner is required", i)
		}
		if e.Owner == c.Access.AdminCode {
			return fmt.Errorf("access.exceptions[%d]: the administrator cannot have exceptions", i)
		}
	}

	for _, s := range c.Report.Sources {
		if !ValidSourceID(s) {
			return fmt.Errorf("report.sources: invalid source id %q", s)
		}
	}
	if c.Report.MaxParallel < 0 {
		return fmt.Errorf("report.max_parallel cannot be negative")
	}
	switch c.Report.DataSource {
	case DataSourceGorm, DataSourceMemory:
	default:
		return fmt.Errorf("report.data_source must be gorm or memory, got %q", c.Report.DataSource)
	}

	for _, d := range c.Notification.NoticeDays {
		if d != 30 && d != 15 {
			return fmt.Errorf("notification.notice_days supports 30 and 15, got %d", d)
		}
	}
	if c.Notification.Retention < 0 {
		return fmt.Errorf("notification.retention cannot be negative")
	}
	switch c.Notification.DedupBackend {
	case "gorm", "redis", "memory":
	default:
		return fmt.Errorf("notification.dedup_backend must be gorm, redis or memory, got %q", c.Notification.DedupBackend)
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %v", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.PyroscopeAddress == "" {
		return fmt.Errorf("telemetry.pyroscope_address is required when profiling is enabled")
	}
	if c.Storage.Enabled && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("storage.access_key and storage.secret_key are required when storage is enabled")
	}

	if _, _, err := c.Scheduler.DailyTime(); err != nil {
		return err
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver == DriverPostgres && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Notification.DedupBackend == "memory" {
			return fmt.Errorf("notification.dedup_backend cannot be memory in production")
		}
		if c.Report.DataSource == DataSourceMemory {
			return fmt.Errorf("report.data_source cannot be memory in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// ValidSourceID reports whether id can name a sales history source table
func ValidSourceID(id string) bool {
	if id == "" || len(id) > 48 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// DailyTime parses DailyRunTime into hour and minute
func (s SchedulerConfig) DailyTime() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.DailyRunTime)
	if err != nil {
		return 0, 0, fmt.Errorf("scheduler.daily_run_time must be HH:MM, got %q", s.DailyRunTime)
	}
	return t.Hour(), t.Minute(), nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return d.DBName
	}
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
