package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// JobsConfig holds the job lifecycle tunables. They are read once at startup.
type JobsConfig struct {
	MaxRecent              int    `mapstructure:"max_recent"`
	TTLHours               int    `mapstructure:"ttl_hours"`
	CleanupIntervalMinutes int    `mapstructure:"cleanup_interval_minutes"`
	DataDir                string `mapstructure:"data_dir"`
	MaxConcurrent          int    `mapstructure:"max_concurrent"`
	MaxURLsPerJob          int    `mapstructure:"max_urls_per_job"`
}

// JobTTL returns the job time-to-live.
func (c JobsConfig) JobTTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// CleanupInterval returns the delay between cleaner sweeps.
func (c JobsConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

type FetcherConfig struct {
	YtDlpBin       string        `mapstructure:"ytdlp_bin"`
	CookiesFile    string        `mapstructure:"cookies_file"`
	CookiesText    string        `mapstructure:"cookies_text"`
	UserAgent      string        `mapstructure:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language"`
	AudioQuality   string        `mapstructure:"audio_quality"`
	DirectHTTP     bool          `mapstructure:"direct_http"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
}

// StorageConfig configures the optional S3-compatible archive mirror.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // r2, s3, s3compatible
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

// DatabaseConfig configures the optional job history store.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

// DSN returns the connection string for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	Capacity        int           `mapstructure:"capacity"`
	RefillPerSecond float64       `mapstructure:"refill_per_second"`
	KeyTTL          time.Duration `mapstructure:"key_ttl"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Historical variable names used by existing deployments
	v.BindEnv("server.port", "PORT")
	v.BindEnv("jobs.max_recent", "MAX_RECENT")
	v.BindEnv("jobs.ttl_hours", "JOB_TTL_HOURS")
	v.BindEnv("jobs.cleanup_interval_minutes", "CLEANUP_INTERVAL_MINUTES")
	v.BindEnv("jobs.data_dir", "DATA_DIR")
	v.BindEnv("fetcher.ytdlp_bin", "YTDLP_BIN")
	v.BindEnv("fetcher.cookies_file", "YTDLP_COOKIES_FILE")
	v.BindEnv("fetcher.cookies_text", "YTDLP_COOKIES_TEXT")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.bucket", "S3_BUCKET")
	v.BindEnv("storage.public_url", "S3_PUBLIC_URL")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("ratelimit.redis_addr", "REDIS_ADDR")
	v.BindEnv("ratelimit.redis_password", "REDIS_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("jobs.max_recent", 10)
	v.SetDefault("jobs.ttl_hours", 6)
	v.SetDefault("jobs.cleanup_interval_minutes", 30)
	v.SetDefault("jobs.data_dir", "./tmp_downloads")
	v.SetDefault("jobs.max_concurrent", 0)
	v.SetDefault("jobs.max_urls_per_job", 50)

	v.SetDefault("fetcher.ytdlp_bin", "yt-dlp")
	v.SetDefault("fetcher.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("fetcher.accept_language", "en-US,en;q=0.9")
	v.SetDefault("fetcher.audio_quality", "320K")
	v.SetDefault("fetcher.direct_http", true)
	v.SetDefault("fetcher.http_timeout", 30*time.Minute)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.prefix", "archives")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/mediafetch.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.redis_addr", "localhost:6379")
	v.SetDefault("ratelimit.capacity", 10)
	v.SetDefault("ratelimit.refill_per_second", 0.2)
	v.SetDefault("ratelimit.key_ttl", 10*time.Minute)
}

// Validate checks the values the job lifecycle depends on.
func (c *Config) Validate() error {
	if c.Jobs.MaxRecent <= 0 {
		return fmt.Errorf("jobs.max_recent must be positive, got %d", c.Jobs.MaxRecent)
	}
	if c.Jobs.TTLHours <= 0 {
		return fmt.Errorf("jobs.ttl_hours must be positive, got %d", c.Jobs.TTLHours)
	}
	if c.Jobs.CleanupIntervalMinutes <= 0 {
		return fmt.Errorf("jobs.cleanup_interval_minutes must be positive, got %d", c.Jobs.CleanupIntervalMinutes)
	}
	if c.Jobs.DataDir == "" {
		return fmt.Errorf("jobs.data_dir is required")
	}
	if c.Jobs.MaxConcurrent < 0 {
		return fmt.Errorf("jobs.max_concurrent must not be negative, got %d", c.Jobs.MaxConcurrent)
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	if c.Database.Enabled {
		switch c.Database.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
		}
		if c.Database.DSN() == "" {
			return fmt.Errorf("database connection is not configured for driver %q", c.Database.Driver)
		}
	}
	return nil
}
