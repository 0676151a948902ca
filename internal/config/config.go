package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Storage       StorageConfig
	Sweeper       SweeperConfig
	Notifications NotificationConfig
	Display       DisplayConfig
	Monitoring    MonitoringConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"` // postgres | memory
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	Driver         string           `mapstructure:"driver"` // filesystem | gcs | memory
	MaxUploadBytes int64            `mapstructure:"max_upload_bytes"`
	Filesystem     FileSystemConfig `mapstructure:"filesystem"`
	GCS            GCSConfig        `mapstructure:"gcs"`
}

type FileSystemConfig struct {
	BasePath      string `mapstructure:"base_path"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type SweeperConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	Threshold   time.Duration `mapstructure:"threshold"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
	LockKey     string        `mapstructure:"lock_key"`
}

type NotificationConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Driver      string        `mapstructure:"driver"` // log | shoutrrr
	URLs        []string      `mapstructure:"urls"`
	RatePerSec  float64       `mapstructure:"rate_per_sec"`
	Burst       int           `mapstructure:"burst"`
	DedupWindow time.Duration `mapstructure:"dedup_window"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

type DisplayConfig struct {
	Timezone   string `mapstructure:"timezone"`
	TimeFormat string `mapstructure:"time_format"`
}

type MonitoringConfig struct {
	LogLevel    string `mapstructure:"log_level"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// Location resolves the display timezone, falling back to UTC.
func (d DisplayConfig) Location() *time.Location {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HIVEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Load config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "hivehub")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 20)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Storage defaults
	v.SetDefault("storage.driver", "filesystem")
	v.SetDefault("storage.max_upload_bytes", 10*1024*1024) // 10MB
	v.SetDefault("storage.filesystem.base_path", "./data/blobs")
	v.SetDefault("storage.filesystem.public_base_url", "http://localhost:8080/media")
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.credentials_file", "")

	// Sweeper defaults
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", "20m")
	v.SetDefault("sweeper.threshold", "20m")
	v.SetDefault("sweeper.timeout", "5m")
	v.SetDefault("sweeper.concurrency", 8)
	v.SetDefault("sweeper.lock_key", "hivehub:sweeper")

	// Notification defaults: dispatch stays inert unless enabled
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.driver", "log")
	v.SetDefault("notifications.rate_per_sec", 5.0)
	v.SetDefault("notifications.burst", 10)
	v.SetDefault("notifications.dedup_window", "10m")
	v.SetDefault("notifications.send_timeout", "10s")

	// Display defaults
	v.SetDefault("display.timezone", "Europe/Istanbul")
	v.SetDefault("display.time_format", "02.01.2006 15:04:05")

	// Monitoring defaults
	v.SetDefault("monitoring.log_level", "info")
	v.SetDefault("monitoring.metrics_path", "/metrics")
}

func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres":
		if config.Database.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", config.Database.Driver)
	}

	switch config.Storage.Driver {
	case "filesystem":
		if config.Storage.Filesystem.BasePath == "" {
			return fmt.Errorf("filesystem storage base path is required")
		}
	case "gcs":
		if config.Storage.GCS.Bucket == "" {
			return fmt.Errorf("gcs bucket is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	if config.Redis.Enabled && config.Redis.Host == "" {
		return fmt.Errorf("redis host is required when redis is enabled")
	}

	if config.Sweeper.Interval <= 0 || config.Sweeper.Threshold <= 0 {
		return fmt.Errorf("sweeper interval and threshold must be positive")
	}
	if config.Sweeper.Timeout <= 0 || config.Sweeper.Timeout > config.Sweeper.Interval {
		config.Sweeper.Timeout = config.Sweeper.Interval
	}
	if config.Sweeper.Concurrency <= 0 {
		config.Sweeper.Concurrency = 1
	}

	switch config.Notifications.Driver {
	case "log":
	case "shoutrrr":
		if config.Notifications.Enabled && len(config.Notifications.URLs) == 0 {
			return fmt.Errorf("shoutrrr notifications need at least one url")
		}
	default:
		return fmt.Errorf("unknown notification driver %q", config.Notifications.Driver)
	}

	return nil
}
