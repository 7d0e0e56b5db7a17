// Package config loads runtime settings from VORTEX_* environment variables
// and an optional config file named by VORTEX_CONFIG.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Service identity
const (
	ServiceName    = "vortex-catalog"
	ServiceVersion = "0.1.0"
)

// Config holds the settings that change between environments
type Config struct {
	ServiceName        string
	DatabasePath       string
	LogLevel           string
	DefaultPageSize    int
	DirectoryCacheSize int
	Kafka              KafkaConfig
	Otel               OtelConfig
}

// KafkaConfig configures event publishing. An empty Broker disables it.
type KafkaConfig struct {
	Broker         string
	MovementsTopic string
	StatusTopic    string
	BatchTimeout   time.Duration
	BatchSize      int
	MaxRetries     int
}

// OtelConfig configures OTLP/HTTP export. An empty Endpoint disables it.
type OtelConfig struct {
	Endpoint   string
	AuthHeader string
	TracesPath string
	LogsPath   string
	Insecure   bool
}

// Enabled reports whether events are published to Kafka
func (k KafkaConfig) Enabled() bool { return k.Broker != "" }

// Enabled reports whether telemetry is exported
func (o OtelConfig) Enabled() bool { return o.Endpoint != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", ServiceName)
	v.SetDefault("db_path", "~/.vortex/catalog.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("page_size", 10)
	v.SetDefault("directory_cache_size", 512)

	v.SetDefault("kafka.broker", "")
	v.SetDefault("kafka.movements_topic", "stock-movements")
	v.SetDefault("kafka.status_topic", "order-status")
	v.SetDefault("kafka.batch_timeout", 10*time.Millisecond)
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.max_retries", 3)

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.auth_header", "")
	v.SetDefault("otel.traces_path", "/v1/traces")
	v.SetDefault("otel.logs_path", "/v1/logs")
	v.SetDefault("otel.insecure", false)
}

// Load reads configuration. Environment variables override the config file;
// nested keys use an underscore, e.g. VORTEX_KAFKA_BROKER.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VORTEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("VORTEX_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	dbPath, err := expandHome(v.GetString("db_path"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServiceName:        v.GetString("service_name"),
		DatabasePath:       dbPath,
		LogLevel:           v.GetString("log_level"),
		DefaultPageSize:    v.GetInt("page_size"),
		DirectoryCacheSize: v.GetInt("directory_cache_size"),
		Kafka: KafkaConfig{
			Broker:         v.GetString("kafka.broker"),
			MovementsTopic: v.GetString("kafka.movements_topic"),
			StatusTopic:    v.GetString("kafka.status_topic"),
			BatchTimeout:   v.GetDuration("kafka.batch_timeout"),
			BatchSize:      v.GetInt("kafka.batch_size"),
			MaxRetries:     v.GetInt("kafka.max_retries"),
		},
		Otel: OtelConfig{
			Endpoint:   v.GetString("otel.endpoint"),
			AuthHeader: v.GetString("otel.auth_header"),
			TracesPath: v.GetString("otel.traces_path"),
			LogsPath:   v.GetString("otel.logs_path"),
			Insecure:   v.GetBool("otel.insecure"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	var errs error
	if c.DatabasePath == "" {
		errs = errors.Join(errs, errors.New("db_path cannot be empty"))
	}
	if c.DefaultPageSize <= 0 {
		errs = errors.Join(errs, fmt.Errorf("page_size must be positive, got %d", c.DefaultPageSize))
	}
	if c.DirectoryCacheSize <= 0 {
		errs = errors.Join(errs, fmt.Errorf("directory_cache_size must be positive, got %d", c.DirectoryCacheSize))
	}
	if c.Kafka.Enabled() && (c.Kafka.MovementsTopic == "" || c.Kafka.StatusTopic == "") {
		errs = errors.Join(errs, errors.New("kafka topics cannot be empty when a broker is set"))
	}
	if c.Kafka.MaxRetries < 1 {
		errs = errors.Join(errs, fmt.Errorf("kafka.max_retries must be at least 1, got %d", c.Kafka.MaxRetries))
	}
	return errs
}

func expandHome(path string) (string, error) {
	if path == ":memory:" || !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
