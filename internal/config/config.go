package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends
const (
	BackendInfluxDB = "influxdb"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	Ecobee      EcobeeConfig
	Runtime     RuntimeConfig
	Store       StoreConfig
	Influx      InfluxConfig
	Database    DatabaseConfig
	Logging     LoggingConfig
	RabbitMQ    RabbitMQConfig
	Metrics     MetricsConfig
}

// EcobeeConfig holds vendor API settings
type EcobeeConfig struct {
	APIKey             string
	BaseURL            string
	TokenFile          string
	HTTPTimeoutSeconds int
}

// RuntimeConfig holds runtime report sync settings
type RuntimeConfig struct {
	DifferenceMinutes int
	ReportTimezone    string
}

// StoreConfig selects the time-series backend
type StoreConfig struct {
	Backend string
}

// InfluxConfig holds InfluxDB connection settings. Database is the 1.x database
// (or 2.x bucket); a 1.x server must run with flux-enabled = true.
type InfluxConfig struct {
	Scheme    string
	Host      string
	Port      int
	Database  string
	Token     string
	Org       string
	VerifyTLS bool
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level         string
	File          string
	RetentionDays int
}

// RabbitMQConfig holds the optional run event publisher settings
type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// MetricsConfig holds the optional Pushgateway settings
type MetricsConfig struct {
	PushgatewayURL string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "ecobee-sync"),
		Ecobee: EcobeeConfig{
			APIKey:             getEnv("ECOBEE_API_KEY", ""),
			BaseURL:            getEnv("ECOBEE_API_URL", "https://api.ecobee.com"),
			TokenFile:          getEnv("ECOBEE_TOKEN_FILE", "~/.ecobee_refresh_token"),
			HTTPTimeoutSeconds: getEnvAsInt("ECOBEE_HTTP_TIMEOUT_SECONDS", 30),
		},
		Runtime: RuntimeConfig{
			DifferenceMinutes: getEnvAsInt("RUNTIME_DIFFERENCE_MINUTES", 60),
			ReportTimezone:    getEnv("ECOBEE_REPORT_TIMEZONE", "UTC"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendInfluxDB)),
		},
		Influx: InfluxConfig{
			Scheme:    getEnv("INFLUXDB_SCHEME", "http"),
			Host:      getEnv("INFLUXDB_HOST", "localhost"),
			Port:      getEnvAsInt("INFLUXDB_PORT", 8086),
			Database:  getEnv("INFLUXDB_DATABASE", "ecobee"),
			Token:     getEnv("INFLUXDB_TOKEN", ""),
			Org:       getEnv("INFLUXDB_ORG", ""),
			VerifyTLS: getEnvAsBool("INFLUXDB_VERIFY_TLS", false),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Logging: LoggingConfig{
			Level:         getEnv("LOG_LEVEL", "debug"),
			File:          getEnv("LOG_FILE", "ecobee.log"),
			RetentionDays: getEnvAsInt("LOG_RETENTION_DAYS", 7),
		},
		RabbitMQ: RabbitMQConfig{
			URL:        getEnv("RABBITMQ_URL", ""),
			Exchange:   getEnv("RABBITMQ_EXCHANGE", "ecobee.sync.events.exchange"),
			RoutingKey: getEnv("RABBITMQ_ROUTING_KEY", "ecobee.sync.completed"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
		},
	}

	// Validate required fields
	if cfg.Ecobee.APIKey == "" {
		return nil, fmt.Errorf("ECOBEE_API_KEY is required but not set in environment variables")
	}
	if cfg.Runtime.DifferenceMinutes < 0 {
		return nil, fmt.Errorf("RUNTIME_DIFFERENCE_MINUTES must not be negative, got %d", cfg.Runtime.DifferenceMinutes)
	}
	if _, err := cfg.ReportLocation(); err != nil {
		return nil, err
	}
	switch cfg.Store.Backend {
	case BackendInfluxDB:
	case BackendPostgres:
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", BackendPostgres)
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND %q (want %s or %s)", cfg.Store.Backend, BackendInfluxDB, BackendPostgres)
	}

	return cfg, nil
}

// ReportLocation resolves the runtime report time zone
func (c *Config) ReportLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Runtime.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ECOBEE_REPORT_TIMEZONE %q: %w", c.Runtime.ReportTimezone, err)
	}
	return loc, nil
}

// HTTPTimeout returns the vendor API client timeout
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Ecobee.HTTPTimeoutSeconds) * time.Second
}

// InfluxURL returns the InfluxDB server URL built from scheme, host and port
func (c *Config) InfluxURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Influx.Scheme, c.Influx.Host, c.Influx.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
