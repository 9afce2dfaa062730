package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the campaign console
type Config struct {
	// Remote API
	APIURL     string        `envconfig:"SPARK_API_URL" default:"http://localhost:5000"`
	APITimeout time.Duration `envconfig:"SPARK_API_TIMEOUT" default:"30s"`
	MaxRetries int           `envconfig:"SPARK_MAX_RETRIES" default:"2"`

	// Session
	AuthTimeout      time.Duration `envconfig:"SPARK_AUTH_TIMEOUT" default:"5s"`
	DemoLoginEnabled bool          `envconfig:"DEMO_LOGIN_ENABLED" default:"true"`
	StoragePath      string        `envconfig:"STORAGE_PATH"` // defaults to ~/.spark-console/storage.json

	// Status polling
	PollInterval time.Duration `envconfig:"STATUS_POLL_INTERVAL" default:"3s"`

	// Dashboard server settings
	Port            int           `envconfig:"PORT" default:"8090"`
	Host            string        `envconfig:"HOST" default:"127.0.0.1"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	HealthCheckPath string        `envconfig:"HEALTH_CHECK_PATH" default:"/health"`

	// Status stream WebSocket settings
	WSReadBufferSize  int           `envconfig:"WS_READ_BUFFER_SIZE" default:"1024"`
	WSWriteBufferSize int           `envconfig:"WS_WRITE_BUFFER_SIZE" default:"1024"`
	WSPingInterval    time.Duration `envconfig:"WS_PING_INTERVAL" default:"30s"`
	WSPongWait        time.Duration `envconfig:"WS_PONG_WAIT" default:"60s"`
	WSWriteWait       time.Duration `envconfig:"WS_WRITE_WAIT" default:"10s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"` // json or console
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.StoragePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.StoragePath = filepath.Join(home, ".spark-console", "storage.json")
	}
	return &cfg, nil
}

// Address returns the dashboard server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SPARK_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.AuthTimeout <= 0 {
		return fmt.Errorf("SPARK_AUTH_TIMEOUT must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("STATUS_POLL_INTERVAL must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("SPARK_MAX_RETRIES must not be negative")
	}
	if c.WSPingInterval >= c.WSPongWait && c.WSPongWait > 0 {
		return fmt.Errorf("WS_PING_INTERVAL must be shorter than WS_PONG_WAIT")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	return nil
}
