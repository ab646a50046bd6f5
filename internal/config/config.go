package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Proximity ProximityConfig `yaml:"proximity"`
	AISStream AISStreamConfig `yaml:"aisstream"`
	GFW       GFWConfig       `yaml:"gfw"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ProximityConfig struct {
	Latitude  float64       `yaml:"latitude" env:"PROXIMITY_LATITUDE"`
	Longitude float64       `yaml:"longitude" env:"PROXIMITY_LONGITUDE"`
	RadiusNM  float64       `yaml:"radius_nm" env:"PROXIMITY_RADIUS_NM"`
	Collect   time.Duration `yaml:"collect" env:"PROXIMITY_COLLECT"`
}

type AISStreamConfig struct {
	URL               string        `yaml:"url" env:"AISSTREAM_URL"`
	APIKey            string        `yaml:"api_key" env:"AISSTREAM_API_KEY"`
	ReconnectAttempts int           `yaml:"reconnect_attempts" env:"AISSTREAM_RECONNECT_ATTEMPTS"`
	ReconnectBackoff  time.Duration `yaml:"reconnect_backoff" env:"AISSTREAM_RECONNECT_BACKOFF"`
	MaxBackoff        time.Duration `yaml:"max_backoff" env:"AISSTREAM_MAX_BACKOFF"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout" env:"AISSTREAM_HANDSHAKE_TIMEOUT"`
}

type GFWConfig struct {
	BaseURL        string        `yaml:"base_url" env:"GFW_BASE_URL"`
	Dataset        string        `yaml:"dataset" env:"GFW_DATASET"`
	Token          string        `yaml:"token" env:"GFW_API_TOKEN"`
	LookbackHours  int           `yaml:"lookback_hours" env:"GFW_LOOKBACK_HOURS"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"GFW_REQUEST_TIMEOUT"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" env:"PORT"` // 0 disables the status server
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // "DEBUG", "INFO", "WARN", "ERROR"
	Format string `yaml:"format" env:"LOG_FORMAT"` // "console" or "json"
}

func Load(configPath string) (*Config, error) {
	config := &Config{}

	config.setDefaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) setDefaults() {
	c.Proximity.Latitude = 25.82392
	c.Proximity.Longitude = -15.74592
	c.Proximity.RadiusNM = 100
	c.Proximity.Collect = 60 * time.Second

	c.AISStream.URL = "wss://stream.aisstream.io/v0/stream"
	c.AISStream.ReconnectAttempts = 3
	c.AISStream.ReconnectBackoff = time.Second
	c.AISStream.MaxBackoff = 30 * time.Second
	c.AISStream.HandshakeTimeout = 15 * time.Second

	c.GFW.BaseURL = "https://gateway.api.globalfishingwatch.org"
	c.GFW.Dataset = "public-global-presence:latest"
	c.GFW.LookbackHours = 96
	c.GFW.RequestTimeout = 30 * time.Second

	c.Server.Port = 0
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.IdleTimeout = 60 * time.Second

	c.Logging.Level = "INFO"
	c.Logging.Format = "console"
}

// Validate checks the settings that do not depend on per-run flags.
// Credentials are checked when a run starts.
func (c *Config) Validate() error {
	if c.Proximity.Latitude < -90 || c.Proximity.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}

	if c.Proximity.Longitude < -180 || c.Proximity.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}

	if c.Proximity.RadiusNM <= 0 {
		return fmt.Errorf("radius must be positive")
	}

	if c.Proximity.Collect <= 0 {
		return fmt.Errorf("collection duration must be positive")
	}

	if c.AISStream.URL == "" {
		return fmt.Errorf("aisstream URL cannot be empty")
	}

	if c.AISStream.ReconnectAttempts < 0 {
		return fmt.Errorf("reconnect attempts cannot be negative")
	}

	if c.AISStream.ReconnectBackoff <= 0 || c.AISStream.MaxBackoff < c.AISStream.ReconnectBackoff {
		return fmt.Errorf("reconnect backoff must be positive and not exceed max backoff")
	}

	if c.GFW.BaseURL == "" {
		return fmt.Errorf("gfw base URL cannot be empty")
	}

	if c.GFW.LookbackHours < 1 {
		return fmt.Errorf("lookback hours must be at least 1")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 0 and 65535")
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("log level must be 'DEBUG', 'INFO', 'WARN', or 'ERROR'")
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("log format must be 'console' or 'json'")
	}

	return nil
}
