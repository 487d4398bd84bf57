// SPDX-License-Identifier: MIT

// Package config loads the studio daemon configuration with the precedence
// ENV > config file > defaults.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the fully resolved daemon configuration.
type Config struct {
	ListenAddr string `yaml:"listen"`
	DataDir    string `yaml:"dataDir"`
	LogLevel   string `yaml:"logLevel"`

	// Recording session timing. The countdown runs at 1 Hz; chunked capture
	// is cut at ChunkInterval boundaries.
	CountdownTicks int           `yaml:"countdownTicks"`
	ChunkInterval  time.Duration `yaml:"chunkInterval"`

	// HTTP surface.
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`

	// Optional Redis read-cache. Empty address selects the in-memory cache.
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`

	// AI stand-in behaviour.
	AILatency time.Duration `yaml:"aiLatency"`
	AISeed    int64         `yaml:"aiSeed"`

	// Tracing.
	OTELEnabled  bool    `yaml:"otelEnabled"`
	OTELExporter string  `yaml:"otelExporter"`
	OTELEndpoint string  `yaml:"otelEndpoint"`
	OTELSampling float64 `yaml:"otelSampling"`

	Version string `yaml:"-"`
}

func defaults(version string) *Config {
	return &Config{
		ListenAddr:        ":8080",
		DataDir:           "data",
		LogLevel:          "info",
		CountdownTicks:    3,
		ChunkInterval:     time.Second,
		RequestsPerMinute: 120,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		AILatency:         800 * time.Millisecond,
		AISeed:            0,
		OTELEnabled:       false,
		OTELExporter:      "grpc",
		OTELEndpoint:      "localhost:4317",
		OTELSampling:      0.1,
		Version:           version,
	}
}

func (c *Config) applyEnv() {
	c.ListenAddr = ParseString("STUDIO_LISTEN", c.ListenAddr)
	c.DataDir = ParseString("STUDIO_DATA", c.DataDir)
	c.LogLevel = ParseString("STUDIO_LOG_LEVEL", c.LogLevel)
	c.CountdownTicks = ParseInt("STUDIO_COUNTDOWN_TICKS", c.CountdownTicks)
	c.ChunkInterval = ParseDuration("STUDIO_CHUNK_INTERVAL", c.ChunkInterval)
	c.RequestsPerMinute = ParseInt("STUDIO_REQUESTS_PER_MINUTE", c.RequestsPerMinute)
	c.ReadTimeout = ParseDuration("STUDIO_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = ParseDuration("STUDIO_WRITE_TIMEOUT", c.WriteTimeout)
	c.ShutdownTimeout = ParseDuration("STUDIO_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.RedisAddr = ParseString("STUDIO_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = ParseString("STUDIO_REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = ParseInt("STUDIO_REDIS_DB", c.RedisDB)
	c.AILatency = ParseDuration("STUDIO_AI_LATENCY", c.AILatency)
	c.AISeed = int64(ParseInt("STUDIO_AI_SEED", int(c.AISeed)))
	c.OTELEnabled = ParseBool("STUDIO_OTEL_ENABLED", c.OTELEnabled)
	c.OTELExporter = ParseString("STUDIO_OTEL_EXPORTER", c.OTELExporter)
	c.OTELEndpoint = ParseString("STUDIO_OTEL_ENDPOINT", c.OTELEndpoint)
	c.OTELSampling = ParseFloat("STUDIO_OTEL_SAMPLING", c.OTELSampling)
}

// Load resolves the configuration. filePath may be empty, in which case only
// environment variables and defaults apply.
func Load(filePath, version string) (*Config, error) {
	cfg := defaults(version)
	if filePath != "" {
		if err := cfg.applyFile(filePath); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: data directory is required")
	}
	if c.CountdownTicks < 0 {
		return fmt.Errorf("config: countdown ticks must be >= 0, got %d", c.CountdownTicks)
	}
	if c.ChunkInterval <= 0 {
		return fmt.Errorf("config: chunk interval must be positive, got %s", c.ChunkInterval)
	}
	if c.OTELSampling < 0 || c.OTELSampling > 1 {
		return fmt.Errorf("config: otel sampling must be within [0,1], got %f", c.OTELSampling)
	}
	switch c.OTELExporter {
	case "grpc", "http":
	default:
		if c.OTELEnabled {
			return fmt.Errorf("config: unsupported otel exporter %q", c.OTELExporter)
		}
	}
	return nil
}

// RecordsPath returns the SQLite database location under the data directory.
func (c *Config) RecordsPath() string {
	return filepath.Join(c.DataDir, "recordings.db")
}

// BlobsPath returns the badger artifact store location.
func (c *Config) BlobsPath() string {
	return filepath.Join(c.DataDir, "blobs")
}

// FallbackPath returns the JSON fallback store location.
func (c *Config) FallbackPath() string {
	return filepath.Join(c.DataDir, "recordings.json")
}
