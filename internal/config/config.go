// Package config loads the application configuration from a YAML file and
// fans it out into the per-package config structs.
package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/nimbusfs/azfs/internal/blobstore"
	"github.com/nimbusfs/azfs/internal/logger"
)

type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Filesystem FilesystemConfig `yaml:"filesystem"`
	Logging    LoggingConfig    `yaml:"logging"`
	Gateway    GatewayConfig    `yaml:"gateway"`
}

type StorageConfig struct {
	Provider  string `yaml:"provider"` // "minio" or "memory"
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
}

type FilesystemConfig struct {
	BlockSizeBytes int64  `yaml:"block_size_bytes"`
	Cache          string `yaml:"cache"` // none, readahead, bytes, blockcache
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

type GatewayConfig struct {
	Address             string `yaml:"address"`
	Port                int    `yaml:"port"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Provider: "minio",
			Endpoint: "localhost:9000",
			Region:   "us-east-1",
		},
		Filesystem: FilesystemConfig{
			BlockSizeBytes: 5 * 1 << 20,
			Cache:          "readahead",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Gateway: GatewayConfig{
			Address:             "0.0.0.0",
			Port:                8080,
			ShutdownTimeoutSecs: 30,
		},
	}
}

func (c *Config) validate() error {
	switch c.Storage.Provider {
	case "minio", "memory":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	switch c.Filesystem.Cache {
	case "none", "readahead", "bytes", "blockcache":
	default:
		return fmt.Errorf("unknown cache policy %q", c.Filesystem.Cache)
	}
	if c.Filesystem.BlockSizeBytes <= 0 {
		return fmt.Errorf("block_size_bytes must be positive, got %d", c.Filesystem.BlockSizeBytes)
	}
	return nil
}

// StoreConfig maps the storage section onto the blobstore config.
func (c *Config) StoreConfig() *blobstore.Config {
	return &blobstore.Config{
		Provider:  blobstore.Provider(c.Storage.Provider),
		Endpoint:  c.Storage.Endpoint,
		AccessKey: c.Storage.AccessKey,
		SecretKey: c.Storage.SecretKey,
		UseSSL:    c.Storage.UseSSL,
		Region:    c.Storage.Region,
	}
}

// LoggerConfig maps the logging section onto the logger config.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	return lc
}

// ListenAddr returns the gateway bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Gateway.Address, c.Gateway.Port)
}
