// Package config provides configuration management for the betabet translator service.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrPathTraversal is returned for config paths that escape the base directory
var ErrPathTraversal = errors.New("path traversal detected")

// Config represents the main configuration structure
type Config struct {
	Cipher  CipherConfig  `yaml:"cipher"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// CipherConfig selects the substitution table
type CipherConfig struct {
	// MappingFile is a YAML or TOML table; empty uses the built-in German table
	MappingFile string `yaml:"mapping_file"`
	// Normalize applies Unicode NFC to input before translating
	Normalize bool `yaml:"normalize"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Listen        string   `yaml:"listen"`
	CORSOrigins   []string `yaml:"cors_origins"`
	ShareIDPrefix string   `yaml:"share_id_prefix"`
}

// StorageConfig contains share storage settings
type StorageConfig struct {
	Type    string        `yaml:"type"` // "memory", "redis" or "leveldb"
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
	LevelDB LevelDBConfig `yaml:"leveldb"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"` //#nosec G117 -- Password field is intentional for Redis auth config
	DB       int    `yaml:"db"`
}

// LevelDBConfig contains LevelDB settings
type LevelDBConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string      `yaml:"level"`
	Format string      `yaml:"format"` // "json" or "console"
	Audit  AuditConfig `yaml:"audit"`
}

// AuditConfig contains audit logging settings
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`  // "minimal", "standard" or "verbose"
	Output  string `yaml:"output"` // "stdout", "stderr" or a file path
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:        ":8080",
			ShareIDPrefix: "bb_",
		},
		Storage: StorageConfig{
			Type: "memory",
			TTL:  24 * time.Hour,
			Redis: RedisConfig{
				Address: "localhost:6379",
				DB:      0,
			},
			LevelDB: LevelDBConfig{
				Path: "./data/shares",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Audit: AuditConfig{
				Enabled: true,
				Level:   "standard",
				Output:  "stdout",
			},
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}

// Load loads the configuration from the file named by CONFIG_PATH,
// falling back to config.yaml in the working directory
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	// Operator supplied absolute paths are trusted as-is
	if !filepath.IsAbs(configPath) {
		configPath, err = sanitizeConfigPath(configPath, baseDir)
		if err != nil {
			return nil, err
		}
	}

	return LoadFile(configPath)
}

// LoadFile loads the configuration from path over the defaults. A missing
// file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Clean(path)) //#nosec G304 -- path is sanitized by the caller
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory", "redis", "leveldb":
	default:
		return fmt.Errorf("invalid storage type %q", c.Storage.Type)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}

	if c.Storage.TTL < 0 {
		return fmt.Errorf("invalid storage ttl %s", c.Storage.TTL)
	}

	return nil
}

// sanitizeConfigPath resolves path against baseDir and rejects results
// outside of baseDir
func sanitizeConfigPath(path, baseDir string) (string, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(absBase, resolved)
	}
	resolved = filepath.Clean(resolved)

	rel, err := filepath.Rel(absBase, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}

	return resolved, nil
}
