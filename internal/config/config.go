// Package config provides unified configuration for all TinyFlux binaries.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StorageType selects which storage.Backend implementation a binary wires
// up.
type StorageType string

const (
	StorageMemory StorageType = "memory"
	StorageCSV    StorageType = "csv"
	StorageSQLite StorageType = "sqlite"
)

// Config holds the unified configuration for all TinyFlux binaries: the
// CLI, the MQTT ingestion daemon, and the backup tool.
type Config struct {
	// DataDir is the base directory for all data files.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Engine configuration
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// MQTT ingestion configuration
	MQTT MQTTConfig `json:"mqtt" yaml:"mqtt"`

	// Backup configuration
	Backup BackupConfig `json:"backup" yaml:"backup"`
}

// EngineConfig controls the engine's read/write behavior.
type EngineConfig struct {
	// AutoIndex rebuilds the index before a read whenever it has gone
	// stale.
	AutoIndex bool `json:"auto_index" yaml:"auto_index"`

	// CompactKeys selects the t_/f_ prefix convention on writes instead
	// of __tag__/__field__.
	CompactKeys bool `json:"compact_keys" yaml:"compact_keys"`
}

// StorageConfig holds storage backend configuration.
type StorageConfig struct {
	// Type is the storage type: memory, csv, sqlite
	Type StorageType `json:"type" yaml:"type"`

	// Path is the backend's file path. Unused for the memory backend.
	Path string `json:"path" yaml:"path"`
}

// MQTTConfig holds configuration for the MQTT ingestion daemon.
type MQTTConfig struct {
	// BrokerURL is the broker to dial, e.g. tcp://localhost:1883
	BrokerURL string `json:"broker_url" yaml:"broker_url"`

	// ClientIDPrefix is combined with a generated suffix for the MQTT
	// client id.
	ClientIDPrefix string `json:"client_id_prefix" yaml:"client_id_prefix"`

	// Topic is the subscription filter, e.g. sensors/#
	Topic string `json:"topic" yaml:"topic"`

	// QoS is the subscription quality of service (0, 1, or 2).
	QoS byte `json:"qos" yaml:"qos"`

	// Measurement names the measurement ingested points are stamped
	// into. Empty uses the topic each message arrived on.
	Measurement string `json:"measurement" yaml:"measurement"`
}

// BackupConfig holds configuration for the periodic S3 snapshot tool.
type BackupConfig struct {
	// Bucket is the S3 bucket name.
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region.
	Region string `json:"region" yaml:"region"`

	// Endpoint is loaded from config and TINYFLUX_BACKUP_ENDPOINT but is
	// not passed to the S3 client; snapshots go to the default AWS
	// endpoint for Region.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// KeyPrefix is prepended to every object key written.
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`

	// Interval is the time between automatic snapshots.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// DefaultConfig returns the default configuration for local development: an
// on-disk CSV backend under ./data/tinyflux with auto-indexing on.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/tinyflux",
		Engine: EngineConfig{
			AutoIndex: true,
		},
		Storage: StorageConfig{
			Type: StorageCSV,
		},
		MQTT: MQTTConfig{
			BrokerURL:      "tcp://localhost:1883",
			ClientIDPrefix: "tinyflux",
			Topic:          "tinyflux/#",
			QoS:            1,
		},
		Backup: BackupConfig{
			KeyPrefix: "tinyflux-backups",
			Interval:  15 * time.Minute,
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/tinyflux"
	}

	if c.Storage.Path == "" {
		switch c.Storage.Type {
		case StorageSQLite:
			c.Storage.Path = filepath.Join(c.DataDir, "points.db")
		default:
			c.Storage.Path = filepath.Join(c.DataDir, "points.csv")
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch c.Storage.Type {
	case StorageMemory, StorageCSV, StorageSQLite:
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, csv, or sqlite)", c.Storage.Type)
	}

	if c.Storage.Type != StorageMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required when storage type is %q", c.Storage.Type)
	}

	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1, or 2, got %d", c.MQTT.QoS)
	}

	if c.Backup.Bucket != "" && c.Backup.Interval <= 0 {
		return fmt.Errorf("backup.interval must be positive when backup.bucket is set")
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables, using the
// TINYFLUX_ prefix. It first loads envFile via godotenv if present; a
// missing file is not an error, so production deployments that set real
// environment variables are unaffected.
func LoadFromEnv(cfg *Config, envFile string) {
	_ = godotenv.Load(envFile)

	if v := os.Getenv("TINYFLUX_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("TINYFLUX_AUTO_INDEX"); v != "" {
		cfg.Engine.AutoIndex = v == "true" || v == "1"
	}
	if v := os.Getenv("TINYFLUX_COMPACT_KEYS"); v != "" {
		cfg.Engine.CompactKeys = v == "true" || v == "1"
	}

	if v := os.Getenv("TINYFLUX_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = StorageType(v)
	}
	if v := os.Getenv("TINYFLUX_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}

	if v := os.Getenv("TINYFLUX_MQTT_BROKER_URL"); v != "" {
		cfg.MQTT.BrokerURL = v
	}
	if v := os.Getenv("TINYFLUX_MQTT_TOPIC"); v != "" {
		cfg.MQTT.Topic = v
	}
	if v := os.Getenv("TINYFLUX_MQTT_CLIENT_ID_PREFIX"); v != "" {
		cfg.MQTT.ClientIDPrefix = v
	}
	if v := os.Getenv("TINYFLUX_MQTT_MEASUREMENT"); v != "" {
		cfg.MQTT.Measurement = v
	}
	if v := os.Getenv("TINYFLUX_MQTT_QOS"); v != "" {
		var qos int
		if _, err := fmt.Sscanf(v, "%d", &qos); err == nil {
			cfg.MQTT.QoS = byte(qos)
		}
	}

	if v := os.Getenv("TINYFLUX_BACKUP_BUCKET"); v != "" {
		cfg.Backup.Bucket = v
	}
	if v := os.Getenv("TINYFLUX_BACKUP_REGION"); v != "" {
		cfg.Backup.Region = v
	}
	if v := os.Getenv("TINYFLUX_BACKUP_ENDPOINT"); v != "" {
		cfg.Backup.Endpoint = v
	}
	if v := os.Getenv("TINYFLUX_BACKUP_KEY_PREFIX"); v != "" {
		cfg.Backup.KeyPrefix = v
	}
	if v := os.Getenv("TINYFLUX_BACKUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backup.Interval = d
		}
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.Storage.Type != StorageMemory && c.Storage.Path != "" {
		dirs = append(dirs, filepath.Dir(c.Storage.Path))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
