package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_ResolvesCSVPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()
	assert.Equal(t, filepath.Join(cfg.DataDir, "points.csv"), cfg.Storage.Path)
}

func TestResolve_SQLiteGetsDBExtension(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Type = StorageSQLite
	cfg.Resolve()
	assert.Equal(t, filepath.Join(cfg.DataDir, "points.db"), cfg.Storage.Path)
}

func TestValidate_RejectsUnknownStorageType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Type = "postgres"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsMissingPathForNonMemory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_MemoryNeedsNoPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Type = StorageMemory
	cfg.Storage.Path = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadQoS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = "/tmp/x.csv"
	cfg.MQTT.QoS = 3
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBackupBucketWithoutInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = "/tmp/x.csv"
	cfg.Backup.Bucket = "snapshots"
	cfg.Backup.Interval = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadFromFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tinyflux.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /tmp/custom
storage:
  type: sqlite
mqtt:
  broker_url: tcp://broker:1883
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom", cfg.DataDir)
	assert.Equal(t, StorageSQLite, cfg.Storage.Type)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.BrokerURL)
}

func TestLoadFromFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tinyflux.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data_dir": "/tmp/custom-json"}`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-json", cfg.DataDir)
}

func TestLoadFromFile_RejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tinyflux.toml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir = \"x\""), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromEnv_OverridesDefaults(t *testing.T) {
	t.Setenv("TINYFLUX_DATA_DIR", "/tmp/env-data")
	t.Setenv("TINYFLUX_AUTO_INDEX", "false")
	t.Setenv("TINYFLUX_STORAGE_TYPE", "memory")

	cfg := DefaultConfig()
	LoadFromEnv(cfg, filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "/tmp/env-data", cfg.DataDir)
	assert.False(t, cfg.Engine.AutoIndex)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
}

func TestEnsureDirectories_CreatesDataDirAndStorageParent(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "nested", "data")
	cfg.Storage.Path = filepath.Join(cfg.DataDir, "sub", "points.csv")

	require.NoError(t, cfg.EnsureDirectories())

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = os.Stat(filepath.Join(cfg.DataDir, "sub"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
