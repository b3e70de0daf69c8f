package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapstore/pkg/dberror"
	"heapstore/pkg/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 4096, cfg.PageSize)
	assert.Equal(t, 50, cfg.BufferPoolPages)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_INI(t *testing.T) {
	path := writeFile(t, "engine.ini", `
[storage]
page_size = 8192
data_dir = /var/lib/heapstore

[bufferpool]
pages = 12
lock_timeout = 750ms

[log]
level = debug
format = json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8192, cfg.PageSize)
	assert.Equal(t, "/var/lib/heapstore", cfg.DataDir)
	assert.Equal(t, 12, cfg.BufferPoolPages)
	assert.Equal(t, 750*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, DefaultLockRetryInterval, cfg.LockRetryInterval)
	assert.Equal(t, logging.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "engine.toml", `
[storage]
page_size = 1024

[bufferpool]
pages = 3
lock_timeout = "100ms"
lock_retry_interval = "5ms"

[log]
level = "error"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.PageSize)
	assert.Equal(t, 3, cfg.BufferPoolPages)
	assert.Equal(t, 100*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, 5*time.Millisecond, cfg.LockRetryInterval)
	assert.Equal(t, logging.LevelError, cfg.Log.Level)
	assert.Equal(t, "data", cfg.DataDir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"page too small", "a.ini", "[storage]\npage_size = 16\n"},
		{"no pages", "b.ini", "[bufferpool]\npages = 0\n"},
		{"bad toml duration", "c.toml", "[bufferpool]\nlock_timeout = \"soon\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestValidate_RejectsUnusableValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"page below minimum", func(c *Config) { c.PageSize = MinPageSize - 1 }},
		{"empty pool", func(c *Config) { c.BufferPoolPages = 0 }},
		{"no lock timeout", func(c *Config) { c.LockTimeout = 0 }},
		{"no retry interval", func(c *Config) { c.LockRetryInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), dberror.ErrSchema)
		})
	}
}
