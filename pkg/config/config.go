// Package config loads the storage engine configuration from INI or TOML files.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"heapstore/pkg/dberror"
	"heapstore/pkg/logging"
)

const (
	DefaultPageSize          = 4096
	DefaultBufferPoolPages   = 50
	DefaultLockTimeout       = 2 * time.Second
	DefaultLockRetryInterval = 50 * time.Millisecond

	// MinPageSize is large enough for the bitmap byte plus one slot of the
	// widest single-field record.
	MinPageSize = 256
)

// Config holds the tunables of one buffer pool instance and the files it serves.
type Config struct {
	// PageSize is the byte length of every page in every file served by the pool.
	PageSize int

	// BufferPoolPages is the maximum number of resident pages.
	BufferPoolPages int

	// LockTimeout bounds how long a lock request may wait before it is abandoned.
	LockTimeout time.Duration

	// LockRetryInterval caps the sleep between re-checks of a blocked lock request.
	LockRetryInterval time.Duration

	// DataDir is where relative heap file paths are resolved.
	DataDir string

	Log logging.Config
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		PageSize:          DefaultPageSize,
		BufferPoolPages:   DefaultBufferPoolPages,
		LockTimeout:       DefaultLockTimeout,
		LockRetryInterval: DefaultLockRetryInterval,
		DataDir:           "data",
		Log: logging.Config{
			Level:  logging.LevelWarn,
			Format: "text",
		},
	}
}

// Load reads a configuration file, choosing the parser by extension:
// ".toml" is parsed as TOML, anything else as INI. Keys absent from the
// file keep their defaults.
//
// Both formats use the same layout:
//
//	[storage]
//	page_size = 4096
//	data_dir = data
//
//	[bufferpool]
//	pages = 50
//	lock_timeout = 2s
//	lock_retry_interval = 50ms
//
//	[log]
//	level = INFO
//	format = json
//	output = logs/heapstore.log
func Load(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		cfg, err = loadTOML(path)
	default:
		cfg, err = loadINI(path)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", path)
	}
	return cfg, nil
}

// Validate rejects sizes and durations the engine cannot operate with.
func (c *Config) Validate() error {
	if c.PageSize < MinPageSize {
		return dberror.New(dberror.KindSchema, "Config", "Validate", "page_size %d is below the minimum of %d", c.PageSize, MinPageSize)
	}
	if c.BufferPoolPages <= 0 {
		return dberror.New(dberror.KindSchema, "Config", "Validate", "bufferpool pages must be positive, got %d", c.BufferPoolPages)
	}
	if c.LockTimeout <= 0 {
		return dberror.New(dberror.KindSchema, "Config", "Validate", "lock_timeout must be positive, got %s", c.LockTimeout)
	}
	if c.LockRetryInterval <= 0 {
		return dberror.New(dberror.KindSchema, "Config", "Validate", "lock_retry_interval must be positive, got %s", c.LockRetryInterval)
	}
	return nil
}

func loadINI(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %s", path)
	}

	cfg := Default()

	storage := file.Section("storage")
	cfg.PageSize = storage.Key("page_size").MustInt(cfg.PageSize)
	cfg.DataDir = storage.Key("data_dir").MustString(cfg.DataDir)

	pool := file.Section("bufferpool")
	cfg.BufferPoolPages = pool.Key("pages").MustInt(cfg.BufferPoolPages)
	cfg.LockTimeout = pool.Key("lock_timeout").MustDuration(cfg.LockTimeout)
	cfg.LockRetryInterval = pool.Key("lock_retry_interval").MustDuration(cfg.LockRetryInterval)

	logs := file.Section("log")
	cfg.Log.Level = logging.LogLevel(strings.ToUpper(logs.Key("level").MustString(string(cfg.Log.Level))))
	cfg.Log.Format = logs.Key("format").MustString(cfg.Log.Format)
	cfg.Log.OutputPath = logs.Key("output").MustString(cfg.Log.OutputPath)

	return cfg, nil
}

func loadTOML(path string) (*Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %s", path)
	}

	cfg := Default()
	var convErr error

	if v, ok := tree.Get("storage.page_size").(int64); ok {
		cfg.PageSize = int(v)
	}
	if v, ok := tree.Get("storage.data_dir").(string); ok {
		cfg.DataDir = v
	}
	if v, ok := tree.Get("bufferpool.pages").(int64); ok {
		cfg.BufferPoolPages = int(v)
	}
	if v, ok := tree.Get("bufferpool.lock_timeout").(string); ok {
		if cfg.LockTimeout, convErr = time.ParseDuration(v); convErr != nil {
			return nil, errors.Wrap(convErr, "bufferpool.lock_timeout")
		}
	}
	if v, ok := tree.Get("bufferpool.lock_retry_interval").(string); ok {
		if cfg.LockRetryInterval, convErr = time.ParseDuration(v); convErr != nil {
			return nil, errors.Wrap(convErr, "bufferpool.lock_retry_interval")
		}
	}
	if v, ok := tree.Get("log.level").(string); ok {
		cfg.Log.Level = logging.LogLevel(strings.ToUpper(v))
	}
	if v, ok := tree.Get("log.format").(string); ok {
		cfg.Log.Format = v
	}
	if v, ok := tree.Get("log.output").(string); ok {
		cfg.Log.OutputPath = v
	}

	return cfg, nil
}
