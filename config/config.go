// Package config loads indexer settings. Sources are layered: built-in
// defaults, then the YAML file, then PROJECT_INDEXER_* environment variables
// (a .env file in the project root is loaded first). Command-line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lexandro/projectindex/ignore"
	"github.com/lexandro/projectindex/indexer"
	"github.com/lexandro/projectindex/report"
)

// DefaultPath is the config file location relative to the project root.
const DefaultPath = ".claude/project-indexer.yaml"

const (
	DefaultCacheDir = ".claude/cache"
	DefaultLogLevel = "warn"
	DefaultDebounce = 500 * time.Millisecond
)

// Environment variables that override the config file.
const (
	EnvWorkers           = "PROJECT_INDEXER_WORKERS"
	EnvParallelThreshold = "PROJECT_INDEXER_PARALLEL_THRESHOLD"
	EnvOutput            = "PROJECT_INDEXER_OUTPUT"
	EnvLogLevel          = "PROJECT_INDEXER_LOG_LEVEL"
	EnvNoCache           = "PROJECT_INDEXER_NO_CACHE"
)

type Config struct {
	Output            string        `yaml:"output"`
	Workers           int           `yaml:"workers"`
	ParallelThreshold *int          `yaml:"parallel_threshold"`
	MaxFileSize       int64         `yaml:"max_file_size"`
	CacheDir          string        `yaml:"cache_dir"`
	DisableCache      bool          `yaml:"no_cache"`
	IncludeGeneric    bool          `yaml:"all_files"`
	Exclude           []string      `yaml:"exclude"`
	LogLevel          string        `yaml:"log_level"`
	LogFile           string        `yaml:"log_file"`
	Debounce          time.Duration `yaml:"debounce"`
}

// Default returns the built-in settings.
func Default() Config {
	threshold := indexer.DefaultParallelThreshold
	return Config{
		Output:            report.DefaultFileName,
		Workers:           indexer.DefaultWorkers,
		ParallelThreshold: &threshold,
		MaxFileSize:       ignore.DefaultMaxFileSizeBytes,
		CacheDir:          DefaultCacheDir,
		LogLevel:          DefaultLogLevel,
		Debounce:          DefaultDebounce,
	}
}

// Load resolves the configuration for rootDir. configPath may be empty, in
// which case DefaultPath under rootDir is used. A missing file yields the
// defaults; an unreadable or malformed one is reported through logger and
// also yields the defaults. Load never fails.
func Load(rootDir, configPath string, logger *slog.Logger) Config {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg := Default()
	if configPath == "" {
		configPath = filepath.Join(rootDir, DefaultPath)
	}
	if fileCfg, err := readFile(configPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("ignoring config file", "path", configPath, "error", err)
		}
	} else {
		cfg = fileCfg
	}

	if err := godotenv.Load(filepath.Join(rootDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("ignoring .env file", "error", err)
	}
	cfg.applyEnv(logger)
	cfg.normalize()
	return cfg
}

func readFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(logger *slog.Logger) {
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		} else {
			logger.Warn("ignoring environment variable", "name", EnvWorkers, "value", v)
		}
	}
	if v := os.Getenv(EnvParallelThreshold); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ParallelThreshold = &n
		} else {
			logger.Warn("ignoring environment variable", "name", EnvParallelThreshold, "value", v)
		}
	}
	if v := os.Getenv(EnvNoCache); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DisableCache = b
		} else {
			logger.Warn("ignoring environment variable", "name", EnvNoCache, "value", v)
		}
	}
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	defaults := Default()
	if c.Output == "" {
		c.Output = defaults.Output
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.ParallelThreshold == nil || *c.ParallelThreshold < 0 {
		c.ParallelThreshold = defaults.ParallelThreshold
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = defaults.MaxFileSize
	}
	if c.CacheDir == "" {
		c.CacheDir = defaults.CacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Debounce <= 0 {
		c.Debounce = defaults.Debounce
	}
}

// Threshold returns the parallel threshold.
func (c Config) Threshold() int {
	if c.ParallelThreshold == nil {
		return indexer.DefaultParallelThreshold
	}
	return *c.ParallelThreshold
}

// OutputPath resolves the report path against rootDir.
func (c Config) OutputPath(rootDir string) string {
	return resolve(rootDir, c.Output)
}

// LogFilePath resolves the log file against rootDir; empty means stderr.
func (c Config) LogFilePath(rootDir string) string {
	if c.LogFile == "" {
		return ""
	}
	return resolve(rootDir, c.LogFile)
}

// ParseLevel maps a level name to a slog level. Unknown names map to warn.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func resolve(rootDir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(rootDir, p)
}
