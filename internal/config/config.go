package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvPrefix prefixes every environment override understood by Load.
const EnvPrefix = "RECBASE_"

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir" env:"DATA_DIR"`
	LogDir   string `toml:"log_dir" env:"LOG_DIR"`
	CacheDir string `toml:"cache_dir" env:"CACHE_DIR"`
}

// Store configures the relational catalog.
type Store struct {
	// Driver is "sqlite" or "postgres".
	Driver string `toml:"driver" env:"DB_DRIVER"`
	// DSN is a PostgreSQL connection string or a SQLite file path. An empty
	// SQLite DSN resolves to <data_dir>/recbase.db.
	DSN               string `toml:"dsn" env:"DB"`
	RetryAttempts     int    `toml:"retry_attempts"`
	RetryBackoffMS    int    `toml:"retry_backoff_ms"`
	RetryMaxBackoffMS int    `toml:"retry_max_backoff_ms"`
}

// Blob configures where raw recording bytes are kept.
type Blob struct {
	// Backend is "fs" or "s3".
	Backend string `toml:"backend" env:"BLOB_BACKEND"`
	// Path is the root directory for the fs backend and the key prefix for s3.
	Path string `toml:"path" env:"STORE_PATH"`
	// Host is the S3-compatible endpoint URL. Empty uses the AWS default.
	Host            string `toml:"host" env:"STORE_HOST"`
	Bucket          string `toml:"bucket" env:"STORE_BUCKET"`
	Region          string `toml:"region" env:"STORE_REGION"`
	AccessKeyID     string `toml:"access_key_id" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `toml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
	Compress        bool   `toml:"compress"`
}

// Parser configures the external header extraction command.
type Parser struct {
	Command        string   `toml:"command" env:"PARSER"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Platform configures the third-party player and match lookup service.
type Platform struct {
	Enabled        bool   `toml:"enabled"`
	Name           string `toml:"name"`
	BaseURL        string `toml:"base_url" env:"PLATFORM_URL"`
	APIKey         string `toml:"api_key" env:"PLATFORM_KEY"`
	Username       string `toml:"username" env:"PLATFORM_USERNAME"`
	Password       string `toml:"password" env:"PLATFORM_PASSWORD"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	CachePath      string `toml:"cache_path"`
	MaxDownloadMiB int    `toml:"max_download_mib"`
}

// Matching holds the identity and completeness thresholds.
type Matching struct {
	// StartTimeToleranceSeconds is the quantization window applied to the
	// declared start time before fingerprinting.
	StartTimeToleranceSeconds int `toml:"start_time_tolerance_seconds"`
	// CompletenessRatio marks a file incomplete when its duration is below
	// ratio × canonical duration.
	CompletenessRatio float64 `toml:"completeness_ratio"`
	// ProbeAdjacentWindows also looks up matches in the neighbouring start
	// time windows so jitter across a window boundary still groups.
	ProbeAdjacentWindows bool `toml:"probe_adjacent_windows"`
}

// Ingest configures batch ingestion.
type Ingest struct {
	Workers    int `toml:"workers"`
	MaxFileMiB int `toml:"max_file_mib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"LOG_FORMAT"`
	Level  string `toml:"level" env:"LOG_LEVEL"`
}

// Config encapsulates all configuration values for recbase.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and cache directories
//   - Store: catalog database driver, DSN, and retry policy
//   - Blob: raw file storage backend (local directory or S3)
//   - Parser: header extraction command
//   - Platform: player profile and match reference lookups
//   - Matching: fingerprint window and completeness ratio
//   - Ingest: batch worker pool
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Store    Store    `toml:"store"`
	Blob     Blob     `toml:"blob"`
	Parser   Parser   `toml:"parser"`
	Platform Platform `toml:"platform"`
	Matching Matching `toml:"matching"`
	Ingest   Ingest   `toml:"ingest"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/recbase/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file is decoded. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, "", false, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recbase.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories recbase writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.CacheDir}
	if c.Blob.Backend == BlobBackendFS {
		dirs = append(dirs, c.Blob.Path)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StartTimeWindow returns the fingerprint quantization window.
func (c *Config) StartTimeWindow() time.Duration {
	return time.Duration(c.Matching.StartTimeToleranceSeconds) * time.Second
}

// RetryBackoff returns the initial and maximum storage retry delays.
func (c *Config) RetryBackoff() (time.Duration, time.Duration) {
	return time.Duration(c.Store.RetryBackoffMS) * time.Millisecond,
		time.Duration(c.Store.RetryMaxBackoffMS) * time.Millisecond
}

// ParserTimeout returns the per-file deadline for the header parser.
func (c *Config) ParserTimeout() time.Duration {
	return time.Duration(c.Parser.TimeoutSeconds) * time.Second
}

// PlatformTimeout returns the HTTP timeout for platform requests.
func (c *Config) PlatformTimeout() time.Duration {
	return time.Duration(c.Platform.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
