package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	if err := c.normalizeBlob(); err != nil {
		return err
	}
	if err := c.normalizePlatform(); err != nil {
		return err
	}
	c.normalizeParser()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" || c.Store.Driver == "sqlite3" {
		c.Store.Driver = StoreDriverSQLite
	}
	if c.Store.Driver == "postgresql" {
		c.Store.Driver = StoreDriverPostgres
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.Driver == StoreDriverSQLite {
		c.Store.DSN = strings.TrimPrefix(c.Store.DSN, "sqlite://")
		if c.Store.DSN == "" {
			c.Store.DSN = filepath.Join(c.Paths.DataDir, defaultSQLiteFile)
		}
		if c.Store.DSN != ":memory:" {
			var err error
			if c.Store.DSN, err = expandPath(c.Store.DSN); err != nil {
				return fmt.Errorf("store.dsn: %w", err)
			}
		}
	}
	if c.Store.RetryAttempts <= 0 {
		c.Store.RetryAttempts = defaultStoreRetryAttempts
	}
	if c.Store.RetryBackoffMS <= 0 {
		c.Store.RetryBackoffMS = defaultStoreRetryBackoffMS
	}
	if c.Store.RetryMaxBackoffMS < c.Store.RetryBackoffMS {
		c.Store.RetryMaxBackoffMS = c.Store.RetryBackoffMS
	}
	return nil
}

func (c *Config) normalizeBlob() error {
	c.Blob.Backend = strings.ToLower(strings.TrimSpace(c.Blob.Backend))
	if c.Blob.Backend == "" || c.Blob.Backend == "local" {
		c.Blob.Backend = BlobBackendFS
	}
	c.Blob.Host = strings.TrimRight(strings.TrimSpace(c.Blob.Host), "/")
	c.Blob.Bucket = strings.TrimSpace(c.Blob.Bucket)
	c.Blob.Region = strings.TrimSpace(c.Blob.Region)
	if c.Blob.Region == "" {
		c.Blob.Region = defaultBlobRegion
	}
	c.Blob.AccessKeyID = strings.TrimSpace(c.Blob.AccessKeyID)
	c.Blob.SecretAccessKey = strings.TrimSpace(c.Blob.SecretAccessKey)
	switch c.Blob.Backend {
	case BlobBackendFS:
		if strings.TrimSpace(c.Blob.Path) == "" {
			c.Blob.Path = filepath.Join(c.Paths.DataDir, "blobs")
		}
		var err error
		if c.Blob.Path, err = expandPath(c.Blob.Path); err != nil {
			return fmt.Errorf("blob.path: %w", err)
		}
	case BlobBackendS3:
		c.Blob.Path = strings.Trim(strings.TrimSpace(c.Blob.Path), "/")
	}
	return nil
}

func (c *Config) normalizePlatform() error {
	c.Platform.Name = strings.ToLower(strings.TrimSpace(c.Platform.Name))
	if c.Platform.Name == "" {
		c.Platform.Name = defaultPlatformName
	}
	c.Platform.BaseURL = strings.TrimRight(strings.TrimSpace(c.Platform.BaseURL), "/")
	c.Platform.APIKey = strings.TrimSpace(c.Platform.APIKey)
	c.Platform.Username = strings.TrimSpace(c.Platform.Username)
	if c.Platform.TimeoutSeconds <= 0 {
		c.Platform.TimeoutSeconds = defaultPlatformTimeoutSeconds
	}
	if c.Platform.MaxDownloadMiB <= 0 {
		c.Platform.MaxDownloadMiB = defaultPlatformMaxDownloadMiB
	}
	if strings.TrimSpace(c.Platform.CachePath) == "" {
		c.Platform.CachePath = filepath.Join(c.Paths.CacheDir, defaultPlatformCacheFile)
	}
	var err error
	if c.Platform.CachePath, err = expandPath(c.Platform.CachePath); err != nil {
		return fmt.Errorf("platform.cache_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeParser() {
	c.Parser.Command = strings.TrimSpace(c.Parser.Command)
	if c.Parser.Command == "" {
		c.Parser.Command = defaultParserCommand
	}
	args := c.Parser.Args[:0]
	for _, arg := range c.Parser.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Parser.Args = args
	if c.Parser.TimeoutSeconds <= 0 {
		c.Parser.TimeoutSeconds = defaultParserTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
