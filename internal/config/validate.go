package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateBlob(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validatePlatform(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"ingest.workers":         c.Ingest.Workers,
		"ingest.max_file_mib":    c.Ingest.MaxFileMiB,
		"parser.timeout_seconds": c.Parser.TimeoutSeconds,
	})
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case StoreDriverSQLite:
	case StoreDriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn must be set when store.driver is postgres (or set RECBASE_DB)")
		}
	default:
		return fmt.Errorf("store.driver: unsupported value %q (want sqlite or postgres)", c.Store.Driver)
	}
	return nil
}

func (c *Config) validateBlob() error {
	switch c.Blob.Backend {
	case BlobBackendFS:
		if c.Blob.Path == "" {
			return errors.New("blob.path must be set for the fs backend")
		}
	case BlobBackendS3:
		if c.Blob.Bucket == "" {
			return errors.New("blob.bucket must be set for the s3 backend")
		}
		if (c.Blob.AccessKeyID == "") != (c.Blob.SecretAccessKey == "") {
			return errors.New("blob.access_key_id and blob.secret_access_key must be set together")
		}
	default:
		return fmt.Errorf("blob.backend: unsupported value %q (want fs or s3)", c.Blob.Backend)
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.StartTimeToleranceSeconds <= 0 {
		return errors.New("matching.start_time_tolerance_seconds must be positive")
	}
	if c.Matching.CompletenessRatio <= 0 || c.Matching.CompletenessRatio > 1 {
		return errors.New("matching.completeness_ratio must be greater than 0 and at most 1")
	}
	return nil
}

func (c *Config) validatePlatform() error {
	if !c.Platform.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Platform.BaseURL) == "" {
		return errors.New("platform.base_url must be set when platform.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
