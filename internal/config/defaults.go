package config

const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	BlobBackendFS       = "fs"
	BlobBackendS3       = "s3"
)

const (
	defaultDataDir                   = "~/.local/share/recbase"
	defaultLogDir                    = "~/.local/share/recbase/logs"
	defaultCacheDir                  = "~/.cache/recbase"
	defaultBlobDir                   = "~/.local/share/recbase/blobs"
	defaultSQLiteFile                = "recbase.db"
	defaultStoreRetryAttempts        = 5
	defaultStoreRetryBackoffMS       = 10
	defaultStoreRetryMaxBackoffMS    = 200
	defaultBlobRegion                = "us-east-1"
	defaultParserCommand             = "mgz-header"
	defaultParserTimeoutSeconds      = 30
	defaultPlatformName              = "voobly"
	defaultPlatformTimeoutSeconds    = 10
	defaultPlatformCacheFile         = "profiles.json"
	defaultPlatformMaxDownloadMiB    = 32
	defaultStartTimeToleranceSeconds = 60
	defaultCompletenessRatio         = 0.95
	defaultIngestWorkers             = 4
	defaultIngestMaxFileMiB          = 64
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			CacheDir: defaultCacheDir,
		},
		Store: Store{
			Driver:            StoreDriverSQLite,
			RetryAttempts:     defaultStoreRetryAttempts,
			RetryBackoffMS:    defaultStoreRetryBackoffMS,
			RetryMaxBackoffMS: defaultStoreRetryMaxBackoffMS,
		},
		Blob: Blob{
			Backend:  BlobBackendFS,
			Path:     defaultBlobDir,
			Region:   defaultBlobRegion,
			Compress: true,
		},
		Parser: Parser{
			Command:        defaultParserCommand,
			TimeoutSeconds: defaultParserTimeoutSeconds,
		},
		Platform: Platform{
			Name:           defaultPlatformName,
			TimeoutSeconds: defaultPlatformTimeoutSeconds,
			MaxDownloadMiB: defaultPlatformMaxDownloadMiB,
		},
		Matching: Matching{
			StartTimeToleranceSeconds: defaultStartTimeToleranceSeconds,
			CompletenessRatio:         defaultCompletenessRatio,
			ProbeAdjacentWindows:      true,
		},
		Ingest: Ingest{
			Workers:    defaultIngestWorkers,
			MaxFileMiB: defaultIngestMaxFileMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
