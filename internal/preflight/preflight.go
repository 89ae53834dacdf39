package preflight

import (
	"context"

	"recbase/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
	}
	if cfg.Blob.Backend == config.BlobBackendFS {
		results = append(results, CheckDirectoryAccess("Blob directory", cfg.Blob.Path))
	}
	results = append(results, CheckSystemDeps(cfg)...)
	if cfg.Platform.Enabled {
		results = append(results, CheckPlatform(ctx, cfg.Platform.Name, cfg.Platform.BaseURL))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
