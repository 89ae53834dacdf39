package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"recbase/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The catalog is a SQLite file and blobs live on the local filesystem.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Store.DSN = filepath.Join(base, "data", "recbase.db")
	cfgVal.Blob.Path = filepath.Join(base, "blobs")
	cfgVal.Platform.CachePath = filepath.Join(base, "cache", "profiles.json")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithCompletenessRatio overrides the incomplete threshold.
func WithCompletenessRatio(ratio float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.CompletenessRatio = ratio
	}
}

// WithPlatform enables platform lookups against baseURL.
func WithPlatform(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Platform.Enabled = true
		b.cfg.Platform.BaseURL = baseURL
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default parser command is
// stubbed. Each stub prints body (which may be empty) and exits 0.
func WithStubbedBinaries(body string, names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Parser.Command}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := "#!/bin/sh\ncat >/dev/null\n"
		if body != "" {
			script += "cat <<'RECBASE_EOF'\n" + body + "\nRECBASE_EOF\n"
		}
		script += "exit 0\n"
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
