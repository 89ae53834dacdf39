package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"recbase/internal/blob"
	"recbase/internal/catalog"
	"recbase/internal/config"
	"recbase/internal/deps"
	"recbase/internal/ingest"
	"recbase/internal/logging"
	"recbase/internal/platform"
	"recbase/internal/rec"
	"recbase/internal/services"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.verbose != nil && *c.verbose {
			cfg.Logging.Level = "debug"
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// app bundles the collaborators most commands need.
type app struct {
	cfg      *config.Config
	store    *catalog.Store
	platform *platform.Client
	service  *ingest.Service
}

func (c *commandContext) withApp(cmd *cobra.Command, fn func(context.Context, *app) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := c.log()

	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := blob.Open(ctx, cfg)
	if err != nil {
		return err
	}

	a := &app{cfg: cfg, store: store}
	parser := rec.NewCommandParser(cfg.Parser.Command,
		rec.WithArgs(cfg.Parser.Args...),
		rec.WithTimeout(cfg.ParserTimeout()),
	)
	opts := []ingest.Option{ingest.WithLogger(logger)}
	client, err := platform.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	if client != nil {
		a.platform = client
		opts = append(opts, ingest.WithLookup(client), ingest.WithMatchSource(client))
	}
	a.service = ingest.NewService(cfg, store, parser, blobs, opts...)
	return fn(ctx, a)
}

// withIngest is withApp for commands that parse recordings. It fails before
// touching the catalog when a required external program is missing.
func (c *commandContext) withIngest(cmd *cobra.Command, fn func(context.Context, *app) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if missing := deps.Missing(deps.Check(deps.Requirements(cfg))); len(missing) > 0 {
		details := make([]string, 0, len(missing))
		for _, m := range missing {
			details = append(details, m.Name+": "+m.Detail)
		}
		return services.Wrap(services.ErrConfiguration, services.StageParse, "preflight",
			strings.Join(details, "; ")+" (see recbase db status)", nil)
	}
	return c.withApp(cmd, fn)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Wrap(services.ErrValidation, "", kind, fmt.Sprintf("invalid id %q", raw), nil)
	}
	return id, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
