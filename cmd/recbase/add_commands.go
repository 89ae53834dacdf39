package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"recbase/internal/blob"
	"recbase/internal/catalog"
	"recbase/internal/config"
	"recbase/internal/ingest"
	"recbase/internal/services"
)

type addFlags struct {
	tags    []string
	jsonOut bool
}

func (f *addFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.tags, "tag", "t", nil, "Tag to apply to every ingested match (repeatable)")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print reports as JSON")
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add recordings to the catalog",
	}
	addCmd.AddCommand(newAddFileCommand(ctx))
	addCmd.AddCommand(newAddMatchCommand(ctx))
	addCmd.AddCommand(newAddSeriesCommand(ctx))
	addCmd.AddCommand(newAddCSVCommand(ctx))
	addCmd.AddCommand(newAddArchiveCommand(ctx))
	addCmd.AddCommand(newAddDBCommand(ctx))
	return addCmd
}

func newAddFileCommand(ctx *commandContext) *cobra.Command {
	var flags addFlags
	var source, reference, seriesName, tournament string

	cmd := &cobra.Command{
		Use:   "file <path>...",
		Short: "Add recording files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withIngest(cmd, func(c context.Context, a *app) error {
				jobs := make([]ingest.Job, 0, len(args))
				for _, arg := range args {
					path, err := filepath.Abs(arg)
					if err != nil {
						return fmt.Errorf("resolve path: %w", err)
					}
					jobs = append(jobs, a.service.FileJob(path, ingest.Request{
						Source:     source,
						Reference:  reference,
						Series:     seriesName,
						Tournament: tournament,
						Tags:       flags.tags,
					}))
				}
				reports, err := a.service.Batch(c, jobs)
				return printReports(cmd, reports, err, flags.jsonOut)
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&source, "source", ingest.SourceCLI, "Source label stored on each file")
	cmd.Flags().StringVar(&reference, "reference", "", "Free-form reference stored on each file (defaults to the path)")
	cmd.Flags().StringVar(&seriesName, "series", "", "Assign matches to this series")
	cmd.Flags().StringVar(&tournament, "tournament", "", "Tournament of --series")
	return cmd
}

func newAddMatchCommand(ctx *commandContext) *cobra.Command {
	var flags addFlags
	var singlePOV bool

	cmd := &cobra.Command{
		Use:   "match <platform-match-id|url>...",
		Short: "Download and add the recordings of platform matches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withIngest(cmd, func(c context.Context, a *app) error {
				var all []ingest.Report
				for _, ref := range args {
					reports, err := a.service.AddMatch(c, ref, singlePOV, flags.tags)
					if err != nil {
						all = append(all, ingest.Report{Name: ref, Err: err})
						continue
					}
					all = append(all, reports...)
				}
				return printReports(cmd, all, nil, flags.jsonOut)
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&singlePOV, "single-pov", false, "Only add the first available recording of each match")
	return cmd
}

func newAddSeriesCommand(ctx *commandContext) *cobra.Command {
	var flags addFlags

	cmd := &cobra.Command{
		Use:   "series <archive.zip>...",
		Short: "Add a zip of recordings belonging to one series",
		Long: "The series name is taken from the archive name: \"<series>.zip\", " +
			"\"<challonge-id>-<series>.zip\", or \"<tournament> - <series>.zip\".",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withIngest(cmd, func(c context.Context, a *app) error {
				var all []ingest.Report
				for _, path := range args {
					reports, err := a.service.AddSeriesArchive(c, path, flags.tags)
					if err != nil && len(reports) == 0 {
						all = append(all, ingest.Report{Name: filepath.Base(path), Err: err})
						continue
					}
					all = append(all, reports...)
				}
				return printReports(cmd, all, nil, flags.jsonOut)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newAddCSVCommand(ctx *commandContext) *cobra.Command {
	var flags addFlags

	cmd := &cobra.Command{
		Use:   "csv <manifest.csv|manifest.xlsx>",
		Short: "Add recordings listed in a manifest",
		Long:  "Each row holds: path, series, tournament, tags separated by ';'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := ingest.ReadManifest(args[0])
			if err != nil {
				return err
			}
			return ctx.withIngest(cmd, func(c context.Context, a *app) error {
				reports, err := a.service.Batch(c, a.service.ManifestJobs(rows, flags.tags))
				return printReports(cmd, reports, err, flags.jsonOut)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newAddArchiveCommand(ctx *commandContext) *cobra.Command {
	var flags addFlags
	var singlePOV bool

	cmd := &cobra.Command{
		Use:   "archive <dir>...",
		Short: "Add a platform archive directory",
		Long: "The directory holds <platform>/<subdir>/<match-id>/ folders, each with a metadata.json " +
			"(timestamp, ladder, players) and zips of .mgz recordings. Folders without metadata.json are skipped.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withIngest(cmd, func(c context.Context, a *app) error {
				var all []ingest.Report
				for _, dir := range args {
					reports, err := a.service.AddPlatformArchive(c, dir, singlePOV, flags.tags)
					all = append(all, reports...)
					if err != nil && len(reports) == 0 {
						all = append(all, ingest.Report{Name: filepath.Base(dir), Err: err})
					} else if err != nil {
						return printReports(cmd, all, err, flags.jsonOut)
					}
				}
				return printReports(cmd, all, nil, flags.jsonOut)
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&singlePOV, "single-pov", false, "Only add the first recording of each match")
	return cmd
}

func newAddDBCommand(ctx *commandContext) *cobra.Command {
	var flags addFlags

	cmd := &cobra.Command{
		Use:   "db <source-config.toml>",
		Short: "Copy every recording of another catalog into this one",
		Long: "The source catalog and its blob store are read from the given configuration file. " +
			"Series, tags, platform ids and start times travel with each recording.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcCfg, _, exists, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if !exists {
				return services.Wrap(services.ErrConfiguration, "", "add db", fmt.Sprintf("config %s not found", args[0]), nil)
			}
			return ctx.withIngest(cmd, func(c context.Context, a *app) error {
				srcStore, err := catalog.Open(srcCfg)
				if err != nil {
					return err
				}
				defer srcStore.Close()
				srcBlobs, err := blob.Open(c, srcCfg)
				if err != nil {
					return err
				}
				src := ingest.NewService(srcCfg, srcStore, nil, srcBlobs, ingest.WithLogger(ctx.log()))
				reports, err := a.service.ImportCatalog(c, src, flags.tags)
				return printReports(cmd, reports, err, flags.jsonOut)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

// printReports renders batch results and turns failures into the command
// error so the exit status reflects them.
func printReports(cmd *cobra.Command, reports []ingest.Report, batchErr error, jsonOut bool) error {
	if jsonOut {
		views := make([]reportView, 0, len(reports))
		for _, r := range reports {
			views = append(views, newReportView(r))
		}
		if err := writeJSON(cmd, views); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(reports))
		for _, r := range reports {
			v := newReportView(r)
			rows = append(rows, []string{
				v.Name,
				v.Outcome,
				idString(v.FileID),
				idString(v.MatchID),
				yesNo(v.Incomplete),
				v.Error,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"File", "Outcome", "File ID", "Match ID", "Incomplete", "Error"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
		))
	}
	if batchErr != nil {
		return batchErr
	}
	failed := ingest.Failed(reports)
	if failed > 0 {
		var first error
		for _, r := range reports {
			if r.Err != nil {
				first = r.Err
				break
			}
		}
		return fmt.Errorf("%d of %d %s failed: %w", failed, len(reports), plural(len(reports), "file", "files"), first)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
