package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"recbase/internal/preflight"
	"recbase/internal/services"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Catalog maintenance",
	}
	dbCmd.AddCommand(newDBResetCommand(ctx))
	dbCmd.AddCommand(newDBStatusCommand(ctx))
	return dbCmd
}

func newDBResetCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every match, file, series and stored payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return services.Wrap(services.ErrValidation, "", "reset", "refusing to reset without --yes", nil)
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				if err := a.service.Reset(c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Catalog at %s reset\n", a.store.Location())
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm the reset")
	return cmd
}

func newDBStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog health and run preflight checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				out := cmd.OutOrStdout()
				health, healthErr := a.store.CheckHealth(c)
				pairs := [][2]string{
					{"Driver", health.Driver},
					{"Location", health.Location},
					{"Schema version", strconv.FormatUint(uint64(health.SchemaVersion), 10)},
					{"Dirty", yesNo(health.Dirty)},
					{"Matches", strconv.Itoa(health.Matches)},
					{"Files", strconv.Itoa(health.Files)},
					{"Blob backend", a.cfg.Blob.Backend},
				}
				if a.platform != nil {
					pairs = append(pairs, [2]string{"Platform", a.platform.Name()})
				} else {
					pairs = append(pairs, [2]string{"Platform", "disabled"})
				}
				fmt.Fprintln(out, renderPairs(pairs))

				results := preflight.RunAll(c, a.cfg)
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					if !r.Passed {
						status = "FAILED"
					}
					rows = append(rows, []string{r.Name, status, r.Detail})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Check", "Status", "Detail"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft}))

				var problems []error
				if healthErr != nil {
					problems = append(problems, healthErr)
				}
				for _, failed := range preflight.Failed(results) {
					problems = append(problems, services.Wrap(services.ErrConfiguration, "", "preflight", failed.Name+": "+failed.Detail, nil))
				}
				return errors.Join(problems...)
			})
		},
	}
}
