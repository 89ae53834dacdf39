package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	seriesCmd := &cobra.Command{
		Use:   "series",
		Short: "Manage tournament series",
	}

	seriesCmd.AddCommand(&cobra.Command{
		Use:   "assign <match-id> <series-id>",
		Short: "Put a match into a series",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID, err := parseID("match", args[0])
			if err != nil {
				return err
			}
			seriesID, err := parseID("series", args[1])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				if err := a.service.Series().AssignSeries(c, matchID, seriesID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Match #%d assigned to series #%d\n", matchID, seriesID)
				return nil
			})
		},
	})

	seriesCmd.AddCommand(&cobra.Command{
		Use:   "unassign <match-id>",
		Short: "Remove a match from its series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID, err := parseID("match", args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				if err := a.service.Series().RemoveSeries(c, matchID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Match #%d no longer belongs to a series\n", matchID)
				return nil
			})
		},
	})

	var tournament string
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a series, or find the existing one with the same slug",
		Long: "Series are identified by the slug of \"<tournament> <name>\". Repeating a name that differs " +
			"only in case or spacing returns the existing series. A different name that reduces to an existing " +
			"slug (\"Round 1!\" and \"round-1\") is rejected.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				s, err := a.service.Series().CreateSeries(c, args[0], tournament)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Series #%d %s (%s)\n", s.ID, s.Name, s.Slug)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&tournament, "tournament", "", "Tournament the series belongs to")
	seriesCmd.AddCommand(createCmd)

	var jsonOut bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				all, err := a.service.Series().List(c)
				if err != nil {
					return err
				}
				if jsonOut {
					views := make([]seriesView, 0, len(all))
					for _, s := range all {
						views = append(views, newSeriesView(s))
					}
					return writeJSON(cmd, views)
				}
				if len(all) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No series")
					return nil
				}
				rows := make([][]string, 0, len(all))
				for _, s := range all {
					rows = append(rows, []string{idString(s.ID), s.Name, orDash(s.Tournament), s.Slug, strconv.Itoa(s.MatchCount)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Tournament", "Slug", "Matches"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	seriesCmd.AddCommand(listCmd)

	return seriesCmd
}
