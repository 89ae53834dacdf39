package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var fileID, matchID, seriesID int64

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a file, match, or series",
		Long: "Removing the last file of a match removes the match. Removing a match " +
			"removes its files, roster, and tags. Removing a series keeps its matches.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				out := cmd.OutOrStdout()
				switch {
				case fileID > 0:
					removal, err := a.service.RemoveFile(c, fileID)
					if err != nil {
						return err
					}
					if removal.MatchRemoved {
						fmt.Fprintf(out, "Removed file #%d and its match #%d\n", fileID, removal.MatchID)
					} else {
						fmt.Fprintf(out, "Removed file #%d from match #%d\n", fileID, removal.MatchID)
					}
				case matchID > 0:
					removal, err := a.service.RemoveMatch(c, matchID)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed match #%d with %d %s\n", matchID, removal.FilesRemoved, plural(removal.FilesRemoved, "file", "files"))
				case seriesID > 0:
					detached, err := a.service.Series().DeleteSeries(c, seriesID)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed series #%d (%d %s detached)\n", seriesID, detached, plural(detached, "match", "matches"))
				default:
					return fmt.Errorf("one of --file, --match, or --series must be a positive id")
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&fileID, "file", 0, "File id to remove")
	cmd.Flags().Int64Var(&matchID, "match", 0, "Match id to remove")
	cmd.Flags().Int64Var(&seriesID, "series", 0, "Series id to remove")
	cmd.MarkFlagsMutuallyExclusive("file", "match", "series")
	cmd.MarkFlagsOneRequired("file", "match", "series")
	return cmd
}
