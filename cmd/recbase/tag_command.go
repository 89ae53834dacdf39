package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"recbase/internal/series"
)

func newTagCommand(ctx *commandContext) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "tag <match-id> <label>...",
		Short: "Tag a match, or remove tags with --remove",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID, err := parseID("match", args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				if _, err := a.store.Match(c, matchID); err != nil {
					return err
				}
				mgr := a.service.Series()
				out := cmd.OutOrStdout()
				for _, label := range args[1:] {
					normalized := series.NormalizeTag(label)
					if remove {
						removed, err := mgr.RemoveTag(c, matchID, label)
						if err != nil {
							return err
						}
						if removed {
							fmt.Fprintf(out, "Removed tag %q from match #%d\n", normalized, matchID)
						} else {
							fmt.Fprintf(out, "Match #%d has no tag %q\n", matchID, normalized)
						}
						continue
					}
					added, err := mgr.AddTag(c, matchID, label)
					if err != nil {
						return err
					}
					if added {
						fmt.Fprintf(out, "Tagged match #%d with %q\n", matchID, normalized)
					} else {
						fmt.Fprintf(out, "Match #%d already tagged %q\n", matchID, normalized)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the labels instead of adding them")
	return cmd
}
