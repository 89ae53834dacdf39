package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"recbase/internal/catalog"
)

func newQueryCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Inspect files, matches, series, and catalog totals",
	}
	queryCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print JSON instead of tables")

	queryCmd.AddCommand(&cobra.Command{
		Use:   "file <id>",
		Short: "Show a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("file", args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				f, err := a.store.File(c, id)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, newFileView(*f))
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderPairs([][2]string{
					{"ID", idString(f.ID)},
					{"Match", idString(f.MatchID)},
					{"Original name", f.OriginalFilename},
					{"Hash", f.Hash},
					{"Recorder", fmt.Sprintf("%d %s", f.RecorderNumber, f.RecorderName)},
					{"Duration", formatDuration(f.Duration)},
					{"Incomplete", yesNo(f.Incomplete)},
					{"Size", formatBytes(f.Size)},
					{"Stored size", formatBytes(f.StoredSize)},
					{"Source", f.Source},
					{"Reference", f.Reference},
					{"Added", formatTime(f.AddedAt)},
				}))
				return nil
			})
		},
	})

	queryCmd.AddCommand(&cobra.Command{
		Use:   "match <id>",
		Short: "Show a match with its roster, files, and tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("match", args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				detail, err := a.store.MatchDetail(c, id)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, newMatchDetailView(detail))
				}
				printMatchDetail(cmd, detail)
				return nil
			})
		},
	})

	queryCmd.AddCommand(&cobra.Command{
		Use:   "series <id>",
		Short: "Show a series and its matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("series", args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				s, err := a.store.SeriesByID(c, id)
				if err != nil {
					return err
				}
				matches, err := a.store.MatchesInSeries(c, id)
				if err != nil {
					return err
				}
				if jsonOut {
					views := make([]matchView, 0, len(matches))
					for _, m := range matches {
						views = append(views, newMatchView(m))
					}
					return writeJSON(cmd, struct {
						seriesView
						Matches []matchView `json:"matches"`
					}{newSeriesView(*s), views})
				}
				out := cmd.OutOrStdout()
				title := s.Name
				if s.Tournament != "" {
					title = s.Tournament + " / " + s.Name
				}
				fmt.Fprintf(out, "Series #%d: %s (%s)\n", s.ID, title, s.Slug)
				fmt.Fprintln(out, renderMatches(matches))
				return nil
			})
		},
	})

	queryCmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Show catalog totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				sum, err := a.store.Summary(c)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{
						"matches":          sum.Matches,
						"files":            sum.Files,
						"incomplete_files": sum.IncompleteFiles,
						"series":           sum.Series,
						"players":          sum.Players,
						"tags":             sum.Tags,
						"raw_bytes":        sum.RawBytes,
						"stored_bytes":     sum.StoredBytes,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderPairs([][2]string{
					{"Matches", strconv.Itoa(sum.Matches)},
					{"Files", strconv.Itoa(sum.Files)},
					{"Incomplete files", strconv.Itoa(sum.IncompleteFiles)},
					{"Series", strconv.Itoa(sum.Series)},
					{"Players", strconv.Itoa(sum.Players)},
					{"Tags", strconv.Itoa(sum.Tags)},
					{"Raw size", formatBytes(sum.RawBytes)},
					{"Stored size", formatBytes(sum.StoredBytes)},
				}))
				return nil
			})
		},
	})

	return queryCmd
}

func printMatchDetail(cmd *cobra.Command, d *catalog.MatchDetail) {
	out := cmd.OutOrStdout()
	m := d.Match
	series := "-"
	if d.Series != nil {
		series = fmt.Sprintf("#%d %s", d.Series.ID, d.Series.Name)
	}
	tags := "-"
	if len(d.Tags) > 0 {
		tags = strings.Join(d.Tags, ", ")
	}
	platform := "-"
	if m.PlatformID != "" {
		platform = m.PlatformID + " " + m.PlatformMatchID
	}
	fmt.Fprintln(out, renderPairs([][2]string{
		{"ID", idString(m.ID)},
		{"Map", m.MapName},
		{"Version", m.Version},
		{"Ruleset", m.Ruleset},
		{"Played", formatTime(m.PlayedAt)},
		{"Duration", formatDuration(m.Duration)},
		{"Series", series},
		{"Tags", tags},
		{"Platform", platform},
		{"Fingerprint", m.Fingerprint},
	}))

	players := make([][]string, 0, len(d.Players))
	for _, p := range d.Players {
		players = append(players, []string{
			strconv.Itoa(p.Number), p.Name, strconv.Itoa(p.Team), p.Civilization, orDash(p.ProfileID),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Player", "Team", "Civilization", "Profile"}, players,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft}))

	files := make([][]string, 0, len(d.Files))
	for _, f := range d.Files {
		files = append(files, []string{
			idString(f.ID), f.RecorderName, formatDuration(f.Duration), yesNo(f.Incomplete), f.OriginalFilename,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"File", "Recorder", "Duration", "Incomplete", "Name"}, files,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft}))
}

func renderMatches(matches []catalog.Match) string {
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{
			idString(m.ID), formatTime(m.PlayedAt), m.MapName, formatDuration(m.Duration), m.Version,
		})
	}
	return renderTable([]string{"Match", "Played", "Map", "Duration", "Version"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft})
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
