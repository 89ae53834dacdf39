package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"recbase/internal/catalog"
	"recbase/internal/ingest"
	"recbase/internal/services"
)

type reportView struct {
	Name       string `json:"name"`
	Outcome    string `json:"outcome"`
	FileID     int64  `json:"file_id,omitempty"`
	MatchID    int64  `json:"match_id,omitempty"`
	SeriesID   int64  `json:"series_id,omitempty"`
	Incomplete bool   `json:"incomplete"`
	Hash       string `json:"hash,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newReportView(r ingest.Report) reportView {
	v := reportView{
		Name:       r.Name,
		Outcome:    r.Outcome.String(),
		FileID:     r.FileID,
		MatchID:    r.MatchID,
		SeriesID:   r.SeriesID,
		Incomplete: r.Incomplete,
		Hash:       r.Hash,
		RequestID:  r.RequestID,
	}
	if r.Err != nil {
		v.Outcome = services.OutcomeName(r.Err)
		v.Error = r.Err.Error()
	}
	return v
}

type fileView struct {
	ID               int64     `json:"id"`
	MatchID          int64     `json:"match_id"`
	Hash             string    `json:"hash"`
	OriginalFilename string    `json:"original_filename"`
	Size             int64     `json:"size"`
	StoredSize       int64     `json:"stored_size"`
	RecorderNumber   int       `json:"recorder_number"`
	RecorderName     string    `json:"recorder_name"`
	DurationSeconds  float64   `json:"duration_seconds"`
	Incomplete       bool      `json:"incomplete"`
	Source           string    `json:"source"`
	Reference        string    `json:"reference,omitempty"`
	ParserVersion    string    `json:"parser_version,omitempty"`
	AddedAt          time.Time `json:"added_at"`
}

func newFileView(f catalog.File) fileView {
	return fileView{
		ID:               f.ID,
		MatchID:          f.MatchID,
		Hash:             f.Hash,
		OriginalFilename: f.OriginalFilename,
		Size:             f.Size,
		StoredSize:       f.StoredSize,
		RecorderNumber:   f.RecorderNumber,
		RecorderName:     f.RecorderName,
		DurationSeconds:  f.Duration.Seconds(),
		Incomplete:       f.Incomplete,
		Source:           f.Source,
		Reference:        f.Reference,
		ParserVersion:    f.ParserVersion,
		AddedAt:          f.AddedAt,
	}
}

type playerView struct {
	Number       int    `json:"number"`
	Name         string `json:"name"`
	Team         int    `json:"team"`
	Civilization string `json:"civilization"`
	Color        int    `json:"color"`
	ProfileID    string `json:"profile_id,omitempty"`
}

type seriesView struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Tournament string    `json:"tournament,omitempty"`
	MatchCount int       `json:"match_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func newSeriesView(s catalog.Series) seriesView {
	return seriesView{
		ID:         s.ID,
		Name:       s.Name,
		Slug:       s.Slug,
		Tournament: s.Tournament,
		MatchCount: s.MatchCount,
		CreatedAt:  s.CreatedAt,
	}
}

type matchView struct {
	ID              int64        `json:"id"`
	Fingerprint     string       `json:"fingerprint"`
	MapName         string       `json:"map_name"`
	MapID           int          `json:"map_id"`
	Version         string       `json:"version"`
	Ruleset         string       `json:"ruleset"`
	PlayedAt        time.Time    `json:"played_at"`
	DurationSeconds float64      `json:"duration_seconds"`
	PlatformID      string       `json:"platform_id,omitempty"`
	PlatformMatchID string       `json:"platform_match_id,omitempty"`
	Series          *seriesView  `json:"series,omitempty"`
	Players         []playerView `json:"players,omitempty"`
	Files           []fileView   `json:"files,omitempty"`
	Tags            []string     `json:"tags"`
}

func newMatchView(m catalog.Match) matchView {
	return matchView{
		ID:              m.ID,
		Fingerprint:     m.Fingerprint,
		MapName:         m.MapName,
		MapID:           m.MapID,
		Version:         m.Version,
		Ruleset:         m.Ruleset,
		PlayedAt:        m.PlayedAt,
		DurationSeconds: m.Duration.Seconds(),
		PlatformID:      m.PlatformID,
		PlatformMatchID: m.PlatformMatchID,
		Tags:            []string{},
	}
}

func newMatchDetailView(d *catalog.MatchDetail) matchView {
	v := newMatchView(d.Match)
	if d.Series != nil {
		s := newSeriesView(*d.Series)
		v.Series = &s
	}
	for _, p := range d.Players {
		v.Players = append(v.Players, playerView{
			Number:       p.Number,
			Name:         p.Name,
			Team:         p.Team,
			Civilization: p.Civilization,
			Color:        p.Color,
			ProfileID:    p.ProfileID,
		})
	}
	for _, f := range d.Files {
		v.Files = append(v.Files, newFileView(f))
	}
	if d.Tags != nil {
		v.Tags = d.Tags
	}
	return v
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func idString(id int64) string {
	if id == 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}
