package ingest_test

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"recbase/internal/ingest"
	"recbase/internal/platform"
	"recbase/internal/resolver"
	"recbase/internal/services"
	"recbase/internal/testsupport"
)

func TestReadManifestCSV(t *testing.T) {
	dir := t.TempDir()
	manifest := testsupport.WriteFile(t, filepath.Join(dir, "games.csv"), []byte(
		"path,series,tournament,tags\n"+
			"# comment line\n"+
			"one.mgz,Grand Final,KotD,finals;bo7\n"+
			"/abs/two.mgz\n"+
			"three.mgz,,,\n"))

	rows, err := ingest.ReadManifest(manifest)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(rows), rows)
	}
	if rows[0].Path != filepath.Join(dir, "one.mgz") || rows[0].Series != "Grand Final" || rows[0].Tournament != "KotD" {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if strings.Join(rows[0].Tags, ",") != "finals,bo7" {
		t.Fatalf("row 0 tags = %v", rows[0].Tags)
	}
	if rows[1].Path != "/abs/two.mgz" || rows[1].Series != "" {
		t.Fatalf("row 1 = %+v", rows[1])
	}
	if len(rows[2].Tags) != 0 {
		t.Fatalf("row 2 tags = %v", rows[2].Tags)
	}
}

func TestReadManifestSpreadsheet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "games.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	values := [][]string{
		{"path", "series", "tournament", "tags"},
		{"one.mgz", "Semi Final", "KotD", "semis"},
	}
	for r, row := range values {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("SetCellValue: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	_ = f.Close()

	rows, err := ingest.ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(rows) != 1 || rows[0].Series != "Semi Final" || rows[0].Path != filepath.Join(dir, "one.mgz") {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestManifestBatchContinuesPastFailures(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()

	good := []byte("manifest-good")
	h.parser.Register(good, testsupport.NewHeader())
	testsupport.WriteFile(t, filepath.Join(dir, "good.mgz"), good)
	testsupport.WriteFile(t, filepath.Join(dir, "bad.mgz"), []byte("unparseable"))
	manifest := testsupport.WriteFile(t, filepath.Join(dir, "m.csv"), []byte(
		"good.mgz,Final,KotD,finals\nbad.mgz\nmissing.mgz\n"))

	rows, err := ingest.ReadManifest(manifest)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	reports, err := h.service.Batch(context.Background(), h.service.ManifestJobs(rows, []string{"imported"}))
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}
	if !reports[0].OK() || reports[0].Outcome != resolver.NewMatch || reports[0].SeriesID == 0 {
		t.Fatalf("good report = %+v", reports[0])
	}
	if !errors.Is(reports[1].Err, services.ErrMetadataIncomplete) {
		t.Fatalf("bad report err = %v", reports[1].Err)
	}
	if !errors.Is(reports[2].Err, services.ErrValidation) {
		t.Fatalf("missing report err = %v", reports[2].Err)
	}
	if ingest.Failed(reports) != 2 {
		t.Fatalf("Failed = %d", ingest.Failed(reports))
	}

	tags, err := h.store.Tags(context.Background(), reports[0].MatchID)
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if strings.Join(tags, ",") != "finals,imported" {
		t.Fatalf("tags = %v", tags)
	}
}

func TestFileJobRefusesOversizeFile(t *testing.T) {
	h := newHarness(t)
	h.cfg.Ingest.MaxFileMiB = 1
	service := ingest.NewService(h.cfg, h.store, h.parser, h.blobs)

	dir := t.TempDir()
	small := []byte("fits under the limit")
	h.parser.Register(small, testsupport.NewHeader())
	smallPath := testsupport.WriteFile(t, filepath.Join(dir, "small.mgz"), small)
	bigPath := testsupport.WriteFile(t, filepath.Join(dir, "big.mgz"), make([]byte, 1<<20+1))

	reports, err := service.Batch(context.Background(), []ingest.Job{
		service.FileJob(smallPath, ingest.Request{Source: ingest.SourceCLI}),
		service.FileJob(bigPath, ingest.Request{Source: ingest.SourceCLI}),
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if !reports[0].OK() {
		t.Fatalf("small file report = %+v", reports[0])
	}
	if !errors.Is(reports[1].Err, services.ErrValidation) || !strings.Contains(reports[1].Err.Error(), "exceeds") {
		t.Fatalf("oversize file err = %v", reports[1].Err)
	}
	if reports[1].Name != "big.mgz" {
		t.Fatalf("oversize report name = %q", reports[1].Name)
	}
	if h.parser.Calls() != 1 {
		t.Fatalf("oversize file reached the parser: %d parse calls", h.parser.Calls())
	}
}

func TestParseSeriesArchiveName(t *testing.T) {
	cases := []struct {
		path string
		want ingest.SeriesName
	}{
		{"/tmp/Grand Final.zip", ingest.SeriesName{Name: "Grand Final"}},
		{"12345-Grand Final.zip", ingest.SeriesName{Name: "Grand Final", ChallongeID: "12345"}},
		{"KotD - Round 1.zip", ingest.SeriesName{Name: "Round 1", Tournament: "KotD"}},
		{"77-KotD - Round 2.zip", ingest.SeriesName{Name: "Round 2", Tournament: "KotD", ChallongeID: "77"}},
	}
	for _, tc := range cases {
		if got := ingest.ParseSeriesArchiveName(tc.path); got != tc.want {
			t.Errorf("ParseSeriesArchiveName(%q) = %+v, want %+v", tc.path, got, tc.want)
		}
	}
}

func writeZip(t *testing.T, path string, members map[string][]byte) {
	t.Helper()
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(out)
	for name, data := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}
}

func TestAddSeriesArchive(t *testing.T) {
	h := newHarness(t)
	game1a, game1b, game2 := []byte("g1 pov a"), []byte("g1 pov b"), []byte("g2 pov a")
	h.parser.Register(game1a, testsupport.NewHeader())
	h.parser.Register(game1b, testsupport.NewHeader(testsupport.WithRecorder(2, "Woogy")))
	h.parser.Register(game2, testsupport.NewHeader(testsupport.WithStart(time.Date(2020, 2, 13, 23, 0, 0, 0, time.UTC))))

	archive := filepath.Join(t.TempDir(), "4242-KotD - Grand Final.zip")
	writeZip(t, archive, map[string][]byte{
		"game1/a.mgz": game1a,
		"game1/b.mgz": game1b,
		"game2.mgz":   game2,
		"empty/":      nil,
	})

	reports, err := h.service.AddSeriesArchive(context.Background(), archive, []string{"kotd"})
	if err != nil {
		t.Fatalf("AddSeriesArchive: %v", err)
	}
	if len(reports) != 3 || ingest.Failed(reports) != 0 {
		t.Fatalf("reports = %+v", reports)
	}
	seriesID := reports[0].SeriesID
	for _, r := range reports {
		if r.SeriesID != seriesID {
			t.Fatalf("all members should share one series: %+v", reports)
		}
	}
	matches, err := h.store.MatchesInSeries(context.Background(), seriesID)
	if err != nil {
		t.Fatalf("MatchesInSeries: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches in series, got %d", len(matches))
	}
	s, err := h.store.SeriesByID(context.Background(), seriesID)
	if err != nil {
		t.Fatalf("SeriesByID: %v", err)
	}
	if s.Name != "Grand Final" || s.Tournament != "KotD" {
		t.Fatalf("series = %+v", s)
	}
	f, err := h.store.File(context.Background(), reports[0].FileID)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if f.Source != ingest.SourceZip || f.Reference != "challonge:4242" {
		t.Fatalf("file source/reference = %q/%q", f.Source, f.Reference)
	}
}

type fakeMatches struct {
	match *platform.Match
	files map[string][]byte
}

func (f *fakeMatches) Name() string { return "voobly" }

func (f *fakeMatches) Match(_ context.Context, ref string) (*platform.Match, error) {
	if platform.MatchID(ref) != f.match.ID {
		return nil, services.Wrap(services.ErrNotFound, services.StageLookup, "match", ref, nil)
	}
	return f.match, nil
}

func (f *fakeMatches) Download(_ context.Context, url string) (string, []byte, error) {
	data, ok := f.files[url]
	if !ok {
		return "", nil, services.Wrap(services.ErrNotFound, services.StageLookup, "download", url, nil)
	}
	return filepath.Base(url), data, nil
}

func TestAddMatchFromPlatform(t *testing.T) {
	povA, povB := []byte("platform pov a"), []byte("platform pov b")
	played := time.Date(2020, 2, 13, 21, 35, 5, 0, time.UTC)
	src := &fakeMatches{
		match: &platform.Match{
			ID:        "555",
			Timestamp: played,
			Players: []platform.MatchPlayer{
				{ProfileID: "100", Name: "Iketh", Number: 1, URL: "/files/a.mgz"},
				{ProfileID: "200", Name: "Woogy", Number: 2, URL: "/files/b.mgz"},
			},
		},
		files: map[string][]byte{"/files/a.mgz": povA, "/files/b.mgz": povB},
	}

	h := newHarness(t, ingest.WithMatchSource(src))
	h.parser.Register(povA, testsupport.NewHeader(testsupport.WithStart(time.Time{})))
	h.parser.Register(povB, testsupport.NewHeader(testsupport.WithStart(time.Time{}), testsupport.WithRecorder(2, "Woogy")))
	ctx := context.Background()

	reports, err := h.service.AddMatch(ctx, "https://voobly.example/match/view/555", true, nil)
	if err != nil {
		t.Fatalf("AddMatch single pov: %v", err)
	}
	if len(reports) != 1 || reports[0].Name != "a.mgz" || reports[0].Outcome != resolver.NewMatch {
		t.Fatalf("single pov reports = %+v", reports)
	}

	reports, err = h.service.AddMatch(ctx, "555", false, []string{"ladder"})
	if err != nil {
		t.Fatalf("AddMatch: %v", err)
	}
	if len(reports) != 2 || reports[0].Outcome != resolver.DuplicateFile || reports[1].Outcome != resolver.MergedPerspective {
		t.Fatalf("reports = %+v", reports)
	}

	m, err := h.store.MatchByPlatform(ctx, "voobly", "555")
	if err != nil || m == nil {
		t.Fatalf("MatchByPlatform = %v, %v", m, err)
	}
	if !m.PlayedAt.Equal(played) {
		t.Fatalf("played_at = %s", m.PlayedAt)
	}
	players, err := h.store.Players(ctx, m.ID)
	if err != nil {
		t.Fatalf("Players: %v", err)
	}
	if players[0].ProfileID != "100" || players[1].ProfileID != "200" {
		t.Fatalf("players = %+v", players)
	}

	if _, err := h.service.AddMatch(ctx, "999", false, nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown match, got %v", err)
	}
}

func TestAddMatchRequiresPlatform(t *testing.T) {
	h := newHarness(t)
	if _, err := h.service.AddMatch(context.Background(), "1", false, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func writeArchivedMatch(t *testing.T, dir, metadata string, zips map[string]map[string][]byte) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if metadata != "" {
		testsupport.WriteFile(t, filepath.Join(dir, "metadata.json"), []byte(metadata))
	}
	for name, members := range zips {
		writeZip(t, filepath.Join(dir, name), members)
	}
}

func TestAddPlatformArchive(t *testing.T) {
	h := newHarness(t)
	povA, povB, other := []byte("archive pov a"), []byte("archive pov b"), []byte("archive other match")
	h.parser.Register(povA, testsupport.NewHeader(testsupport.WithStart(time.Time{})))
	h.parser.Register(povB, testsupport.NewHeader(testsupport.WithStart(time.Time{}), testsupport.WithRecorder(2, "Woogy")))
	h.parser.Register(other, testsupport.NewHeader(testsupport.WithStart(time.Time{})))

	root := t.TempDir()
	writeArchivedMatch(t, filepath.Join(root, "voobly", "2020-02", "18000001"),
		`{"timestamp": "2020-02-13T21:35:05+00:00", "ladder": "RM 1v1",
		  "players": [{"id": 100, "name": "Iketh", "number": 1}, {"id": "200", "name": "Woogy", "number": 2}]}`,
		map[string]map[string][]byte{
			"recs.zip": {"a.mgz": povA, "b.mgz": povB, "notes.txt": []byte("ignored")},
		})
	writeArchivedMatch(t, filepath.Join(root, "voobly", "2020-02", "18000002"),
		`{"timestamp": "2020-02-14T10:00:00", "players": []}`,
		map[string]map[string][]byte{"recs.zip": {"c.mgz": other}})
	writeArchivedMatch(t, filepath.Join(root, "voobly", "2020-02", "incomplete"), "",
		map[string]map[string][]byte{"recs.zip": {"d.mgz": []byte("never read")}})

	matches, err := ingest.ScanPlatformArchive(root)
	if err != nil {
		t.Fatalf("ScanPlatformArchive: %v", err)
	}
	if len(matches) != 2 || matches[0].MatchID != "18000001" || matches[0].Platform != "voobly" {
		t.Fatalf("matches = %+v", matches)
	}

	ctx := context.Background()
	reports, err := h.service.AddPlatformArchive(ctx, root, true, []string{"archive"})
	if err != nil {
		t.Fatalf("AddPlatformArchive single pov: %v", err)
	}
	if len(reports) != 2 || ingest.Failed(reports) != 0 || reports[0].Name != "a.mgz" {
		t.Fatalf("single pov reports = %+v", reports)
	}

	reports, err = h.service.AddPlatformArchive(ctx, root, false, nil)
	if err != nil {
		t.Fatalf("AddPlatformArchive: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %+v", reports)
	}
	if reports[0].Outcome != resolver.DuplicateFile || reports[1].Outcome != resolver.MergedPerspective || reports[2].Outcome != resolver.DuplicateFile {
		t.Fatalf("reports = %+v", reports)
	}

	m, err := h.store.MatchByPlatform(ctx, "voobly", "18000001")
	if err != nil || m == nil {
		t.Fatalf("MatchByPlatform = %v, %v", m, err)
	}
	if want := time.Date(2020, 2, 13, 21, 35, 5, 0, time.UTC); !m.PlayedAt.Equal(want) {
		t.Fatalf("played_at = %s, want %s", m.PlayedAt, want)
	}
	players, err := h.store.Players(ctx, m.ID)
	if err != nil {
		t.Fatalf("Players: %v", err)
	}
	if players[0].ProfileID != "100" || players[1].ProfileID != "200" {
		t.Fatalf("players = %+v", players)
	}
	if second, err := h.store.MatchByPlatform(ctx, "voobly", "18000002"); err != nil || second == nil || second.ID == m.ID {
		t.Fatalf("second archived match = %+v, %v", second, err)
	}
	f, err := h.store.File(ctx, reports[1].FileID)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if f.Source != ingest.SourceArchive || f.Reference != "voobly/2020-02/18000001" {
		t.Fatalf("file source/reference = %q/%q", f.Source, f.Reference)
	}
}

func TestScanPlatformArchiveRejectsBadMetadata(t *testing.T) {
	root := t.TempDir()
	writeArchivedMatch(t, filepath.Join(root, "voobly", "x", "1"), `{"timestamp": "yesterday"}`, nil)
	if _, err := ingest.ScanPlatformArchive(root); !errors.Is(err, services.ErrMetadataIncomplete) {
		t.Fatalf("expected ErrMetadataIncomplete, got %v", err)
	}
	if _, err := ingest.ScanPlatformArchive(filepath.Join(root, "missing")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing root, got %v", err)
	}
}
