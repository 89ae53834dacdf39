package ingest

import (
	"archive/zip"
	"context"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"recbase/internal/services"
)

var challongePrefix = regexp.MustCompile(`^(\d+)-(.+)$`)

// SeriesName is the series identity parsed from an archive filename.
type SeriesName struct {
	Name        string
	Tournament  string
	ChallongeID string
}

// ParseSeriesArchiveName understands "<series>.zip",
// "<challonge-id>-<series>.zip", and a "<tournament> - <series>" name.
func ParseSeriesArchiveName(archivePath string) SeriesName {
	base := filepath.Base(archivePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var out SeriesName
	if m := challongePrefix.FindStringSubmatch(base); m != nil {
		out.ChallongeID = m[1]
		base = m[2]
	}
	if tournament, name, ok := strings.Cut(base, " - "); ok {
		out.Tournament = strings.TrimSpace(tournament)
		base = name
	}
	out.Name = strings.TrimSpace(base)
	return out
}

// SeriesArchive is an opened series archive. Close it once its jobs ran.
type SeriesArchive struct {
	path   string
	name   SeriesName
	reader *zip.ReadCloser
}

// OpenSeriesArchive opens a zip of recordings belonging to one series.
func OpenSeriesArchive(archivePath string) (*SeriesArchive, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "open archive", archivePath, err)
	}
	return &SeriesArchive{path: archivePath, name: ParseSeriesArchiveName(archivePath), reader: r}, nil
}

// Name returns the parsed series identity.
func (a *SeriesArchive) Name() SeriesName { return a.name }

// Close releases the archive.
func (a *SeriesArchive) Close() error { return a.reader.Close() }

// Jobs returns one job per member file in name order, each assigned to the
// archive's series. Files reference the challonge id when the archive name
// carries one, otherwise the archive name.
func (a *SeriesArchive) Jobs(tags []string, maxBytes int64) []Job {
	files := make([]*zip.File, 0, len(a.reader.File))
	for _, f := range a.reader.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(path.Base(f.Name), ".") {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	reference := filepath.Base(a.path)
	if a.name.ChallongeID != "" {
		reference = "challonge:" + a.name.ChallongeID
	}
	jobs := make([]Job, 0, len(files))
	for _, f := range files {
		member := f
		jobs = append(jobs, Job{
			Request: Request{
				Name:       path.Base(member.Name),
				Source:     SourceZip,
				Reference:  reference,
				Series:     a.name.Name,
				Tournament: a.name.Tournament,
				Tags:       tags,
			},
			Load: func(context.Context) (string, []byte, error) {
				rc, err := member.Open()
				if err != nil {
					return "", nil, services.Wrap(services.ErrValidation, services.StageHash, "read", member.Name, err)
				}
				defer rc.Close()
				data, err := readLimited(rc, maxBytes, member.Name)
				if err != nil {
					return "", nil, services.Wrap(services.ErrValidation, services.StageHash, "read", member.Name, err)
				}
				return "", data, nil
			},
		})
	}
	return jobs
}

// AddSeriesArchive ingests every member of a series archive.
func (s *Service) AddSeriesArchive(ctx context.Context, archivePath string, tags []string) ([]Report, error) {
	archive, err := OpenSeriesArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer archive.Close()
	return s.Batch(ctx, archive.Jobs(tags, s.maxBytes))
}
