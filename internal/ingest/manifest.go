package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"recbase/internal/services"
)

// ManifestRow is one line of a CSV or spreadsheet manifest:
// path, series, tournament, tags separated by ';'.
type ManifestRow struct {
	Path       string
	Series     string
	Tournament string
	Tags       []string
}

// ReadManifest loads a manifest from a .csv, .xlsx, or .xlsm file. Relative
// paths are resolved against the manifest's directory. A first row whose
// first cell is "path" is treated as a header.
func ReadManifest(path string) ([]ManifestRow, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = readSpreadsheet(path)
	default:
		records, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	rows := make([]ManifestRow, 0, len(records))
	for i, rec := range records {
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "path") {
			continue
		}
		row := ManifestRow{Path: strings.TrimSpace(rec[0])}
		if !filepath.IsAbs(row.Path) {
			row.Path = filepath.Join(base, row.Path)
		}
		if len(rec) > 1 {
			row.Series = strings.TrimSpace(rec[1])
		}
		if len(rec) > 2 {
			row.Tournament = strings.TrimSpace(rec[2])
		}
		if len(rec) > 3 {
			row.Tags = splitTags(rec[3])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func splitTags(field string) []string {
	var tags []string
	for _, tag := range strings.Split(field, ";") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "read manifest", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = '#'
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "", "read manifest", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func readSpreadsheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "read manifest", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, services.Wrap(services.ErrValidation, "", "read manifest", fmt.Sprintf("%s has no sheets", path), nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "read manifest", path, err)
	}
	return rows, nil
}

// ManifestJobs turns manifest rows into batch jobs. extraTags are added to
// every row.
func (s *Service) ManifestJobs(rows []ManifestRow, extraTags []string) []Job {
	jobs := make([]Job, 0, len(rows))
	for _, row := range rows {
		tags := append(append([]string(nil), row.Tags...), extraTags...)
		jobs = append(jobs, s.FileJob(row.Path, Request{
			Source:     SourceCSV,
			Series:     row.Series,
			Tournament: row.Tournament,
			Tags:       tags,
		}))
	}
	return jobs
}
