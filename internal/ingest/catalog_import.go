package ingest

import (
	"context"

	"recbase/internal/catalog"
	"recbase/internal/logging"
	"recbase/internal/services"
)

// ImportCatalog copies every file of src into this catalog. Series, tags,
// platform ids, start times and known profiles travel with each file; the
// recordings are parsed again here. extraTags are added to every match.
func (s *Service) ImportCatalog(ctx context.Context, src *Service, extraTags []string) ([]Report, error) {
	if src == nil || src.store == nil {
		return nil, services.Wrap(services.ErrConfiguration, services.StageLookup, "import", "no source catalog", nil)
	}
	if src.store.Driver() == s.store.Driver() && src.store.Location() == s.store.Location() {
		return nil, services.Wrap(services.ErrValidation, services.StageLookup, "import",
			"source and destination are the same catalog", nil)
	}
	ids, err := src.store.MatchIDs(ctx)
	if err != nil {
		return nil, err
	}
	var all []Report
	for _, id := range ids {
		detail, err := src.store.MatchDetail(ctx, id)
		if err != nil {
			all = append(all, Report{Name: "match", Err: err})
			continue
		}
		jobs := importJobs(src, detail, extraTags)
		s.logger.Debug("importing match",
			logging.Int64(logging.FieldMatchID, id),
			logging.Int("files", len(jobs)))
		reports, err := s.Batch(ctx, jobs)
		all = append(all, reports...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

func importJobs(src *Service, detail *catalog.MatchDetail, extraTags []string) []Job {
	profiles := make(map[string]string, len(detail.Players))
	for _, p := range detail.Players {
		if p.ProfileID != "" {
			profiles[p.Name] = p.ProfileID
		}
	}
	tags := append(append([]string(nil), detail.Tags...), extraTags...)
	var seriesName, tournament string
	if detail.Series != nil {
		seriesName, tournament = detail.Series.Name, detail.Series.Tournament
	}

	jobs := make([]Job, 0, len(detail.Files))
	for _, f := range detail.Files {
		fileID := f.ID
		jobs = append(jobs, Job{
			Request: Request{
				Name:            f.OriginalFilename,
				Source:          f.Source,
				Reference:       f.Reference,
				Series:          seriesName,
				Tournament:      tournament,
				Tags:            tags,
				PlatformID:      detail.Match.PlatformID,
				PlatformMatchID: detail.Match.PlatformMatchID,
				PlayedAt:        detail.Match.PlayedAt,
				Profiles:        profiles,
			},
			Load: func(ctx context.Context) (string, []byte, error) {
				_, data, err := src.Retrieve(ctx, fileID)
				return "", data, err
			},
		})
	}
	return jobs
}
