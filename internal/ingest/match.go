package ingest

import (
	"context"

	"recbase/internal/platform"
	"recbase/internal/services"
)

// MatchSource fetches match references and their recordings.
type MatchSource interface {
	Name() string
	Match(ctx context.Context, ref string) (*platform.Match, error)
	Download(ctx context.Context, url string) (string, []byte, error)
}

// AddMatch downloads the recordings of a platform match and ingests them.
// With singlePOV only the first available recording is used.
func (s *Service) AddMatch(ctx context.Context, ref string, singlePOV bool, tags []string) ([]Report, error) {
	if s.matches == nil {
		return nil, services.Wrap(services.ErrConfiguration, services.StageLookup, "match", "platform is not enabled", nil)
	}
	match, err := s.matches.Match(ctx, ref)
	if err != nil {
		return nil, err
	}
	profiles := playerProfiles(match.Players)

	recordings := match.Recordings(singlePOV)
	if len(recordings) == 0 {
		return nil, services.Wrap(services.ErrNotFound, services.StageLookup, "match", "match has no recordings", nil)
	}
	jobs := make([]Job, 0, len(recordings))
	for _, p := range recordings {
		player := p
		jobs = append(jobs, Job{
			Request: Request{
				Name:            player.Name,
				Source:          SourcePlatform,
				Reference:       ref,
				Tags:            tags,
				PlatformID:      s.matches.Name(),
				PlatformMatchID: match.ID,
				PlayedAt:        match.Timestamp,
				Profiles:        profiles,
			},
			Load: func(ctx context.Context) (string, []byte, error) {
				name, data, err := s.matches.Download(ctx, player.URL)
				if err != nil {
					return "", nil, err
				}
				if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
					return name, nil, services.Wrap(services.ErrValidation, services.StageHash, "read", "download exceeds size limit", nil)
				}
				return name, data, nil
			},
		})
	}
	return s.Batch(ctx, jobs)
}

// playerProfiles maps roster names to platform profile ids.
func playerProfiles(players []platform.MatchPlayer) map[string]string {
	profiles := make(map[string]string, len(players))
	for _, p := range players {
		if p.ProfileID != "" {
			profiles[p.Name] = p.ProfileID
		}
	}
	return profiles
}
