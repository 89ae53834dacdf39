package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"recbase/internal/logging"
	"recbase/internal/platform"
	"recbase/internal/services"
)

const archiveMetadataName = "metadata.json"

// ArchivedMatch is one match directory of a platform archive laid out as
// <platform>/<subdir>/<match_id>/ with a metadata.json and zipped recordings.
type ArchivedMatch struct {
	Platform string
	MatchID  string
	Dir      string
	Match    platform.Match
}

type archiveMetadata struct {
	Timestamp string            `json:"timestamp"`
	Ladder    string            `json:"ladder"`
	Players   []archivedProfile `json:"players"`
}

type archivedProfile struct {
	ID     any    `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"number"`
}

// profileID accepts numeric and string ids.
func (p archivedProfile) profileID() string {
	switch v := p.ID.(type) {
	case json.Number:
		return v.String()
	case string:
		return strings.TrimSpace(v)
	}
	return ""
}

var archiveTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseArchiveTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range archiveTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// ScanPlatformArchive lists the match directories under root in name order.
// Directories without a metadata.json are skipped.
func ScanPlatformArchive(root string) ([]ArchivedMatch, error) {
	platforms, err := visibleDirs(root)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, services.StageLookup, "archive", root, err)
	}
	var out []ArchivedMatch
	for _, platformID := range platforms {
		subdirs, err := visibleDirs(filepath.Join(root, platformID))
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, services.StageLookup, "archive", platformID, err)
		}
		for _, subdir := range subdirs {
			matchIDs, err := visibleDirs(filepath.Join(root, platformID, subdir))
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, services.StageLookup, "archive", subdir, err)
			}
			for _, matchID := range matchIDs {
				dir := filepath.Join(root, platformID, subdir, matchID)
				raw, err := os.ReadFile(filepath.Join(dir, archiveMetadataName))
				if os.IsNotExist(err) {
					continue
				}
				if err != nil {
					return nil, services.Wrap(services.ErrValidation, services.StageLookup, "archive", dir, err)
				}
				match, err := decodeArchiveMetadata(matchID, raw)
				if err != nil {
					return nil, services.Wrap(services.ErrMetadataIncomplete, services.StageLookup, "archive metadata", dir, err)
				}
				out = append(out, ArchivedMatch{Platform: platformID, MatchID: matchID, Dir: dir, Match: match})
			}
		}
	}
	return out, nil
}

func decodeArchiveMetadata(matchID string, raw []byte) (platform.Match, error) {
	var meta archiveMetadata
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&meta); err != nil {
		return platform.Match{}, err
	}
	played, err := parseArchiveTime(meta.Timestamp)
	if err != nil {
		return platform.Match{}, err
	}
	match := platform.Match{ID: matchID, Timestamp: played, Ladder: meta.Ladder}
	for _, p := range meta.Players {
		match.Players = append(match.Players, platform.MatchPlayer{
			ProfileID: p.profileID(),
			Name:      p.Name,
			Number:    p.Number,
		})
	}
	return match, nil
}

func visibleDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Jobs returns one job per .mgz member of the zips in the match directory.
// With singlePOV only the first member is used.
func (m ArchivedMatch) Jobs(singlePOV bool, tags []string, maxBytes int64) ([]Job, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, services.StageLookup, "archive", m.Dir, err)
	}
	reference := path.Join(m.Platform, filepath.Base(filepath.Dir(m.Dir)), m.MatchID)
	profiles := playerProfiles(m.Match.Players)

	var jobs []Job
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			continue
		}
		zipPath := filepath.Join(m.Dir, e.Name())
		members, err := recordingMembers(zipPath)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			jobs = append(jobs, Job{
				Request: Request{
					Name:            path.Base(member),
					Source:          SourceArchive,
					Reference:       reference,
					Tags:            tags,
					PlatformID:      m.Platform,
					PlatformMatchID: m.MatchID,
					PlayedAt:        m.Match.Timestamp,
					Profiles:        profiles,
				},
				Load: zipMemberLoader(zipPath, member, maxBytes),
			})
			if singlePOV {
				return jobs, nil
			}
		}
	}
	return jobs, nil
}

func recordingMembers(zipPath string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, services.StageHash, "open archive", zipPath, err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		base := path.Base(f.Name)
		if f.FileInfo().IsDir() || strings.HasPrefix(base, ".") || !strings.EqualFold(path.Ext(base), ".mgz") {
			continue
		}
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names, nil
}

// zipMemberLoader reopens the zip per member so a large archive does not hold
// file handles for the whole batch.
func zipMemberLoader(zipPath, member string, maxBytes int64) func(context.Context) (string, []byte, error) {
	return func(context.Context) (string, []byte, error) {
		zr, err := zip.OpenReader(zipPath)
		if err != nil {
			return "", nil, services.Wrap(services.ErrValidation, services.StageHash, "open archive", zipPath, err)
		}
		defer zr.Close()
		var entry *zip.File
		for _, f := range zr.File {
			if f.Name == member {
				entry = f
				break
			}
		}
		if entry == nil {
			return "", nil, services.Wrap(services.ErrValidation, services.StageHash, "read", member, os.ErrNotExist)
		}
		rc, err := entry.Open()
		if err != nil {
			return "", nil, services.Wrap(services.ErrValidation, services.StageHash, "read", member, err)
		}
		defer rc.Close()
		data, err := readLimited(rc, maxBytes, member)
		if err != nil {
			return "", nil, services.Wrap(services.ErrValidation, services.StageHash, "read", member, err)
		}
		return "", data, nil
	}
}

// AddPlatformArchive ingests every match of a platform archive directory.
// Matches are ingested one after another so perspectives of the same match
// meet the resolver in order; members within a match share the worker pool.
func (s *Service) AddPlatformArchive(ctx context.Context, root string, singlePOV bool, tags []string) ([]Report, error) {
	matches, err := ScanPlatformArchive(root)
	if err != nil {
		return nil, err
	}
	var all []Report
	for _, m := range matches {
		jobs, err := m.Jobs(singlePOV, tags, s.maxBytes)
		if err != nil {
			all = append(all, Report{Name: m.MatchID, Err: err})
			continue
		}
		s.logger.Info("archive match",
			logging.String("platform", m.Platform),
			logging.String("platform_match_id", m.MatchID),
			logging.Int("recordings", len(jobs)))
		reports, err := s.Batch(ctx, jobs)
		all = append(all, reports...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}
