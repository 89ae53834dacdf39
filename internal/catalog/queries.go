package catalog

import (
	"context"
	"fmt"
)

// File returns the file with the given id or services.ErrNotFound.
func (s *Store) File(ctx context.Context, id int64) (*File, error) {
	var f *File
	err := s.readRow(ctx, func(c conn) error {
		var err error
		f, err = fileWhere(ctx, c, "id = ?", id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, notFound("file", id)
	}
	return f, nil
}

// FileByHash returns the file with the given content hash, or nil.
func (s *Store) FileByHash(ctx context.Context, hash string) (*File, error) {
	var f *File
	err := s.readRow(ctx, func(c conn) error {
		var err error
		f, err = fileWhere(ctx, c, "hash = ?", hash)
		return err
	})
	return f, err
}

// Match returns the match with the given id or services.ErrNotFound.
func (s *Store) Match(ctx context.Context, id int64) (*Match, error) {
	var m *Match
	err := s.readRow(ctx, func(c conn) error {
		var err error
		m, err = matchWhere(ctx, c, "id = ?", id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, notFound("match", id)
	}
	return m, nil
}

// MatchByPlatform finds a match previously imported from a platform, or nil.
func (s *Store) MatchByPlatform(ctx context.Context, platformID, platformMatchID string) (*Match, error) {
	var m *Match
	err := s.readRow(ctx, func(c conn) error {
		row := c.queryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE platform_id = ? AND platform_match_id = ? ORDER BY id LIMIT 1`, platformID, platformMatchID)
		found, err := scanMatch(row)
		if isNoRows(err) {
			return nil
		}
		m = found
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("match by platform: %w", err)
	}
	return m, nil
}

// MatchDetail loads a match with its players, files, tags, and series.
func (s *Store) MatchDetail(ctx context.Context, id int64) (*MatchDetail, error) {
	m, err := s.Match(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &MatchDetail{Match: *m}
	err = s.readRow(ctx, func(c conn) error {
		var err error
		if detail.Players, err = playersForMatch(ctx, c, id); err != nil {
			return err
		}
		if detail.Files, err = filesForMatch(ctx, c, id); err != nil {
			return err
		}
		if detail.Tags, err = tagsForMatch(ctx, c, id); err != nil {
			return err
		}
		if m.SeriesID > 0 {
			row := c.queryRow(ctx, `SELECT `+seriesColumns+` FROM series s WHERE s.id = ?`, m.SeriesID)
			series, err := scanSeries(row)
			if err != nil && !isNoRows(err) {
				return fmt.Errorf("get series: %w", err)
			}
			detail.Series = series
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// MatchIDs lists every match id in insertion order.
func (s *Store) MatchIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.readRow(ctx, func(c conn) error {
		ids = ids[:0]
		rows, err := c.query(ctx, `SELECT id FROM matches ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list match ids: %w", err)
	}
	return ids, nil
}

// MatchesInSeries lists the matches of a series ordered by start time.
func (s *Store) MatchesInSeries(ctx context.Context, seriesID int64) ([]Match, error) {
	var matches []Match
	err := s.readRow(ctx, func(c conn) error {
		matches = matches[:0]
		rows, err := c.query(ctx, `SELECT `+matchColumns+` FROM matches WHERE series_id = ? ORDER BY played_at, id`, seriesID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanMatch(rows)
			if err != nil {
				return err
			}
			matches = append(matches, *m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list series matches: %w", err)
	}
	return matches, nil
}

// Players returns the roster of a match ordered by player number.
func (s *Store) Players(ctx context.Context, matchID int64) ([]Player, error) {
	var players []Player
	err := s.readRow(ctx, func(c conn) error {
		var err error
		players, err = playersForMatch(ctx, c, matchID)
		return err
	})
	return players, err
}

// Summary returns catalog-wide counters.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.readRow(ctx, func(c conn) error {
		row := c.queryRow(ctx, `SELECT
            (SELECT COUNT(1) FROM matches),
            (SELECT COUNT(1) FROM files),
            (SELECT COUNT(1) FROM files WHERE incomplete = 1),
            (SELECT COUNT(1) FROM series),
            (SELECT COUNT(DISTINCT name) FROM players),
            (SELECT COUNT(DISTINCT label) FROM tags),
            (SELECT COALESCE(SUM(size), 0) FROM files),
            (SELECT COALESCE(SUM(stored_size), 0) FROM files)`)
		return row.Scan(
			&sum.Matches,
			&sum.Files,
			&sum.IncompleteFiles,
			&sum.Series,
			&sum.Players,
			&sum.Tags,
			&sum.RawBytes,
			&sum.StoredBytes,
		)
	})
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}

func playersForMatch(ctx context.Context, c conn, matchID int64) ([]Player, error) {
	rows, err := c.query(ctx, `SELECT match_id, number, name, team, COALESCE(civilization, ''), color, COALESCE(profile_id, '') FROM players WHERE match_id = ? ORDER BY number`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()
	var players []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.MatchID, &p.Number, &p.Name, &p.Team, &p.Civilization, &p.Color, &p.ProfileID); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func tagsForMatch(ctx context.Context, c conn, matchID int64) ([]string, error) {
	rows, err := c.query(ctx, `SELECT label FROM tags WHERE match_id = ? ORDER BY label`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, label)
	}
	return tags, rows.Err()
}
