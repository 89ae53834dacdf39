package catalog

import (
	"context"
	"fmt"
	"time"
)

// CreateSeries returns the series with the given slug, creating it when
// absent. The bool reports whether a row was inserted.
func (s *Store) CreateSeries(ctx context.Context, name, slug, tournament string) (*Series, bool, error) {
	var (
		series  *Series
		created bool
	)
	err := s.inTx(ctx, func(tx *sqlTx) error {
		c := tx.c
		res, err := c.exec(
			ctx,
			`INSERT INTO series (name, slug, tournament, created_at) VALUES (?, ?, ?, ?) ON CONFLICT (slug) DO NOTHING`,
			name,
			slug,
			nullableString(tournament),
			formatTime(time.Now()),
		)
		if err != nil {
			return fmt.Errorf("insert series: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			created = n > 0
		}
		row := c.queryRow(ctx, `SELECT `+seriesColumns+` FROM series s WHERE s.slug = ?`, slug)
		series, err = scanSeries(row)
		if err != nil {
			return fmt.Errorf("get series: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return series, created, nil
}

// SeriesByID returns a series or services.ErrNotFound.
func (s *Store) SeriesByID(ctx context.Context, id int64) (*Series, error) {
	var series *Series
	err := s.readRow(ctx, func(c conn) error {
		row := c.queryRow(ctx, `SELECT `+seriesColumns+` FROM series s WHERE s.id = ?`, id)
		found, err := scanSeries(row)
		if isNoRows(err) {
			return nil
		}
		series = found
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	if series == nil {
		return nil, notFound("series", id)
	}
	return series, nil
}

// ListSeries returns every series ordered by name.
func (s *Store) ListSeries(ctx context.Context) ([]Series, error) {
	var list []Series
	err := s.readRow(ctx, func(c conn) error {
		list = list[:0]
		rows, err := c.query(ctx, `SELECT `+seriesColumns+` FROM series s ORDER BY s.name, s.id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			series, err := scanSeries(rows)
			if err != nil {
				return err
			}
			list = append(list, *series)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return list, nil
}

// SetMatchSeries links a match to a series; seriesID 0 clears the link.
func (s *Store) SetMatchSeries(ctx context.Context, matchID, seriesID int64) error {
	return s.inTx(ctx, func(tx *sqlTx) error {
		c := tx.c
		if m, err := tx.MatchByID(ctx, matchID); err != nil {
			return err
		} else if m == nil {
			return notFound("match", matchID)
		}
		if seriesID > 0 {
			var exists int
			if err := c.queryRow(ctx, `SELECT COUNT(1) FROM series WHERE id = ?`, seriesID).Scan(&exists); err != nil {
				return fmt.Errorf("check series: %w", err)
			}
			if exists == 0 {
				return notFound("series", seriesID)
			}
		}
		if _, err := c.exec(ctx, `UPDATE matches SET series_id = ? WHERE id = ?`, nullableID(seriesID), matchID); err != nil {
			return fmt.Errorf("update match series: %w", err)
		}
		return nil
	})
}

// AddTag attaches label to a match. Adding an existing tag is a no-op and
// reports false.
func (s *Store) AddTag(ctx context.Context, matchID int64, label string) (bool, error) {
	var added bool
	err := s.inTx(ctx, func(tx *sqlTx) error {
		if m, err := tx.MatchByID(ctx, matchID); err != nil {
			return err
		} else if m == nil {
			return notFound("match", matchID)
		}
		res, err := tx.c.exec(
			ctx,
			`INSERT INTO tags (match_id, label, created_at) VALUES (?, ?, ?) ON CONFLICT (match_id, label) DO NOTHING`,
			matchID,
			label,
			formatTime(time.Now()),
		)
		if err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("tag rows affected: %w", err)
		}
		added = n > 0
		return nil
	})
	return added, err
}

// RemoveTag detaches label from a match and reports whether it was present.
func (s *Store) RemoveTag(ctx context.Context, matchID int64, label string) (bool, error) {
	var removed bool
	err := s.inTx(ctx, func(tx *sqlTx) error {
		if m, err := tx.MatchByID(ctx, matchID); err != nil {
			return err
		} else if m == nil {
			return notFound("match", matchID)
		}
		res, err := tx.c.exec(ctx, `DELETE FROM tags WHERE match_id = ? AND label = ?`, matchID, label)
		if err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("tag rows affected: %w", err)
		}
		removed = n > 0
		return nil
	})
	return removed, err
}

// Tags lists the labels of a match.
func (s *Store) Tags(ctx context.Context, matchID int64) ([]string, error) {
	var tags []string
	err := s.readRow(ctx, func(c conn) error {
		var err error
		tags, err = tagsForMatch(ctx, c, matchID)
		return err
	})
	return tags, err
}

// SetPlayerProfile stores the platform profile id of a roster entry.
func (s *Store) SetPlayerProfile(ctx context.Context, matchID int64, number int, profileID string) error {
	return s.inTx(ctx, func(tx *sqlTx) error {
		_, err := tx.c.exec(ctx, `UPDATE players SET profile_id = ? WHERE match_id = ? AND number = ?`, nullableString(profileID), matchID, number)
		if err != nil {
			return fmt.Errorf("update player profile: %w", err)
		}
		return nil
	})
}
