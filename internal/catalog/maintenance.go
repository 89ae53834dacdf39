package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"

	"recbase/internal/services"
)

// RemoveMatch deletes a match with its files, players, and tags.
func (s *Store) RemoveMatch(ctx context.Context, matchID int64) (Removal, error) {
	removal := Removal{MatchID: matchID}
	err := s.inTx(ctx, func(tx *sqlTx) error {
		removal.BlobKeys = removal.BlobKeys[:0]
		m, err := tx.MatchByID(ctx, matchID)
		if err != nil {
			return err
		}
		if m == nil {
			return notFound("match", matchID)
		}
		files, err := tx.MatchFiles(ctx, matchID)
		if err != nil {
			return err
		}
		for _, f := range files {
			removal.BlobKeys = append(removal.BlobKeys, f.BlobKey)
		}
		removal.FilesRemoved = len(files)
		removal.MatchRemoved = true
		return tx.DeleteMatch(ctx, matchID)
	})
	if err != nil {
		return Removal{}, err
	}
	return removal, nil
}

// RemoveSeries deletes a series. Its matches stay and lose the link.
func (s *Store) RemoveSeries(ctx context.Context, seriesID int64) (int, error) {
	var detached int
	err := s.inTx(ctx, func(tx *sqlTx) error {
		if err := tx.c.queryRow(ctx, `SELECT COUNT(1) FROM matches WHERE series_id = ?`, seriesID).Scan(&detached); err != nil {
			return fmt.Errorf("count series matches: %w", err)
		}
		res, err := tx.c.exec(ctx, `DELETE FROM series WHERE id = ?`, seriesID)
		if err != nil {
			return fmt.Errorf("delete series: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return notFound("series", seriesID)
		}
		return nil
	})
	return detached, err
}

// BlobKeys lists every stored payload key.
func (s *Store) BlobKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.readRow(ctx, func(c conn) error {
		keys = keys[:0]
		rows, err := c.query(ctx, `SELECT blob_key FROM files ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return err
			}
			keys = append(keys, key)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list blob keys: %w", err)
	}
	return keys, nil
}

// Reset drops every table and re-creates an empty schema. It returns the blob
// keys that were referenced before the reset.
func (s *Store) Reset(ctx context.Context) ([]string, error) {
	keys, err := s.BlobKeys(ctx)
	if err != nil {
		return nil, err
	}
	err = s.withMigrationLock(func() error {
		m, err := s.migrator()
		if err != nil {
			return err
		}
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run down migrations: %w", err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run up migrations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, services.StagePersist, "reset", s.location, err)
	}
	return keys, nil
}

// CheckHealth verifies connectivity and reports schema state.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	ctx = ensureContext(ctx)
	health := Health{Driver: s.Driver(), Location: s.location}
	if err := s.db.PingContext(ctx); err != nil {
		return health, services.Wrap(services.ErrStorageUnavailable, services.StagePersist, "ping", s.location, err)
	}
	version, dirty, err := s.schemaVersion()
	if err != nil {
		return health, services.Wrap(services.ErrStorageUnavailable, services.StagePersist, "schema version", s.location, err)
	}
	health.SchemaVersion = version
	health.Dirty = dirty
	sum, err := s.Summary(ctx)
	if err != nil {
		return health, err
	}
	health.Matches = sum.Matches
	health.Files = sum.Files
	return health, nil
}
