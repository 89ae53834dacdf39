package catalog

import (
	"context"
	"fmt"
	"time"

	"recbase/internal/services"
)

// Tx is the set of operations available inside a write transaction.
// Lookups return (nil, nil) when the row does not exist.
type Tx interface {
	FileByHash(ctx context.Context, hash string) (*File, error)
	FileByID(ctx context.Context, id int64) (*File, error)
	MatchByFingerprint(ctx context.Context, fingerprint string) (*Match, error)
	MatchByID(ctx context.Context, id int64) (*Match, error)
	InsertMatch(ctx context.Context, m *Match) (int64, error)
	InsertPlayers(ctx context.Context, matchID int64, players []Player) error
	InsertFile(ctx context.Context, f *File) (int64, error)
	MatchFiles(ctx context.Context, matchID int64) ([]File, error)
	UpdateMatchDuration(ctx context.Context, matchID int64, d time.Duration) error
	SetFileIncomplete(ctx context.Context, fileID int64, incomplete bool) error
	DeleteFile(ctx context.Context, fileID int64) error
	DeleteMatch(ctx context.Context, matchID int64) error
}

type sqlTx struct {
	c conn
}

func (t *sqlTx) FileByHash(ctx context.Context, hash string) (*File, error) {
	return fileWhere(ctx, t.c, "hash = ?", hash)
}

func (t *sqlTx) FileByID(ctx context.Context, id int64) (*File, error) {
	return fileWhere(ctx, t.c, "id = ?", id)
}

func (t *sqlTx) MatchByFingerprint(ctx context.Context, fingerprint string) (*Match, error) {
	return matchWhere(ctx, t.c, "fingerprint = ?", fingerprint)
}

func (t *sqlTx) MatchByID(ctx context.Context, id int64) (*Match, error) {
	return matchWhere(ctx, t.c, "id = ?", id)
}

// InsertMatch creates a match row. A fingerprint collision is reported as
// services.ErrFingerprintRace.
func (t *sqlTx) InsertMatch(ctx context.Context, m *Match) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	var id int64
	err := t.c.queryRow(
		ctx,
		`INSERT INTO matches (
            fingerprint, series_id, map_id, map_seed, map_name, version, ruleset,
            played_at, duration_ms, platform_id, platform_match_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		m.Fingerprint,
		nullableID(m.SeriesID),
		m.MapID,
		m.MapSeed,
		nullableString(m.MapName),
		m.Version,
		nullableString(m.Ruleset),
		nullableTime(m.PlayedAt),
		m.Duration.Milliseconds(),
		nullableString(m.PlatformID),
		nullableString(m.PlatformMatchID),
		formatTime(m.CreatedAt),
	).Scan(&id)
	if err != nil {
		if uniqueViolation(err) == "matches.fingerprint" {
			return 0, services.Wrap(services.ErrFingerprintRace, services.StageResolve, "insert match", m.Fingerprint, err)
		}
		return 0, fmt.Errorf("insert match: %w", err)
	}
	m.ID = id
	return id, nil
}

func (t *sqlTx) InsertPlayers(ctx context.Context, matchID int64, players []Player) error {
	for _, p := range players {
		if _, err := t.c.exec(
			ctx,
			`INSERT INTO players (match_id, number, name, team, civilization, color, profile_id)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			matchID,
			p.Number,
			p.Name,
			p.Team,
			nullableString(p.Civilization),
			p.Color,
			nullableString(p.ProfileID),
		); err != nil {
			return fmt.Errorf("insert player %d: %w", p.Number, err)
		}
	}
	return nil
}

// InsertFile creates a file row. A hash collision is reported as
// ErrDuplicateFile.
func (t *sqlTx) InsertFile(ctx context.Context, f *File) (int64, error) {
	if f.AddedAt.IsZero() {
		f.AddedAt = time.Now().UTC()
	}
	var id int64
	err := t.c.queryRow(
		ctx,
		`INSERT INTO files (
            match_id, hash, fingerprint, blob_key, original_filename, size, stored_size,
            recorder_number, recorder_name, duration_ms, incomplete, source, reference,
            parser_version, header_json, added_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		f.MatchID,
		f.Hash,
		f.Fingerprint,
		f.BlobKey,
		f.OriginalFilename,
		f.Size,
		f.StoredSize,
		f.RecorderNumber,
		nullableString(f.RecorderName),
		f.Duration.Milliseconds(),
		boolToInt(f.Incomplete),
		f.Source,
		nullableString(f.Reference),
		nullableString(f.ParserVersion),
		nullableString(f.HeaderJSON),
		formatTime(f.AddedAt),
	).Scan(&id)
	if err != nil {
		if uniqueViolation(err) == "files.hash" {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateFile, f.Hash)
		}
		return 0, fmt.Errorf("insert file: %w", err)
	}
	f.ID = id
	return id, nil
}

func (t *sqlTx) MatchFiles(ctx context.Context, matchID int64) ([]File, error) {
	return filesForMatch(ctx, t.c, matchID)
}

func (t *sqlTx) UpdateMatchDuration(ctx context.Context, matchID int64, d time.Duration) error {
	if _, err := t.c.exec(ctx, `UPDATE matches SET duration_ms = ? WHERE id = ?`, d.Milliseconds(), matchID); err != nil {
		return fmt.Errorf("update match duration: %w", err)
	}
	return nil
}

func (t *sqlTx) SetFileIncomplete(ctx context.Context, fileID int64, incomplete bool) error {
	if _, err := t.c.exec(ctx, `UPDATE files SET incomplete = ? WHERE id = ?`, boolToInt(incomplete), fileID); err != nil {
		return fmt.Errorf("update file completeness: %w", err)
	}
	return nil
}

func (t *sqlTx) DeleteFile(ctx context.Context, fileID int64) error {
	if _, err := t.c.exec(ctx, `DELETE FROM files WHERE id = ?`, fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (t *sqlTx) DeleteMatch(ctx context.Context, matchID int64) error {
	if _, err := t.c.exec(ctx, `DELETE FROM matches WHERE id = ?`, matchID); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	return nil
}

func fileWhere(ctx context.Context, c conn, where string, arg any) (*File, error) {
	row := c.queryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE `+where, arg)
	f, err := scanFile(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

func matchWhere(ctx context.Context, c conn, where string, arg any) (*Match, error) {
	row := c.queryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE `+where, arg)
	m, err := scanMatch(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

func filesForMatch(ctx context.Context, c conn, matchID int64) ([]File, error) {
	rows, err := c.query(ctx, `SELECT `+fileColumns+` FROM files WHERE match_id = ? ORDER BY id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list match files: %w", err)
	}
	defer rows.Close()
	var files []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}
