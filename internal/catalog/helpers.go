package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn binds a querier to the placeholder style of its dialect.
type conn struct {
	q       querier
	dialect dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.dialect.rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.dialect.rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.dialect.rebind(query), args...)
}

type scanner interface{ Scan(dest ...any) error }

const matchColumns = "id, fingerprint, series_id, map_id, map_seed, map_name, version, ruleset, played_at, duration_ms, platform_id, platform_match_id, created_at"

func scanMatch(row scanner) (*Match, error) {
	var (
		m               Match
		seriesID        sql.NullInt64
		mapName         sql.NullString
		ruleset         sql.NullString
		playedRaw       sql.NullString
		durationMS      int64
		platformID      sql.NullString
		platformMatchID sql.NullString
		createdRaw      string
	)
	if err := row.Scan(
		&m.ID,
		&m.Fingerprint,
		&seriesID,
		&m.MapID,
		&m.MapSeed,
		&mapName,
		&m.Version,
		&ruleset,
		&playedRaw,
		&durationMS,
		&platformID,
		&platformMatchID,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	m.SeriesID = seriesID.Int64
	m.MapName = mapName.String
	m.Ruleset = ruleset.String
	m.Duration = time.Duration(durationMS) * time.Millisecond
	m.PlatformID = platformID.String
	m.PlatformMatchID = platformMatchID.String
	if played, err := parseTimeString(playedRaw.String); err == nil {
		m.PlayedAt = played
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		m.CreatedAt = created
	}
	return &m, nil
}

const fileColumns = "id, match_id, hash, fingerprint, blob_key, original_filename, size, stored_size, recorder_number, recorder_name, duration_ms, incomplete, source, reference, parser_version, header_json, added_at"

func scanFile(row scanner) (*File, error) {
	var (
		f             File
		recorderName  sql.NullString
		durationMS    int64
		incomplete    int64
		reference     sql.NullString
		parserVersion sql.NullString
		headerJSON    sql.NullString
		addedRaw      string
	)
	if err := row.Scan(
		&f.ID,
		&f.MatchID,
		&f.Hash,
		&f.Fingerprint,
		&f.BlobKey,
		&f.OriginalFilename,
		&f.Size,
		&f.StoredSize,
		&f.RecorderNumber,
		&recorderName,
		&durationMS,
		&incomplete,
		&f.Source,
		&reference,
		&parserVersion,
		&headerJSON,
		&addedRaw,
	); err != nil {
		return nil, err
	}
	f.RecorderName = recorderName.String
	f.Duration = time.Duration(durationMS) * time.Millisecond
	f.Incomplete = incomplete != 0
	f.Reference = reference.String
	f.ParserVersion = parserVersion.String
	f.HeaderJSON = headerJSON.String
	if added, err := parseTimeString(addedRaw); err == nil {
		f.AddedAt = added
	}
	return &f, nil
}

const seriesColumns = "s.id, s.name, s.slug, s.tournament, s.created_at, (SELECT COUNT(1) FROM matches m WHERE m.series_id = s.id)"

func scanSeries(row scanner) (*Series, error) {
	var (
		s          Series
		tournament sql.NullString
		createdRaw string
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Slug, &tournament, &createdRaw, &s.MatchCount); err != nil {
		return nil, err
	}
	s.Tournament = tournament.String
	if created, err := parseTimeString(createdRaw); err == nil {
		s.CreatedAt = created
	}
	return &s, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableID(value int64) any {
	if value <= 0 {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// rebindDollar rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func rebindDollar(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
