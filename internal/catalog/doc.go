// Package catalog persists matches, files, players, series, and tags.
//
// Store wraps a database/sql handle for either SQLite (modernc.org/sqlite,
// the default) or PostgreSQL (lib/pq). Schema changes are applied with
// golang-migrate from embedded per-dialect migrations when the store opens.
//
// Write paths run through WithTx, which opens a write transaction
// (BEGIN IMMEDIATE on SQLite, SERIALIZABLE on PostgreSQL) and retries busy or
// serialization failures with exponential backoff before surfacing
// services.ErrStorageUnavailable. Unique constraints on matches.fingerprint and
// files.hash back the find-or-create logic in the resolver: violations are
// reported as services.ErrFingerprintRace and ErrDuplicateFile.
//
// Queries are written once with ? placeholders and rebound for PostgreSQL.
// Timestamps are stored as RFC3339Nano text in both dialects.
package catalog
