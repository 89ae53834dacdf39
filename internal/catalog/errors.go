package catalog

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/lib/pq"

	"recbase/internal/services"
)

// ErrDuplicateFile reports that a file with the same content hash was
// committed concurrently.
var ErrDuplicateFile = errors.New("duplicate file hash")

// errRetriesSpent tags a failure whose retry budget is already used up so an
// enclosing retry loop does not start over.
var errRetriesSpent = errors.New("retries spent")

const (
	sqliteBusyCode   = 5
	sqliteLockedCode = 6
)

type coder interface{ Code() int }

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var c coder
	if errors.As(err, &c) {
		// extended codes keep the primary code in the low byte
		switch c.Code() & 0xff {
		case sqliteBusyCode, sqliteLockedCode:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func postgresCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// isTransient reports whether err is worth retrying the whole operation for.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, errRetriesSpent) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if isSQLiteBusy(err) || services.Retryable(err) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	// dial failures, refused connections and timeouts
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	switch code := postgresCode(err); {
	case code == "40001", code == "40P01":
		return true
	case code != "" && code.Class() == "08":
		return true
	}
	return false
}

// uniqueViolation returns "table.column" for a unique constraint failure, or
// the empty string.
func uniqueViolation(err error) string {
	if err == nil {
		return ""
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code != "23505" {
			return ""
		}
		switch pqErr.Constraint {
		case "matches_fingerprint_key":
			return "matches.fingerprint"
		case "files_hash_key":
			return "files.hash"
		case "series_slug_key":
			return "series.slug"
		}
		return pqErr.Table
	}
	msg := err.Error()
	const marker = "UNIQUE constraint failed: "
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return ""
	}
	rest := msg[idx+len(marker):]
	if end := strings.IndexAny(rest, " ,)"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
