package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "modernc.org/sqlite"

	"recbase/internal/config"
	"recbase/internal/services"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) rebind(query string) string {
	if d == dialectPostgres {
		return rebindDollar(query)
	}
	return query
}

func (d dialect) String() string {
	if d == dialectPostgres {
		return config.StoreDriverPostgres
	}
	return config.StoreDriverSQLite
}

const sqliteParams = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate"

// Store manages catalog persistence.
type Store struct {
	db         *sql.DB
	dialect    dialect
	location   string
	migrations *migrate.Migrate

	retryAttempts int
	retryInitial  time.Duration
	retryMax      time.Duration
}

// Open connects to the configured database and applies pending migrations.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, services.StagePersist, "open", "nil config", nil)
	}

	store := &Store{
		retryAttempts: cfg.Store.RetryAttempts,
	}
	store.retryInitial, store.retryMax = cfg.RetryBackoff()

	var err error
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		store.dialect = dialectPostgres
		store.location = redactDSN(cfg.Store.DSN)
		store.db, err = sql.Open("postgres", cfg.Store.DSN)
	default:
		store.dialect = dialectSQLite
		store.location = cfg.Store.DSN
		store.db, err = openSQLite(cfg.Store.DSN)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, services.StagePersist, "open", store.location, err)
	}

	ctx := context.Background()
	if err := store.retry(ctx, func() error { return store.db.PingContext(ctx) }); err != nil {
		_ = store.db.Close()
		return nil, services.Wrap(services.ErrStorageUnavailable, services.StagePersist, "ping", store.location, err)
	}

	if err := store.migrateUp(); err != nil {
		_ = store.db.Close()
		return nil, err
	}
	return store, nil
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := path + "?" + sqliteParams
	if path == ":memory:" {
		dsn = "file::memory:?" + sqliteParams
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func redactDSN(dsn string) string {
	if at := strings.LastIndex(dsn, "@"); at >= 0 {
		if scheme := strings.Index(dsn, "://"); scheme >= 0 && scheme < at {
			return dsn[:scheme+3] + "***" + dsn[at:]
		}
	}
	return dsn
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver reports the active dialect name.
func (s *Store) Driver() string {
	return s.dialect.String()
}

// Location reports the database path or redacted DSN.
func (s *Store) Location() string {
	return s.location
}

func (s *Store) conn() conn {
	return conn{q: s.db, dialect: s.dialect}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// retry runs op until it succeeds, fails permanently, or the attempt budget
// for transient failures is spent.
func (s *Store) retry(ctx context.Context, op func() error) error {
	attempts := s.retryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := s.retryInitial
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) || attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= s.retryMax {
			delay = next
		}
	}
	if isTransient(lastErr) {
		return services.Wrap(services.ErrStorageUnavailable, services.StagePersist, "retry", fmt.Sprintf("gave up after %d attempts", attempts), fmt.Errorf("%w: %w", errRetriesSpent, lastErr))
	}
	return lastErr
}

func (s *Store) txOptions() *sql.TxOptions {
	if s.dialect == dialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}

// WithTx runs fn inside a write transaction. Transient failures of either fn
// or the commit restart the whole transaction.
func (s *Store) WithTx(ctx context.Context, fn func(Tx) error) error {
	return s.inTx(ctx, func(t *sqlTx) error { return fn(t) })
}

func (s *Store) inTx(ctx context.Context, fn func(*sqlTx) error) error {
	ctx = ensureContext(ctx)
	return s.retry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, s.txOptions())
		if err != nil {
			return err
		}
		if err := fn(&sqlTx{c: conn{q: tx, dialect: s.dialect}}); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func (s *Store) readRow(ctx context.Context, op func(c conn) error) error {
	ctx = ensureContext(ctx)
	c := s.conn()
	return s.retry(ctx, func() error { return op(c) })
}

func notFound(kind string, id int64) error {
	return services.Wrap(services.ErrNotFound, "", kind, fmt.Sprintf("%s %d does not exist", kind, id), nil)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
