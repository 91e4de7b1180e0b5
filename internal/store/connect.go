package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// retryOpts builds the shared backoff policy for connect, schema init, and
// statement-level lock contention.
func (s *Store) retryOpts() []retry.Option {
	return []retry.Option{
		retry.Attempts(s.cfg.ConnectAttempts),
		retry.Delay(s.cfg.RetryBaseDelay),
		retry.MaxDelay(s.cfg.RetryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Uint("attempt", n+1).Err(err).Str("item", s.item).
				Msg("database locked, retrying")
		}),
	}
}

// connect opens the on-disk database with bounded retry. Transient lock
// errors are retried; exhausting the budget degrades to the in-memory
// fallback. Non-transient open errors abort immediately.
func (s *Store) connect() error {
	err := retry.Do(func() error {
		db, openErr := open(s.dbPath, s.cfg.BusyTimeout.Milliseconds())
		if openErr != nil {
			if isTransient(openErr) {
				return openErr
			}
			return retry.Unrecoverable(openErr)
		}
		s.db = db
		return nil
	}, s.retryOpts()...)

	if err == nil {
		s.valid = true
		return nil
	}
	if !isTransient(err) {
		return fmt.Errorf("store: opening %s: %w", s.dbPath, err)
	}
	log.Error().Err(err).Str("path", s.dbPath).
		Msg("connect retries exhausted, using in-memory store")
	s.openMemory()
	return nil
}

// openMemory switches the store to an ephemeral database. Everything keeps
// working for the life of the process; nothing persists and Valid reports
// false.
func (s *Store) openMemory() {
	db, err := open(":memory:", 0)
	if err != nil {
		// The in-process engine cannot fail to create a memory database
		// with well-formed arguments.
		panic(fmt.Sprintf("store: opening in-memory database: %v", err))
	}
	s.db = db
	s.valid = false
	s.memory = true
}

// open dials the engine and pins the pool to a single connection: one
// controller, one connection, the engine's file locking arbitrates the
// rest.
func open(path string, busyMillis int64) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if busyMillis > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyMillis)); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// withRetry runs one statement under the backoff policy, retrying only
// lock contention. Any other failure surfaces on the first attempt.
func (s *Store) withRetry(op func() error) error {
	return retry.Do(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return err
		}
		return retry.Unrecoverable(err)
	}, s.retryOpts()...)
}

// isTransient reports whether the engine is signalling lock or busy
// contention, the one failure class worth waiting out.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
