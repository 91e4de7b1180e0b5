// Package store owns the SQLite database of a single item and the
// process-wide services layered on it: the connection registry, the change
// notifier, and the snapshot clipboard.
//
// An item is a server/job/root triple. Its database file lives at
// <server>/<job>/<root>/<cacheDir>/<dbFile>. Rows are keyed by the hash of
// a path-like source identifier; values are encoded per the schema
// registry's semantic types.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/user"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shotline/propstore/internal/codec"
	"github.com/shotline/propstore/internal/ident"
	"github.com/shotline/propstore/internal/schema"
	"github.com/shotline/propstore/pkg/types"
)

// Store is the controller for one item's database. A Store owns exactly one
// engine connection and must not be shared across execution contexts; the
// Registry hands each context its own instance.
type Store struct {
	cfg    types.Config
	server string
	job    string
	root   string

	item     string // canonical server/job/root identifier
	cacheDir string
	dbPath   string

	notifier *Notifier

	mu     sync.Mutex
	db     *sql.DB
	valid  bool // connected to the on-disk file, persisting
	memory bool // running on the ephemeral fallback
	closed bool
	engine string // engine version, recorded at init
}

// New opens (or creates) the store for an item. When the cache directory
// cannot be ensured, or the file stays locked past the configured retry
// budget, the store falls back to an ephemeral in-memory database: fully
// functional, not persisted, Valid() == false. Schema initialization
// failure is fatal and returns a types.ErrSchemaInit-wrapped error.
func New(server, job, root string, cfg types.Config, notifier *Notifier) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if server == "" || job == "" || root == "" {
		return nil, fmt.Errorf("store: empty item segment in %q/%q/%q", server, job, root)
	}

	item := ident.Normalize(server + "/" + job + "/" + root)
	s := &Store{
		cfg:      cfg,
		server:   server,
		job:      job,
		root:     root,
		item:     item,
		cacheDir: item + "/" + cfg.CacheDirName,
		notifier: notifier,
	}
	s.dbPath = s.cacheDir + "/" + cfg.DatabaseFile

	if err := s.ensureCacheDir(); err != nil {
		log.Error().Err(err).Str("item", item).
			Msg("cache directory unavailable, using in-memory store")
		s.openMemory()
	} else if err := s.connect(); err != nil {
		return nil, err
	}

	if err := s.initSchema(); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("%w: %s: %v", types.ErrSchemaInit, item, err)
	}
	return s, nil
}

// ensureCacheDir creates the item's cache directory. The item root itself
// must already exist; a missing root means the mount is gone and creating
// it would write data to the wrong place.
func (s *Store) ensureCacheDir() error {
	if _, err := os.Stat(s.item); err != nil {
		return fmt.Errorf("item root: %w", err)
	}
	return os.MkdirAll(s.cacheDir, 0o755)
}

// Valid reports whether the store persists to its on-disk file. The
// in-memory fallback keeps every operation working but reports false.
func (s *Store) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid && !s.memory && !s.closed
}

// Source joins path segments under the item root, yielding a source
// identifier addressable in EntryData. With no arguments it returns the
// item identifier itself.
func (s *Store) Source(parts ...string) string {
	if len(parts) == 0 {
		return s.item
	}
	return s.item + "/" + strings.Join(parts, "/")
}

// EngineVersion returns the SQLite version string recorded at init.
func (s *Store) EngineVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// Close commits pending work and releases the connection. Subsequent calls
// are no-ops, and subsequent operations return types.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		log.Error().Err(err).Str("item", s.item).Msg("closing store failed")
	}
	return err
}

// Value reads one column for a source identifier. An unset column, an
// absent row, and an undecodable cell all yield nil. The only errors are
// schema misses and a closed store.
func (s *Store) Value(source, column, table string) (any, error) {
	col, err := schema.Lookup(table, column)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.ErrStoreClosed
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", column, table)
	var stored sql.NullString
	err = s.withRetry(func() error {
		return s.db.QueryRow(query, ident.Hash(source)).Scan(&stored)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Str("table", table).Str("column", column).
			Msg("reading value failed")
		return nil, nil
	}
	return codec.Decode(col, stored), nil
}

// SetValue writes one column for a source identifier, creating the row on
// first write. The write is a single pseudo-upsert statement (sibling
// columns survive via correlated subqueries), and the change notifier
// fires once the statement has been applied.
func (s *Store) SetValue(source, column string, value any, table string) error {
	col, err := schema.Lookup(table, column)
	if err != nil {
		return err
	}
	if column == "id" {
		return fmt.Errorf("%w: id is derived, not writable", types.ErrUnknownColumn)
	}
	encoded, err := codec.Encode(col, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.ErrStoreClosed
	}

	query, params, err := upsertSQL(table, column, ident.Hash(source), encoded)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	err = s.withRetry(func() error {
		_, execErr := s.db.Exec(query, params...)
		return execErr
	})
	s.mu.Unlock()
	if err != nil {
		log.Error().Err(err).Str("table", table).Str("column", column).
			Msg("writing value failed")
		return nil
	}

	if s.notifier != nil {
		s.notifier.publish(types.Event{
			Table:  table,
			Source: source,
			Column: column,
			Value:  codec.Decode(col, encoded),
		})
	}
	return nil
}

// upsertSQL builds the insert-or-replace statement for a single-column
// write. The engine has no partial-row upsert, so the statement rebuilds
// the whole row: the target column gets the new literal, every other
// column a correlated subquery that carries the committed value forward.
func upsertSQL(table, column, hash string, encoded sql.NullString) (string, []any, error) {
	names, err := schema.Columns(table)
	if err != nil {
		return "", nil, err
	}
	values := make([]string, 0, len(names))
	params := make([]any, 0, len(names)+1)
	for _, name := range names {
		switch name {
		case "id":
			values = append(values, "?")
			params = append(params, hash)
		case column:
			if encoded.Valid {
				values = append(values, "?")
				params = append(params, encoded.String)
			} else {
				values = append(values, "NULL")
			}
		default:
			values = append(values, fmt.Sprintf("(SELECT %s FROM %s WHERE id = ?)", name, table))
			params = append(params, hash)
		}
	}
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(values, ", "))
	if strings.Count(query, "?") != len(params) {
		return "", nil, fmt.Errorf("store: placeholder count mismatch in upsert for %s.%s", table, column)
	}
	return query, params, nil
}

// Row reads every non-id column for a source identifier into a
// PropertySet. Absent rows yield a set with every column nil.
func (s *Store) Row(source, table string) (types.PropertySet, error) {
	t, err := tableSpec(table)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.ErrStoreClosed
	}

	set := make(types.PropertySet, len(t.Columns)-1)
	for _, c := range t.Columns {
		if c.Name != "id" {
			set[c.Name] = nil
		}
	}

	names, _ := schema.Columns(table)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(names, ", "), table)
	stored := make([]sql.NullString, len(names))
	dest := make([]any, len(names))
	for i := range stored {
		dest[i] = &stored[i]
	}
	err = s.withRetry(func() error {
		return s.db.QueryRow(query, ident.Hash(source)).Scan(dest...)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return set, nil
	}
	if err != nil {
		log.Error().Err(err).Str("table", table).Msg("reading row failed")
		return set, nil
	}

	for i, name := range names {
		if name == "id" {
			continue
		}
		col, _ := schema.Lookup(table, name)
		set[name] = codec.Decode(col, stored[i])
	}
	return set, nil
}

// Rows reads every row of a table, decoded, keyed by nothing: the id hash
// is not reversible, so rows come back as bare property sets.
func (s *Store) Rows(table string) ([]types.PropertySet, error) {
	if _, err := tableSpec(table); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.ErrStoreClosed
	}

	names, _ := schema.Columns(table)
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), table)
	rows, err := s.db.Query(query)
	if err != nil {
		log.Error().Err(err).Str("table", table).Msg("reading rows failed")
		return nil, nil
	}
	defer rows.Close()

	var out []types.PropertySet
	for rows.Next() {
		stored := make([]sql.NullString, len(names))
		dest := make([]any, len(names))
		for i := range stored {
			dest[i] = &stored[i]
		}
		if err := rows.Scan(dest...); err != nil {
			log.Error().Err(err).Str("table", table).Msg("scanning row failed")
			return out, nil
		}
		set := make(types.PropertySet, len(names)-1)
		for i, name := range names {
			if name == "id" {
				continue
			}
			col, _ := schema.Lookup(table, name)
			set[name] = codec.Decode(col, stored[i])
		}
		out = append(out, set)
	}
	return out, rows.Err()
}

// ColumnValues reads one column across every row of a table.
func (s *Store) ColumnValues(column, table string) ([]any, error) {
	col, err := schema.Lookup(table, column)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.ErrStoreClosed
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT %s FROM %s", column, table))
	if err != nil {
		log.Error().Err(err).Str("table", table).Str("column", column).
			Msg("reading column failed")
		return nil, nil
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var stored sql.NullString
		if err := rows.Scan(&stored); err != nil {
			log.Error().Err(err).Str("column", column).Msg("scanning column failed")
			return out, nil
		}
		out = append(out, codec.Decode(col, stored))
	}
	return out, rows.Err()
}

// DeleteRow removes a source identifier's row. Reads of the source yield
// nil afterwards, as if never written.
func (s *Store) DeleteRow(source, table string) error {
	if _, err := tableSpec(table); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ErrStoreClosed
	}

	return s.withRetry(func() error {
		_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), ident.Hash(source))
		return err
	})
}

// SetFlag sets or clears one bit of the flags bitmask on an EntryData row.
func (s *Store) SetFlag(source string, flag int64, on bool) error {
	v, err := s.Value(source, "flags", schema.EntryTable)
	if err != nil {
		return err
	}
	cur, _ := v.(int64)
	if on {
		cur |= flag
	} else {
		cur &^= flag
	}
	return s.SetValue(source, "flags", cur, schema.EntryTable)
}

// ItemInfo reads the store's identity row.
func (s *Store) ItemInfo() (types.PropertySet, error) {
	return s.Row(s.item, schema.ItemInfoTable)
}

func tableSpec(table string) (schema.Table, error) {
	for _, t := range schema.Tables() {
		if t.Name == table {
			return t, nil
		}
	}
	return schema.Table{}, fmt.Errorf("%w: %s", types.ErrUnknownTable, table)
}

// infoRow assembles the immutable ItemInfo values for this store. Values
// are semantic; the statement builder encodes them.
func (s *Store) infoRow() map[string]any {
	username := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return map[string]any{
		"id":      ident.Hash(s.item),
		"server":  s.server,
		"job":     s.job,
		"root":    s.root,
		"user":    username,
		"host":    host,
		"created": float64(time.Now().UnixMicro()) / 1e6,
	}
}

// sortedKeys returns map keys in stable order for deterministic statement
// generation and event sequences.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
