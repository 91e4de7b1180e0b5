package store

import (
	"database/sql"
	"fmt"
	"strings"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/shotline/propstore/internal/codec"
	"github.com/shotline/propstore/internal/schema"
)

// initSchema brings the live database up to the registry's declarations:
// every table created if absent, every missing column ALTER-added (columns
// are never dropped or renamed), and the ItemInfo row inserted exactly
// once. The whole pass runs in one transaction and is retried as a unit on
// lock contention; exhausting the budget rolls back and fails the store.
func (s *Store) initSchema() error {
	return retry.Do(func() error {
		err := s.initSchemaOnce()
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return err
		}
		return retry.Unrecoverable(err)
	}, s.retryOpts()...)
}

func (s *Store) initSchemaOnce() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, t := range schema.Tables() {
		if err := createTable(tx, t); err != nil {
			return err
		}
		if err := patchTable(tx, t); err != nil {
			return err
		}
	}
	if err := s.insertInfoRow(tx); err != nil {
		return err
	}
	if err := tx.QueryRow("SELECT sqlite_version()").Scan(&s.engine); err != nil {
		return fmt.Errorf("engine version: %w", err)
	}
	return tx.Commit()
}

func createTable(tx *sql.Tx, t schema.Table) error {
	stmt, err := schema.CreateTableSQL(t.Name)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("creating %s: %w", t.Name, err)
	}
	idx := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s_id_idx ON %s (id)", t.Name, t.Name)
	if _, err := tx.Exec(idx); err != nil {
		return fmt.Errorf("indexing %s: %w", t.Name, err)
	}
	return nil
}

// patchTable diffs the live columns against the registry and adds whatever
// is missing. Migration is strictly additive; existing cells are untouched.
func patchTable(tx *sql.Tx, t schema.Table) error {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%q)", t.Name))
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", t.Name, err)
	}
	live := map[string]bool{}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("inspecting %s: %w", t.Name, err)
		}
		live[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspecting %s: %w", t.Name, err)
	}

	for _, c := range t.Columns {
		if live[c.Name] {
			continue
		}
		if _, err := tx.Exec(schema.AddColumnSQL(t.Name, c)); err != nil {
			return fmt.Errorf("adding %s.%s: %w", t.Name, c.Name, err)
		}
		log.Info().Str("table", t.Name).Str("column", c.Name).
			Msg("added missing column")
	}
	return nil
}

// insertInfoRow writes the store's identity row if absent. The row is
// immutable: insert-if-absent only, never updated. The id cell carries the
// hash verbatim; every other cell goes through the codec like any stored
// value.
func (s *Store) insertInfoRow(tx *sql.Tx) error {
	info := s.infoRow()
	names, err := schema.Columns(schema.ItemInfoTable)
	if err != nil {
		return err
	}
	placeholders := make([]string, len(names))
	params := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = "?"
		if name == "id" {
			params[i] = info[name]
			continue
		}
		col, err := schema.Lookup(schema.ItemInfoTable, name)
		if err != nil {
			return err
		}
		encoded, err := codec.Encode(col, info[name])
		if err != nil {
			return fmt.Errorf("encoding item info %s: %w", name, err)
		}
		params[i] = encoded
	}
	stmt := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		schema.ItemInfoTable, strings.Join(names, ", "), strings.Join(placeholders, ", "))
	if _, err := tx.Exec(stmt, params...); err != nil {
		return fmt.Errorf("inserting item info: %w", err)
	}
	return nil
}
