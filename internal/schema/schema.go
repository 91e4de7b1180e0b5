// Package schema declares the fixed table layout of an item's property
// database. The declarations drive CREATE TABLE statements, additive
// migrations, codec dispatch, and the column list of the pseudo-upsert.
// The registry is immutable and safe to share without locking.
package schema

import (
	"fmt"
	"strings"

	"github.com/shotline/propstore/pkg/types"
)

// Table names.
const (
	ItemInfoTable  = "ItemInfo"
	ContainerTable = "ContainerData"
	EntryTable     = "EntryData"
)

// StorageType is the physical SQLite column affinity.
type StorageType int

const (
	StorageText StorageType = iota
	StorageInteger
	StorageReal
)

// SemanticType governs how values are encoded and decoded. The storage form
// of Text and StructuredMap is base64 text; Integer and Float are stored as
// plain decimal text in their declared affinity.
type SemanticType int

const (
	Text SemanticType = iota
	Integer
	Float
	StructuredMap
)

func (s SemanticType) String() string {
	switch s {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case StructuredMap:
		return "map"
	}
	return "unknown"
}

// Column is one declared column of a table.
type Column struct {
	Name     string
	Storage  StorageType
	Semantic SemanticType
	// Constraint is appended verbatim to the column declaration.
	Constraint string
}

// Table is an ordered set of column declarations. The id column is always
// first and is the case-insensitively collated primary key.
type Table struct {
	Name    string
	Columns []Column
}

func idColumn() Column {
	return Column{Name: "id", Storage: StorageText, Semantic: Text,
		Constraint: "PRIMARY KEY COLLATE NOCASE"}
}

// tables is the full registry. Column sets are fixed at compile time; rows
// never carry columns outside these declarations.
var tables = []Table{
	{
		Name: ItemInfoTable,
		Columns: []Column{
			idColumn(),
			{Name: "server", Storage: StorageText, Semantic: Text},
			{Name: "job", Storage: StorageText, Semantic: Text},
			{Name: "root", Storage: StorageText, Semantic: Text},
			{Name: "user", Storage: StorageText, Semantic: Text},
			{Name: "host", Storage: StorageText, Semantic: Text},
			{Name: "created", Storage: StorageReal, Semantic: Float},
		},
	},
	{
		Name: ContainerTable,
		Columns: []Column{
			idColumn(),
			{Name: "description", Storage: StorageText, Semantic: Text},
			{Name: "width", Storage: StorageInteger, Semantic: Integer},
			{Name: "height", Storage: StorageInteger, Semantic: Integer},
			{Name: "framerate", Storage: StorageReal, Semantic: Float},
			{Name: "prefix", Storage: StorageText, Semantic: Text},
			{Name: "identifier", Storage: StorageText, Semantic: Text},
			{Name: "startframe", Storage: StorageInteger, Semantic: Integer},
			{Name: "duration", Storage: StorageInteger, Semantic: Integer},
			{Name: "tracker_domain", Storage: StorageText, Semantic: Text},
			{Name: "tracker_script", Storage: StorageText, Semantic: Text},
			{Name: "tracker_api_key", Storage: StorageText, Semantic: Text},
			{Name: "url1", Storage: StorageText, Semantic: Text},
			{Name: "url2", Storage: StorageText, Semantic: Text},
			{Name: "config_file_format", Storage: StorageText, Semantic: StructuredMap},
			{Name: "config_scene_names", Storage: StorageText, Semantic: StructuredMap},
			{Name: "config_publish", Storage: StorageText, Semantic: StructuredMap},
			{Name: "config_tasks", Storage: StorageText, Semantic: StructuredMap},
			{Name: "config_burnin", Storage: StorageText, Semantic: StructuredMap},
			{Name: "applications", Storage: StorageText, Semantic: StructuredMap},
		},
	},
	{
		Name: EntryTable,
		Columns: []Column{
			idColumn(),
			{Name: "description", Storage: StorageText, Semantic: Text},
			{Name: "notes", Storage: StorageText, Semantic: StructuredMap},
			{Name: "flags", Storage: StorageInteger, Semantic: Integer, Constraint: "DEFAULT 0"},
			{Name: "cut_in", Storage: StorageInteger, Semantic: Integer},
			{Name: "cut_out", Storage: StorageInteger, Semantic: Integer},
			{Name: "cut_duration", Storage: StorageInteger, Semantic: Integer},
			{Name: "framerate", Storage: StorageReal, Semantic: Float},
			{Name: "width", Storage: StorageInteger, Semantic: Integer},
			{Name: "height", Storage: StorageInteger, Semantic: Integer},
			{Name: "url1", Storage: StorageText, Semantic: Text},
			{Name: "url2", Storage: StorageText, Semantic: Text},
			{Name: "progress", Storage: StorageText, Semantic: StructuredMap},
		},
	},
}

// byName indexes the registry for lookups.
var byName = func() map[string]map[string]Column {
	m := make(map[string]map[string]Column, len(tables))
	for _, t := range tables {
		cols := make(map[string]Column, len(t.Columns))
		for _, c := range t.Columns {
			cols[c.Name] = c
		}
		m[t.Name] = cols
	}
	return m
}()

// Tables returns every declared table in registry order.
func Tables() []Table {
	return tables
}

// TableNames lists the declared table names for enumeration.
func TableNames() []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

// Lookup returns the declaration of a single column. It returns
// types.ErrUnknownTable or types.ErrUnknownColumn on a miss.
func Lookup(table, column string) (Column, error) {
	cols, ok := byName[table]
	if !ok {
		return Column{}, fmt.Errorf("%w: %s", types.ErrUnknownTable, table)
	}
	c, ok := cols[column]
	if !ok {
		return Column{}, fmt.Errorf("%w: %s.%s", types.ErrUnknownColumn, table, column)
	}
	return c, nil
}

// Columns returns the ordered column names of a table, id first.
func Columns(table string) ([]string, error) {
	for _, t := range tables {
		if t.Name != table {
			continue
		}
		names := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			names[i] = c.Name
		}
		return names, nil
	}
	return nil, fmt.Errorf("%w: %s", types.ErrUnknownTable, table)
}

func (s StorageType) sql() string {
	switch s {
	case StorageInteger:
		return "INTEGER"
	case StorageReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// DeclarationSQL renders the column's piece of a CREATE TABLE or
// ALTER TABLE statement.
func (c Column) DeclarationSQL() string {
	if c.Constraint != "" {
		return fmt.Sprintf("%s %s %s", c.Name, c.Storage.sql(), c.Constraint)
	}
	return fmt.Sprintf("%s %s", c.Name, c.Storage.sql())
}

// CreateTableSQL builds the idempotent CREATE TABLE statement for a table.
func CreateTableSQL(table string) (string, error) {
	for _, t := range tables {
		if t.Name != table {
			continue
		}
		decls := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			decls[i] = c.DeclarationSQL()
		}
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
			t.Name, strings.Join(decls, ", ")), nil
	}
	return "", fmt.Errorf("%w: %s", types.ErrUnknownTable, table)
}

// AddColumnSQL builds the additive migration statement for one column.
func AddColumnSQL(table string, c Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, c.DeclarationSQL())
}
