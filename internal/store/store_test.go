package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shotline/propstore/internal/schema"
	"github.com/shotline/propstore/pkg/types"
)

// newTestItem lays out an item root on disk and returns its segments.
func newTestItem(t *testing.T) (server, job, root string) {
	t.Helper()
	server = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(server, "job", "root"), 0o755))
	return server, "job", "root"
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	server, job, root := newTestItem(t)
	st, err := New(server, job, root, types.DefaultConfig(), NewNotifier())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestNewCreatesDatabaseFile(t *testing.T) {
	st := newTestStore(t)
	assert.True(t, st.Valid())

	cfg := types.DefaultConfig()
	dbPath := filepath.Join(st.Source(), cfg.CacheDirName, cfg.DatabaseFile)
	_, err := os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist on disk")
	assert.NotEmpty(t, st.EngineVersion())
}

func TestRoundTripPerSemanticType(t *testing.T) {
	st := newTestStore(t)
	source := st.Source("sh0010", "comp.ma")

	tests := []struct {
		table  string
		column string
		in     any
		want   any
	}{
		{schema.ContainerTable, "description", "the pilot episode", "the pilot episode"},
		{schema.ContainerTable, "width", 1920, int64(1920)},
		{schema.ContainerTable, "framerate", 23.976, 23.976},
		{schema.ContainerTable, "config_tasks",
			map[string]any{"comp": "Compositing", "anim": "Animation"},
			map[string]any{"comp": "Compositing", "anim": "Animation"}},
		{schema.EntryTable, "notes", map[string]any{"0": "fix the flicker"},
			map[string]any{"0": "fix the flicker"}},
		{schema.EntryTable, "cut_in", int64(1001), int64(1001)},
	}
	for _, tt := range tests {
		t.Run(tt.table+"."+tt.column, func(t *testing.T) {
			require.NoError(t, st.SetValue(source, tt.column, tt.in, tt.table))
			got, err := st.Value(source, tt.column, tt.table)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnsetReadsNil(t *testing.T) {
	st := newTestStore(t)
	source := st.Source("never", "written")

	for _, table := range []string{schema.ContainerTable, schema.EntryTable} {
		names, err := schema.Columns(table)
		require.NoError(t, err)
		for _, column := range names {
			if column == "id" {
				continue
			}
			got, err := st.Value(source, column, table)
			require.NoError(t, err)
			assert.Nil(t, got, "%s.%s should read as unset", table, column)
		}
	}
}

func TestUpsertPreservesSiblings(t *testing.T) {
	st := newTestStore(t)
	source := st.Source()

	require.NoError(t, st.SetValue(source, "prefix", "MYB", schema.ContainerTable))
	require.NoError(t, st.SetValue(source, "width", 1920, schema.ContainerTable))
	require.NoError(t, st.SetValue(source, "height", 1080, schema.ContainerTable))

	prefix, err := st.Value(source, "prefix", schema.ContainerTable)
	require.NoError(t, err)
	assert.Equal(t, "MYB", prefix)

	width, err := st.Value(source, "width", schema.ContainerTable)
	require.NoError(t, err)
	assert.Equal(t, int64(1920), width)
}

func TestOverwriteValue(t *testing.T) {
	st := newTestStore(t)
	source := st.Source()

	require.NoError(t, st.SetValue(source, "description", "first", schema.ContainerTable))
	require.NoError(t, st.SetValue(source, "description", "second", schema.ContainerTable))

	got, err := st.Value(source, "description", schema.ContainerTable)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestSetNilClearsValue(t *testing.T) {
	st := newTestStore(t)
	source := st.Source()

	require.NoError(t, st.SetValue(source, "description", "temp", schema.ContainerTable))
	require.NoError(t, st.SetValue(source, "description", nil, schema.ContainerTable))

	got, err := st.Value(source, "description", schema.ContainerTable)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnknownColumnAndTable(t *testing.T) {
	st := newTestStore(t)
	source := st.Source()

	for _, table := range schema.TableNames() {
		_, err := st.Value(source, "bogus", table)
		assert.ErrorIs(t, err, types.ErrUnknownColumn, "get on %s", table)
		err = st.SetValue(source, "bogus", "x", table)
		assert.ErrorIs(t, err, types.ErrUnknownColumn, "set on %s", table)
	}

	_, err := st.Value(source, "width", "NoSuchTable")
	assert.ErrorIs(t, err, types.ErrUnknownTable)

	err = st.SetValue(source, "id", "forged", schema.ContainerTable)
	assert.ErrorIs(t, err, types.ErrUnknownColumn, "id must not be writable")
}

func TestTypeMismatch(t *testing.T) {
	st := newTestStore(t)
	source := st.Source()

	err := st.SetValue(source, "width", "wide", schema.ContainerTable)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	err = st.SetValue(source, "description", 7, schema.ContainerTable)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	err = st.SetValue(source, "notes", "free text", schema.EntryTable)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestRow(t *testing.T) {
	st := newTestStore(t)
	source := st.Source("sh0020")

	require.NoError(t, st.SetValue(source, "description", "plate", schema.EntryTable))
	require.NoError(t, st.SetValue(source, "cut_in", 1001, schema.EntryTable))

	row, err := st.Row(source, schema.EntryTable)
	require.NoError(t, err)
	assert.Equal(t, "plate", row["description"])
	assert.Equal(t, int64(1001), row["cut_in"])
	assert.Nil(t, row["cut_out"])
	assert.NotContains(t, row, "id")

	// Absent rows come back with every column unset, not an error.
	empty, err := st.Row(st.Source("absent"), schema.EntryTable)
	require.NoError(t, err)
	names, _ := schema.Columns(schema.EntryTable)
	assert.Len(t, empty, len(names)-1)
	for column, v := range empty {
		assert.Nil(t, v, "column %s", column)
	}
}

func TestRowsAndColumnValues(t *testing.T) {
	st := newTestStore(t)

	for i, name := range []string{"sh0010", "sh0020", "sh0030"} {
		require.NoError(t, st.SetValue(st.Source(name), "cut_in", 1000+i, schema.EntryTable))
	}

	rows, err := st.Rows(schema.EntryTable)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	values, err := st.ColumnValues("cut_in", schema.EntryTable)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{int64(1000), int64(1001), int64(1002)}, values)
}

func TestDeleteRow(t *testing.T) {
	st := newTestStore(t)
	source := st.Source("sh0010")

	require.NoError(t, st.SetValue(source, "description", "gone soon", schema.EntryTable))
	require.NoError(t, st.DeleteRow(source, schema.EntryTable))

	got, err := st.Value(source, "description", schema.EntryTable)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetFlag(t *testing.T) {
	st := newTestStore(t)
	source := st.Source("sh0010")

	const archived, favourite = int64(1), int64(2)

	require.NoError(t, st.SetFlag(source, archived, true))
	require.NoError(t, st.SetFlag(source, favourite, true))
	v, err := st.Value(source, "flags", schema.EntryTable)
	require.NoError(t, err)
	assert.Equal(t, archived|favourite, v)

	require.NoError(t, st.SetFlag(source, archived, false))
	v, err = st.Value(source, "flags", schema.EntryTable)
	require.NoError(t, err)
	assert.Equal(t, favourite, v)
}

func TestItemInfo(t *testing.T) {
	st := newTestStore(t)

	info, err := st.ItemInfo()
	require.NoError(t, err)
	assert.Equal(t, st.server, info["server"])
	assert.Equal(t, "job", info["job"])
	assert.Equal(t, "root", info["root"])
	assert.NotEmpty(t, info["user"])
	assert.NotEmpty(t, info["host"])
	created, ok := info["created"].(float64)
	require.True(t, ok)
	assert.Greater(t, created, 0.0)
}

func TestItemInfoInsertedOnce(t *testing.T) {
	server, job, root := newTestItem(t)

	st, err := New(server, job, root, types.DefaultConfig(), NewNotifier())
	require.NoError(t, err)
	first, err := st.ItemInfo()
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Reopening runs schema init again; the identity row must survive
	// untouched.
	st2, err := New(server, job, root, types.DefaultConfig(), NewNotifier())
	require.NoError(t, err)
	defer st2.Close()
	second, err := st2.ItemInfo()
	require.NoError(t, err)
	assert.Equal(t, first["created"], second["created"])
}

func TestCloseIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	_, err := st.Value(st.Source(), "width", schema.ContainerTable)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	err = st.SetValue(st.Source(), "width", 1, schema.ContainerTable)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	server, job, root := newTestItem(t)

	st, err := New(server, job, root, types.DefaultConfig(), NewNotifier())
	require.NoError(t, err)
	source := st.Source()
	require.NoError(t, st.SetValue(source, "prefix", "MYB", schema.ContainerTable))
	require.NoError(t, st.Close())

	st2, err := New(server, job, root, types.DefaultConfig(), NewNotifier())
	require.NoError(t, err)
	defer st2.Close()
	got, err := st2.Value(source, "prefix", schema.ContainerTable)
	require.NoError(t, err)
	assert.Equal(t, "MYB", got)
}

// TestBookkeepingScenario walks the canonical usage sequence end to end.
func TestBookkeepingScenario(t *testing.T) {
	st := newTestStore(t)
	source := st.Source()

	require.NoError(t, st.SetValue(source, "prefix", "MYB", schema.ContainerTable))
	got, err := st.Value(source, "prefix", schema.ContainerTable)
	require.NoError(t, err)
	require.Equal(t, "MYB", got)

	require.NoError(t, st.SetValue(source, "width", 1920, schema.ContainerTable))
	got, err = st.Value(source, "prefix", schema.ContainerTable)
	require.NoError(t, err)
	assert.Equal(t, "MYB", got, "sibling column must survive the width write")

	_, err = st.Value(source, "bogus", schema.ContainerTable)
	assert.ErrorIs(t, err, types.ErrUnknownColumn)
}
