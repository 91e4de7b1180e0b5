package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shotline/propstore/internal/schema"
	"github.com/shotline/propstore/pkg/types"
)

func TestFallbackWhenItemRootMissing(t *testing.T) {
	// The mount point does not exist; the store must come up in-memory
	// rather than conjuring directories on an absent volume.
	missing := filepath.Join(t.TempDir(), "unmounted")

	st, err := New(missing, "job", "root", types.DefaultConfig(), NewNotifier())
	require.NoError(t, err)
	defer st.Close()

	assert.False(t, st.Valid())

	// Every operation still works against the in-memory database.
	source := st.Source("sh0010")
	require.NoError(t, st.SetValue(source, "cut_in", 1001, schema.EntryTable))
	got, err := st.Value(source, "cut_in", schema.EntryTable)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), got)

	row, err := st.Row(source, schema.EntryTable)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), row["cut_in"])

	info, err := st.ItemInfo()
	require.NoError(t, err)
	assert.Equal(t, missing, info["server"])
}

func TestFallbackDoesNotPersist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "unmounted")
	cfg := types.DefaultConfig()

	st, err := New(missing, "job", "root", cfg, NewNotifier())
	require.NoError(t, err)
	source := st.Source()
	require.NoError(t, st.SetValue(source, "description", "ephemeral", schema.EntryTable))
	require.NoError(t, st.Close())

	st2, err := New(missing, "job", "root", cfg, NewNotifier())
	require.NoError(t, err)
	defer st2.Close()
	got, err := st2.Value(source, "description", schema.EntryTable)
	require.NoError(t, err)
	assert.Nil(t, got, "in-memory contents vanish with the connection")
}

func TestNewRejectsEmptySegments(t *testing.T) {
	_, err := New("", "job", "root", types.DefaultConfig(), NewNotifier())
	assert.Error(t, err)
	_, err = New("srv", "", "root", types.DefaultConfig(), NewNotifier())
	assert.Error(t, err)
	_, err = New("srv", "job", "", types.DefaultConfig(), NewNotifier())
	assert.Error(t, err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.ConnectAttempts = 0
	_, err := New("srv", "job", "root", cfg, NewNotifier())
	assert.ErrorIs(t, err, types.ErrAttemptsInvalid)
}
