package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shotline/propstore/internal/schema"
	"github.com/shotline/propstore/pkg/types"
)

func TestNotifierDeliversWriteEvents(t *testing.T) {
	st := newTestStore(t)
	source := st.Source("sh0010")

	var got []types.Event
	st.notifier.Subscribe(func(ev types.Event) { got = append(got, ev) })

	require.NoError(t, st.SetValue(source, "cut_in", 1001, schema.EntryTable))

	require.Len(t, got, 1)
	assert.Equal(t, schema.EntryTable, got[0].Table)
	assert.Equal(t, source, got[0].Source)
	assert.Equal(t, "cut_in", got[0].Column)
	assert.Equal(t, int64(1001), got[0].Value, "value carries the decoded form")
}

func TestNotifierFansOut(t *testing.T) {
	st := newTestStore(t)

	var first, second int
	st.notifier.Subscribe(func(types.Event) { first++ })
	st.notifier.Subscribe(func(types.Event) { second++ })

	require.NoError(t, st.SetValue(st.Source(), "width", 1920, schema.ContainerTable))
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	st := newTestStore(t)

	var calls int
	token := st.notifier.Subscribe(func(types.Event) { calls++ })

	require.NoError(t, st.SetValue(st.Source(), "width", 1920, schema.ContainerTable))
	st.notifier.Unsubscribe(token)
	require.NoError(t, st.SetValue(st.Source(), "height", 1080, schema.ContainerTable))

	assert.Equal(t, 1, calls)
}

func TestNoEventOnRejectedWrite(t *testing.T) {
	st := newTestStore(t)

	var calls int
	st.notifier.Subscribe(func(types.Event) { calls++ })

	err := st.SetValue(st.Source(), "width", "wide", schema.ContainerTable)
	require.ErrorIs(t, err, types.ErrTypeMismatch)
	assert.Zero(t, calls)
}
