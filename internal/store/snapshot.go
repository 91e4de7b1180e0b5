package store

import (
	"sync"

	"github.com/shotline/propstore/pkg/types"
)

// Clipboard is the per-table snapshot buffer: copy one source's full
// property set, paste it onto another. The buffer map itself is guarded,
// but concurrent copy/paste cycles across goroutines race at the
// application level; the outcome is last-writer-wins, by contract.
type Clipboard struct {
	mu      sync.Mutex
	buffers map[string]types.PropertySet
}

func NewClipboard() *Clipboard {
	return &Clipboard{buffers: make(map[string]types.PropertySet)}
}

// Copy captures every set (non-nil) column of the source's row and returns
// the captured set. The capture replaces the table's previous buffer.
func (c *Clipboard) Copy(st *Store, table, source string) (types.PropertySet, error) {
	row, err := st.Row(source, table)
	if err != nil {
		return nil, err
	}
	set := make(types.PropertySet)
	for k, v := range row {
		if v != nil {
			set[k] = v
		}
	}
	c.mu.Lock()
	c.buffers[table] = set
	c.mu.Unlock()
	return set.Clone(), nil
}

// Paste replays the table's buffered set onto the target source through
// SetValue, so each column gets the usual upsert and change notification.
// An empty or absent buffer is a no-op.
func (c *Clipboard) Paste(st *Store, table, source string) error {
	c.mu.Lock()
	set := c.buffers[table].Clone()
	c.mu.Unlock()
	if len(set) == 0 {
		return nil
	}

	for _, column := range sortedKeys(set) {
		if err := st.SetValue(source, column, set[column], table); err != nil {
			return err
		}
	}
	return nil
}

// Peek returns a copy of the table's buffer without consuming it.
func (c *Clipboard) Peek(table string) types.PropertySet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffers[table].Clone()
}

// Clear drops the table's buffer.
func (c *Clipboard) Clear(table string) {
	c.mu.Lock()
	delete(c.buffers, table)
	c.mu.Unlock()
}
