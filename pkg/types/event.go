package types

// Event describes a durably applied write. Subscribers typically use the
// source identifier to invalidate caches keyed the same way.
type Event struct {
	Table  string
	Source string
	Column string
	// Value is the decoded form of what was written: string, int64,
	// float64, map[string]any, or nil when the encode step failed.
	Value any
}

// PropertySet maps column names to decoded values. It is what Row returns
// and what the snapshot clipboard carries between items. A nil entry means
// the column is unset.
type PropertySet map[string]any

// Clone returns an independent shallow copy. Structured values are shared;
// callers that mutate them hold the only reference in practice since
// decoded maps are freshly built per read.
func (p PropertySet) Clone() PropertySet {
	if p == nil {
		return nil
	}
	out := make(PropertySet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
