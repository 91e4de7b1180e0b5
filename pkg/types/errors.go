package types

import "errors"

// Standard errors returned by store operations. Schema lookups and writes
// fail fast on caller mistakes; transient engine trouble is retried
// internally and never surfaces as these.
var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrTypeMismatch  = errors.New("value type does not match column type")
	ErrSchemaInit    = errors.New("schema initialization failed")
	ErrStoreClosed   = errors.New("store is closed")
)
