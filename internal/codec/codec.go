// Package codec translates between semantic values and their storage form.
//
// Text and StructuredMap values travel as base64 over UTF-8 bytes so
// arbitrary Unicode, quotes, and control characters survive byte-exact.
// StructuredMap serializes to compact JSON (keys sorted, no HTML escaping)
// before the base64 step. Integer and Float are rendered as decimal text.
//
// Decode failures are logged and yield nil, never an error: a corrupt cell
// reads as "no value". Encode only errors on a semantic type mismatch,
// which is a caller bug and is surfaced.
package codec

import (
	"database/sql"
	"encoding/base64"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/shotline/propstore/internal/schema"
	"github.com/shotline/propstore/pkg/types"
)

// json is tuned for the storage wire form: stable key order, no escaping
// beyond what JSON requires.
var json = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// base64 work repeats heavily on redraw and lookup paths; both directions
// are memoized by input string.
const cacheSize = 1 << 16

var (
	encCache, _ = lru.New[string, string](cacheSize)
	decCache, _ = lru.New[string, string](cacheSize)
)

func b64encode(s string) string {
	if v, ok := encCache.Get(s); ok {
		return v
	}
	v := base64.StdEncoding.EncodeToString([]byte(s))
	encCache.Add(s, v)
	return v
}

func b64decode(s string) (string, error) {
	if v, ok := decCache.Get(s); ok {
		return v, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	v := string(b)
	decCache.Add(s, v)
	return v, nil
}

// Encode converts a semantic value into its storage text. A nil value
// encodes as SQL NULL. A value whose runtime type disagrees with the
// column's semantic type returns types.ErrTypeMismatch. Serialization
// failures degrade to NULL with a log entry.
func Encode(col schema.Column, value any) (sql.NullString, error) {
	if value == nil {
		return sql.NullString{}, nil
	}

	switch col.Semantic {
	case schema.Text:
		s, ok := value.(string)
		if !ok {
			return sql.NullString{}, mismatch(col, value)
		}
		return sql.NullString{String: b64encode(s), Valid: true}, nil

	case schema.StructuredMap:
		m, ok := asMap(value)
		if !ok {
			return sql.NullString{}, mismatch(col, value)
		}
		raw, err := json.MarshalToString(m)
		if err != nil {
			log.Error().Err(err).Str("column", col.Name).
				Msg("encoding structured value failed")
			return sql.NullString{}, nil
		}
		return sql.NullString{String: b64encode(raw), Valid: true}, nil

	case schema.Integer:
		n, ok := asInt(value)
		if !ok {
			return sql.NullString{}, mismatch(col, value)
		}
		return sql.NullString{String: strconv.FormatInt(n, 10), Valid: true}, nil

	case schema.Float:
		f, ok := asFloat(value)
		if !ok {
			return sql.NullString{}, mismatch(col, value)
		}
		return sql.NullString{String: strconv.FormatFloat(f, 'g', -1, 64), Valid: true}, nil
	}

	return sql.NullString{}, mismatch(col, value)
}

// Decode is the inverse of Encode, dispatched by the column's semantic
// type. NULL and any malformed cell decode to nil.
func Decode(col schema.Column, stored sql.NullString) any {
	if !stored.Valid {
		return nil
	}

	switch col.Semantic {
	case schema.Text:
		s, err := b64decode(stored.String)
		if err != nil {
			log.Error().Err(err).Str("column", col.Name).
				Msg("decoding text value failed")
			return nil
		}
		return s

	case schema.StructuredMap:
		raw, err := b64decode(stored.String)
		if err != nil {
			log.Error().Err(err).Str("column", col.Name).
				Msg("decoding structured value failed")
			return nil
		}
		var m map[string]any
		if err := json.UnmarshalFromString(raw, &m); err != nil {
			log.Error().Err(err).Str("column", col.Name).
				Msg("parsing structured value failed")
			return nil
		}
		return m

	case schema.Integer:
		n, err := strconv.ParseInt(stored.String, 10, 64)
		if err != nil {
			log.Error().Err(err).Str("column", col.Name).
				Msg("parsing integer value failed")
			return nil
		}
		return n

	case schema.Float:
		f, err := strconv.ParseFloat(stored.String, 64)
		if err != nil {
			log.Error().Err(err).Str("column", col.Name).
				Msg("parsing float value failed")
			return nil
		}
		return f
	}

	return nil
}

func mismatch(col schema.Column, value any) error {
	return fmt.Errorf("%w: column %s wants %s, got %T",
		types.ErrTypeMismatch, col.Name, col.Semantic, value)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case types.PropertySet:
		return map[string]any(m), true
	}
	return nil, false
}

// asInt accepts the integer widths callers actually pass. Strings and
// floats are not coerced.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint:
		return int64(n), true
	}
	return 0, false
}

// asFloat accepts float widths plus plain ints, which widen losslessly.
func asFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	}
	return 0, false
}
