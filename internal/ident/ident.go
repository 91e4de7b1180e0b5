// Package ident derives the primary key for a path-like source identifier.
// The digest is deterministic and platform-stable; callers treat it as
// opaque. The id column is collated NOCASE, so differing case in the hex
// digest never splits rows.
package ident

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Hashing is hot on redraw paths, so digests are memoized by input.
const cacheSize = 1 << 16

var cache, _ = lru.New[string, string](cacheSize)

// Normalize rewrites a source identifier to the canonical slash form:
// forward slashes only, no trailing slash.
func Normalize(source string) string {
	source = strings.ReplaceAll(source, "\\", "/")
	if len(source) > 1 {
		source = strings.TrimRight(source, "/")
	}
	return source
}

// Hash returns the stable row key for a source identifier.
func Hash(source string) string {
	if v, ok := cache.Get(source); ok {
		return v
	}
	sum := md5.Sum([]byte(Normalize(source)))
	v := hex.EncodeToString(sum[:])
	cache.Add(source, v)
	return v
}
