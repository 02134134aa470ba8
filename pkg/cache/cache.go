// Package cache stores rendered layouts and artifacts keyed by content hash.
//
// # Overview
//
// The static pipeline and the serve host both turn the same inputs (dataset
// bytes, expanded node set, viewport, options) into the same outputs. A
// [Cache] lets them skip that work on repeat requests:
//
//	k := cache.NewDefaultKeyer()
//	key := k.ArtifactKey(frameHash, cache.ArtifactKeyOpts{Format: "svg"})
//	if data, ok, _ := c.Get(ctx, key); ok {
//	    return data
//	}
//
// # Backends
//
//   - [NullCache] never stores anything (the --no-cache path)
//   - [FileCache] persists entries below a directory (the CLI)
//   - [MemoryCache] keeps a bounded set of entries in process (the serve host)
//
// Cached values are derived data only. Tree state itself is never cached.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Default time-to-live values.
const (
	LayoutTTL   = 7 * 24 * time.Hour
	ArtifactTTL = 7 * 24 * time.Hour
)
