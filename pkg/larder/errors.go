package larder

import (
	"github.com/LavishGent/larder/internal/types"
)

// CacheError represents a cache operation error.
type CacheError = types.CacheError

var (
	// ErrCacheMiss indicates that a requested key was not found in the cache.
	ErrCacheMiss = types.ErrCacheMiss
	// ErrClosed indicates that the cache has been closed.
	ErrClosed = types.ErrClosed
	// ErrNilValue indicates an attempt to store a nil value.
	ErrNilValue = types.ErrNilValue
	// ErrInvalidKey indicates that a cache key is invalid.
	ErrInvalidKey = types.ErrInvalidKey
	// ErrSerializationFailed indicates that serialization failed.
	ErrSerializationFailed = types.ErrSerializationFailed
	// ErrEvictionAborted indicates that a disk eviction pass stopped on a failure.
	ErrEvictionAborted = types.ErrEvictionAborted
	// ErrShutdownTimeout indicates that Close gave up waiting for async work.
	ErrShutdownTimeout = types.ErrShutdownTimeout
)

// NewCacheError creates a new cache error with operation, key, layer, and underlying error.
func NewCacheError(op, key, layer string, err error) *CacheError {
	return types.NewCacheError(op, key, layer, err)
}

// IsCacheMiss returns true if the error is a cache miss.
func IsCacheMiss(err error) bool {
	return types.IsCacheMiss(err)
}

// IsClosed returns true if the error comes from a closed cache or pool.
func IsClosed(err error) bool {
	return types.IsClosed(err)
}

// IsSerialization returns true if the error came from encoding or decoding a value.
func IsSerialization(err error) bool {
	return types.IsSerialization(err)
}
