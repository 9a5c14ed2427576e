package types

import (
	"errors"
	"fmt"
)

var (
	ErrCacheMiss           = errors.New("cache: key not found")
	ErrClosed              = errors.New("cache: closed")
	ErrNilValue            = errors.New("cache: nil value")
	ErrInvalidKey          = errors.New("cache: invalid key")
	ErrSerializationFailed = errors.New("cache: serialization failed")
	ErrEvictionAborted     = errors.New("cache: eviction pass aborted")
	ErrPoolClosed          = errors.New("cache: dispatch pool closed")
	ErrShutdownTimeout     = errors.New("cache: shutdown timeout waiting for background operations")
)

type CacheError struct {
	Op    string
	Key   string
	Layer string
	Err   error
}

func (e *CacheError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cache %s on %s [%s]: %v", e.Op, e.Layer, e.Key, e.Err)
	}
	return fmt.Sprintf("cache %s on %s: %v", e.Op, e.Layer, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

func NewCacheError(op, key, layer string, err error) *CacheError {
	return &CacheError{
		Op:    op,
		Key:   key,
		Layer: layer,
		Err:   err,
	}
}

func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, ErrPoolClosed)
}

// IsSerialization reports whether err came from encoding or decoding a value.
func IsSerialization(err error) bool {
	return errors.Is(err, ErrSerializationFailed)
}
