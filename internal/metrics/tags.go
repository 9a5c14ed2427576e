package metrics

import (
	"fmt"

	"github.com/LavishGent/larder/internal/types"
)

// Tag creates a formatted DataDog tag string in "key:value" format.
func Tag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

// OperationTag creates an operation tag.
func OperationTag(op string) string {
	return Tag("operation", op)
}

// StatusTag creates a status tag (hit/miss/error).
func StatusTag(status string) string {
	return Tag("status", status)
}

// LayerTag creates a cache layer tag (memory/disk).
func LayerTag(layer string) string {
	return Tag("layer", layer)
}

// ReasonTag creates an eviction reason tag.
func ReasonTag(reason types.EvictReason) string {
	return Tag("reason", reason.String())
}

// CacheTag creates a tag naming the disk cache.
func CacheTag(name string) string {
	return Tag("cache", name)
}
