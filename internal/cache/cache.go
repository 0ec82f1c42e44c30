// Package cache provides the in-process read-through cache that fronts
// dashboard aggregation. Keys are department-prefixed so every mutation
// can invalidate a department's aggregates in one call.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// Cache is a TTL-keyed store with prefix invalidation. Implementations
// accept racy get/set/invalidate interleavings; correctness is bounded
// by the TTL window, not linearizability.
type Cache interface {
	// Get returns the stored value and true on a live entry.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Invalidate drops every entry whose key starts with prefix and
	// returns the number of entries removed.
	Invalidate(ctx context.Context, prefix string) int
	// Close releases background resources.
	Close()
}

// DepartmentPrefix returns the key prefix shared by every cached view of
// a department.
func DepartmentPrefix(dept domain.Department) string {
	return "dept:" + string(dept) + ":"
}

// Key builds a department-scoped cache key.
func Key(dept domain.Department, parts ...string) string {
	return DepartmentPrefix(dept) + strings.Join(parts, ":")
}
