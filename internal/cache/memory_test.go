package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

func newTestMemory(t *testing.T) (*Memory, *time.Time) {
	t.Helper()
	m := NewMemory(0)
	t.Cleanup(m.Close)

	current := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }
	return m, &current
}

func TestMemoryGetSet(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	_, ok := m.Get(ctx, "missing")
	assert.False(t, ok)

	m.Set(ctx, "dept:FINANCE:overview", []byte(`{"open":3}`), time.Minute)
	val, ok := m.Get(ctx, "dept:FINANCE:overview")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"open":3}`), val)
}

func TestMemoryExpiry(t *testing.T) {
	m, now := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, "key", []byte("value"), time.Minute)

	*now = now.Add(59 * time.Second)
	_, ok := m.Get(ctx, "key")
	assert.True(t, ok)

	*now = now.Add(2 * time.Second)
	_, ok = m.Get(ctx, "key")
	assert.False(t, ok)
	// lazy expiry removed the entry
	assert.Equal(t, 0, m.Len())
}

func TestMemoryOverwriteResetsTTL(t *testing.T) {
	m, now := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, "key", []byte("old"), time.Minute)
	*now = now.Add(50 * time.Second)
	m.Set(ctx, "key", []byte("new"), time.Minute)

	*now = now.Add(30 * time.Second)
	val, ok := m.Get(ctx, "key")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), val)
}

func TestMemoryInvalidatePrefix(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	finance := DepartmentPrefix(domain.DepartmentFinance)
	library := DepartmentPrefix(domain.DepartmentLibrary)

	m.Set(ctx, finance+"overview", []byte("a"), time.Minute)
	m.Set(ctx, finance+"analytics:7d", []byte("b"), time.Minute)
	m.Set(ctx, library+"overview", []byte("c"), time.Minute)

	removed := m.Invalidate(ctx, finance)
	assert.Equal(t, 2, removed)

	_, ok := m.Get(ctx, finance+"overview")
	assert.False(t, ok)
	_, ok = m.Get(ctx, library+"overview")
	assert.True(t, ok, "other departments keep their entries")
}

func TestMemoryInvalidateEmpty(t *testing.T) {
	m, _ := newTestMemory(t)
	assert.Equal(t, 0, m.Invalidate(context.Background(), "dept:FINANCE:"))
}

func TestMemorySweepRemovesExpired(t *testing.T) {
	m, now := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, "stale", []byte("a"), time.Second)
	m.Set(ctx, "fresh", []byte("b"), time.Hour)

	*now = now.Add(2 * time.Second)
	m.sweep()

	assert.Equal(t, 1, m.Len())
	_, ok := m.Get(ctx, "fresh")
	assert.True(t, ok)
}

func TestMemoryConcurrentAccess(t *testing.T) {
	m := NewMemory(time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m.Set(ctx, "dept:FINANCE:k", []byte("v"), time.Millisecond*10)
				m.Get(ctx, "dept:FINANCE:k")
				m.Invalidate(ctx, "dept:FINANCE:")
			}
		}()
	}
	wg.Wait()
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "dept:FINANCE:", DepartmentPrefix(domain.DepartmentFinance))
	assert.Equal(t, "dept:FINANCE:analytics:7d", Key(domain.DepartmentFinance, "analytics", "7d"))
}
