package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"predial/internal/core"
	"predial/internal/sheets"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// MapCache is an unbounded Cache guarded by a mutex. Entries never expire.
type MapCache[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewMapCache creates an empty MapCache
func NewMapCache[T any]() *MapCache[T] {
	return &MapCache[T]{items: make(map[string]T)}
}

func (c *MapCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *MapCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
}

func (c *MapCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *MapCache[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// LoadFunc produces the value for a key on a cache miss.
type LoadFunc[T any] func(ctx context.Context, key string) (T, error)

// DefaultLoadTimeout bounds a shared load once it no longer follows the
// caller that started it.
const DefaultLoadTimeout = 2 * time.Minute

// Memo loads each key at most once. Concurrent misses on the same key
// share a single load. Failed loads are not stored, so the next call
// retries.
//
// The shared load keeps the starting caller's values but not its
// cancellation; each caller stops waiting when its own context ends.
type Memo[T any] struct {
	store   Cache[T]
	load    LoadFunc[T]
	group   singleflight.Group
	timeout time.Duration
}

// NewMemo creates a Memo over store.
func NewMemo[T any](store Cache[T], load LoadFunc[T]) *Memo[T] {
	return &Memo[T]{store: store, load: load, timeout: DefaultLoadTimeout}
}

// Get returns the cached value for key, loading it on first use.
func (m *Memo[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	if v, ok := m.store.Get(key); ok {
		return v, nil
	}
	ch := m.group.DoChan(key, func() (any, error) {
		if v, ok := m.store.Get(key); ok {
			return v, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		v, err := m.load(lctx, key)
		if err != nil {
			return nil, err
		}
		m.store.Set(key, v)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Size returns the number of stored values.
func (m *Memo[T]) Size() int {
	return m.store.Size()
}

// TableCache memoizes the tables of a sheet source for the lifetime of the
// process. It is itself a sheets.Source.
type TableCache struct {
	src  sheets.Source
	memo *Memo[*core.Table]
}

// NewTableCache wraps src.
func NewTableCache(src sheets.Source) *TableCache {
	return &TableCache{
		src:  src,
		memo: NewMemo[*core.Table](NewMapCache[*core.Table](), src.ReadTable),
	}
}

// ReadTable returns the memoized table for sheet.
func (c *TableCache) ReadTable(ctx context.Context, sheet string) (*core.Table, error) {
	return c.memo.Get(ctx, sheet)
}

// ListSheets is not cached.
func (c *TableCache) ListSheets(ctx context.Context) ([]string, error) {
	return c.src.ListSheets(ctx)
}

// Loaded returns the number of sheets held in memory.
func (c *TableCache) Loaded() int {
	return c.memo.Size()
}

// Warm loads the given sheets concurrently. A failing sheet does not stop
// the others; every failure is joined into the returned error.
func (c *TableCache) Warm(ctx context.Context, names []string) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, name := range names {
		g.Go(func() error {
			if _, err := c.ReadTable(ctx, name); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("warm %q: %w", name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
