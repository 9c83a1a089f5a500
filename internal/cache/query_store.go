package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// QueryStore caches the results of keyed read queries.
//
// Concurrent loads of the same key share one call. Invalidate drops the
// cached value and bumps the key's generation; a load started before the
// invalidation still returns to its callers but is not written back, so the
// next Fetch always reaches the loader.
type QueryStore[T any] struct {
	values *LRUCache[T]
	group  singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

func NewQueryStore[T any](maxSize int, ttl time.Duration) *QueryStore[T] {
	return &QueryStore[T]{
		values: NewLRUCache[T](maxSize, ttl),
		gens:   make(map[string]uint64),
	}
}

func (s *QueryStore[T]) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[key]
}

// Fetch returns the cached value for key or runs load to produce it.
// The bool result reports a cache hit.
func (s *QueryStore[T]) Fetch(ctx context.Context, key string, load func(context.Context) (T, error)) (T, bool, error) {
	if v, ok := s.values.Get(key); ok {
		return v, true, nil
	}

	gen := s.generation(key)
	ch := s.group.DoChan(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		s.mu.Lock()
		if s.gens[key] == gen {
			s.values.Set(key, v)
		}
		s.mu.Unlock()
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	}
}

// Invalidate marks key stale. The next Fetch for key calls its loader.
func (s *QueryStore[T]) Invalidate(key string) {
	s.mu.Lock()
	s.gens[key]++
	s.values.Delete(key)
	s.mu.Unlock()
}

// peek returns the cached value without loading.
func (s *QueryStore[T]) peek(key string) (T, bool) {
	return s.values.Get(key)
}

func (s *QueryStore[T]) CleanExpired() int {
	return s.values.CleanExpired()
}

func (s *QueryStore[T]) Size() int {
	return s.values.Size()
}
