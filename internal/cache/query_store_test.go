package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueryStoreCachesUntilInvalidated(t *testing.T) {
	s := NewQueryStore[int](10, time.Hour)
	var calls atomic.Int32
	load := func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}
	ctx := context.Background()

	tests := []struct {
		name       string
		invalidate bool
		wantValue  int
		wantHit    bool
	}{
		{"first read loads", false, 1, false},
		{"second read is cached", false, 1, true},
		{"read after invalidation reloads", true, 2, false},
	}
	for _, tt := range tests {
		if tt.invalidate {
			s.Invalidate("userData:ada")
		}
		v, hit, err := s.Fetch(ctx, "userData:ada", load)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if v != tt.wantValue || hit != tt.wantHit {
			t.Errorf("%s: got (%d, hit=%v), want (%d, hit=%v)", tt.name, v, hit, tt.wantValue, tt.wantHit)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("loader calls = %d, want 2", got)
	}
}

func TestQueryStoreKeysAreIndependent(t *testing.T) {
	s := NewQueryStore[string](10, time.Hour)
	ctx := context.Background()
	_, _, _ = s.Fetch(ctx, "a", func(context.Context) (string, error) { return "A", nil })
	_, _, _ = s.Fetch(ctx, "b", func(context.Context) (string, error) { return "B", nil })

	s.Invalidate("a")
	if _, ok := s.peek("a"); ok {
		t.Error("invalidated key still cached")
	}
	if v, ok := s.peek("b"); !ok || v != "B" {
		t.Errorf("peek(b) = (%q, %v), want (\"B\", true)", v, ok)
	}
}

func TestQueryStoreDoesNotCacheErrors(t *testing.T) {
	s := NewQueryStore[int](10, time.Hour)
	boom := errors.New("backend down")
	_, _, err := s.Fetch(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if s.Size() != 0 {
		t.Errorf("Size() = %d, want 0", s.Size())
	}
}

func TestQueryStoreCollapsesConcurrentLoads(t *testing.T) {
	s := NewQueryStore[int](10, time.Hour)
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = s.Fetch(context.Background(), "k", load)
		}(i)
	}
	// Give the goroutines time to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("loader calls = %d, want 1", got)
	}
	for i, v := range results {
		if errs[i] != nil || v != 42 {
			t.Errorf("result %d = (%d, %v), want (42, nil)", i, v, errs[i])
		}
	}
}

func TestQueryStoreDropsLoadRacingInvalidation(t *testing.T) {
	s := NewQueryStore[string](10, time.Hour)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan string)
	go func() {
		v, _, _ := s.Fetch(context.Background(), "k", func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		done <- v
	}()

	<-started
	s.Invalidate("k")
	close(release)
	if v := <-done; v != "stale" {
		t.Fatalf("in-flight caller got %q, want \"stale\"", v)
	}

	if _, ok := s.peek("k"); ok {
		t.Fatal("a load that raced an invalidation must not be cached")
	}

	v, hit, err := s.Fetch(context.Background(), "k", func(context.Context) (string, error) { return "fresh", nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit || v != "fresh" {
		t.Errorf("got (%q, hit=%v), want (\"fresh\", hit=false)", v, hit)
	}
}

func TestQueryStoreHonorsCallerCancellation(t *testing.T) {
	s := NewQueryStore[int](10, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := make(chan struct{})
	defer close(block)

	_, _, err := s.Fetch(ctx, "k", func(context.Context) (int, error) {
		<-block
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
