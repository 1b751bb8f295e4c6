/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Entry is a Handle paired with a caller-defined key.
type Entry[K comparable, T any] struct {
	Key    K
	Handle *Handle[T]
}

// KeyedResult is a Result paired with the key of its request.
type KeyedResult[K comparable, T any] struct {
	Key    K
	Result Result[T]
}

// ResolveAll resolves all handles and returns their results in the same order.
func ResolveAll[T any](handles []*Handle[T]) []Result[T] {
	results := make([]Result[T], len(handles))
	forEachParallel(len(handles), func(i int) {
		results[i] = handles[i].Resolve()
	})
	return results
}

// ResolveAllKeyed resolves all handles and returns their results under the same keys.
func ResolveAllKeyed[K comparable, T any](handles map[K]*Handle[T]) map[K]Result[T] {
	entries := make([]Entry[K, T], 0, len(handles))
	for k, h := range handles {
		entries = append(entries, Entry[K, T]{Key: k, Handle: h})
	}
	return resolveEntries(entries)
}

// ResolveAllEntries resolves handles of all entries and returns their results by key.
// Keys must be unique, otherwise an *Error of ErrorKindInternal is returned and nothing is resolved.
func ResolveAllEntries[K comparable, T any](entries []Entry[K, T]) (map[K]Result[T], error) {
	seen := make(map[K]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Key]; ok {
			return nil, &Error{Kind: ErrorKindInternal, Message: fmt.Sprintf("duplicate key %v", e.Key)}
		}
		seen[e.Key] = struct{}{}
	}
	return resolveEntries(entries), nil
}

func resolveEntries[K comparable, T any](entries []Entry[K, T]) map[K]Result[T] {
	results := make(map[K]Result[T], len(entries))
	var mu sync.Mutex
	forEachParallel(len(entries), func(i int) {
		res := entries[i].Handle.Resolve()
		mu.Lock()
		results[entries[i].Key] = res
		mu.Unlock()
	})
	return results
}

// forEachParallel calls fn for every index in [0, n).
// On a multi-core machine the calls are spread over up to GOMAXPROCS goroutines, otherwise they run sequentially.
func forEachParallel(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	if runtime.NumCPU() <= 1 || n == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}
