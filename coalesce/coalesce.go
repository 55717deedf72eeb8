// Package coalesce shares one in-flight execution among concurrent requests for the same key.
//
// A Group covers one operation class. Reads and writes of the same resource
// use separate groups so they never join each other:
//
//	var reads coalesce.Group[[]byte]
//	f := reads.Do("save.dat", func() ([]byte, error) { return load("save.dat") })
//	data, err := f.Get()
//
// Every request that joins an in-flight execution gets the same future. Once
// the execution settles the key is forgotten, so the next request runs the
// function again.
package coalesce

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wippyai/steam-dispatch/errors"
	"github.com/wippyai/steam-dispatch/future"
	"golang.org/x/sync/singleflight"
)

// Group coalesces calls per key. The zero value is ready to use.
type Group[T any] struct {
	g        singleflight.Group
	futures  map[string]*future.Future[T]
	inFlight atomic.Int64
	calls    atomic.Uint64
	mu       sync.Mutex
}

// Do returns the future for key, running fn only if no call for key is in
// flight. Callers joining an in-flight call get the future of that call.
// A panic in fn rejects the future with a handler_panic error.
func (g *Group[T]) Do(key string, fn func() (T, error)) *future.Future[T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	if f, ok := g.futures[key]; ok {
		return f
	}
	if g.futures == nil {
		g.futures = make(map[string]*future.Future[T])
	}
	f := future.New[T]()
	g.futures[key] = f
	ch := g.g.DoChan(key, func() (v any, err error) {
		g.inFlight.Add(1)
		g.calls.Add(1)
		defer g.inFlight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				err = errors.New(errors.PhaseCoalesce, errors.KindHandlerPanic).
					Path(key).
					Value(r).
					Detail("panic: %v", r).
					Build()
			}
		}()
		return fn()
	})

	go func() {
		res := <-ch
		g.mu.Lock()
		if g.futures[key] == f {
			delete(g.futures, key)
		}
		g.mu.Unlock()
		v, _ := res.Val.(T)
		f.Settle(v, res.Err)
	}()
	return f
}

// Forget makes the next Do for key start a new call even if one is in flight.
func (g *Group[T]) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.futures, key)
	g.g.Forget(key)
}

// InFlight returns the number of keys with a running call.
func (g *Group[T]) InFlight() int {
	return int(g.inFlight.Load())
}

// Calls returns how many times a function has been started.
func (g *Group[T]) Calls() uint64 {
	return g.calls.Load()
}

func (g *Group[T]) String() string {
	return fmt.Sprintf("coalesce.Group{inflight: %d, calls: %d}", g.InFlight(), g.Calls())
}
