/*
Package lock provides per-key mutual exclusion for room check-then-write.

PURPOSE:
  The booking engine checks a room's calendar and then writes a
  reservation. Two concurrent requests for the same room must not both
  pass the check. A lock per room serializes them without blocking
  requests for other rooms.

IMPLEMENTATIONS:
  Local: keyed mutex inside one process (default, tests, single node)
  Redis: SET NX PX with a random token, released by compare-and-delete,
         for several server instances sharing one database

USAGE:
  release, err := locker.Acquire(ctx, "room:101")
  if err != nil {
      return err
  }
  defer release()

SEE ALSO:
  - hotel/collaborators.go: Locker interface
*/
package lock

import (
	"context"
	"sync"
)

// =============================================================================
// LOCAL - Keyed mutex
// =============================================================================

// Local hands out one channel-based mutex per key. Entries are dropped
// when the last holder or waiter leaves, so the map does not grow with
// the number of rooms ever locked.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

// Acquire blocks until key is free or ctx is done.
func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
	}, nil
}

func (l *Local) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
