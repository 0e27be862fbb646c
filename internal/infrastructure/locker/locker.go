// Package locker provides per-account single-writer locks with bounded acquisition.
package locker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/iho/bankledger/internal/domain"
)

// DefaultTimeout is used when a Locker is created with a non-positive timeout.
const DefaultTimeout = 2 * time.Second

// Locker holds one weighted semaphore of size 1 per account id. An entry lives only
// while some caller holds or waits for it.
type Locker struct {
	mu      sync.Mutex
	sems    map[string]*entry
	timeout time.Duration
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// New creates a Locker whose Lock calls give up after timeout.
func New(timeout time.Duration) *Locker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Locker{
		sems:    make(map[string]*entry),
		timeout: timeout,
	}
}

// Lock acquires the lock of every id in ascending order, ignoring duplicates.
// If any lock cannot be taken before the timeout (or ctx ends), the locks already
// held are released and the error wraps domain.ErrBusy.
func (l *Locker) Lock(ctx context.Context, ids ...string) (func(), error) {
	keys := SortedUnique(ids)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	acquired := make([]string, 0, len(keys))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			l.release(acquired[i])
		}
	}

	for _, key := range keys {
		e := l.ref(key)
		if err := e.sem.Acquire(ctx, 1); err != nil {
			l.unref(key, e)
			release()
			return nil, fmt.Errorf("%w: account %s is locked: %v", domain.ErrBusy, key, err)
		}
		acquired = append(acquired, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// ref returns the entry for key, creating it if needed, and counts the caller in.
func (l *Locker) ref(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.sems[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		l.sems[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.sems, key)
	}
}

func (l *Locker) release(key string) {
	l.mu.Lock()
	e := l.sems[key]
	l.mu.Unlock()

	e.sem.Release(1)
	l.unref(key, e)
}

// SortedUnique returns ids deduplicated in ascending order, the global lock order.
func SortedUnique(ids []string) []string {
	keys := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}
