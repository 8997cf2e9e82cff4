// Package lock provides a mutual-exclusion section keyed by table id.
// Every cart mutation and every multi-step order transition for a
// given table runs inside its section, so they never interleave with
// each other, while operations on different tables proceed without
// any cross-table blocking.
package lock

import "sync"

// Keyed hands out one mutex per key on demand.  Entries are
// reference-counted and removed again once the last holder releases,
// so the map does not grow with the number of tables ever seen.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	m    sync.Mutex
	refs int
}

// NewKeyed returns an empty Keyed lock set.
func NewKeyed() *Keyed {
	return &Keyed{entries: map[string]*entry{}}
}

// Acquire blocks until the section for key is held and returns the
// release function.  Callers must invoke the release exactly once,
// typically via defer.
func (k *Keyed) Acquire(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.m.Lock()
	return func() {
		e.m.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
