// Package keyedmutex provides per-key serialization for concurrent operations.
// Each key gets its own lazily created mutex, so work scoped to different keys
// never contends while all mutation under a single key is totally ordered.
//
// The realtime core uses one KeyedMutex instance keyed by order identifier:
// status transitions, location acceptance, and message sequencing for one
// order are serialized against each other, while other orders proceed
// independently. Entries are created on first touch and retired explicitly
// once the owner is done with the key (terminal order past its grace period).
package keyedmutex

import "sync"

// KeyedMutex serializes operations per string key.
// The zero value is not usable; create instances via New.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu sync.Mutex
	// refs counts holders waiting on or owning the entry's mutex,
	// so Retire never removes an entry that is still contended.
	refs int
}

// New creates an empty KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*entry),
	}
}

// Lock acquires the mutex for the given key, creating it on first touch.
// It blocks until the key's mutex is available.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for the given key.
// Calling Unlock for a key that is not locked is a programming error and
// panics, mirroring sync.Mutex semantics.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("keyedmutex: unlock of unknown key " + key)
	}
	e.refs--
	k.mu.Unlock()

	e.mu.Unlock()
}

// Retire drops the entry for a key that is no longer live. The entry is kept
// if any goroutine still owns or waits for it; those holders finish normally
// and the next Lock after retirement recreates the entry.
func (k *KeyedMutex) Retire(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if e, ok := k.entries[key]; ok && e.refs == 0 {
		delete(k.entries, key)
	}
}

// Len reports how many keys currently have live entries.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.entries)
}
