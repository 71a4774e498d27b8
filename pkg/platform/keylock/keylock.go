// Package keylock provides a mutex per string key. The allocator and
// resetter serialize counter read-modify-write cycles per (scope, section)
// with it, so two allocations for the same partition can never both observe
// the same base value.
package keylock

import "sync"

// KeyedMutex hands out one mutex per key. Mutexes are created lazily and
// never released; the key space here (scopes x sections) is small and fixed.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
