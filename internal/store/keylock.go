package store

import "sync"

// KeyMutex provides a mutex per string key. The step handlers hold the lock
// for an item's key across their read-modify-write of that inventory record,
// so two concurrent reservations of the same item serialize instead of both
// decrementing from the same stale read.
type KeyMutex struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyMutex constructs an empty KeyMutex.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{keys: make(map[string]*keyLock)}
}

// Lock acquires the lock for key and returns the matching unlock function.
// Lock entries are reference-counted and removed once unused, so the map
// does not grow with every item name ever seen.
func (m *KeyMutex) Lock(key string) func() {
	m.mu.Lock()
	kl, ok := m.keys[key]
	if !ok {
		kl = &keyLock{}
		m.keys[key] = kl
	}
	kl.refs++
	m.mu.Unlock()

	kl.mu.Lock()

	return func() {
		kl.mu.Unlock()

		m.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(m.keys, key)
		}
		m.mu.Unlock()
	}
}
