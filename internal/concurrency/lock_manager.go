package concurrency

import "sync"

// LockManager hands out named mutexes. Entries are dropped once no goroutine
// holds or waits on them, so the table stays bounded by in-flight keys.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*namedLock
}

type namedLock struct {
	mu   sync.Mutex
	refs int
}

// NewLockManager creates a new LockManager.
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]*namedLock)}
}

// Lock blocks until the mutex for key is held and returns its release func.
func (lm *LockManager) Lock(key string) func() {
	lm.mu.Lock()
	l, ok := lm.locks[key]
	if !ok {
		l = &namedLock{}
		lm.locks[key] = l
	}
	l.refs++
	lm.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		lm.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(lm.locks, key)
		}
		lm.mu.Unlock()
	}
}

// Len reports how many keys currently have holders or waiters.
func (lm *LockManager) Len() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return len(lm.locks)
}
