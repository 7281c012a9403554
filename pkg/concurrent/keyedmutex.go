// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"sync"
)

// KeyedMutex serializes work per key while leaving distinct keys fully
// concurrent. The scheduler uses one for per-account syncs and one for
// per-meeting stage advancement.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*keyedLock),
	}
}

// Lock acquires the lock for key, blocking while another holder has it.
func (km *KeyedMutex) Lock(key string) {
	km.mu.Lock()
	l, ok := km.locks[key]
	if !ok {
		l = &keyedLock{}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	l.mu.Lock()
}

// TryLock acquires the lock for key without blocking. It reports whether
// the lock was acquired; callers that lose simply drop the work item, since
// a holder is already processing the same entity.
func (km *KeyedMutex) TryLock(key string) bool {
	km.mu.Lock()
	l, ok := km.locks[key]
	if !ok {
		l = &keyedLock{}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	if l.mu.TryLock() {
		return true
	}

	km.release(key, l)
	return false
}

// Unlock releases the lock for key. The per-key entry is dropped once the
// last interested goroutine lets go, so the map does not grow unbounded.
func (km *KeyedMutex) Unlock(key string) {
	km.mu.Lock()
	l, ok := km.locks[key]
	km.mu.Unlock()
	if !ok {
		return
	}

	l.mu.Unlock()
	km.release(key, l)
}

func (km *KeyedMutex) release(key string, l *keyedLock) {
	km.mu.Lock()
	defer km.mu.Unlock()

	l.refs--
	if l.refs <= 0 {
		delete(km.locks, key)
	}
}
