// Package lock provides per-key in-memory locking.
//
// The locks guard in-process state only (such as live minigame sessions).
// They must never be held across a database call; row locks and conditional
// updates in the store are what serialize persistent state.
package lock

import (
	"context"
	"sync"
)

// keyMutex wraps a mutex with a reference count so idle entries can be dropped.
type keyMutex struct {
	mu   sync.Mutex
	refs int
}

// KeyLock provides one mutex per int64 key, created on demand and released
// when no goroutine holds or waits for it.
type KeyLock struct {
	mu    sync.Mutex
	locks map[int64]*keyMutex
}

// New creates a new KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[int64]*keyMutex)}
}

func (kl *KeyLock) acquire(key int64) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	km, ok := kl.locks[key]
	if !ok {
		km = &keyMutex{}
		kl.locks[key] = km
	}
	km.refs++
	return km
}

func (kl *KeyLock) release(key int64, km *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	km.refs--
	if km.refs == 0 {
		delete(kl.locks, key)
	}
}

// Unlock releases the lock for key. It panics if the key is not locked.
func (kl *KeyLock) Unlock(key int64) {
	kl.mu.Lock()
	km, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		panic("lock: unlock of unlocked key")
	}
	km.mu.Unlock()
	kl.release(key, km)
}

// LockContext acquires the lock for key or gives up when ctx is done.
func (kl *KeyLock) LockContext(ctx context.Context, key int64) error {
	km := kl.acquire(key)

	done := make(chan struct{})
	go func() {
		km.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The waiter still gets the mutex eventually; hand it straight back.
		go func() {
			<-done
			km.mu.Unlock()
			kl.release(key, km)
		}()
		if ctx.Err() == context.DeadlineExceeded {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// WithLockContext runs fn while holding the lock for key, waiting at most
// until ctx is done to acquire it.
func (kl *KeyLock) WithLockContext(ctx context.Context, key int64, fn func() error) error {
	if err := kl.LockContext(ctx, key); err != nil {
		return err
	}
	defer kl.Unlock(key)
	return fn()
}

// Ordered returns a and b in ascending order. It is the acquisition order for
// any pair of resources locked together, in memory or as database rows.
func Ordered(a, b int64) (first, second int64) {
	if a <= b {
		return a, b
	}
	return b, a
}
