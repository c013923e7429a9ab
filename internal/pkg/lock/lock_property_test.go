package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func held(kl *KeyLock) int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}

// TestConcurrentUpdatesSerializedProperty tests that concurrent updates under
// the same key never lose a write.
func TestConcurrentUpdatesSerializedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.Int64Range(1, 1000000).Draw(t, "key")
		numOps := rapid.IntRange(5, 40).Draw(t, "numOps")
		step := rapid.IntRange(1, 100).Draw(t, "step")

		kl := New()
		counter := 0

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = kl.WithLockContext(context.Background(), key, func() error {
					counter += step
					return nil
				})
			}()
		}
		wg.Wait()

		if counter != numOps*step {
			t.Fatalf("counter mismatch: expected %d, got %d", numOps*step, counter)
		}
		if n := held(kl); n != 0 {
			t.Fatalf("expected no held keys, got %d", n)
		}
	})
}

// TestIndependentKeysProperty tests that separate keys keep separate state.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numKeys := rapid.IntRange(2, 10).Draw(t, "numKeys")
		opsPerKey := rapid.IntRange(5, 20).Draw(t, "opsPerKey")

		kl := New()
		counts := make([]int, numKeys)

		var wg sync.WaitGroup
		wg.Add(numKeys * opsPerKey)
		for k := 0; k < numKeys; k++ {
			for j := 0; j < opsPerKey; j++ {
				go func(idx int) {
					defer wg.Done()
					_ = kl.WithLockContext(context.Background(), int64(idx), func() error {
						counts[idx]++
						return nil
					})
				}(k)
			}
		}
		wg.Wait()

		for k, c := range counts {
			if c != opsPerKey {
				t.Fatalf("key %d: expected %d, got %d", k, opsPerKey, c)
			}
		}
	})
}

// TestOrderedProperty tests that Ordered always yields ascending pairs.
func TestOrderedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int64().Draw(t, "a")
		b := rapid.Int64().Draw(t, "b")

		first, second := Ordered(a, b)
		if first > second {
			t.Fatalf("Ordered(%d, %d) = (%d, %d)", a, b, first, second)
		}
		if !(first == a && second == b) && !(first == b && second == a) {
			t.Fatalf("Ordered(%d, %d) lost a value", a, b)
		}
	})
}

func TestLockContext_Timeout(t *testing.T) {
	kl := New()
	require.NoError(t, kl.LockContext(context.Background(), 7))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := kl.LockContext(ctx, 7)
	assert.ErrorIs(t, err, ErrLockTimeout)

	kl.Unlock(7)

	require.Eventually(t, func() bool { return held(kl) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, kl.LockContext(context.Background(), 7))
	kl.Unlock(7)
}

func TestLockContext_Canceled(t *testing.T) {
	kl := New()
	require.NoError(t, kl.LockContext(context.Background(), 1))
	defer kl.Unlock(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := kl.LockContext(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithLockContext_RunsFn(t *testing.T) {
	kl := New()
	called := false
	err := kl.WithLockContext(context.Background(), 3, func() error {
		called = true
		assert.Equal(t, 1, held(kl))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 0, held(kl))
}

func TestUnlock_PanicsWhenNotLocked(t *testing.T) {
	kl := New()
	assert.Panics(t, func() { kl.Unlock(42) })
}
