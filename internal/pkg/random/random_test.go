package random

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBetweenStaysInRange(t *testing.T) {
	src := New(1)
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.IntRange(-100, 100).Draw(t, "lo")
		hi := lo + rapid.IntRange(0, 100).Draw(t, "width")

		v := Between(src, lo, hi)
		if v < lo || v > hi {
			t.Fatalf("Between(%d, %d) = %d", lo, hi, v)
		}
	})
}

func TestSameSeedSameSequence(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestConcurrentDraws(t *testing.T) {
	src := NewTimeSeeded()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f := src.Float64()
				assert.True(t, f >= 0 && f < 1)
			}
		}()
	}
	wg.Wait()
}
