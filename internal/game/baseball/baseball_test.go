package baseball

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/pkg/random"
)

func active(g *Game) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// zeroRand always draws the first candidate, so NewSecret yields 012.
type zeroRand struct{}

func (zeroRand) Intn(int) int     { return 0 }
func (zeroRand) Float64() float64 { return 0 }

func TestScore(t *testing.T) {
	secret := Secret{1, 2, 3}
	tests := []struct {
		guess          Secret
		strikes, balls int
	}{
		{Secret{1, 2, 3}, 3, 0},
		{Secret{3, 1, 2}, 0, 3},
		{Secret{1, 3, 2}, 1, 2},
		{Secret{4, 5, 6}, 0, 0},
		{Secret{1, 5, 6}, 1, 0},
		{Secret{5, 1, 6}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.guess.String(), func(t *testing.T) {
			s, b := Score(secret, tt.guess)
			assert.Equal(t, tt.strikes, s, "strikes")
			assert.Equal(t, tt.balls, b, "balls")
		})
	}
}

func TestParseGuess(t *testing.T) {
	g, ok := ParseGuess("092")
	assert.True(t, ok)
	assert.Equal(t, Secret{0, 9, 2}, g)

	for _, bad := range []string{"", "12", "1234", "112", "1a2", "-12"} {
		_, ok := ParseGuess(bad)
		assert.False(t, ok, bad)
	}
}

// TestNewSecretDistinctProperty checks every secret has distinct digits.
func TestNewSecretDistinctProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		src := random.New(rapid.Int64().Draw(t, "seed"))
		s := NewSecret(src)

		var seen [10]bool
		for _, d := range s {
			if d < 0 || d > 9 {
				t.Fatalf("digit %d out of range in %s", d, s)
			}
			if seen[d] {
				t.Fatalf("repeated digit in %s", s)
			}
			seen[d] = true
		}

		if _, ok := ParseGuess(s.String()); !ok {
			t.Fatalf("secret %s is not a valid guess", s)
		}
	})
}

// TestScoreBoundsProperty checks strikes+balls never exceeds the digit count
// and only the secret itself scores all strikes.
func TestScoreBoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secret := NewSecret(random.New(rapid.Int64().Draw(t, "secret")))
		guess := NewSecret(random.New(rapid.Int64().Draw(t, "guess")))

		s, b := Score(secret, guess)
		if s+b > Digits {
			t.Fatalf("strikes %d + balls %d > %d", s, b, Digits)
		}
		if (s == Digits) != (secret == guess) {
			t.Fatalf("secret %s guess %s strikes %d", secret, guess, s)
		}
	})
}

func TestGame_WinWithinLimit(t *testing.T) {
	g := New(zeroRand{})
	ctx := context.Background()

	res, err := g.Play(ctx, 7, nil)
	require.NoError(t, err)
	assert.False(t, res.Concluded)
	assert.Equal(t, 1, active(g))

	res, err = g.Play(ctx, 7, map[string]any{"guess": "210"})
	require.NoError(t, err)
	assert.False(t, res.Concluded)
	assert.Equal(t, 1, res.Details["strikes"])
	assert.Equal(t, 2, res.Details["balls"])

	res, err = g.Play(ctx, 7, map[string]any{"guess": "012"})
	require.NoError(t, err)
	assert.True(t, res.Concluded)
	assert.True(t, res.Won)
	assert.Equal(t, 2, res.Details["guesses_used"])
	assert.Equal(t, 0, active(g))
}

func TestGame_LossAfterMaxGuesses(t *testing.T) {
	g := New(zeroRand{})
	ctx := context.Background()

	for i := 1; i < MaxGuesses; i++ {
		res, err := g.Play(ctx, 7, map[string]any{"guess": "789"})
		require.NoError(t, err)
		require.False(t, res.Concluded, "guess %d", i)
	}

	res, err := g.Play(ctx, 7, map[string]any{"guess": "789"})
	require.NoError(t, err)
	assert.True(t, res.Concluded)
	assert.False(t, res.Won)
	assert.Equal(t, "012", res.Details["secret"])
	assert.Equal(t, 0, active(g))
}

func TestGame_InvalidGuessKeepsSession(t *testing.T) {
	g := New(zeroRand{})
	ctx := context.Background()

	_, err := g.Play(ctx, 7, map[string]any{"guess": "112"})
	assert.True(t, apperr.IsReason(err, apperr.ReasonInvalidMove))
	assert.Equal(t, 1, active(g))

	res, err := g.Play(ctx, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, MaxGuesses, res.Details["guesses_left"])
}

func TestGame_Abandon(t *testing.T) {
	g := New(zeroRand{})
	ctx := context.Background()

	_, err := g.Play(ctx, 7, map[string]any{"guess": "789"})
	require.NoError(t, err)

	dropped, err := g.Abandon(ctx, 7)
	require.NoError(t, err)
	assert.True(t, dropped)

	dropped, err = g.Abandon(ctx, 7)
	require.NoError(t, err)
	assert.False(t, dropped)
	assert.Equal(t, 0, active(g))

	// The next game starts over with a full set of guesses.
	res, err := g.Play(ctx, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, MaxGuesses, res.Details["guesses_left"])
}

func TestGame_ConcurrentVillains(t *testing.T) {
	g := New(random.New(1))
	ctx := context.Background()

	var wg sync.WaitGroup
	for v := int64(1); v <= 8; v++ {
		wg.Add(1)
		go func(villain int64) {
			defer wg.Done()
			for i := 0; i < MaxGuesses; i++ {
				res, err := g.Play(ctx, villain, map[string]any{"guess": "987"})
				if err != nil {
					t.Error(err)
					return
				}
				if res.Concluded {
					return
				}
			}
		}(v)
	}
	wg.Wait()

	// Each villain either solved it early or used every guess.
	assert.Equal(t, 0, active(g))
}
