// Package baseball implements number baseball: guess a secret of three
// distinct digits from strike and ball hints.
//
// Sessions live in memory, one per villain. A villain's session is only
// touched while that villain's key lock is held.
package baseball

import (
	"context"
	"fmt"
	"sync"

	"hogwarts-game-core/internal/game"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/pkg/lock"
	"hogwarts-game-core/internal/pkg/random"
)

const (
	// Reward is the attack power a win earns.
	Reward = 5
	// Digits is the length of the secret.
	Digits = 3
	// MaxGuesses is how many guesses a session allows.
	MaxGuesses = 10
)

// Secret is a sequence of distinct digits.
type Secret [Digits]int

func (s Secret) String() string {
	return fmt.Sprintf("%d%d%d", s[0], s[1], s[2])
}

// ParseGuess reads a guess of Digits distinct decimal digits.
func ParseGuess(s string) (Secret, bool) {
	var g Secret
	if len(s) != Digits {
		return g, false
	}
	var seen [10]bool
	for i := 0; i < Digits; i++ {
		d := int(s[i] - '0')
		if d < 0 || d > 9 || seen[d] {
			return g, false
		}
		seen[d] = true
		g[i] = d
	}
	return g, true
}

// Score counts strikes (right digit, right place) and balls (right digit,
// wrong place).
func Score(secret, guess Secret) (strikes, balls int) {
	for i, d := range guess {
		for j, s := range secret {
			if d != s {
				continue
			}
			if i == j {
				strikes++
			} else {
				balls++
			}
		}
	}
	return strikes, balls
}

// NewSecret draws Digits distinct digits.
func NewSecret(rnd random.Rand) Secret {
	pool := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	var s Secret
	for i := 0; i < Digits; i++ {
		k := rnd.Intn(len(pool))
		s[i] = pool[k]
		pool = append(pool[:k], pool[k+1:]...)
	}
	return s
}

type session struct {
	secret  Secret
	guesses int
}

// Game implements game.MiniGame.
type Game struct {
	rand  random.Rand
	locks *lock.KeyLock

	mu       sync.Mutex
	sessions map[int64]*session
}

// New creates a number baseball game.
func New(rnd random.Rand) *Game {
	return &Game{
		rand:     rnd,
		locks:    lock.New(),
		sessions: make(map[int64]*session),
	}
}

func (g *Game) Kind() model.GameKind { return model.GameBaseball }

func (g *Game) Name() string { return "Number Baseball" }

func (g *Game) Description() string {
	return fmt.Sprintf("Guess %d distinct digits in %d tries. Strikes are right digits in the right place, balls are right digits in the wrong place.",
		Digits, MaxGuesses)
}

func (g *Game) Reward() int { return Reward }

// Play starts a session when the villain has none and evaluates
// params["guess"] when present.
func (g *Game) Play(ctx context.Context, villainID int64, params map[string]any) (*game.Result, error) {
	raw, hasGuess := game.ParamString(params, "guess")

	var result *game.Result
	err := g.locks.WithLockContext(ctx, villainID, func() error {
		s := g.session(villainID)
		if s == nil {
			s = &session{secret: NewSecret(g.rand)}
			g.setSession(villainID, s)
			if !hasGuess {
				result = &game.Result{
					Description: fmt.Sprintf("A new secret is set. You have %d guesses.", MaxGuesses),
					Details:     map[string]any{"guesses_left": MaxGuesses},
				}
				return nil
			}
		}

		if !hasGuess {
			result = &game.Result{
				Description: "A game is already in progress.",
				Details:     map[string]any{"guesses_left": MaxGuesses - s.guesses},
			}
			return nil
		}

		guess, ok := ParseGuess(raw)
		if !ok {
			return game.InvalidMove("guess must be %d distinct digits", Digits)
		}

		s.guesses++
		strikes, balls := Score(s.secret, guess)
		left := MaxGuesses - s.guesses
		details := map[string]any{
			"guess":        guess.String(),
			"strikes":      strikes,
			"balls":        balls,
			"guesses_used": s.guesses,
			"guesses_left": left,
		}

		switch {
		case strikes == Digits:
			g.clearSession(villainID)
			result = &game.Result{
				Concluded:   true,
				Won:         true,
				Description: fmt.Sprintf("%s is correct! Solved in %d guesses.", guess, s.guesses),
				Details:     details,
			}
		case left == 0:
			g.clearSession(villainID)
			details["secret"] = s.secret.String()
			result = &game.Result{
				Concluded:   true,
				Description: fmt.Sprintf("Out of guesses. The secret was %s.", s.secret),
				Details:     details,
			}
		default:
			result = &game.Result{
				Description: fmt.Sprintf("%s: %d strike(s), %d ball(s). %d guesses left.", guess, strikes, balls, left),
				Details:     details,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Abandon drops the villain's session. It reports whether one was in progress.
func (g *Game) Abandon(ctx context.Context, villainID int64) (bool, error) {
	dropped := false
	err := g.locks.WithLockContext(ctx, villainID, func() error {
		if g.session(villainID) != nil {
			g.clearSession(villainID)
			dropped = true
		}
		return nil
	})
	return dropped, err
}

func (g *Game) session(villainID int64) *session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[villainID]
}

func (g *Game) setSession(villainID int64, s *session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[villainID] = s
}

func (g *Game) clearSession(villainID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, villainID)
}
