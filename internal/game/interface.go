// Package game defines the villain minigames and the registry that looks them up.
//
// A minigame only decides outcomes; recording attempts and paying rewards is
// done by the service layer once a game reports that it has concluded.
package game

import (
	"context"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/model"
)

// Result represents the outcome of one move in a minigame.
type Result struct {
	// Concluded is set once the game is over and an attempt should be recorded.
	Concluded   bool
	Won         bool
	Description string
	Details     map[string]any
}

// MiniGame defines the interface every villain minigame implements.
type MiniGame interface {
	// Kind returns the identifier the game is registered under.
	Kind() model.GameKind

	// Name returns the game's display name.
	Name() string

	// Description returns a brief description of the game.
	Description() string

	// Reward returns the attack power a win is worth.
	Reward() int

	// Play makes one move for villainID. Single-move games conclude on every
	// call; session games conclude when the session ends.
	Play(ctx context.Context, villainID int64, params map[string]any) (*Result, error)
}

// Abandoner is implemented by games that keep state between moves.
// Abandon drops that state without concluding the game and reports whether
// anything was in progress.
type Abandoner interface {
	Abandon(ctx context.Context, villainID int64) (bool, error)
}

// InvalidMove builds the error returned for malformed or illegal moves.
func InvalidMove(format string, args ...any) error {
	return apperr.Newf(apperr.KindInvariantViolation, apperr.ReasonInvalidMove, format, args...)
}

// ErrNoSession is returned when a move needs a session the villain has not started.
var ErrNoSession = apperr.NotFound(apperr.ReasonNoGameSession, "no game in progress")

// ParamInt extracts an integer parameter.
func ParamInt(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}

	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val != float64(int(val)) {
			return 0, false
		}
		return int(val), true
	default:
		return 0, false
	}
}

// ParamString extracts a string parameter.
func ParamString(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
