package game

import (
	"fmt"
	"sort"
	"sync"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/model"
)

// Registry manages minigame registration and lookup by kind.
type Registry struct {
	games map[model.GameKind]MiniGame
	mu    sync.RWMutex
}

// NewRegistry creates a registry holding games.
func NewRegistry(games ...MiniGame) (*Registry, error) {
	r := &Registry{games: make(map[model.GameKind]MiniGame, len(games))}
	for _, g := range games {
		if err := r.Register(g); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a game. A game with the same kind is replaced.
func (r *Registry) Register(g MiniGame) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	if g.Kind() == "" {
		return fmt.Errorf("game kind cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.Kind()] = g
	return nil
}

// Get retrieves a game by kind.
func (r *Registry) Get(kind model.GameKind) (MiniGame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[kind]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, apperr.ReasonUnknownGame, "no game named %q", kind)
	}
	return g, nil
}

// List returns all registered games ordered by kind.
func (r *Registry) List() []MiniGame {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]MiniGame, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Kind() < games[j].Kind() })
	return games
}
