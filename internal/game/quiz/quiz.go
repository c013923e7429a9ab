// Package quiz implements a one-question general knowledge quiz.
package quiz

import (
	"context"
	"fmt"
	"sync"

	"hogwarts-game-core/internal/game"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/pkg/random"
)

// Reward is the attack power a correct answer earns.
const Reward = 7

// Question is a multiple-choice question. Answer indexes Options.
type Question struct {
	Text    string
	Options []string
	Answer  int
}

// Bank is the default question bank.
var Bank = []Question{
	{Text: "Which is the largest planet in the solar system?", Options: []string{"Mars", "Jupiter", "Saturn", "Venus"}, Answer: 1},
	{Text: "What is the chemical formula of water?", Options: []string{"CO2", "H2O", "O2", "N2"}, Answer: 1},
	{Text: "Which is the longest river in the world?", Options: []string{"Nile", "Amazon", "Yangtze", "Mississippi"}, Answer: 0},
	{Text: "What is the normal human body temperature in degrees Celsius?", Options: []string{"35.5", "36.5", "37.5", "38.5"}, Answer: 1},
	{Text: "Which is the largest continent?", Options: []string{"Africa", "North America", "Europe", "Asia"}, Answer: 3},
}

// Game implements game.MiniGame. Each villain has at most one pending question.
type Game struct {
	bank []Question
	rand random.Rand

	mu      sync.Mutex
	pending map[int64]int
}

// New creates a quiz over bank. An empty bank uses Bank.
func New(rnd random.Rand, bank []Question) *Game {
	if len(bank) == 0 {
		bank = Bank
	}
	return &Game{bank: bank, rand: rnd, pending: make(map[int64]int)}
}

func (g *Game) Kind() model.GameKind { return model.GameQuiz }

func (g *Game) Name() string { return "Quiz" }

func (g *Game) Description() string {
	return "Answer a multiple-choice question. Only a correct answer wins."
}

func (g *Game) Reward() int { return Reward }

// Play hands out a question when params has no "answer"; asking again
// returns the pending question. An "answer" index settles the pending one.
func (g *Game) Play(_ context.Context, villainID int64, params map[string]any) (*game.Result, error) {
	answer, hasAnswer := game.ParamInt(params, "answer")

	g.mu.Lock()
	defer g.mu.Unlock()

	idx, pending := g.pending[villainID]
	if !hasAnswer {
		if !pending {
			idx = g.rand.Intn(len(g.bank))
			g.pending[villainID] = idx
		}
		q := g.bank[idx]
		return &game.Result{
			Description: q.Text,
			Details: map[string]any{
				"question": q.Text,
				"options":  q.Options,
			},
		}, nil
	}

	if !pending {
		return nil, game.ErrNoSession
	}
	q := g.bank[idx]
	if answer < 0 || answer >= len(q.Options) {
		return nil, game.InvalidMove("answer must be between 0 and %d", len(q.Options)-1)
	}
	delete(g.pending, villainID)

	won := answer == q.Answer
	description := "Correct!"
	if !won {
		description = fmt.Sprintf("Wrong. The answer was %s.", q.Options[q.Answer])
	}
	return &game.Result{
		Concluded:   true,
		Won:         won,
		Description: description,
		Details: map[string]any{
			"question": q.Text,
			"answer":   answer,
			"correct":  q.Answer,
		},
	}, nil
}

// Abandon drops the villain's pending question. It reports whether one was pending.
func (g *Game) Abandon(_ context.Context, villainID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, pending := g.pending[villainID]
	delete(g.pending, villainID)
	return pending, nil
}
