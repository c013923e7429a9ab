// Package rps implements rock-paper-scissors against the server.
package rps

import (
	"context"
	"fmt"
	"strings"

	"hogwarts-game-core/internal/game"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/pkg/random"
)

// Reward is the attack power a win earns.
const Reward = 3

// Choice is a hand shape.
type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
)

// Choices lists the hands in draw order.
var Choices = []Choice{Rock, Paper, Scissors}

// beats maps each hand to the hand it defeats.
var beats = map[Choice]Choice{
	Rock:     Scissors,
	Paper:    Rock,
	Scissors: Paper,
}

// Verdict is the result of one round from the player's side.
type Verdict string

const (
	VerdictWin  Verdict = "win"
	VerdictLose Verdict = "lose"
	VerdictTie  Verdict = "tie"
)

// Judge decides a round.
func Judge(player, computer Choice) Verdict {
	switch {
	case player == computer:
		return VerdictTie
	case beats[player] == computer:
		return VerdictWin
	default:
		return VerdictLose
	}
}

// ParseChoice validates a hand name.
func ParseChoice(s string) (Choice, bool) {
	c := Choice(strings.ToLower(strings.TrimSpace(s)))
	_, ok := beats[c]
	return c, ok
}

// Game implements game.MiniGame.
type Game struct {
	rand random.Rand
}

// New creates a rock-paper-scissors game drawing the computer's hand from rnd.
func New(rnd random.Rand) *Game {
	return &Game{rand: rnd}
}

func (g *Game) Kind() model.GameKind { return model.GameRPS }

func (g *Game) Name() string { return "Rock Paper Scissors" }

func (g *Game) Description() string {
	return "Pick rock, paper or scissors. Beat the computer to win; a tie does not count."
}

func (g *Game) Reward() int { return Reward }

// Play expects params["choice"].
func (g *Game) Play(_ context.Context, _ int64, params map[string]any) (*game.Result, error) {
	raw, _ := game.ParamString(params, "choice")
	player, ok := ParseChoice(raw)
	if !ok {
		return nil, game.InvalidMove("choice must be rock, paper or scissors")
	}

	computer := Choices[g.rand.Intn(len(Choices))]
	verdict := Judge(player, computer)

	var description string
	switch verdict {
	case VerdictWin:
		description = fmt.Sprintf("You played %s against %s. You win!", player, computer)
	case VerdictLose:
		description = fmt.Sprintf("You played %s against %s. You lose.", player, computer)
	default:
		description = fmt.Sprintf("Both played %s. It's a tie.", player)
	}

	return &game.Result{
		Concluded:   true,
		Won:         verdict == VerdictWin,
		Description: description,
		Details: map[string]any{
			"player":   string(player),
			"computer": string(computer),
			"verdict":  string(verdict),
		},
	}, nil
}
