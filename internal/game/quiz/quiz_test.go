package quiz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/game"
	"hogwarts-game-core/internal/pkg/random"
)

type fixedRand struct{ n int }

func (f fixedRand) Intn(int) int     { return f.n }
func (f fixedRand) Float64() float64 { return 0 }

func TestBankAnswersInRange(t *testing.T) {
	require.NotEmpty(t, Bank)
	for _, q := range Bank {
		assert.GreaterOrEqual(t, q.Answer, 0, q.Text)
		assert.Less(t, q.Answer, len(q.Options), q.Text)
	}
}

func TestGame_CorrectAnswerWins(t *testing.T) {
	g := New(fixedRand{n: 0}, nil)
	ctx := context.Background()

	res, err := g.Play(ctx, 3, nil)
	require.NoError(t, err)
	assert.False(t, res.Concluded)
	assert.Equal(t, Bank[0].Text, res.Details["question"])

	res, err = g.Play(ctx, 3, map[string]any{"answer": Bank[0].Answer})
	require.NoError(t, err)
	assert.True(t, res.Concluded)
	assert.True(t, res.Won)
}

func TestGame_WrongAnswerLoses(t *testing.T) {
	g := New(fixedRand{n: 4}, nil)
	ctx := context.Background()

	_, err := g.Play(ctx, 3, nil)
	require.NoError(t, err)

	res, err := g.Play(ctx, 3, map[string]any{"answer": 0})
	require.NoError(t, err)
	assert.True(t, res.Concluded)
	assert.False(t, res.Won)
	assert.Equal(t, 3, res.Details["correct"])
}

func TestGame_AnswerWithoutQuestion(t *testing.T) {
	g := New(fixedRand{}, nil)

	_, err := g.Play(context.Background(), 3, map[string]any{"answer": 1})
	assert.ErrorIs(t, err, game.ErrNoSession)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestGame_OutOfRangeAnswerKeepsQuestion(t *testing.T) {
	g := New(fixedRand{n: 1}, nil)
	ctx := context.Background()

	_, err := g.Play(ctx, 3, nil)
	require.NoError(t, err)

	_, err = g.Play(ctx, 3, map[string]any{"answer": 9})
	assert.True(t, apperr.IsReason(err, apperr.ReasonInvalidMove))

	res, err := g.Play(ctx, 3, map[string]any{"answer": float64(Bank[1].Answer)})
	require.NoError(t, err)
	assert.True(t, res.Won)
}

func TestGame_RepeatAskReturnsPending(t *testing.T) {
	g := New(random.New(5), nil)
	ctx := context.Background()

	first, err := g.Play(ctx, 3, nil)
	require.NoError(t, err)
	second, err := g.Play(ctx, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Details["question"], second.Details["question"])
}

// TestAnswerSettlesOnceProperty checks a question settles exactly once no
// matter which option is picked.
func TestAnswerSettlesOnceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := New(random.New(rapid.Int64().Draw(t, "seed")), nil)
		ctx := context.Background()

		ask, err := g.Play(ctx, 1, nil)
		if err != nil {
			t.Fatal(err)
		}
		options := ask.Details["options"].([]string)
		pick := rapid.IntRange(0, len(options)-1).Draw(t, "pick")

		res, err := g.Play(ctx, 1, map[string]any{"answer": pick})
		if err != nil {
			t.Fatal(err)
		}
		if !res.Concluded {
			t.Fatal("answer did not conclude the quiz")
		}
		if res.Won != (pick == res.Details["correct"].(int)) {
			t.Fatalf("pick %d won=%v correct=%v", pick, res.Won, res.Details["correct"])
		}

		if _, err := g.Play(ctx, 1, map[string]any{"answer": pick}); err == nil {
			t.Fatal("second answer settled again")
		}
	})
}

func TestGame_Abandon(t *testing.T) {
	g := New(fixedRand{}, nil)
	ctx := context.Background()

	var _ game.Abandoner = g

	_, err := g.Play(ctx, 3, nil)
	require.NoError(t, err)

	dropped, err := g.Abandon(ctx, 3)
	require.NoError(t, err)
	assert.True(t, dropped)

	_, err = g.Play(ctx, 3, map[string]any{"answer": Bank[0].Answer})
	assert.ErrorIs(t, err, game.ErrNoSession)

	dropped, err = g.Abandon(ctx, 3)
	require.NoError(t, err)
	assert.False(t, dropped)
}
