package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"hogwarts-game-core/internal/game"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/pkg/db"
	"hogwarts-game-core/internal/repository"
)

// MinigameService lets villains play minigames for attack power.
type MinigameService struct {
	runner     *db.Runner
	principals *repository.PrincipalRepository
	stats      *StatService
	attempts   *repository.GameAttemptRepository
	games      *game.Registry
}

// NewMinigameService creates a new MinigameService instance.
func NewMinigameService(
	runner *db.Runner,
	principals *repository.PrincipalRepository,
	stats *StatService,
	attempts *repository.GameAttemptRepository,
	games *game.Registry,
) *MinigameService {
	return &MinigameService{
		runner:     runner,
		principals: principals,
		stats:      stats,
		attempts:   attempts,
		games:      games,
	}
}

// Games lists the playable minigames.
func (s *MinigameService) Games() []game.MiniGame {
	return s.games.List()
}

// Play makes one move in a minigame. When the move concludes the game the
// attempt is recorded and a win is paid out in one transaction.
func (s *MinigameService) Play(ctx context.Context, villainID int64, kind model.GameKind, params map[string]any) (*model.MinigameOutcome, error) {
	g, err := s.games.Get(kind)
	if err != nil {
		return nil, err
	}

	acc, err := s.principals.GetAccount(ctx, villainID)
	if err != nil {
		return nil, notFound(err, "get villain")
	}
	if err := requireRole(acc, model.RoleVillain); err != nil {
		return nil, err
	}

	res, err := g.Play(ctx, villainID, params)
	if err != nil {
		return nil, err
	}

	outcome := &model.MinigameOutcome{
		Game:        kind,
		Concluded:   res.Concluded,
		Won:         res.Won,
		Description: res.Description,
		Details:     res.Details,
	}
	if c, ok := acc.Combatant(); ok {
		outcome.AttackPower = c.Combat().AttackPower
	}
	if !res.Concluded {
		return outcome, nil
	}

	reward := 0
	if res.Won {
		reward = g.Reward()
	}
	attempt, attack, err := s.record(ctx, kind, villainID, res.Won, reward)
	if err != nil {
		return nil, err
	}
	outcome.Attempt = attempt
	outcome.Reward = reward
	if attack >= 0 {
		outcome.AttackPower = attack
	}

	return outcome, nil
}

// Abandon drops the villain's game in progress without recording an attempt.
func (s *MinigameService) Abandon(ctx context.Context, villainID int64, kind model.GameKind) error {
	g, err := s.games.Get(kind)
	if err != nil {
		return err
	}
	a, ok := g.(game.Abandoner)
	if !ok {
		return game.ErrNoSession
	}
	dropped, err := a.Abandon(ctx, villainID)
	if err != nil {
		return err
	}
	if !dropped {
		return game.ErrNoSession
	}

	log.Info().
		Int64("villain_id", villainID).
		Str("game", string(kind)).
		Msg("Game abandoned")
	return nil
}

// record appends the attempt and adds reward to attack power. attack is -1
// when no reward was paid.
func (s *MinigameService) record(ctx context.Context, kind model.GameKind, villainID int64, won bool, reward int) (*model.GameAttempt, int, error) {
	var (
		attempt *model.GameAttempt
		attack  = -1
	)
	err := s.runner.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		attempt, err = s.attempts.WithTx(tx).Create(ctx, kind, villainID, won)
		if err != nil {
			return err
		}
		if reward > 0 {
			attack, err = s.stats.WithTx(tx).AdjustAttackPower(ctx, villainID, reward)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).
			Int64("villain_id", villainID).
			Str("game", string(kind)).
			Bool("won", won).
			Msg("Failed to record game attempt")
		return nil, 0, err
	}

	log.Info().
		Int64("villain_id", villainID).
		Str("game", string(kind)).
		Bool("won", won).
		Int("reward", reward).
		Msg("Game attempt recorded")

	return attempt, attack, nil
}

// GameHistory aggregates a villain's attempts per game.
func (s *MinigameService) GameHistory(ctx context.Context, villainID int64) ([]model.GameHistory, error) {
	return s.attempts.History(ctx, villainID)
}
