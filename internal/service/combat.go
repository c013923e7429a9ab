package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/config"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/pkg/db"
	"hogwarts-game-core/internal/pkg/lock"
	"hogwarts-game-core/internal/repository"
)

var (
	errSelfCombat  = apperr.Invariant(apperr.ReasonSelfCombat, "cannot battle yourself")
	errIneligible  = apperr.Invariant(apperr.ReasonIneligibleCombatant, "a combatant with no heart cannot battle")
	errRiskyCombat = apperr.Invariant(apperr.ReasonInsufficientHeart, "not enough heart to risk a battle")
)

// Decide compares attack powers. No randomness is involved.
func Decide(attackerPower, defenderPower int) model.Outcome {
	switch {
	case attackerPower > defenderPower:
		return model.OutcomeWin
	case attackerPower < defenderPower:
		return model.OutcomeLose
	default:
		return model.OutcomeTie
	}
}

// CheckCombatants validates a battle before any mutation. minHeart is the
// heart the attacker needs to start it.
func CheckCombatants(attacker, defender model.Profile, minHeart int) (model.CombatStats, model.CombatStats, error) {
	a, okA := attacker.(model.Combatant)
	d, okD := defender.(model.Combatant)
	if !okA || !okD {
		return model.CombatStats{}, model.CombatStats{}, errCombatRole
	}
	as, ds := a.Combat(), d.Combat()
	if as.Heart <= 0 || ds.Heart <= 0 {
		return as, ds, errIneligible
	}
	if as.Heart < minHeart {
		return as, ds, errRiskyCombat
	}
	return as, ds, nil
}

// CombatService resolves battles between combat principals.
type CombatService struct {
	runner     *db.Runner
	principals *repository.PrincipalRepository
	stats      *StatService
	matches    *repository.MatchRepository
	cfg        config.CombatConfig
}

// NewCombatService creates a new CombatService instance.
func NewCombatService(
	runner *db.Runner,
	principals *repository.PrincipalRepository,
	stats *StatService,
	matches *repository.MatchRepository,
	cfg config.CombatConfig,
) *CombatService {
	return &CombatService{
		runner:     runner,
		principals: principals,
		stats:      stats,
		matches:    matches,
		cfg:        cfg,
	}
}

// ResolveCombat fights attacker against defender. Both rows are locked in
// ascending id order in one transaction, so opposite battles between the same
// pair cannot deadlock and no result is applied against a stale read.
// The winner gains attack power; the loser loses one heart, floored at zero.
func (s *CombatService) ResolveCombat(ctx context.Context, attackerID, defenderID int64) (*model.BattleReport, error) {
	if attackerID == defenderID {
		return nil, errSelfCombat
	}

	var report *model.BattleReport
	err := s.runner.InTx(ctx, func(tx pgx.Tx) error {
		principals := s.principals.WithTx(tx)

		first, second := lock.Ordered(attackerID, defenderID)
		accounts := make(map[int64]*model.Account, 2)
		for _, id := range []int64{first, second} {
			acc, err := principals.GetAccountForUpdate(ctx, id)
			if err != nil {
				return notFound(err, "lock combatant")
			}
			accounts[id] = acc
		}

		as, ds, err := CheckCombatants(accounts[attackerID].Profile, accounts[defenderID].Profile, s.cfg.InitiatorMinHeart)
		if err != nil {
			return err
		}

		stats := s.stats.WithTx(tx)
		outcome := Decide(as.AttackPower, ds.AttackPower)
		switch outcome {
		case model.OutcomeWin:
			if as.AttackPower, err = stats.AdjustAttackPower(ctx, attackerID, s.cfg.WinReward); err != nil {
				return err
			}
			if ds.Heart, err = stats.AdjustHeart(ctx, defenderID, -1, 0); err != nil {
				return err
			}
		case model.OutcomeLose:
			if ds.AttackPower, err = stats.AdjustAttackPower(ctx, defenderID, s.cfg.WinReward); err != nil {
				return err
			}
			if as.Heart, err = stats.AdjustHeart(ctx, attackerID, -1, 0); err != nil {
				return err
			}
		}

		match, err := s.matches.WithTx(tx).Create(ctx, attackerID, defenderID, outcome)
		if err != nil {
			return err
		}

		report = &model.BattleReport{Match: *match, Attacker: as, Defender: ds}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("attacker_id", attackerID).
		Int64("defender_id", defenderID).
		Str("outcome", string(report.Match.Outcome)).
		Msg("Battle resolved")

	return report, nil
}

// BattleList returns the principals the caller may battle: combat principals
// of other roles, optionally narrowed to one role.
func (s *CombatService) BattleList(ctx context.Context, caller model.Caller, only model.Role) ([]model.Opponent, error) {
	if !caller.Role.HasCombatStats() {
		return nil, errCombatRole
	}
	if only != "" && !only.HasCombatStats() {
		return nil, apperr.Newf(apperr.KindRoleNotEligible, apperr.ReasonCombatRoleRequired,
			"role %s does not battle", only)
	}
	return s.principals.Opponents(ctx, caller.ID, caller.Role, only)
}

// MatchHistory returns the principal's most recent battles.
func (s *CombatService) MatchHistory(ctx context.Context, principalID int64, limit int) ([]model.MatchResult, error) {
	return s.matches.ListByPrincipal(ctx, principalID, limit)
}
