package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/pkg/db"
	"hogwarts-game-core/internal/repository"
)

// HeartAttackCost is what a Student or Villain pays for one heart.
const HeartAttackCost = 5

// HeartMoneyCost is what a Muggle pays for one heart.
var HeartMoneyCost = decimal.NewFromInt(1000)

var (
	errMaxHeart          = apperr.Invariant(apperr.ReasonMaxHeartReached, "heart is already full")
	errNoResource        = apperr.Invariant(apperr.ReasonInsufficientResource, "not enough to pay for a heart")
	errCombatRole        = apperr.RoleNotEligible(apperr.ReasonCombatRoleRequired, "principal has no combat stats")
	errAttackUnderflow   = apperr.Invariant(apperr.ReasonInsufficientResource, "attack power cannot go below zero")
	errInsufficientHeart = apperr.Invariant(apperr.ReasonInsufficientHeart, "not enough heart")
)

// CheckHeartPurchase decides whether the profile can buy one heart.
// Full heart is reported before a missing resource.
func CheckHeartPurchase(p model.Profile) error {
	c, ok := p.(model.Combatant)
	if !ok {
		return apperr.Newf(apperr.KindRoleNotEligible, apperr.ReasonRoleNotEligible,
			"role %s cannot purchase heart", p.Role())
	}
	stats := c.Combat()
	if stats.Heart >= model.MaxHeart {
		return errMaxHeart
	}
	if m, ok := p.(model.MuggleProfile); ok {
		if m.Wallet.Money.LessThan(HeartMoneyCost) {
			return errNoResource
		}
		return nil
	}
	if stats.AttackPower < HeartAttackCost {
		return errNoResource
	}
	return nil
}

// StatService is the single place attack power and heart change. Combat,
// grading, minigames and magic purchases call it bound to their transaction.
type StatService struct {
	runner     *db.Runner
	principals *repository.PrincipalRepository
}

// NewStatService creates a new StatService instance.
func NewStatService(runner *db.Runner, principals *repository.PrincipalRepository) *StatService {
	return &StatService{runner: runner, principals: principals}
}

// WithTx returns a StatService whose mutations run in tx.
func (s *StatService) WithTx(tx pgx.Tx) *StatService {
	return &StatService{runner: s.runner, principals: s.principals.WithTx(tx)}
}

// PurchaseHeart buys one heart with money (Muggle) or attack power (Student, Villain).
func (s *StatService) PurchaseHeart(ctx context.Context, id int64) (model.CombatStats, error) {
	var stats model.CombatStats

	err := s.runner.InTx(ctx, func(tx pgx.Tx) error {
		principals := s.principals.WithTx(tx)

		acc, err := principals.GetAccountForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "get principal")
		}
		if err := CheckHeartPurchase(acc.Profile); err != nil {
			return err
		}

		if acc.Role == model.RoleMuggle {
			stats, _, err = principals.TradeMoneyForHeart(ctx, id, HeartMoneyCost)
		} else {
			stats, err = principals.TradeAttackForHeart(ctx, id, HeartAttackCost)
		}
		if errors.Is(err, repository.ErrConditionFailed) {
			// The row is locked, so the check above already saw this state.
			return errNoResource
		}
		return notFound(err, "purchase heart")
	})
	if err != nil {
		return model.CombatStats{}, err
	}

	log.Info().
		Int64("principal_id", id).
		Int("heart", stats.Heart).
		Msg("Heart purchased")

	return stats, nil
}

// AdjustAttackPower adds delta to attack power, refusing to go below zero.
func (s *StatService) AdjustAttackPower(ctx context.Context, id int64, delta int) (int, error) {
	attack, err := s.principals.AddAttackPower(ctx, id, delta)
	if err == nil {
		return attack, nil
	}
	if !errors.Is(err, repository.ErrConditionFailed) {
		return 0, notFound(err, "adjust attack power")
	}
	return 0, s.classify(ctx, id, errAttackUnderflow)
}

// AdjustHeart adds delta to heart. A decrease that would leave heart below a
// positive floor is refused, as is any decrease at zero heart; results are
// clamped to [0, MaxHeart].
func (s *StatService) AdjustHeart(ctx context.Context, id int64, delta, floor int) (int, error) {
	heart, err := s.principals.AdjustHeart(ctx, id, delta, floor)
	if err == nil {
		return heart, nil
	}
	if !errors.Is(err, repository.ErrConditionFailed) {
		return 0, notFound(err, "adjust heart")
	}
	return 0, s.classify(ctx, id, errInsufficientHeart)
}

// SpendForPower debits price from a Muggle's wallet and adds power to their
// attack in one guarded statement.
func (s *StatService) SpendForPower(ctx context.Context, id int64, price decimal.Decimal, power int) (model.CombatStats, model.Wallet, error) {
	stats, wallet, err := s.principals.SpendForPower(ctx, id, price, power)
	if err == nil {
		return stats, wallet, nil
	}
	if !errors.Is(err, repository.ErrConditionFailed) {
		return model.CombatStats{}, model.Wallet{}, notFound(err, "spend for power")
	}
	return model.CombatStats{}, model.Wallet{}, errInsufficientFunds.With("price", price.StringFixed(2))
}

// classify explains why a guarded update matched no row.
func (s *StatService) classify(ctx context.Context, id int64, guard error) error {
	acc, err := s.principals.GetAccount(ctx, id)
	if err != nil {
		return notFound(err, "get principal")
	}
	if _, ok := acc.Combatant(); !ok {
		return errCombatRole
	}
	return guard
}
