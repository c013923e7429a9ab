// Package engine is the call surface of the game core. Every operation takes
// the caller already authenticated by the request layer, checks that the
// caller's role may perform it and delegates to the services.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/game"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/service"
)

var (
	anyRole    = []model.Role{model.RoleStudent, model.RoleProfessor, model.RoleVillain, model.RoleMuggle, model.RoleAdmin}
	combatRole = []model.Role{model.RoleStudent, model.RoleVillain, model.RoleMuggle}
	students   = []model.Role{model.RoleStudent}
	professors = []model.Role{model.RoleProfessor}
	villains   = []model.Role{model.RoleVillain}
	muggles    = []model.Role{model.RoleMuggle}
	admins     = []model.Role{model.RoleAdmin}
	boardRoles = []model.Role{model.RoleStudent, model.RoleProfessor, model.RoleAdmin}
)

// Engine exposes the game operations.
type Engine struct {
	stats      *service.StatService
	market     *service.MarketService
	combat     *service.CombatService
	enrollment *service.EnrollmentService
	grading    *service.GradingService
	magic      *service.MagicService
	ranking    *service.RankingService
	minigames  *service.MinigameService
}

// New creates an Engine over the services.
func New(
	stats *service.StatService,
	market *service.MarketService,
	combat *service.CombatService,
	enrollment *service.EnrollmentService,
	grading *service.GradingService,
	magic *service.MagicService,
	ranking *service.RankingService,
	minigames *service.MinigameService,
) *Engine {
	return &Engine{
		stats:      stats,
		market:     market,
		combat:     combat,
		enrollment: enrollment,
		grading:    grading,
		magic:      magic,
		ranking:    ranking,
		minigames:  minigames,
	}
}

// gate rejects callers whose role is not in roles.
func gate(caller model.Caller, op string, roles []model.Role) error {
	for _, r := range roles {
		if caller.Role == r {
			return nil
		}
	}
	log.Warn().
		Int64("principal_id", caller.ID).
		Str("role", string(caller.Role)).
		Str("op", op).
		Msg("Role not eligible for operation")
	return apperr.Newf(apperr.KindRoleNotEligible, apperr.ReasonRoleNotEligible,
		"role %s cannot %s", caller.Role, op)
}

// run gates the caller, then calls fn. A panic in fn is logged and returned
// as an error.
func run[T any](caller model.Caller, op string, roles []model.Role, fn func() (T, error)) (result T, err error) {
	if err := gate(caller, op, roles); err != nil {
		return result, err
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Int64("principal_id", caller.ID).
				Str("op", op).
				Msg("Recovered from panic in operation")
			err = fmt.Errorf("%s: internal error", op)
		}
	}()

	result, err = fn()
	if err != nil && apperr.KindOf(err) == apperr.KindUnknown {
		log.Error().Err(err).
			Int64("principal_id", caller.ID).
			Str("op", op).
			Msg("Operation failed")
	}
	return result, err
}

// ---- Stats ----

// PurchaseHeart buys one heart for the caller.
func (e *Engine) PurchaseHeart(ctx context.Context, caller model.Caller) (model.CombatStats, error) {
	return run(caller, "purchase heart", combatRole, func() (model.CombatStats, error) {
		return e.stats.PurchaseHeart(ctx, caller.ID)
	})
}

// ---- Market ----

// ListItemPrices returns the current market prices.
func (e *Engine) ListItemPrices(ctx context.Context, caller model.Caller) ([]model.PriceQuote, error) {
	return run(caller, "list item prices", anyRole, func() ([]model.PriceQuote, error) {
		return e.market.ListItemPrices(ctx)
	})
}

// BuyItem buys quantity units of an item for the calling Muggle at the current price.
func (e *Engine) BuyItem(ctx context.Context, caller model.Caller, itemID int64, quantity int) (*model.Receipt, error) {
	return run(caller, "buy items", muggles, func() (*model.Receipt, error) {
		return e.market.Buy(ctx, caller.ID, itemID, quantity)
	})
}

// SellItem sells quantity units of a held item at the current price.
func (e *Engine) SellItem(ctx context.Context, caller model.Caller, itemID int64, quantity int) (*model.Receipt, error) {
	return run(caller, "sell items", muggles, func() (*model.Receipt, error) {
		return e.market.Sell(ctx, caller.ID, itemID, quantity)
	})
}

// Holdings returns the calling Muggle's portfolio valued at current prices.
func (e *Engine) Holdings(ctx context.Context, caller model.Caller) ([]model.HoldingView, error) {
	return run(caller, "view holdings", muggles, func() ([]model.HoldingView, error) {
		return e.market.Holdings(ctx, caller.ID)
	})
}

// Trades returns the calling Muggle's most recent trades.
func (e *Engine) Trades(ctx context.Context, caller model.Caller, limit int) ([]*model.Trade, error) {
	return run(caller, "view trades", muggles, func() ([]*model.Trade, error) {
		return e.market.Trades(ctx, caller.ID, limit)
	})
}

// ---- Combat ----

// ResolveCombat battles the caller against defenderID.
func (e *Engine) ResolveCombat(ctx context.Context, caller model.Caller, defenderID int64) (*model.BattleReport, error) {
	return run(caller, "battle", combatRole, func() (*model.BattleReport, error) {
		return e.combat.ResolveCombat(ctx, caller.ID, defenderID)
	})
}

// BattleList lists who the caller may battle. An empty only lists every role.
func (e *Engine) BattleList(ctx context.Context, caller model.Caller, only model.Role) ([]model.Opponent, error) {
	return run(caller, "list opponents", combatRole, func() ([]model.Opponent, error) {
		return e.combat.BattleList(ctx, caller, only)
	})
}

// MatchHistory returns the caller's most recent battles.
func (e *Engine) MatchHistory(ctx context.Context, caller model.Caller, limit int) ([]model.MatchResult, error) {
	return run(caller, "view match history", combatRole, func() ([]model.MatchResult, error) {
		return e.combat.MatchHistory(ctx, caller.ID, limit)
	})
}

// ---- Courses ----

// Enroll admits the calling student to a course.
func (e *Engine) Enroll(ctx context.Context, caller model.Caller, courseID int64) (*model.Course, error) {
	return run(caller, "enroll", students, func() (*model.Course, error) {
		return e.enrollment.Enroll(ctx, courseID, caller.ID)
	})
}

// ListCourses returns every course with its instructor and seats.
func (e *Engine) ListCourses(ctx context.Context, caller model.Caller) ([]model.CourseView, error) {
	return run(caller, "list courses", anyRole, func() ([]model.CourseView, error) {
		return e.enrollment.ListCourses(ctx)
	})
}

// MyCourses returns the courses the calling student is enrolled in.
func (e *Engine) MyCourses(ctx context.Context, caller model.Caller) ([]model.CourseView, error) {
	return run(caller, "list enrolled courses", students, func() ([]model.CourseView, error) {
		return e.enrollment.StudentCourses(ctx, caller.ID)
	})
}

// SubmitContent stores the calling student's work for a course.
func (e *Engine) SubmitContent(ctx context.Context, caller model.Caller, courseID int64, content string) (*model.Submission, error) {
	return run(caller, "submit work", students, func() (*model.Submission, error) {
		return e.grading.SubmitContent(ctx, courseID, caller.ID, content)
	})
}

// AssignScore grades a student's submission. Only the course's instructor may.
func (e *Engine) AssignScore(ctx context.Context, caller model.Caller, courseID, studentID int64, score int) (*model.GradeResult, error) {
	return run(caller, "grade", professors, func() (*model.GradeResult, error) {
		return e.grading.AssignScore(ctx, courseID, studentID, caller.ID, score)
	})
}

// CourseBoard lists a course's submissions and scores.
func (e *Engine) CourseBoard(ctx context.Context, caller model.Caller, courseID int64) ([]model.BoardEntry, error) {
	return run(caller, "view course board", boardRoles, func() ([]model.BoardEntry, error) {
		return e.grading.CourseBoard(ctx, courseID, caller)
	})
}

// ---- Magic ----

// AttemptResearch tries to discover a new magic.
func (e *Engine) AttemptResearch(ctx context.Context, caller model.Caller) (model.ResearchResult, error) {
	return run(caller, "research", professors, func() (model.ResearchResult, error) {
		return e.magic.AttemptResearch(ctx, caller.ID)
	})
}

// CreateMagic registers a magic and opens its course. A zero capacity uses the default.
func (e *Engine) CreateMagic(ctx context.Context, caller model.Caller, name string, capacity int) (*model.CreatedMagic, error) {
	return run(caller, "create magic", professors, func() (*model.CreatedMagic, error) {
		return e.magic.CreateMagic(ctx, caller.ID, name, capacity)
	})
}

// ListMagicShop returns every magic for sale.
func (e *Engine) ListMagicShop(ctx context.Context, caller model.Caller) ([]model.MagicListing, error) {
	return run(caller, "list magic shop", anyRole, func() ([]model.MagicListing, error) {
		return e.magic.ListMagicShop(ctx)
	})
}

// BuyMagic spends the calling Muggle's money on a magic's power.
func (e *Engine) BuyMagic(ctx context.Context, caller model.Caller, magicID int64) (*model.MagicPurchase, error) {
	return run(caller, "buy magic", muggles, func() (*model.MagicPurchase, error) {
		return e.magic.BuyMagic(ctx, caller.ID, magicID)
	})
}

// ---- Standings ----

// Rankings returns the standings visible to the caller's role.
func (e *Engine) Rankings(ctx context.Context, caller model.Caller, limit int) ([]model.RankEntry, error) {
	return run(caller, "view rankings", anyRole, func() ([]model.RankEntry, error) {
		return e.ranking.Rankings(ctx, caller.Role, limit)
	})
}

// Standings returns every role ranking and the fallen list.
func (e *Engine) Standings(ctx context.Context, caller model.Caller, limit int) (*service.Standings, error) {
	return run(caller, "view standings", admins, func() (*service.Standings, error) {
		return e.ranking.Snapshot(ctx, limit)
	})
}

// Fallen lists combat principals whose heart has reached zero.
func (e *Engine) Fallen(ctx context.Context, caller model.Caller) ([]model.RankEntry, error) {
	return run(caller, "list fallen", admins, func() ([]model.RankEntry, error) {
		return e.ranking.Fallen(ctx)
	})
}

// RemoveFallen deletes a principal whose heart has reached zero.
func (e *Engine) RemoveFallen(ctx context.Context, caller model.Caller, principalID int64) error {
	_, err := run(caller, "remove fallen", admins, func() (struct{}, error) {
		return struct{}{}, e.ranking.RemoveFallen(ctx, principalID)
	})
	return err
}

// ---- Minigames ----

// Games lists the minigames a villain can play.
func (e *Engine) Games(caller model.Caller) ([]game.MiniGame, error) {
	return run(caller, "list games", villains, func() ([]game.MiniGame, error) {
		return e.minigames.Games(), nil
	})
}

// PlayMinigame makes one move in a minigame for the calling villain.
func (e *Engine) PlayMinigame(ctx context.Context, caller model.Caller, kind model.GameKind, params map[string]any) (*model.MinigameOutcome, error) {
	return run(caller, "play minigame", villains, func() (*model.MinigameOutcome, error) {
		return e.minigames.Play(ctx, caller.ID, kind, params)
	})
}

// AbandonMinigame drops the calling villain's game in progress.
func (e *Engine) AbandonMinigame(ctx context.Context, caller model.Caller, kind model.GameKind) error {
	_, err := run(caller, "abandon minigame", villains, func() (struct{}, error) {
		return struct{}{}, e.minigames.Abandon(ctx, caller.ID, kind)
	})
	return err
}

// GameHistory summarizes the calling villain's attempts per game.
func (e *Engine) GameHistory(ctx context.Context, caller model.Caller) ([]model.GameHistory, error) {
	return run(caller, "view game history", villains, func() ([]model.GameHistory, error) {
		return e.minigames.GameHistory(ctx, caller.ID)
	})
}
