// Package app assembles the game core with fx.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"hogwarts-game-core/internal/config"
	"hogwarts-game-core/internal/engine"
	"hogwarts-game-core/internal/game"
	"hogwarts-game-core/internal/game/baseball"
	"hogwarts-game-core/internal/game/quiz"
	"hogwarts-game-core/internal/game/rps"
	"hogwarts-game-core/internal/logger"
	"hogwarts-game-core/internal/pkg/db"
	"hogwarts-game-core/internal/pkg/random"
	"hogwarts-game-core/internal/repository"
	"hogwarts-game-core/internal/service"
)

// ConfigPath is the directory searched for config.yaml.
type ConfigPath string

func ProvideConfig(path ConfigPath) (*config.Config, error) {
	return config.Load(string(path))
}

// ProvidePool opens the pool and closes it when the app stops.
func ProvidePool(lc fx.Lifecycle, cfg *config.Config) (*db.Pool, error) {
	timeout := cfg.Database.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func ProvideDBTX(pool *db.Pool) repository.DBTX {
	return pool.Pool
}

func ProvideRunner(pool *db.Pool, cfg *config.Config) *db.Runner {
	return db.NewRunner(pool.Pool, db.Retry{
		MaxAttempts: cfg.Database.TxMaxAttempts,
		Delay:       cfg.Database.TxRetryDelay,
	})
}

func ProvideRand() random.Rand {
	return random.NewTimeSeeded()
}

// ProvideGames registers every minigame.
func ProvideGames(rnd random.Rand) (*game.Registry, error) {
	return game.NewRegistry(
		rps.New(rnd),
		baseball.New(rnd),
		quiz.New(rnd, nil),
	)
}

func marketConfig(cfg *config.Config) config.MarketConfig { return cfg.Market }
func combatConfig(cfg *config.Config) config.CombatConfig { return cfg.Combat }
func magicConfig(cfg *config.Config) config.MagicConfig   { return cfg.Magic }

// Module provides the engine and everything under it.
var Module = fx.Options(
	fx.Provide(ProvideConfig),
	fx.Provide(logger.New),
	fx.Provide(ProvidePool),
	fx.Provide(ProvideDBTX),
	fx.Provide(ProvideRunner),
	fx.Provide(ProvideRand),
	fx.Provide(marketConfig, combatConfig, magicConfig),
	// repos
	fx.Provide(repository.NewPrincipalRepository),
	fx.Provide(repository.NewItemRepository),
	fx.Provide(repository.NewHoldingRepository),
	fx.Provide(repository.NewTradeRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewCourseRepository),
	fx.Provide(repository.NewSubmissionRepository),
	fx.Provide(repository.NewMagicRepository),
	fx.Provide(repository.NewGameAttemptRepository),
	// games
	fx.Provide(ProvideGames),
	// svc
	fx.Provide(service.NewStatService),
	fx.Provide(service.NewMarketService),
	fx.Provide(service.NewCombatService),
	fx.Provide(service.NewEnrollmentService),
	fx.Provide(service.NewGradingService),
	fx.Provide(service.NewMagicService),
	fx.Provide(service.NewRankingService),
	fx.Provide(service.NewMinigameService),
	fx.Provide(engine.New),
)
