// Package main runs the game core: it migrates the schema, seeds the market
// and keeps the market ticker running until the process is signalled.
package main

import (
	"context"
	"flag"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"hogwarts-game-core/internal/app"
	"hogwarts-game-core/internal/config"
	"hogwarts-game-core/internal/engine"
	"hogwarts-game-core/internal/pkg/db"
	"hogwarts-game-core/internal/service"
)

func main() {
	configPath := flag.String("config", "config", "directory containing config.yaml")
	flag.Parse()

	fx.New(
		fx.Supply(app.ConfigPath(*configPath)),
		app.Module,
		fx.NopLogger,
		fx.Invoke(run),
	).Run()
}

func run(
	lc fx.Lifecycle,
	cfg *config.Config,
	pool *db.Pool,
	market *service.MarketService,
	_ *engine.Engine,
	logger zerolog.Logger,
) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.Migrate(ctx, pool.Pool); err != nil {
				return err
			}

			if cfg.Market.SeedItems {
				n, err := market.SeedItems(ctx)
				if err != nil {
					return err
				}
				logger.Info().Int("items", n).Msg("Market seeded")
			}

			go func() {
				defer close(done)
				market.Run(runCtx)
			}()

			logger.Info().Msg("Game core started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("Shutting down game core")
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
