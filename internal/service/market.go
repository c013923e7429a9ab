package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/config"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/pkg/db"
	"hogwarts-game-core/internal/pkg/random"
	"hogwarts-game-core/internal/repository"
)

// MinItemPrice is the floor no repricing can push an item below.
var MinItemPrice = decimal.RequireFromString("100.00")

// DefaultItems are listed by SeedItems on an empty market.
var DefaultItems = []struct {
	Name  string
	Price decimal.Decimal
}{
	{"Philosopher's Stone", decimal.NewFromInt(1000)},
	{"Phoenix Feather", decimal.NewFromInt(800)},
	{"Dragon Scale", decimal.NewFromInt(500)},
	{"Unicorn Horn", decimal.NewFromInt(1200)},
	{"Magic Herb", decimal.NewFromInt(300)},
}

var errInsufficientHoldings = apperr.Invariant(apperr.ReasonInsufficientHoldings, "not enough of this item to sell")

// MarketService owns item prices and executes trades.
type MarketService struct {
	runner     *db.Runner
	principals *repository.PrincipalRepository
	items      *repository.ItemRepository
	holdings   *repository.HoldingRepository
	trades     *repository.TradeRepository
	cfg        config.MarketConfig
	rand       random.Rand
}

// NewMarketService creates a new MarketService instance.
func NewMarketService(
	runner *db.Runner,
	principals *repository.PrincipalRepository,
	items *repository.ItemRepository,
	holdings *repository.HoldingRepository,
	trades *repository.TradeRepository,
	cfg config.MarketConfig,
	rnd random.Rand,
) *MarketService {
	return &MarketService{
		runner:     runner,
		principals: principals,
		items:      items,
		holdings:   holdings,
		trades:     trades,
		cfg:        cfg,
		rand:       rnd,
	}
}

// SeedItems lists the default items if the market is empty and returns how
// many were inserted.
func (s *MarketService) SeedItems(ctx context.Context) (int, error) {
	inserted := 0
	err := s.runner.InTx(ctx, func(tx pgx.Tx) error {
		items := s.items.WithTx(tx)
		inserted = 0

		count, err := items.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		for _, it := range DefaultItems {
			ok, err := items.Insert(ctx, it.Name, it.Price)
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		log.Info().Int("count", inserted).Msg("Seeded market items")
	}
	return inserted, nil
}

// ListItemPrices returns the current price of every item.
func (s *MarketService) ListItemPrices(ctx context.Context) ([]model.PriceQuote, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, err
	}
	quotes := make([]model.PriceQuote, 0, len(items))
	for _, it := range items {
		quotes = append(quotes, model.PriceQuote{ItemID: it.ID, Name: it.Name, Price: it.CurrentPrice})
	}
	return quotes, nil
}

// Buy purchases quantity units at the current price. The item row is share
// locked for the whole transaction, so the price read is the price charged.
func (s *MarketService) Buy(ctx context.Context, buyerID, itemID int64, quantity int) (*model.Receipt, error) {
	if quantity < 1 {
		return nil, errInvalidQuantity
	}

	var receipt *model.Receipt
	err := s.runner.InTx(ctx, func(tx pgx.Tx) error {
		principals := s.principals.WithTx(tx)

		acc, err := principals.GetAccountForUpdate(ctx, buyerID)
		if err != nil {
			return notFound(err, "get buyer")
		}
		if err := requireRole(acc, model.RoleMuggle); err != nil {
			return err
		}
		wallet := acc.Profile.(model.MuggleProfile).Wallet

		item, err := s.items.WithTx(tx).GetForShare(ctx, itemID)
		if err != nil {
			return notFound(err, "get item")
		}

		cost := item.CurrentPrice.Mul(decimal.NewFromInt(int64(quantity)))
		if cost.GreaterThan(wallet.Money) {
			return errInsufficientFunds.With("cost", cost.StringFixed(2))
		}

		money, err := principals.DebitMoney(ctx, buyerID, cost)
		if errors.Is(err, repository.ErrConditionFailed) {
			return errInsufficientFunds
		}
		if err != nil {
			return err
		}

		holding, err := s.holdings.WithTx(tx).AddBought(ctx, buyerID, itemID, quantity, item.CurrentPrice)
		if err != nil {
			return err
		}

		trade, err := s.trades.WithTx(tx).Create(ctx, buyerID, itemID, model.TradeBuy, quantity, item.CurrentPrice)
		if err != nil {
			return err
		}

		receipt = &model.Receipt{
			TradeID:     trade.ID,
			ItemID:      itemID,
			Side:        model.TradeBuy,
			Quantity:    quantity,
			UnitPrice:   item.CurrentPrice,
			Total:       trade.Total,
			MoneyAfter:  money,
			HoldingLeft: holding.Quantity,
			AverageCost: holding.AverageCost,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("principal_id", buyerID).
		Int64("item_id", itemID).
		Int("quantity", quantity).
		Str("total", receipt.Total.StringFixed(2)).
		Msg("Item bought")

	return receipt, nil
}

// Sell sells quantity units at the current price, not the average cost.
// A holding sold down to zero is removed.
func (s *MarketService) Sell(ctx context.Context, sellerID, itemID int64, quantity int) (*model.Receipt, error) {
	if quantity < 1 {
		return nil, errInvalidQuantity
	}

	var receipt *model.Receipt
	err := s.runner.InTx(ctx, func(tx pgx.Tx) error {
		principals := s.principals.WithTx(tx)
		holdings := s.holdings.WithTx(tx)

		acc, err := principals.GetAccountForUpdate(ctx, sellerID)
		if err != nil {
			return notFound(err, "get seller")
		}
		if err := requireRole(acc, model.RoleMuggle); err != nil {
			return err
		}

		item, err := s.items.WithTx(tx).GetForShare(ctx, itemID)
		if err != nil {
			return notFound(err, "get item")
		}

		holding, err := holdings.GetForUpdate(ctx, sellerID, itemID)
		if err != nil {
			return notFound(err, "get holding")
		}
		if quantity > holding.Quantity {
			return errInsufficientHoldings
		}

		proceeds := item.CurrentPrice.Mul(decimal.NewFromInt(int64(quantity)))
		money, err := principals.CreditMoney(ctx, sellerID, proceeds)
		if err != nil {
			return err
		}

		left := 0
		if quantity == holding.Quantity {
			err = holdings.Delete(ctx, sellerID, itemID)
		} else {
			left, err = holdings.Decrement(ctx, sellerID, itemID, quantity)
		}
		if err != nil {
			return err
		}

		trade, err := s.trades.WithTx(tx).Create(ctx, sellerID, itemID, model.TradeSell, quantity, item.CurrentPrice)
		if err != nil {
			return err
		}

		receipt = &model.Receipt{
			TradeID:     trade.ID,
			ItemID:      itemID,
			Side:        model.TradeSell,
			Quantity:    quantity,
			UnitPrice:   item.CurrentPrice,
			Total:       trade.Total,
			MoneyAfter:  money,
			HoldingLeft: left,
			AverageCost: holding.AverageCost,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("principal_id", sellerID).
		Int64("item_id", itemID).
		Int("quantity", quantity).
		Str("total", receipt.Total.StringFixed(2)).
		Msg("Item sold")

	return receipt, nil
}

// Holdings returns an owner's portfolio valued at current prices.
func (s *MarketService) Holdings(ctx context.Context, ownerID int64) ([]model.HoldingView, error) {
	return s.holdings.ListByOwner(ctx, ownerID)
}

// Trades returns an owner's most recent trades.
func (s *MarketService) Trades(ctx context.Context, ownerID int64, limit int) ([]*model.Trade, error) {
	return s.trades.GetByPrincipal(ctx, ownerID, limit)
}

// Multiplier draws a uniform price multiplier in [1-volatility, 1+volatility],
// kept to four decimal places.
func (s *MarketService) Multiplier() decimal.Decimal {
	m := 1 - s.cfg.Volatility + 2*s.cfg.Volatility*s.rand.Float64()
	return decimal.NewFromFloat(m).Round(4)
}

// Tick reprices every item once. Items are repriced concurrently and
// independently; a failed item is logged and skipped.
func (s *MarketService) Tick(ctx context.Context) error {
	ids, err := s.items.IDs(ctx)
	if err != nil {
		return err
	}

	g := new(errgroup.Group)
	if s.cfg.TickWorkers > 0 {
		g.SetLimit(s.cfg.TickWorkers)
	}

	for _, id := range ids {
		multiplier := s.Multiplier()
		g.Go(func() error {
			price, err := s.items.Reprice(ctx, id, multiplier, MinItemPrice)
			if err != nil {
				log.Error().Err(err).Int64("item_id", id).Msg("Failed to reprice item")
				return nil
			}
			log.Debug().
				Int64("item_id", id).
				Str("multiplier", multiplier.String()).
				Str("price", price.StringFixed(2)).
				Msg("Item repriced")
			return nil
		})
	}

	return g.Wait()
}

// Run reprices the market every tick interval until ctx is done.
func (s *MarketService) Run(ctx context.Context) {
	interval := s.cfg.TickInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Market ticker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Market ticker stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Market tick failed")
			}
		}
	}
}
