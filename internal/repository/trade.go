package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hogwarts-game-core/internal/model"
)

// TradeRepository handles the append-only market trade ledger.
type TradeRepository struct {
	db DBTX
}

// NewTradeRepository creates a new TradeRepository instance.
func NewTradeRepository(db DBTX) *TradeRepository {
	return &TradeRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *TradeRepository) WithTx(tx pgx.Tx) *TradeRepository {
	return &TradeRepository{db: tx}
}

// Create records a trade. The total is price times quantity.
func (r *TradeRepository) Create(ctx context.Context, principalID, itemID int64, side model.TradeSide, quantity int, unitPrice decimal.Decimal) (*model.Trade, error) {
	const query = `
		INSERT INTO trades (id, principal_id, item_id, side, quantity, unit_price, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, principal_id, item_id, side, quantity, unit_price, total, created_at
	`

	total := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	row := r.db.QueryRow(ctx, query, uuid.New(), principalID, itemID, string(side), quantity, unitPrice, total)

	t, err := scanTrade(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}
	return t, nil
}

// CreateWithTime records a trade with a specific timestamp.
// Useful for testing and data migration.
func (r *TradeRepository) CreateWithTime(ctx context.Context, principalID, itemID int64, side model.TradeSide, quantity int, unitPrice decimal.Decimal, createdAt time.Time) (*model.Trade, error) {
	const query = `
		INSERT INTO trades (id, principal_id, item_id, side, quantity, unit_price, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, principal_id, item_id, side, quantity, unit_price, total, created_at
	`

	total := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	row := r.db.QueryRow(ctx, query, uuid.New(), principalID, itemID, string(side), quantity, unitPrice, total, createdAt)

	t, err := scanTrade(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}
	return t, nil
}

// GetByPrincipal retrieves a principal's trades, newest first.
func (r *TradeRepository) GetByPrincipal(ctx context.Context, principalID int64, limit int) ([]*model.Trade, error) {
	const query = `
		SELECT id, principal_id, item_id, side, quantity, unit_price, total, created_at
		FROM trades
		WHERE principal_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, principalID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	defer rows.Close()

	var trades []*model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// NetFlow returns the money a principal spent buying minus what it received
// selling between from and to.
func (r *TradeRepository) NetFlow(ctx context.Context, principalID int64, from, to time.Time) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(CASE WHEN side = 'buy' THEN total ELSE -total END), 0)
		FROM trades
		WHERE principal_id = $1
		  AND created_at >= $2
		  AND created_at < $3
	`

	var flow decimal.Decimal
	if err := r.db.QueryRow(ctx, query, principalID, from, to).Scan(&flow); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get trade flow: %w", err)
	}
	return flow, nil
}

func scanTrade(row pgx.Row) (*model.Trade, error) {
	var (
		t    model.Trade
		side string
	)
	err := row.Scan(
		&t.ID,
		&t.PrincipalID,
		&t.ItemID,
		&side,
		&t.Quantity,
		&t.UnitPrice,
		&t.Total,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Side = model.TradeSide(side)
	return &t, nil
}
