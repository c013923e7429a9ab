package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hogwarts-game-core/internal/model"
)

// HoldingRepository handles per-owner item positions.
type HoldingRepository struct {
	db DBTX
}

// NewHoldingRepository creates a new HoldingRepository instance.
func NewHoldingRepository(db DBTX) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *HoldingRepository) WithTx(tx pgx.Tx) *HoldingRepository {
	return &HoldingRepository{db: tx}
}

// GetForUpdate retrieves a holding and locks it.
// Returns ErrHoldingNotFound if the owner holds none of the item.
func (r *HoldingRepository) GetForUpdate(ctx context.Context, ownerID, itemID int64) (*model.Holding, error) {
	const query = `
		SELECT owner_id, item_id, quantity, average_cost
		FROM holdings
		WHERE owner_id = $1 AND item_id = $2
		FOR UPDATE
	`

	var h model.Holding
	err := r.db.QueryRow(ctx, query, ownerID, itemID).Scan(&h.OwnerID, &h.ItemID, &h.Quantity, &h.AverageCost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHoldingNotFound
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &h, nil
}

// AddBought inserts or grows a holding, recomputing the weighted average cost
// as (avg*qty + price*bought) / (qty+bought) rounded to cents.
func (r *HoldingRepository) AddBought(ctx context.Context, ownerID, itemID int64, quantity int, price decimal.Decimal) (*model.Holding, error) {
	const query = `
		INSERT INTO holdings AS h (owner_id, item_id, quantity, average_cost, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (owner_id, item_id) DO UPDATE SET
			average_cost = ROUND((h.average_cost * h.quantity + EXCLUDED.average_cost * EXCLUDED.quantity)
				/ (h.quantity + EXCLUDED.quantity), 2),
			quantity = h.quantity + EXCLUDED.quantity,
			updated_at = NOW()
		RETURNING owner_id, item_id, quantity, average_cost
	`

	var h model.Holding
	err := r.db.QueryRow(ctx, query, ownerID, itemID, quantity, price).Scan(&h.OwnerID, &h.ItemID, &h.Quantity, &h.AverageCost)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert holding: %w", err)
	}
	return &h, nil
}

// Decrement removes quantity from a holding that keeps at least one unit.
func (r *HoldingRepository) Decrement(ctx context.Context, ownerID, itemID int64, quantity int) (int, error) {
	const query = `
		UPDATE holdings
		SET quantity = quantity - $3, updated_at = NOW()
		WHERE owner_id = $1 AND item_id = $2 AND quantity > $3
		RETURNING quantity
	`

	var left int
	err := r.db.QueryRow(ctx, query, ownerID, itemID, quantity).Scan(&left)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrConditionFailed
		}
		return 0, fmt.Errorf("failed to decrement holding: %w", err)
	}
	return left, nil
}

// Delete removes a holding.
func (r *HoldingRepository) Delete(ctx context.Context, ownerID, itemID int64) error {
	const query = `DELETE FROM holdings WHERE owner_id = $1 AND item_id = $2`

	tag, err := r.db.Exec(ctx, query, ownerID, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrHoldingNotFound
	}
	return nil
}

// ListByOwner returns an owner's holdings joined with live item prices.
func (r *HoldingRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.HoldingView, error) {
	const query = `
		SELECT h.owner_id, h.item_id, h.quantity, h.average_cost, i.item_name, i.current_price
		FROM holdings h
		JOIN items i ON i.item_id = h.item_id
		WHERE h.owner_id = $1
		ORDER BY h.item_id
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var views []model.HoldingView
	for rows.Next() {
		var v model.HoldingView
		if err := rows.Scan(&v.OwnerID, &v.ItemID, &v.Quantity, &v.AverageCost, &v.ItemName, &v.CurrentPrice); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return views, nil
}
