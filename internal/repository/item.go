package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hogwarts-game-core/internal/model"
)

// ItemRepository handles market item persistence.
type ItemRepository struct {
	db DBTX
}

// NewItemRepository creates a new ItemRepository instance.
func NewItemRepository(db DBTX) *ItemRepository {
	return &ItemRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *ItemRepository) WithTx(tx pgx.Tx) *ItemRepository {
	return &ItemRepository{db: tx}
}

// Count returns the number of listed items.
func (r *ItemRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// Insert adds an item unless one with the same name exists.
// Returns false when the name was already taken.
func (r *ItemRepository) Insert(ctx context.Context, name string, price decimal.Decimal) (bool, error) {
	const query = `
		INSERT INTO items (item_name, current_price, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (item_name) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query, name, price)
	if err != nil {
		return false, fmt.Errorf("failed to insert item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns every item ordered by id.
func (r *ItemRepository) List(ctx context.Context) ([]model.Item, error) {
	const query = `
		SELECT item_id, item_name, current_price, updated_at
		FROM items
		ORDER BY item_id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.CurrentPrice, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// IDs returns the ids of every item.
func (r *ItemRepository) IDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT item_id FROM items ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list item ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to collect item ids: %w", err)
	}
	return ids, nil
}

// Get retrieves an item by id.
func (r *ItemRepository) Get(ctx context.Context, id int64) (*model.Item, error) {
	const query = `SELECT item_id, item_name, current_price, updated_at FROM items WHERE item_id = $1`
	return r.get(ctx, query, id)
}

// GetForShare retrieves an item and holds a share lock on its row, so the
// repricing UPDATE waits until the surrounding transaction ends and the price
// read is the price charged.
func (r *ItemRepository) GetForShare(ctx context.Context, id int64) (*model.Item, error) {
	const query = `SELECT item_id, item_name, current_price, updated_at FROM items WHERE item_id = $1 FOR SHARE`
	return r.get(ctx, query, id)
}

func (r *ItemRepository) get(ctx context.Context, query string, id int64) (*model.Item, error) {
	var it model.Item
	err := r.db.QueryRow(ctx, query, id).Scan(&it.ID, &it.Name, &it.CurrentPrice, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &it, nil
}

// Reprice multiplies the item's price by multiplier, rounds to cents and
// floors the result at minPrice, all in one statement.
func (r *ItemRepository) Reprice(ctx context.Context, id int64, multiplier, minPrice decimal.Decimal) (decimal.Decimal, error) {
	const query = `
		UPDATE items
		SET current_price = GREATEST($3::numeric, ROUND(current_price * $2::numeric, 2)), updated_at = NOW()
		WHERE item_id = $1
		RETURNING current_price
	`

	var price decimal.Decimal
	err := r.db.QueryRow(ctx, query, id, multiplier, minPrice).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrItemNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to reprice item: %w", err)
	}
	return price, nil
}
