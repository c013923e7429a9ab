package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hogwarts-game-core/internal/model"
)

// MagicRepository handles magics and their shop listings.
type MagicRepository struct {
	db DBTX
}

// NewMagicRepository creates a new MagicRepository instance.
func NewMagicRepository(db DBTX) *MagicRepository {
	return &MagicRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *MagicRepository) WithTx(tx pgx.Tx) *MagicRepository {
	return &MagicRepository{db: tx}
}

// Create inserts a magic authored by creatorID.
func (r *MagicRepository) Create(ctx context.Context, name string, power int, creatorID int64) (*model.Magic, error) {
	const query = `
		INSERT INTO magics (magic_name, power, creator_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING magic_id, magic_name, power, creator_id, created_at
	`

	var m model.Magic
	err := r.db.QueryRow(ctx, query, name, power, creatorID).Scan(&m.ID, &m.Name, &m.Power, &m.CreatorID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create magic: %w", err)
	}
	return &m, nil
}

// Get retrieves a magic by id.
func (r *MagicRepository) Get(ctx context.Context, id int64) (*model.Magic, error) {
	const query = `
		SELECT magic_id, magic_name, power, creator_id, created_at
		FROM magics
		WHERE magic_id = $1
	`

	var m model.Magic
	err := r.db.QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &m.Power, &m.CreatorID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMagicNotFound
		}
		return nil, fmt.Errorf("failed to get magic: %w", err)
	}
	return &m, nil
}

// CreateListing puts a magic up for sale.
func (r *MagicRepository) CreateListing(ctx context.Context, magicID int64, price decimal.Decimal) error {
	const query = `INSERT INTO magic_listings (magic_id, price) VALUES ($1, $2)`

	if _, err := r.db.Exec(ctx, query, magicID, price); err != nil {
		return fmt.Errorf("failed to create magic listing: %w", err)
	}
	return nil
}

const listingSelect = `
	SELECT m.magic_id, m.magic_name, m.power, m.creator_id, m.created_at, l.price, p.display_name
	FROM magic_listings l
	JOIN magics m ON m.magic_id = l.magic_id
	JOIN principals p ON p.id = m.creator_id
`

func scanListing(row pgx.Row) (*model.MagicListing, error) {
	var l model.MagicListing
	err := row.Scan(&l.ID, &l.Name, &l.Power, &l.CreatorID, &l.CreatedAt, &l.Price, &l.CreatorName)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListing retrieves a shop listing by magic id.
func (r *MagicRepository) GetListing(ctx context.Context, magicID int64) (*model.MagicListing, error) {
	l, err := scanListing(r.db.QueryRow(ctx, listingSelect+` WHERE l.magic_id = $1`, magicID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMagicNotFound
		}
		return nil, fmt.Errorf("failed to get magic listing: %w", err)
	}
	return l, nil
}

// ListShop returns every listing, cheapest first.
func (r *MagicRepository) ListShop(ctx context.Context) ([]model.MagicListing, error) {
	rows, err := r.db.Query(ctx, listingSelect+` ORDER BY l.price, m.magic_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list magic shop: %w", err)
	}
	defer rows.Close()

	var listings []model.MagicListing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan magic listing: %w", err)
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating magic listings: %w", err)
	}
	return listings, nil
}
