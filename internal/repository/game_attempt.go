package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hogwarts-game-core/internal/model"
)

// GameAttemptRepository handles the minigame attempt log.
type GameAttemptRepository struct {
	db DBTX
}

// NewGameAttemptRepository creates a new GameAttemptRepository instance.
func NewGameAttemptRepository(db DBTX) *GameAttemptRepository {
	return &GameAttemptRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *GameAttemptRepository) WithTx(tx pgx.Tx) *GameAttemptRepository {
	return &GameAttemptRepository{db: tx}
}

// Create records a concluded minigame.
func (r *GameAttemptRepository) Create(ctx context.Context, game model.GameKind, villainID int64, won bool) (*model.GameAttempt, error) {
	const query = `
		INSERT INTO game_attempts (attempt_id, game, villain_id, won, attempted_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING attempt_id, game, villain_id, won, attempted_at
	`

	var (
		a    model.GameAttempt
		kind string
	)
	err := r.db.QueryRow(ctx, query, uuid.New(), string(game), villainID, won).Scan(
		&a.ID, &kind, &a.VillainID, &a.Won, &a.AttemptedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record game attempt: %w", err)
	}
	a.Game = model.GameKind(kind)
	return &a, nil
}

// History aggregates a villain's attempts per game.
func (r *GameAttemptRepository) History(ctx context.Context, villainID int64) ([]model.GameHistory, error) {
	const query = `
		SELECT game, COUNT(*), COUNT(*) FILTER (WHERE won), MAX(attempted_at)
		FROM game_attempts
		WHERE villain_id = $1
		GROUP BY game
		ORDER BY game
	`

	rows, err := r.db.Query(ctx, query, villainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game history: %w", err)
	}
	defer rows.Close()

	var history []model.GameHistory
	for rows.Next() {
		var (
			h    model.GameHistory
			kind string
		)
		if err := rows.Scan(&kind, &h.TotalAttempts, &h.Wins, &h.LastAttempt); err != nil {
			return nil, fmt.Errorf("failed to scan game history: %w", err)
		}
		h.Game = model.GameKind(kind)
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game history: %w", err)
	}
	return history, nil
}
