package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hogwarts-game-core/internal/model"
)

// MatchRepository handles the append-only battle log.
type MatchRepository struct {
	db DBTX
}

// NewMatchRepository creates a new MatchRepository instance.
func NewMatchRepository(db DBTX) *MatchRepository {
	return &MatchRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *MatchRepository) WithTx(tx pgx.Tx) *MatchRepository {
	return &MatchRepository{db: tx}
}

// Create appends a match result.
func (r *MatchRepository) Create(ctx context.Context, challengerID, opponentID int64, outcome model.Outcome) (*model.MatchResult, error) {
	const query = `
		INSERT INTO matches (match_id, challenger_id, opponent_id, outcome, match_time)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING match_id, challenger_id, opponent_id, outcome, match_time
	`

	var (
		m      model.MatchResult
		stored string
	)
	err := r.db.QueryRow(ctx, query, uuid.New(), challengerID, opponentID, string(outcome)).Scan(
		&m.ID, &m.ChallengerID, &m.OpponentID, &stored, &m.MatchTime,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record match: %w", err)
	}
	m.Outcome = model.Outcome(stored)
	return &m, nil
}

// ListByPrincipal returns matches the principal took part in on either side, newest first.
func (r *MatchRepository) ListByPrincipal(ctx context.Context, principalID int64, limit int) ([]model.MatchResult, error) {
	const query = `
		SELECT match_id, challenger_id, opponent_id, outcome, match_time
		FROM matches
		WHERE challenger_id = $1 OR opponent_id = $1
		ORDER BY match_time DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, principalID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []model.MatchResult
	for rows.Next() {
		var (
			m       model.MatchResult
			outcome string
		)
		if err := rows.Scan(&m.ID, &m.ChallengerID, &m.OpponentID, &outcome, &m.MatchTime); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Outcome = model.Outcome(outcome)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}
