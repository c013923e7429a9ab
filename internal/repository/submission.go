package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hogwarts-game-core/internal/model"
)

// SubmissionRepository handles course submissions and their write-once scores.
type SubmissionRepository struct {
	db DBTX
}

// NewSubmissionRepository creates a new SubmissionRepository instance.
func NewSubmissionRepository(db DBTX) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *SubmissionRepository) WithTx(tx pgx.Tx) *SubmissionRepository {
	return &SubmissionRepository{db: tx}
}

// Upsert stores or replaces submission content while it is ungraded.
// Returns ErrConditionFailed once a score exists.
func (r *SubmissionRepository) Upsert(ctx context.Context, courseID, studentID int64, content string) (*model.Submission, error) {
	const query = `
		INSERT INTO submissions AS s (course_id, student_id, content, submitted_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (course_id, student_id) DO UPDATE
			SET content = EXCLUDED.content, submitted_at = NOW()
			WHERE s.score IS NULL
		RETURNING course_id, student_id, content, score, submitted_at
	`

	var s model.Submission
	err := r.db.QueryRow(ctx, query, courseID, studentID, content).Scan(
		&s.CourseID, &s.StudentID, &s.Content, &s.Score, &s.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}
	return &s, nil
}

// Get retrieves a submission.
func (r *SubmissionRepository) Get(ctx context.Context, courseID, studentID int64) (*model.Submission, error) {
	const query = `
		SELECT course_id, student_id, content, score, submitted_at
		FROM submissions
		WHERE course_id = $1 AND student_id = $2
	`

	var s model.Submission
	err := r.db.QueryRow(ctx, query, courseID, studentID).Scan(
		&s.CourseID, &s.StudentID, &s.Content, &s.Score, &s.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionMissing
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &s, nil
}

// SetScore assigns a score to an ungraded submission.
// Returns false when the submission is missing or already scored.
func (r *SubmissionRepository) SetScore(ctx context.Context, courseID, studentID int64, score int) (bool, error) {
	const query = `
		UPDATE submissions
		SET score = $3, graded_at = NOW()
		WHERE course_id = $1 AND student_id = $2 AND score IS NULL
	`

	tag, err := r.db.Exec(ctx, query, courseID, studentID, score)
	if err != nil {
		return false, fmt.Errorf("failed to set score: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Board lists a course's submissions, highest score first with ungraded
// work last.
func (r *SubmissionRepository) Board(ctx context.Context, courseID int64) ([]model.BoardEntry, error) {
	const query = `
		SELECT s.course_id, m.magic_name, p.display_name, s.content, s.score
		FROM submissions s
		JOIN magics m ON m.magic_id = s.course_id
		JOIN principals p ON p.id = s.student_id
		WHERE s.course_id = $1
		ORDER BY s.score DESC NULLS LAST, p.display_name
	`

	rows, err := r.db.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course board: %w", err)
	}
	defer rows.Close()

	var board []model.BoardEntry
	for rows.Next() {
		var e model.BoardEntry
		if err := rows.Scan(&e.CourseID, &e.MagicName, &e.StudentName, &e.Content, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan board entry: %w", err)
		}
		board = append(board, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course board: %w", err)
	}
	return board, nil
}
