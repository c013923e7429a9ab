package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/pkg/db"
	"hogwarts-game-core/internal/repository"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

var errScoreRange = apperr.Invariant(apperr.ReasonScoreOutOfRange, "score must be between 0 and 100")

// GradeLetter converts a score to a letter grade.
func GradeLetter(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// ScoreReward is the attack power a graded student earns.
func ScoreReward(score int) int {
	return score / 10
}

// GradingService handles submissions and write-once scoring.
type GradingService struct {
	runner      *db.Runner
	stats       *StatService
	courses     *repository.CourseRepository
	submissions *repository.SubmissionRepository
}

// NewGradingService creates a new GradingService instance.
func NewGradingService(
	runner *db.Runner,
	stats *StatService,
	courses *repository.CourseRepository,
	submissions *repository.SubmissionRepository,
) *GradingService {
	return &GradingService{
		runner:      runner,
		stats:       stats,
		courses:     courses,
		submissions: submissions,
	}
}

// SubmitContent stores a student's work. Content may be replaced until the
// submission is graded.
func (s *GradingService) SubmitContent(ctx context.Context, courseID, studentID int64, content string) (*model.Submission, error) {
	if _, err := s.courses.Get(ctx, courseID); err != nil {
		return nil, notFound(err, "get course")
	}

	enrolled, err := s.courses.IsEnrolled(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, errNotEnrolled
	}

	sub, err := s.submissions.Upsert(ctx, courseID, studentID, content)
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, errAlreadyGraded
	}
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int64("course_id", courseID).
		Int64("student_id", studentID).
		Msg("Submission saved")

	return sub, nil
}

// AssignScore grades a submission once and rewards the student with
// score/10 attack power in the same transaction.
func (s *GradingService) AssignScore(ctx context.Context, courseID, studentID, graderID int64, score int) (*model.GradeResult, error) {
	if score < MinScore || score > MaxScore {
		return nil, errScoreRange
	}

	var result *model.GradeResult
	err := s.runner.InTx(ctx, func(tx pgx.Tx) error {
		submissions := s.submissions.WithTx(tx)

		course, err := s.courses.WithTx(tx).Get(ctx, courseID)
		if err != nil {
			return notFound(err, "get course")
		}
		if course.InstructorID != graderID {
			return errNotAuthor
		}

		sub, err := submissions.Get(ctx, courseID, studentID)
		if err != nil {
			return notFound(err, "get submission")
		}
		if sub.Graded() {
			return errAlreadyGraded
		}

		ok, err := submissions.SetScore(ctx, courseID, studentID, score)
		if err != nil {
			return err
		}
		if !ok {
			return errAlreadyGraded
		}

		gain := ScoreReward(score)
		attack, err := s.stats.WithTx(tx).AdjustAttackPower(ctx, studentID, gain)
		if err != nil {
			return err
		}

		result = &model.GradeResult{
			CourseID:    courseID,
			StudentID:   studentID,
			Score:       score,
			Letter:      GradeLetter(score),
			AttackGain:  gain,
			AttackPower: attack,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("course_id", courseID).
		Int64("student_id", studentID).
		Int("score", score).
		Msg("Submission graded")

	return result, nil
}

// CourseBoard lists a course's submissions for its instructor, an admin or an
// enrolled student.
func (s *GradingService) CourseBoard(ctx context.Context, courseID int64, viewer model.Caller) ([]model.BoardEntry, error) {
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, notFound(err, "get course")
	}

	allowed := viewer.Role == model.RoleAdmin || course.InstructorID == viewer.ID
	if !allowed && viewer.Role == model.RoleStudent {
		if allowed, err = s.courses.IsEnrolled(ctx, courseID, viewer.ID); err != nil {
			return nil, err
		}
	}
	if !allowed {
		return nil, apperr.RoleNotEligible(apperr.ReasonCourseNotAccessible, "course board is visible to its members only")
	}

	return s.submissions.Board(ctx, courseID)
}
