package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/pkg/db"
	"hogwarts-game-core/internal/repository"
)

// EnrollmentService admits students to capacity-limited courses.
type EnrollmentService struct {
	runner     *db.Runner
	principals *repository.PrincipalRepository
	courses    *repository.CourseRepository
}

// NewEnrollmentService creates a new EnrollmentService instance.
func NewEnrollmentService(
	runner *db.Runner,
	principals *repository.PrincipalRepository,
	courses *repository.CourseRepository,
) *EnrollmentService {
	return &EnrollmentService{
		runner:     runner,
		principals: principals,
		courses:    courses,
	}
}

// Enroll admits a student. The seat is claimed with a single conditional
// increment, so concurrent callers racing for the last seat see exactly one
// success. A duplicate enrollment rolls the claimed seat back.
// Failures are reported in the order: course missing, course full, already enrolled.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID, studentID int64) (*model.Course, error) {
	var course *model.Course
	err := s.runner.InTx(ctx, func(tx pgx.Tx) error {
		courses := s.courses.WithTx(tx)

		acc, err := s.principals.WithTx(tx).GetAccount(ctx, studentID)
		if err != nil {
			return notFound(err, "get student")
		}
		if err := requireRole(acc, model.RoleStudent); err != nil {
			return err
		}

		course, err = courses.ClaimSeat(ctx, courseID)
		if errors.Is(err, repository.ErrConditionFailed) {
			if _, err := courses.Get(ctx, courseID); err != nil {
				return notFound(err, "get course")
			}
			return errCourseFull
		}
		if err != nil {
			return err
		}

		inserted, err := courses.InsertEnrollment(ctx, courseID, studentID)
		if err != nil {
			return err
		}
		if !inserted {
			return errAlreadyEnrolled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("course_id", courseID).
		Int64("student_id", studentID).
		Int("enrolled", course.CurrentEnrollment).
		Int("capacity", course.Capacity).
		Msg("Student enrolled")

	return course, nil
}

// ListCourses returns every course with its magic and instructor.
func (s *EnrollmentService) ListCourses(ctx context.Context) ([]model.CourseView, error) {
	return s.courses.ListViews(ctx)
}

// StudentCourses returns the courses a student is enrolled in.
func (s *EnrollmentService) StudentCourses(ctx context.Context, studentID int64) ([]model.CourseView, error) {
	return s.courses.ListViewsByStudent(ctx, studentID)
}
