package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hogwarts-game-core/internal/model"
)

// CourseRepository handles courses and enrollments.
type CourseRepository struct {
	db DBTX
}

// NewCourseRepository creates a new CourseRepository instance.
func NewCourseRepository(db DBTX) *CourseRepository {
	return &CourseRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *CourseRepository) WithTx(tx pgx.Tx) *CourseRepository {
	return &CourseRepository{db: tx}
}

// Create opens the course for a magic.
func (r *CourseRepository) Create(ctx context.Context, magicID, instructorID int64, capacity int) (*model.Course, error) {
	const query = `
		INSERT INTO courses (course_id, instructor_id, capacity, current_enrollment, is_open)
		VALUES ($1, $2, $3, 0, TRUE)
		RETURNING course_id, instructor_id, capacity, current_enrollment, is_open
	`

	var c model.Course
	err := r.db.QueryRow(ctx, query, magicID, instructorID, capacity).Scan(
		&c.ID, &c.InstructorID, &c.Capacity, &c.CurrentEnrollment, &c.IsOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	return &c, nil
}

// Get retrieves a course by id.
func (r *CourseRepository) Get(ctx context.Context, id int64) (*model.Course, error) {
	const query = `
		SELECT course_id, instructor_id, capacity, current_enrollment, is_open
		FROM courses
		WHERE course_id = $1
	`

	var c model.Course
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.InstructorID, &c.Capacity, &c.CurrentEnrollment, &c.IsOpen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &c, nil
}

// ClaimSeat increments the enrollment count if a seat is free, updating the
// open flag in the same statement. Returns ErrConditionFailed when the course
// is full or missing.
func (r *CourseRepository) ClaimSeat(ctx context.Context, id int64) (*model.Course, error) {
	const query = `
		UPDATE courses
		SET current_enrollment = current_enrollment + 1,
		    is_open = current_enrollment + 1 < capacity
		WHERE course_id = $1 AND current_enrollment < capacity
		RETURNING course_id, instructor_id, capacity, current_enrollment, is_open
	`

	var c model.Course
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.InstructorID, &c.Capacity, &c.CurrentEnrollment, &c.IsOpen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("failed to claim course seat: %w", err)
	}
	return &c, nil
}

// InsertEnrollment records a student in a course. Returns false when the
// student was already enrolled.
func (r *CourseRepository) InsertEnrollment(ctx context.Context, courseID, studentID int64) (bool, error) {
	const query = `
		INSERT INTO enrollments (course_id, student_id, enrolled_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (course_id, student_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query, courseID, studentID)
	if err != nil {
		return false, fmt.Errorf("failed to insert enrollment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IsEnrolled reports whether the student is enrolled in the course.
func (r *CourseRepository) IsEnrolled(ctx context.Context, courseID, studentID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2)`

	var ok bool
	if err := r.db.QueryRow(ctx, query, courseID, studentID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return ok, nil
}

const courseViewSelect = `
	SELECT c.course_id, c.instructor_id, c.capacity, c.current_enrollment, c.is_open,
	       m.magic_name, m.power, p.display_name
	FROM courses c
	JOIN magics m ON m.magic_id = c.course_id
	JOIN principals p ON p.id = c.instructor_id
`

// ListViews returns every course with its magic and instructor.
func (r *CourseRepository) ListViews(ctx context.Context) ([]model.CourseView, error) {
	return r.listViews(ctx, courseViewSelect+` ORDER BY c.course_id`)
}

// ListViewsByStudent returns the courses a student is enrolled in.
func (r *CourseRepository) ListViewsByStudent(ctx context.Context, studentID int64) ([]model.CourseView, error) {
	query := courseViewSelect + `
		JOIN enrollments e ON e.course_id = c.course_id
		WHERE e.student_id = $1
		ORDER BY e.enrolled_at, c.course_id
	`
	return r.listViews(ctx, query, studentID)
}

func (r *CourseRepository) listViews(ctx context.Context, query string, args ...any) ([]model.CourseView, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var views []model.CourseView
	for rows.Next() {
		var v model.CourseView
		err := rows.Scan(
			&v.ID, &v.InstructorID, &v.Capacity, &v.CurrentEnrollment, &v.IsOpen,
			&v.MagicName, &v.Power, &v.InstructorName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating courses: %w", err)
	}
	return views, nil
}
