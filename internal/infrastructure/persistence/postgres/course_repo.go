package postgres

import (
	"context"

	"github.com/alem-hub/learnhub/internal/domain/course"
	"github.com/alem-hub/learnhub/internal/domain/shared"
)

// CourseRepository implements course.Repository on one transaction.
type CourseRepository struct {
	q Querier
}

// NewCourseRepository creates a repository bound to q.
func NewCourseRepository(q Querier) *CourseRepository {
	return &CourseRepository{q: q}
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO courses (id, title, category, instructor_id, enrollment_count, created_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6)`,
		c.ID, c.Title, c.Category, c.InstructorID, c.EnrollmentCount, c.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("course", "Create", shared.ErrConflict, "course already exists", err)
		}
		if IsForeignKeyViolation(err) {
			return shared.ErrAccountNotFound
		}
		return shared.StorageError("course", "Create", err)
	}
	return nil
}

// GetByID returns a course by ID.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*course.Course, error) {
	if !isUUID(id) {
		return nil, shared.ErrCourseNotFound
	}
	var c course.Course
	err := r.q.QueryRow(ctx, `
		SELECT id::text, title, category, COALESCE(instructor_id::text, ''), enrollment_count, created_at
		FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Category, &c.InstructorID, &c.EnrollmentCount, &c.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCourseNotFound
		}
		return nil, shared.StorageError("course", "GetByID", err)
	}
	return &c, nil
}

// IncrementEnrollmentCount bumps the counter inside the caller's transaction.
func (r *CourseRepository) IncrementEnrollmentCount(ctx context.Context, id string) error {
	if !isUUID(id) {
		return shared.ErrCourseNotFound
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE courses SET enrollment_count = enrollment_count + 1 WHERE id = $1`, id)
	if err != nil {
		return shared.StorageError("course", "IncrementEnrollmentCount", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrCourseNotFound
	}
	return nil
}
