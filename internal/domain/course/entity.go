// Package course holds the minimal projection of a catalog course that the
// enrollment lifecycle needs. Course content lives outside this service.
package course

import (
	"context"
	"time"
)

// Course is a catalog course.
type Course struct {
	ID              string
	Title           string
	Category        string
	InstructorID    string
	EnrollmentCount int
	CreatedAt       time.Time
}

// Clone returns a copy of the course.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Repository defines course storage operations used by the core.
type Repository interface {
	// Create stores a course (used by seeding and tests).
	Create(ctx context.Context, course *Course) error

	// GetByID returns shared.ErrCourseNotFound when the course is missing.
	GetByID(ctx context.Context, id string) (*Course, error)

	// IncrementEnrollmentCount bumps the counter inside the caller's transaction.
	IncrementEnrollmentCount(ctx context.Context, id string) error
}
