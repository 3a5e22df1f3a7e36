package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/shared"
)

func TestSeedCourses_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	h := NewSeedCoursesHandler(f.deps)
	ctx := context.Background()
	cmd := SeedCoursesCommand{Courses: []CourseSeed{
		{Title: "Data Science with Python", Category: "Data Science"},
		{Title: "Introduction to Artificial Intelligence"},
		{Title: "Data Science with Python", Category: "Data Science"},
	}}

	res, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Len(t, res.Created, 2)
	assert.Equal(t, []string{SeedCourseID("Data Science with Python")}, res.Existing)

	c := f.course(t, SeedCourseID("Data Science with Python"))
	assert.Equal(t, "Data Science", c.Category)
	assert.Zero(t, c.EnrollmentCount)

	res, err = h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Existing, 3)
}

func TestSeedCourses_EnablesEnrollment(t *testing.T) {
	f := newFixture(t)
	_, err := NewSeedCoursesHandler(f.deps).Handle(context.Background(), SeedCoursesCommand{
		Courses: []CourseSeed{{Title: "Mobile App Development with React Native"}},
	})
	require.NoError(t, err)

	e := f.enroll(t, "student-1", SeedCourseID("Mobile App Development with React Native"))
	assert.Equal(t, 1, f.course(t, e.CourseID).EnrollmentCount)
}

func TestSeedCourses_RejectsEmptyTitle(t *testing.T) {
	f := newFixture(t)
	_, err := NewSeedCoursesHandler(f.deps).Handle(context.Background(), SeedCoursesCommand{
		Courses: []CourseSeed{{Title: "Go Basics"}, {Title: ""}},
	})
	assert.True(t, shared.IsValidation(err))

	err = f.store.Read(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		_, err := repos.Courses().GetByID(ctx, SeedCourseID("Go Basics"))
		return err
	})
	assert.True(t, shared.IsNotFound(err))
}
