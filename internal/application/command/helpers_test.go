package command

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/course"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/learnhub/pkg/logger"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *recorder) Publish(e shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) count(t shared.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType() == t {
			n++
		}
	}
	return n
}

type fixture struct {
	store  *memory.Store
	events *recorder
	deps   Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	rec := &recorder{}
	var seq atomic.Int64

	f := &fixture{
		store:  store,
		events: rec,
		deps: Deps{
			UoW:       store,
			Publisher: rec,
			Logger:    logger.Nop(),
			Clock:     func() time.Time { return t0 },
			NewID:     func() string { return fmt.Sprintf("id-%d", seq.Add(1)) },
		},
	}

	f.addAccount(t, "student-1", "Ann", account.RoleStudent)
	f.addAccount(t, "student-2", "Bob", account.RoleStudent)
	f.addAccount(t, "instructor-1", "Ivy", account.RoleInstructor)
	f.addAccount(t, "admin-1", "Ada", account.RoleAdmin)
	f.addCourse(t, "course-1", "Go Basics")
	f.addCourse(t, "course-2", "SQL")
	return f
}

func (f *fixture) addAccount(t *testing.T, id, name string, role account.Role) {
	t.Helper()
	acc, err := account.NewAccount(account.NewAccountParams{
		ID: id, Name: name, Email: id + "@example.com", Role: role,
	}, t0)
	require.NoError(t, err)
	require.NoError(t, f.store.Write(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		return repos.Accounts().Create(ctx, acc)
	}))
}

func (f *fixture) addCourse(t *testing.T, id, title string) {
	t.Helper()
	require.NoError(t, f.store.Write(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		return repos.Courses().Create(ctx, &course.Course{ID: id, Title: title, CreatedAt: t0})
	}))
}

func (f *fixture) enroll(t *testing.T, accountID, courseID string) *enrollment.Enrollment {
	t.Helper()
	res, err := NewEnrollHandler(f.deps).Handle(context.Background(), EnrollCommand{AccountID: accountID, CourseID: courseID})
	require.NoError(t, err)
	return res.Enrollment
}

func (f *fixture) account(t *testing.T, id string) *account.Account {
	t.Helper()
	var acc *account.Account
	require.NoError(t, f.store.Read(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		var err error
		acc, err = repos.Accounts().GetByID(ctx, id)
		return err
	}))
	return acc
}

func (f *fixture) enrollment(t *testing.T, id string) *enrollment.Enrollment {
	t.Helper()
	var e *enrollment.Enrollment
	require.NoError(t, f.store.Read(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		var err error
		e, err = repos.Enrollments().GetByID(ctx, id)
		return err
	}))
	return e
}

func (f *fixture) course(t *testing.T, id string) *course.Course {
	t.Helper()
	var c *course.Course
	require.NoError(t, f.store.Read(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		var err error
		c, err = repos.Courses().GetByID(ctx, id)
		return err
	}))
	return c
}
