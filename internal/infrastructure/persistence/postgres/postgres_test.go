package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/learnhub/internal/application/command"
	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/course"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// These tests need a disposable database: TEST_DATABASE_URL=postgres://...
func testConnection(t *testing.T) *Connection {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.URL = url
	conn, err := NewConnection(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	require.NoError(t, NewMigrator(conn).Migrate(ctx))
	_, err = conn.Exec(ctx, `TRUNCATE enrollments, courses, accounts`)
	require.NoError(t, err)
	return conn
}

func seedAccount(t *testing.T, uow *UnitOfWork, role account.Role) *account.Account {
	t.Helper()
	id := uuid.NewString()
	acc, err := account.NewAccount(account.NewAccountParams{
		ID: id, Name: "user " + id[:8], Email: id + "@example.com", Role: role,
	}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, uow.Write(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		return repos.Accounts().Create(ctx, acc)
	}))
	return acc
}

func seedCourse(t *testing.T, uow *UnitOfWork) *course.Course {
	t.Helper()
	c := &course.Course{ID: uuid.NewString(), Title: "Go Basics", Category: "backend", CreatedAt: time.Now().UTC()}
	require.NoError(t, uow.Write(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		return repos.Courses().Create(ctx, c)
	}))
	return c
}

func TestMigrator_MigrateIsIdempotent(t *testing.T) {
	conn := testConnection(t)
	ctx := context.Background()

	require.NoError(t, NewMigrator(conn).Migrate(ctx))

	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	require.NoError(t, err)
	defer rows.Close()
	var versions []int
	for rows.Next() {
		var v int
		require.NoError(t, rows.Scan(&v))
		versions = append(versions, v)
	}
	require.NoError(t, rows.Err())

	want := make([]int, 0, len(GetMigrations()))
	for _, m := range GetMigrations() {
		want = append(want, m.Version)
	}
	assert.Equal(t, want, versions)
}

func TestAccountRepository_RoundTrip(t *testing.T) {
	uow := NewUnitOfWork(testConnection(t))
	ctx := context.Background()
	acc := seedAccount(t, uow, account.RoleStudent)

	err := uow.Write(ctx, func(ctx context.Context, repos port.Repositories) error {
		got, err := repos.Accounts().GetForUpdate(ctx, acc.ID)
		if err != nil {
			return err
		}
		if err := got.AddPoints(1500, time.Now().UTC()); err != nil {
			return err
		}
		got.AddBadge(account.BadgeFirstSteps, time.Now().UTC())
		return repos.Accounts().Update(ctx, got)
	})
	require.NoError(t, err)

	err = uow.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		got, err := repos.Accounts().GetByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, 1500, got.Points)
		assert.Equal(t, 2, got.Level())
		assert.Equal(t, []string{"First Steps"}, got.Badges.Names())

		var level int
		require.NoError(t, repos.(*repositories).q.QueryRow(ctx, `SELECT level FROM accounts WHERE id = $1`, acc.ID).Scan(&level))
		assert.Equal(t, 2, level)

		sum, err := repos.Accounts().SummarizeRole(ctx, account.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Count)
		assert.Equal(t, 1500, sum.TotalPoints)
		return nil
	})
	require.NoError(t, err)
}

func TestAccountRepository_Errors(t *testing.T) {
	uow := NewUnitOfWork(testConnection(t))
	ctx := context.Background()
	acc := seedAccount(t, uow, account.RoleStudent)

	err := uow.Write(ctx, func(ctx context.Context, repos port.Repositories) error {
		dup := acc.Clone()
		dup.ID = uuid.NewString()
		return repos.Accounts().Create(ctx, dup)
	})
	assert.ErrorIs(t, err, shared.ErrEmailTaken)

	err = uow.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		_, err := repos.Accounts().GetByID(ctx, "not-a-uuid")
		return err
	})
	assert.True(t, shared.IsNotFound(err))

	err = uow.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		return repos.Courses().IncrementEnrollmentCount(ctx, uuid.NewString())
	})
	assert.True(t, shared.IsStorageUnavailable(err), "write in read-only transaction: %v", err)
}

func TestEnrollmentFlow(t *testing.T) {
	uow := NewUnitOfWork(testConnection(t))
	ctx := context.Background()
	student := seedAccount(t, uow, account.RoleStudent)
	crs := seedCourse(t, uow)
	deps := command.Deps{UoW: uow, Logger: logger.Nop()}

	res, err := command.NewEnrollHandler(deps).Handle(ctx, command.EnrollCommand{AccountID: student.ID, CourseID: crs.ID})
	require.NoError(t, err)
	id := res.Enrollment.ID

	_, err = command.NewEnrollHandler(deps).Handle(ctx, command.EnrollCommand{AccountID: student.ID, CourseID: crs.ID})
	assert.ErrorIs(t, err, shared.ErrAlreadyEnrolled)

	progress := 100.0
	module := "intro"
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := command.NewRecordProgressHandler(deps).Handle(ctx, command.RecordProgressCommand{
				EnrollmentID: id, RequesterID: student.ID, Progress: &progress, ModuleID: &module,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	err = uow.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		acc, err := repos.Accounts().GetByID(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, 500, acc.Points)
		assert.Equal(t, 1, acc.CoursesCompleted)
		assert.Equal(t, []string{"First Steps", "Course Complete"}, acc.Badges.Names())

		c, err := repos.Courses().GetByID(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, c.EnrollmentCount)

		details, err := repos.Enrollments().ListDetailed(ctx, enrollment.ListFilter{AccountIDs: []string{student.ID}})
		require.NoError(t, err)
		require.Len(t, details, 1)
		assert.Equal(t, enrollment.StatusCompleted, details[0].Enrollment.Status)
		assert.Equal(t, []string{"intro"}, details[0].Enrollment.CompletedModules)
		assert.NotNil(t, details[0].Enrollment.RewardedAt)
		assert.Equal(t, "Go Basics", details[0].CourseTitle)
		return nil
	})
	require.NoError(t, err)
}
