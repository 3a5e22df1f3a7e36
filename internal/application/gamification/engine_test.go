package gamification

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/learnhub/pkg/logger"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

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

func (r *recorder) types() []shared.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func newStudent(t *testing.T, points int) *account.Account {
	t.Helper()
	acc, err := account.NewAccount(account.NewAccountParams{
		ID: "acc-1", Name: "Ann", Email: "ann@example.com", Role: account.RoleStudent,
	}, t0)
	require.NoError(t, err)
	acc.Points = points
	return acc
}

func setup(t *testing.T, points int) (*Engine, *memory.Store, *recorder) {
	t.Helper()
	store := memory.NewStore()
	acc := newStudent(t, points)
	require.NoError(t, store.Write(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		return repos.Accounts().Create(ctx, acc)
	}))
	rec := &recorder{}
	engine := NewEngine(store, rec, logger.Nop()).WithClock(func() time.Time { return t0 })
	return engine, store, rec
}

func load(t *testing.T, store *memory.Store, id string) *account.Account {
	t.Helper()
	var acc *account.Account
	require.NoError(t, store.Read(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		var err error
		acc, err = repos.Accounts().GetByID(ctx, id)
		return err
	}))
	return acc
}

func TestGrant_CompletionAwardCrossesLevel(t *testing.T) {
	acc := newStudent(t, 600)

	out, err := Grant(acc, CompletionAward(500), t0)
	require.NoError(t, err)

	assert.Equal(t, 1100, acc.Points)
	assert.Equal(t, 2, acc.Level())
	assert.True(t, out.LeveledUp())
	assert.Equal(t, 1, out.LevelBefore)
	assert.Equal(t, 2, out.LevelAfter)
	require.Len(t, out.BadgesEarned, 1)
	assert.Equal(t, "Course Complete", out.BadgesEarned[0].Name)

	types := make([]shared.EventType, 0)
	for _, e := range out.Events(t0) {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []shared.EventType{
		shared.EventPointsAwarded, shared.EventLevelUp, shared.EventBadgeEarned,
	}, types)
}

func TestGrant_BadgeAlreadyHeld(t *testing.T) {
	acc := newStudent(t, 0)
	earlier := t0.Add(-time.Hour)
	acc.AddBadge(account.BadgeCourseComplete, earlier)

	out, err := Grant(acc, CompletionAward(500), t0)
	require.NoError(t, err)

	assert.Empty(t, out.BadgesEarned)
	assert.Len(t, acc.Badges, 1)
	assert.Equal(t, earlier, acc.Badges[0].EarnedAt)
	assert.Equal(t, 500, acc.Points)
}

func TestGrant_NegativePointsLeaveAccountUntouched(t *testing.T) {
	acc := newStudent(t, 10)

	_, err := Grant(acc, Award{Points: -5, Badges: []account.Badge{account.BadgeFirstSteps}}, t0)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, 10, acc.Points)
	assert.Empty(t, acc.Badges)
}

func TestEngine_AddPoints(t *testing.T) {
	engine, store, rec := setup(t, 950)

	out, err := engine.AddPoints(context.Background(), "acc-1", 100)
	require.NoError(t, err)
	assert.Equal(t, 1050, out.TotalPoints)
	assert.True(t, out.LeveledUp())

	acc := load(t, store, "acc-1")
	assert.Equal(t, 1050, acc.Points)
	assert.Equal(t, 2, acc.Level())
	assert.Equal(t, []shared.EventType{shared.EventPointsAwarded, shared.EventLevelUp}, rec.types())
}

func TestEngine_AddPointsRejectsNonPositive(t *testing.T) {
	engine, store, rec := setup(t, 0)

	for _, delta := range []int{0, -10} {
		_, err := engine.AddPoints(context.Background(), "acc-1", delta)
		assert.True(t, shared.IsValidation(err), "delta %d", delta)
	}
	assert.Equal(t, 0, load(t, store, "acc-1").Points)
	assert.Empty(t, rec.types())
}

func TestEngine_AddPointsOverflowIsValidationError(t *testing.T) {
	engine, store, rec := setup(t, math.MaxInt-10)

	_, err := engine.AddPoints(context.Background(), "acc-1", 11)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, math.MaxInt-10, load(t, store, "acc-1").Points)
	assert.Empty(t, rec.types())

	out, err := engine.AddPoints(context.Background(), "acc-1", 10)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, out.TotalPoints)
}

func TestEngine_AddPointsUnknownAccount(t *testing.T) {
	engine, _, _ := setup(t, 0)

	_, err := engine.AddPoints(context.Background(), "missing", 10)
	assert.True(t, shared.IsNotFound(err))
}

func TestEngine_AddBadgeIsIdempotent(t *testing.T) {
	engine, store, rec := setup(t, 0)
	ctx := context.Background()

	first, err := engine.AddBadge(ctx, "acc-1", account.BadgeFirstSteps)
	require.NoError(t, err)
	require.Len(t, first.BadgesEarned, 1)

	second, err := engine.AddBadge(ctx, "acc-1", account.BadgeFirstSteps)
	require.NoError(t, err)
	assert.Empty(t, second.BadgesEarned)

	acc := load(t, store, "acc-1")
	assert.Equal(t, []string{"First Steps"}, acc.Badges.Names())
	assert.Equal(t, []shared.EventType{shared.EventBadgeEarned}, rec.types())
}

func TestEngine_ConcurrentAddPoints(t *testing.T) {
	engine, store, _ := setup(t, 0)

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, err := engine.AddPoints(context.Background(), "acc-1", 100)
			return err
		})
	}
	require.NoError(t, g.Wait())

	acc := load(t, store, "acc-1")
	assert.Equal(t, 5000, acc.Points)
	assert.Equal(t, 6, acc.Level())
}
