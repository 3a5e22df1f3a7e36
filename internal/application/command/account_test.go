package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alem-hub/learnhub/internal/application/gamification"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/shared"
)

func TestRegisterAccount(t *testing.T) {
	f := newFixture(t)
	h := NewRegisterAccountHandler(f.deps, bcrypt.MinCost)
	ctx := context.Background()

	res, err := h.Handle(ctx, RegisterAccountCommand{
		Name: " Cara ", Email: "Cara@Example.com", Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Cara", res.Account.Name)
	assert.Equal(t, "cara@example.com", res.Account.Email)
	assert.Equal(t, account.RoleStudent, res.Account.Role)
	assert.Equal(t, account.StatusPending, res.Account.Status)
	assert.True(t, CheckPassword(res.Account, "secret1"))
	assert.False(t, CheckPassword(res.Account, "wrong"))

	inst, err := h.Handle(ctx, RegisterAccountCommand{
		Name: "Dan", Email: "dan@example.com", Password: "secret1", Role: "instructor",
	})
	require.NoError(t, err)
	assert.Equal(t, account.StatusActive, inst.Account.Status)
	assert.Equal(t, 2, f.events.count(shared.EventAccountRegistered))
}

func TestRegisterAccount_Errors(t *testing.T) {
	f := newFixture(t)
	h := NewRegisterAccountHandler(f.deps, bcrypt.MinCost)
	ctx := context.Background()

	tests := []struct {
		name  string
		cmd   RegisterAccountCommand
		check func(error) bool
	}{
		{"empty name", RegisterAccountCommand{Email: "x@example.com", Password: "secret1"}, shared.IsValidation},
		{"bad email", RegisterAccountCommand{Name: "X", Email: "nope", Password: "secret1"}, shared.IsValidation},
		{"short password", RegisterAccountCommand{Name: "X", Email: "x@example.com", Password: "123"}, shared.IsValidation},
		{"bad role", RegisterAccountCommand{Name: "X", Email: "x@example.com", Password: "secret1", Role: "root"}, shared.IsValidation},
		{"taken email", RegisterAccountCommand{Name: "X", Email: "STUDENT-1@example.com", Password: "secret1"}, shared.IsConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(ctx, tt.cmd)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestSetAccountStatus(t *testing.T) {
	f := newFixture(t)
	h := NewSetAccountStatusHandler(f.deps)
	ctx := context.Background()

	res, err := h.Handle(ctx, SetAccountStatusCommand{AccountID: "student-1", RequesterID: "admin-1", Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, account.StatusPending, res.Previous)
	assert.Equal(t, account.StatusActive, f.account(t, "student-1").Status)
	assert.Equal(t, 1, f.events.count(shared.EventAccountStatusChanged))

	_, err = h.Handle(ctx, SetAccountStatusCommand{AccountID: "student-2", RequesterID: "instructor-1", Status: "active"})
	assert.True(t, shared.IsForbidden(err))

	_, err = h.Handle(ctx, SetAccountStatusCommand{AccountID: "student-2", RequesterID: "admin-1", Status: "pending"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, SetAccountStatusCommand{AccountID: "ghost", RequesterID: "admin-1", Status: "rejected"})
	assert.True(t, shared.IsNotFound(err))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	register := NewRegisterAccountHandler(f.deps, bcrypt.MinCost)
	login := NewLoginHandler(f.deps)

	student, err := register.Handle(ctx, RegisterAccountCommand{Name: "Cara", Email: "cara@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = register.Handle(ctx, RegisterAccountCommand{Name: "Dan", Email: "dan@example.com", Password: "secret1", Role: "instructor"})
	require.NoError(t, err)

	_, err = login.Handle(ctx, LoginCommand{Email: "cara@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrAccountPending)
	assert.True(t, shared.IsForbidden(err))

	acc, err := login.Handle(ctx, LoginCommand{Email: "DAN@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, account.RoleInstructor, acc.Role)

	_, err = login.Handle(ctx, LoginCommand{Email: "dan@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, shared.IsUnauthorized(err))

	_, err = login.Handle(ctx, LoginCommand{Email: "ghost@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = login.Handle(ctx, LoginCommand{Email: "not-an-email", Password: "secret1"})
	assert.True(t, shared.IsValidation(err))

	_, err = NewSetAccountStatusHandler(f.deps).Handle(ctx, SetAccountStatusCommand{
		AccountID: student.Account.ID, RequesterID: "admin-1", Status: "rejected",
	})
	require.NoError(t, err)
	_, err = login.Handle(ctx, LoginCommand{Email: "cara@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestGrantAward(t *testing.T) {
	f := newFixture(t)
	engine := gamification.NewEngine(f.store, f.events, f.deps.Logger).WithClock(f.deps.Clock)
	h := NewGrantAwardHandler(f.deps, engine)
	ctx := context.Background()

	res, err := h.Handle(ctx, GrantAwardCommand{
		AccountID:   "student-1",
		RequesterID: "admin-1",
		Points:      1200,
		Badge:       &BadgeInput{Name: "Helper", Icon: "🤝"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Points)
	assert.True(t, res.Points.LeveledUp())
	require.NotNil(t, res.Badge)
	require.Len(t, res.Badge.BadgesEarned, 1)
	assert.Equal(t, account.CategoryAchievement, res.Badge.BadgesEarned[0].Category)

	acc := f.account(t, "student-1")
	assert.Equal(t, 1200, acc.Points)
	assert.Equal(t, 2, acc.Level())
	assert.True(t, acc.Badges.Has("Helper"))
	assert.Equal(t, 1, f.events.count(shared.EventLevelUp))

	_, err = h.Handle(ctx, GrantAwardCommand{AccountID: "student-1", RequesterID: "instructor-1", Points: 10})
	assert.True(t, shared.IsForbidden(err))

	_, err = h.Handle(ctx, GrantAwardCommand{AccountID: "student-1", RequesterID: "admin-1"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, GrantAwardCommand{AccountID: "student-1", RequesterID: "admin-1", Points: -5})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, GrantAwardCommand{AccountID: "ghost", RequesterID: "admin-1", Points: 5})
	assert.True(t, shared.IsNotFound(err))
}
