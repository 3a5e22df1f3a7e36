package command

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER ACCOUNT COMMAND
// Students start pending and wait for admin approval; instructors and admins
// are active immediately.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterAccountCommand contains the registration form.
type RegisterAccountCommand struct {
	Name      string `validate:"required,min=1,max=100"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=6"`
	Role      string `validate:"omitempty,oneof=student instructor admin"`
	Bio       string `validate:"max=1000"`
	Specialty string `validate:"max=200"`
}

// Validate validates the command.
func (c RegisterAccountCommand) Validate() error {
	return validateStruct("account", "Register", c)
}

// RegisterAccountResult contains the created account.
type RegisterAccountResult struct {
	Account *account.Account
	Events  []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RegisterAccountHandler handles the RegisterAccountCommand.
type RegisterAccountHandler struct {
	deps       Deps
	log        *logger.Logger
	bcryptCost int
}

// NewRegisterAccountHandler creates a new RegisterAccountHandler.
// A zero bcryptCost uses bcrypt.DefaultCost.
func NewRegisterAccountHandler(deps Deps, bcryptCost int) *RegisterAccountHandler {
	deps = deps.withDefaults()
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &RegisterAccountHandler{
		deps:       deps,
		log:        deps.Logger.With(logger.Component("register_account")),
		bcryptCost: bcryptCost,
	}
}

// Handle executes the registration.
func (h *RegisterAccountHandler) Handle(ctx context.Context, cmd RegisterAccountCommand) (*RegisterAccountResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	role := account.Role(cmd.Role)
	if role == "" {
		role = account.RoleStudent
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), h.bcryptCost)
	if err != nil {
		return nil, shared.WrapError("account", "Register", shared.ErrValidation, "password cannot be hashed", err)
	}

	now := h.deps.Clock()
	acc, err := account.NewAccount(account.NewAccountParams{
		ID:           h.deps.NewID(),
		Name:         cmd.Name,
		Email:        cmd.Email,
		PasswordHash: string(hash),
		Role:         role,
		Bio:          cmd.Bio,
		Specialty:    cmd.Specialty,
	}, now)
	if err != nil {
		return nil, err
	}

	err = h.deps.UoW.Write(ctx, func(ctx context.Context, repos port.Repositories) error {
		return repos.Accounts().Create(ctx, acc)
	})
	if err != nil {
		logFailure(h.log, "RegisterAccount", err, logger.Email(acc.Email))
		return nil, err
	}

	h.log.Info("account registered",
		logger.AccountID(acc.ID),
		logger.String("role", string(acc.Role)),
		logger.Status(string(acc.Status)),
	)
	events := []shared.Event{
		shared.NewAccountRegisteredEvent(acc.ID, acc.Email, string(acc.Role), string(acc.Status), now),
	}
	h.deps.publish(events)
	return &RegisterAccountResult{Account: acc, Events: events}, nil
}

// CheckPassword compares a plaintext password with the stored hash.
func CheckPassword(acc *account.Account, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) == nil
}
