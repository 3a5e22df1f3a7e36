package command

import (
	"context"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = shared.NewDomainError("account", "Login", shared.ErrUnauthorized, "invalid credentials")

	// ErrAccountPending is returned until an admin approves the account.
	ErrAccountPending = shared.NewDomainError("account", "Login", shared.ErrForbidden, "account is pending approval")

	// ErrAccountInactive is returned for rejected accounts.
	ErrAccountInactive = shared.NewDomainError("account", "Login", shared.ErrForbidden, "account is inactive, please contact administrator")
)

// LoginCommand contains credentials.
type LoginCommand struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Validate validates the command.
func (c LoginCommand) Validate() error {
	return validateStruct("account", "Login", c)
}

// LoginHandler verifies credentials. Issuing the access token is up to the
// transport.
type LoginHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewLoginHandler creates a new LoginHandler.
func NewLoginHandler(deps Deps) *LoginHandler {
	deps = deps.withDefaults()
	return &LoginHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("login")),
	}
}

// Handle returns the account when the credentials match and it is active.
func (h *LoginHandler) Handle(ctx context.Context, cmd LoginCommand) (*account.Account, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var acc *account.Account
	err := h.deps.UoW.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		var err error
		acc, err = repos.Accounts().GetByEmail(ctx, cmd.Email)
		return err
	})
	if shared.IsNotFound(err) {
		h.log.Debug("login failed: unknown email", logger.Email(cmd.Email))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		logFailure(h.log, "Login", err, logger.Email(cmd.Email))
		return nil, err
	}

	switch acc.Status {
	case account.StatusPending:
		h.log.Debug("login refused: pending", logger.AccountID(acc.ID))
		return nil, ErrAccountPending
	case account.StatusRejected:
		h.log.Debug("login refused: rejected", logger.AccountID(acc.ID))
		return nil, ErrAccountInactive
	}

	if !CheckPassword(acc, cmd.Password) {
		h.log.Debug("login failed: password mismatch", logger.AccountID(acc.ID))
		return nil, ErrInvalidCredentials
	}

	h.log.Info("login succeeded", logger.AccountID(acc.ID), logger.String("role", string(acc.Role)))
	return acc, nil
}
