package command

import (
	"context"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// SetAccountStatusCommand approves or rejects an account.
type SetAccountStatusCommand struct {
	AccountID   string `validate:"required"`
	RequesterID string
	Status      string `validate:"required,oneof=active rejected"`
}

// Validate validates the command.
func (c SetAccountStatusCommand) Validate() error {
	if err := requireRequester("account", "SetStatus", c.RequesterID); err != nil {
		return err
	}
	return validateStruct("account", "SetStatus", c)
}

// SetAccountStatusResult contains the updated account.
type SetAccountStatusResult struct {
	Account  *account.Account
	Previous account.Status
	Events   []shared.Event
}

// SetAccountStatusHandler handles the SetAccountStatusCommand. Admin only.
type SetAccountStatusHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewSetAccountStatusHandler creates a new SetAccountStatusHandler.
func NewSetAccountStatusHandler(deps Deps) *SetAccountStatusHandler {
	deps = deps.withDefaults()
	return &SetAccountStatusHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("set_account_status")),
	}
}

// Handle executes the command.
func (h *SetAccountStatusHandler) Handle(ctx context.Context, cmd SetAccountStatusCommand) (*SetAccountStatusResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.deps.Clock()
	result := &SetAccountStatusResult{}

	err := h.deps.UoW.Write(ctx, func(ctx context.Context, repos port.Repositories) error {
		requester, err := repos.Accounts().GetByID(ctx, cmd.RequesterID)
		if shared.IsNotFound(err) {
			return shared.ErrAdminOnly
		}
		if err != nil {
			return err
		}
		if requester.Role != account.RoleAdmin {
			return shared.ErrAdminOnly
		}

		acc, err := repos.Accounts().GetForUpdate(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		prev, err := acc.SetStatus(account.Status(cmd.Status), now)
		if err != nil {
			return err
		}
		if err := repos.Accounts().Update(ctx, acc); err != nil {
			return err
		}

		result.Account = acc
		result.Previous = prev
		if prev != acc.Status {
			result.Events = append(result.Events,
				shared.NewAccountStatusChangedEvent(acc.ID, string(prev), string(acc.Status), cmd.RequesterID, now))
		}
		return nil
	})
	if err != nil {
		logFailure(h.log, "SetAccountStatus", err, logger.AccountID(cmd.AccountID), logger.RequesterID(cmd.RequesterID))
		return nil, err
	}

	h.log.Info("account status changed",
		logger.AccountID(result.Account.ID),
		logger.RequesterID(cmd.RequesterID),
		logger.String("from", string(result.Previous)),
		logger.String("to", string(result.Account.Status)),
	)
	h.deps.publish(result.Events)
	return result, nil
}
