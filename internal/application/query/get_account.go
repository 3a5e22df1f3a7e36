package query

import (
	"context"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// GetAccountQuery - профиль одной учётной записи.
type GetAccountQuery struct {
	AccountID string
}

// GetAccountHandler обрабатывает GetAccountQuery.
type GetAccountHandler struct {
	uow port.UnitOfWork
	log *logger.Logger
}

// NewGetAccountHandler создаёт обработчик.
func NewGetAccountHandler(uow port.UnitOfWork, log *logger.Logger) *GetAccountHandler {
	return &GetAccountHandler{uow: uow, log: componentLogger(log, "get_account")}
}

// Handle выполняет запрос.
func (h *GetAccountHandler) Handle(ctx context.Context, q GetAccountQuery) (*AccountDTO, error) {
	var dto AccountDTO
	err := h.uow.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		acc, err := repos.Accounts().GetByID(ctx, q.AccountID)
		if err != nil {
			return err
		}
		dto = NewAccountDTO(acc)
		return nil
	})
	if err != nil {
		logFailure(h.log, "GetAccount", err)
		return nil, err
	}
	return &dto, nil
}
