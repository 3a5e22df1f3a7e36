package query

import (
	"context"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// ListMyEnrollmentsQuery - записи запрашивающего, новые первыми.
type ListMyEnrollmentsQuery struct {
	RequesterID string
}

// ListMyEnrollmentsResult - результат запроса.
type ListMyEnrollmentsResult struct {
	Enrollments []EnrollmentDTO `json:"enrollments"`
}

// ListMyEnrollmentsHandler обрабатывает ListMyEnrollmentsQuery.
type ListMyEnrollmentsHandler struct {
	uow port.UnitOfWork
	log *logger.Logger
}

// NewListMyEnrollmentsHandler создаёт обработчик.
func NewListMyEnrollmentsHandler(uow port.UnitOfWork, log *logger.Logger) *ListMyEnrollmentsHandler {
	return &ListMyEnrollmentsHandler{uow: uow, log: componentLogger(log, "my_enrollments")}
}

// Handle выполняет запрос.
func (h *ListMyEnrollmentsHandler) Handle(ctx context.Context, q ListMyEnrollmentsQuery) (*ListMyEnrollmentsResult, error) {
	if q.RequesterID == "" {
		return nil, shared.NewDomainError("enrollment", "ListMine", shared.ErrUnauthorized, "requester identity is required")
	}

	var result *ListMyEnrollmentsResult
	err := h.uow.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		if _, err := repos.Accounts().GetByID(ctx, q.RequesterID); err != nil {
			return err
		}
		details, err := repos.Enrollments().ListDetailed(ctx, enrollment.ListFilter{AccountIDs: []string{q.RequesterID}})
		if err != nil {
			return err
		}
		result = &ListMyEnrollmentsResult{Enrollments: enrollmentDTOs(details)}
		return nil
	})
	if err != nil {
		logFailure(h.log, "ListMyEnrollments", err)
		return nil, err
	}
	return result, nil
}
