package query

import (
	"context"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT PROGRESS QUERY
// Детализация одного студента: все его записи с названием и категорией курса.
// ══════════════════════════════════════════════════════════════════════════════

// StudentProgressQuery содержит параметры запроса.
type StudentProgressQuery struct {
	RequesterID string
	StudentID   string
}

// StudentProgressResult - результат запроса.
type StudentProgressResult struct {
	Student     AccountDTO      `json:"student"`
	Enrollments []EnrollmentDTO `json:"enrollments"`
}

// StudentProgressHandler обрабатывает StudentProgressQuery.
type StudentProgressHandler struct {
	uow port.UnitOfWork
	log *logger.Logger
}

// NewStudentProgressHandler создаёт обработчик.
func NewStudentProgressHandler(uow port.UnitOfWork, log *logger.Logger) *StudentProgressHandler {
	return &StudentProgressHandler{uow: uow, log: componentLogger(log, "student_progress")}
}

// Handle выполняет запрос.
func (h *StudentProgressHandler) Handle(ctx context.Context, q StudentProgressQuery) (*StudentProgressResult, error) {
	var result *StudentProgressResult

	err := h.uow.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		if err := requirePrivileged(ctx, repos, q.RequesterID); err != nil {
			return err
		}
		student, err := repos.Accounts().GetByID(ctx, q.StudentID)
		if err != nil {
			return err
		}
		details, err := repos.Enrollments().ListDetailed(ctx, enrollment.ListFilter{AccountIDs: []string{student.ID}})
		if err != nil {
			return err
		}
		result = &StudentProgressResult{
			Student:     NewAccountDTO(student),
			Enrollments: enrollmentDTOs(details),
		}
		return nil
	})
	if err != nil {
		logFailure(h.log, "StudentProgress", err)
		return nil, err
	}
	return result, nil
}
