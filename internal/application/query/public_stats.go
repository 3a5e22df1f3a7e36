package query

import (
	"context"
	"strings"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// Значения по умолчанию для незаполненного профиля преподавателя.
const (
	DefaultInstructorSpecialty = "Expert Instructor"
	DefaultInstructorBio       = "Industry professional with years of experience."
)

// PublicStatsQuery не требует авторизации.
type PublicStatsQuery struct{}

// InstructorCard - публичная карточка преподавателя.
type InstructorCard struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Bio       string `json:"bio"`
}

// PublicStatsResult - публичная статистика платформы.
type PublicStatsResult struct {
	StudentCount int              `json:"studentCount"`
	TotalPoints  int              `json:"totalPoints"`
	Instructors  []InstructorCard `json:"instructors"`
}

// PublicStatsHandler обрабатывает PublicStatsQuery.
type PublicStatsHandler struct {
	uow port.UnitOfWork
	log *logger.Logger
}

// NewPublicStatsHandler создаёт обработчик.
func NewPublicStatsHandler(uow port.UnitOfWork, log *logger.Logger) *PublicStatsHandler {
	return &PublicStatsHandler{uow: uow, log: componentLogger(log, "public_stats")}
}

// Handle выполняет запрос.
func (h *PublicStatsHandler) Handle(ctx context.Context, _ PublicStatsQuery) (*PublicStatsResult, error) {
	result := &PublicStatsResult{Instructors: []InstructorCard{}}

	err := h.uow.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		summary, err := repos.Accounts().SummarizeRole(ctx, account.RoleStudent)
		if err != nil {
			return err
		}
		result.StudentCount = summary.Count
		result.TotalPoints = summary.TotalPoints

		instructors, err := repos.Accounts().ListByRole(ctx, account.RoleInstructor)
		if err != nil {
			return err
		}
		for _, inst := range instructors {
			result.Instructors = append(result.Instructors, InstructorCard{
				Name:      inst.Name,
				Specialty: orDefault(inst.Specialty, DefaultInstructorSpecialty),
				Bio:       orDefault(inst.Bio, DefaultInstructorBio),
			})
		}
		return nil
	})
	if err != nil {
		logFailure(h.log, "PublicStats", err)
		return nil, err
	}
	return result, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
