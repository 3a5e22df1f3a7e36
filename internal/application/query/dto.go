// Package query contains read operations (CQRS - Queries).
// Every query runs in one read-only transaction and re-derives its result
// from stored state; nothing is cached.
package query

import (
	"context"
	"time"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTO
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentDTO - запись на курс вместе с названием курса.
type EnrollmentDTO struct {
	ID               string     `json:"id"`
	AccountID        string     `json:"accountId"`
	CourseID         string     `json:"courseId"`
	CourseTitle      string     `json:"courseTitle"`
	CourseCategory   string     `json:"courseCategory,omitempty"`
	Status           string     `json:"status"`
	Progress         float64    `json:"progress"`
	CompletedModules []string   `json:"completedModules"`
	TimeSpent        int        `json:"timeSpent"`
	AverageScore     float64    `json:"averageScore"`
	QuizzesTaken     int        `json:"quizzesTaken"`
	QuizzesPassed    int        `json:"quizzesPassed"`
	EnrolledAt       time.Time  `json:"enrolledAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	LastAccessed     time.Time  `json:"lastAccessed"`
}

// NewEnrollmentDTO строит DTO из записи с проекцией курса.
func NewEnrollmentDTO(d enrollment.Detail) EnrollmentDTO {
	e := d.Enrollment
	return EnrollmentDTO{
		ID:               e.ID,
		AccountID:        e.AccountID,
		CourseID:         e.CourseID,
		CourseTitle:      d.CourseTitle,
		CourseCategory:   d.CourseCategory,
		Status:           string(e.Status),
		Progress:         e.Progress,
		CompletedModules: append([]string{}, e.CompletedModules...),
		TimeSpent:        e.TimeSpent,
		AverageScore:     e.AverageScore,
		QuizzesTaken:     e.QuizzesTaken,
		QuizzesPassed:    e.QuizzesPassed,
		EnrolledAt:       e.EnrolledAt,
		CompletedAt:      e.CompletedAt,
		LastAccessed:     e.LastAccessed,
	}
}

func enrollmentDTOs(details []enrollment.Detail) []EnrollmentDTO {
	out := make([]EnrollmentDTO, len(details))
	for i, d := range details {
		out[i] = NewEnrollmentDTO(d)
	}
	return out
}

// AccountDTO - профиль учётной записи без хеша пароля.
type AccountDTO struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	Role              string          `json:"role"`
	Status            string          `json:"status"`
	Points            int             `json:"points"`
	Level             int             `json:"level"`
	PointsToNextLevel int             `json:"pointsToNextLevel"`
	Badges            []account.Badge `json:"badges"`
	CoursesCompleted  int             `json:"coursesCompleted"`
	Bio               string          `json:"bio,omitempty"`
	Specialty         string          `json:"specialty,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// NewAccountDTO строит DTO из учётной записи.
func NewAccountDTO(a *account.Account) AccountDTO {
	return AccountDTO{
		ID:                a.ID,
		Name:              a.Name,
		Email:             a.Email,
		Role:              string(a.Role),
		Status:            string(a.Status),
		Points:            a.Points,
		Level:             a.Level(),
		PointsToNextLevel: shared.Points(a.Points).ToNextLevel(),
		Badges:            a.Badges.Clone(),
		CoursesCompleted:  a.CoursesCompleted,
		Bio:               a.Bio,
		Specialty:         a.Specialty,
		CreatedAt:         a.CreatedAt,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// requirePrivileged пропускает только преподавателей и администраторов.
// Неизвестный запрашивающий считается непривилегированным.
func requirePrivileged(ctx context.Context, repos port.Repositories, requesterID string) error {
	if requesterID == "" {
		return shared.NewDomainError("analytics", "Authorize", shared.ErrUnauthorized, "requester identity is required")
	}
	requester, err := repos.Accounts().GetByID(ctx, requesterID)
	if shared.IsNotFound(err) {
		return shared.ErrPrivilegedOnly
	}
	if err != nil {
		return err
	}
	if !requester.Role.IsPrivileged() {
		return shared.ErrPrivilegedOnly
	}
	return nil
}

func logFailure(log *logger.Logger, op string, err error) {
	if shared.IsStorageUnavailable(err) {
		log.Error("query failed", logger.Operation(op), logger.Err(err))
		return
	}
	log.Debug("query rejected", logger.Operation(op), logger.Err(err))
}

func componentLogger(log *logger.Logger, name string) *logger.Logger {
	if log == nil {
		log = logger.Nop()
	}
	return log.With(logger.Component(name))
}
