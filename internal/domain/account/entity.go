// Package account содержит доменную модель учётной записи LMS:
// роль, статус одобрения, очки, уровень и значки.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package account

import (
	"fmt"
	"strings"
	"time"

	"github.com/alem-hub/learnhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Role определяет роль учётной записи.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// IsValid проверяет, что роль корректна.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsPrivileged возвращает true для ролей, которым доступна аналитика
// и ручная смена статуса записи на курс.
func (r Role) IsPrivileged() bool {
	return r == RoleInstructor || r == RoleAdmin
}

// Status определяет статус одобрения учётной записи.
type Status string

const (
	// StatusPending - студент зарегистрировался и ждёт одобрения администратором.
	StatusPending Status = "pending"
	// StatusActive - учётная запись одобрена.
	StatusActive Status = "active"
	// StatusRejected - администратор отклонил заявку.
	StatusRejected Status = "rejected"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected:
		return true
	default:
		return false
	}
}

// InitialStatus возвращает стартовый статус для роли:
// студенты ждут одобрения, остальные активны сразу.
func InitialStatus(role Role) Status {
	if role == RoleStudent {
		return StatusPending
	}
	return StatusActive
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Account - учётная запись пользователя.
// Уровень не хранится отдельно, он всегда выводится из очков.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       Status

	Points           int
	Badges           BadgeSet
	CoursesCompleted int

	// Профиль (для публичной статистики)
	Bio       string
	Specialty string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccountParams - параметры создания учётной записи.
type NewAccountParams struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Bio          string
	Specialty    string
}

// NewAccount создаёт учётную запись со стартовым статусом для её роли.
func NewAccount(params NewAccountParams, now time.Time) (*Account, error) {
	if params.ID == "" {
		return nil, shared.ValidationError("account", "New", "id is required")
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, shared.ValidationError("account", "New", "name is required")
	}
	if !params.Role.IsValid() {
		return nil, shared.ValidationError("account", "New", fmt.Sprintf("invalid role: %q", params.Role))
	}

	return &Account{
		ID:           params.ID,
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(params.Email)),
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		Status:       InitialStatus(params.Role),
		Badges:       BadgeSet{},
		Bio:          params.Bio,
		Specialty:    params.Specialty,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Level возвращает уровень: floor(points / 1000) + 1.
func (a *Account) Level() int {
	return LevelFor(a.Points)
}

// LevelFor выводит уровень из количества очков.
func LevelFor(points int) int {
	return shared.Points(points).Level().Int()
}

// AddPoints начисляет очки. delta должна быть положительной.
func (a *Account) AddPoints(delta int, now time.Time) error {
	next, err := shared.Points(a.Points).Add(delta)
	if err != nil {
		return err
	}
	a.Points = next.Int()
	a.UpdatedAt = now
	return nil
}

// AddBadge выдаёт значок. Повторная выдача значка с тем же именем ничего не меняет
// и сохраняет исходное время получения.
func (a *Account) AddBadge(badge Badge, now time.Time) (Badge, bool) {
	earned, added := a.Badges.Add(badge, now)
	if added {
		a.UpdatedAt = now
	}
	return earned, added
}

// HasBadge проверяет наличие значка по имени.
func (a *Account) HasBadge(name string) bool {
	return a.Badges.Has(name)
}

// IncrementCoursesCompleted увеличивает счётчик завершённых курсов.
func (a *Account) IncrementCoursesCompleted(now time.Time) {
	a.CoursesCompleted++
	a.UpdatedAt = now
}

// DecrementCoursesCompleted уменьшает счётчик, не опускаясь ниже нуля.
func (a *Account) DecrementCoursesCompleted(now time.Time) {
	if a.CoursesCompleted > 0 {
		a.CoursesCompleted--
	}
	a.UpdatedAt = now
}

// SetStatus меняет статус одобрения. Возвращает предыдущий статус.
func (a *Account) SetStatus(status Status, now time.Time) (Status, error) {
	if !status.IsValid() {
		return a.Status, shared.ValidationError("account", "SetStatus", fmt.Sprintf("invalid status: %q", status))
	}
	prev := a.Status
	a.Status = status
	a.UpdatedAt = now
	return prev, nil
}

// Clone возвращает глубокую копию учётной записи.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Badges = a.Badges.Clone()
	return &c
}
