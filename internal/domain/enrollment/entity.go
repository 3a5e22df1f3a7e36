// Package enrollment содержит машину состояний записи студента на курс.
// Переходы: pending → active → completed, active → dropped,
// pending → rejected, active ⇄ suspended. Завершение запускает начисление
// награды, которое выполняется не более одного раза на запись.
package enrollment

import (
	"fmt"
	"math"
	"time"

	"github.com/alem-hub/learnhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status - состояние записи на курс.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDropped   Status = "dropped"
	StatusSuspended Status = "suspended"
	StatusRejected  Status = "rejected"
)

// AllStatuses перечисляет допустимые статусы.
var AllStatuses = []Status{
	StatusPending,
	StatusActive,
	StatusCompleted,
	StatusDropped,
	StatusSuspended,
	StatusRejected,
}

// IsValid проверяет, что статус входит в допустимое множество.
func (s Status) IsValid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// CanComplete возвращает true, если прогресс в этом статусе может завершить курс.
// dropped, rejected и suspended заморожены: прогресс записывается, но не завершает.
func (s Status) CanComplete() bool {
	return s == StatusPending || s == StatusActive
}

// ParseStatus разбирает статус из строки.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.IsValid() {
		return "", shared.ValidationError("enrollment", "ParseStatus", fmt.Sprintf("invalid status: %q", v))
	}
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment - запись аккаунта на курс. Пара (AccountID, CourseID) уникальна.
type Enrollment struct {
	ID        string
	AccountID string
	CourseID  string
	Status    Status

	Progress         float64
	CompletedModules []string
	TimeSpent        int // секунды, только растёт

	AverageScore  float64
	QuizzesTaken  int
	QuizzesPassed int

	EnrolledAt   time.Time
	CompletedAt  *time.Time // установлено тогда и только тогда, когда Status == completed
	LastAccessed time.Time
	RewardedAt   *time.Time // награда за завершение уже выплачена
	UpdatedAt    time.Time
}

// New создаёт запись в статусе pending.
func New(id, accountID, courseID string, now time.Time) *Enrollment {
	return &Enrollment{
		ID:               id,
		AccountID:        accountID,
		CourseID:         courseID,
		Status:           StatusPending,
		CompletedModules: []string{},
		EnrolledAt:       now,
		LastAccessed:     now,
		UpdatedAt:        now,
	}
}

// IsOwnedBy проверяет владельца записи.
func (e *Enrollment) IsOwnedBy(accountID string) bool {
	return e.AccountID == accountID
}

// HasModule проверяет, отмечен ли модуль как пройденный.
func (e *Enrollment) HasModule(moduleID string) bool {
	for _, m := range e.CompletedModules {
		if m == moduleID {
			return true
		}
	}
	return false
}

// IsRewarded возвращает true, если награда за завершение уже выплачена.
func (e *Enrollment) IsRewarded() bool {
	return e.RewardedAt != nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// QuizAttempt - результат одного прохождения теста.
type QuizAttempt struct {
	Score  float64
	Passed bool
}

// ProgressUpdate - частичное обновление прогресса. nil-поля не меняются.
type ProgressUpdate struct {
	ModuleID  *string
	Progress  *float64
	TimeSpent *int
	Quiz      *QuizAttempt
}

// Validate проверяет обновление до применения.
func (u ProgressUpdate) Validate() error {
	if u.ModuleID != nil && *u.ModuleID == "" {
		return shared.ValidationError("enrollment", "RecordProgress", "moduleId cannot be empty")
	}
	if u.Progress != nil {
		if _, err := shared.NewPercent(*u.Progress); err != nil {
			return err
		}
	}
	if u.TimeSpent != nil && *u.TimeSpent < 0 {
		return shared.ValidationError("enrollment", "RecordProgress",
			fmt.Sprintf("timeSpent cannot be negative, got %d", *u.TimeSpent))
	}
	if u.Quiz != nil && !shared.Percent(u.Quiz.Score).IsValid() {
		return shared.ValidationError("enrollment", "RecordProgress",
			fmt.Sprintf("quiz score must be between 0 and 100, got %v", u.Quiz.Score))
	}
	return nil
}

// Completion описывает результат проверки завершения.
type Completion struct {
	// Completed - запись перешла в completed в этом вызове.
	Completed bool
	// Rewardable - награда за эту запись ещё не выплачивалась.
	Rewardable bool
}

// RecordProgress применяет обновление. При ошибке валидации состояние не меняется.
// Если итоговый прогресс >= 100 и статус допускает завершение, запись завершается.
func (e *Enrollment) RecordProgress(u ProgressUpdate, now time.Time) (Completion, error) {
	if err := u.Validate(); err != nil {
		return Completion{}, err
	}
	if u.TimeSpent != nil && *u.TimeSpent > math.MaxInt-e.TimeSpent {
		return Completion{}, shared.ValidationError("enrollment", "RecordProgress",
			fmt.Sprintf("timeSpent total would exceed %d seconds", math.MaxInt))
	}

	if u.ModuleID != nil && !e.HasModule(*u.ModuleID) {
		e.CompletedModules = append(e.CompletedModules, *u.ModuleID)
	}
	if u.Progress != nil {
		e.Progress = *u.Progress
	}
	if u.TimeSpent != nil {
		e.TimeSpent += *u.TimeSpent
	}
	if u.Quiz != nil {
		e.recordQuiz(*u.Quiz)
	}
	e.LastAccessed = now
	e.UpdatedAt = now

	if shared.Percent(e.Progress).IsComplete() && e.Status.CanComplete() {
		return e.complete(now), nil
	}
	return Completion{}, nil
}

func (e *Enrollment) recordQuiz(q QuizAttempt) {
	total := e.AverageScore*float64(e.QuizzesTaken) + q.Score
	e.QuizzesTaken++
	e.AverageScore = total / float64(e.QuizzesTaken)
	if q.Passed {
		e.QuizzesPassed++
	}
}

func (e *Enrollment) complete(now time.Time) Completion {
	e.Status = StatusCompleted
	completedAt := now
	e.CompletedAt = &completedAt
	e.UpdatedAt = now
	return Completion{Completed: true, Rewardable: !e.IsRewarded()}
}

// MarkRewarded фиксирует выплату награды.
func (e *Enrollment) MarkRewarded(now time.Time) {
	if e.RewardedAt != nil {
		return
	}
	rewardedAt := now
	e.RewardedAt = &rewardedAt
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS OVERRIDE
// ══════════════════════════════════════════════════════════════════════════════

// StatusChange описывает результат ручной смены статуса.
type StatusChange struct {
	From Status
	To   Status

	// Completion заполнено, если запись перешла в completed.
	Completion Completion

	// Uncompleted - запись вышла из completed, completedAt очищен.
	Uncompleted bool
}

// Changed возвращает true, если статус действительно изменился.
func (c StatusChange) Changed() bool {
	return c.From != c.To
}

// ChangeStatus выполняет ручную смену статуса преподавателем или администратором.
// Переход в completed проходит тот же путь завершения, что и прогресс.
// Возврат из suspended/dropped/rejected при прогрессе 100 сразу завершает запись;
// To в результате тогда равен completed.
func (e *Enrollment) ChangeStatus(to Status, now time.Time) (StatusChange, error) {
	if !to.IsValid() {
		return StatusChange{}, shared.ValidationError("enrollment", "ChangeStatus", fmt.Sprintf("invalid status: %q", to))
	}

	change := StatusChange{From: e.Status, To: to}
	if !change.Changed() {
		return change, nil
	}

	if to == StatusCompleted {
		change.Completion = e.complete(now)
		return change, nil
	}

	// Прогресс, набранный в замороженном статусе, завершает запись при возврате.
	if e.Status != StatusCompleted && !e.Status.CanComplete() && to.CanComplete() &&
		shared.Percent(e.Progress).IsComplete() {
		change.To = StatusCompleted
		change.Completion = e.complete(now)
		return change, nil
	}

	if e.Status == StatusCompleted {
		e.CompletedAt = nil
		change.Uncompleted = true
	}
	e.Status = to
	e.UpdatedAt = now
	return change, nil
}

// Clone возвращает глубокую копию записи.
func (e *Enrollment) Clone() *Enrollment {
	if e == nil {
		return nil
	}
	c := *e
	c.CompletedModules = append([]string{}, e.CompletedModules...)
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	if e.RewardedAt != nil {
		t := *e.RewardedAt
		c.RewardedAt = &t
	}
	return &c
}
