package enrollment

import (
	"context"
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции с записями на курсы.
type Repository interface {
	// Create сохраняет новую запись.
	// Возвращает shared.ErrAlreadyEnrolled, если пара (account, course) уже существует.
	Create(ctx context.Context, e *Enrollment) error

	// GetByID возвращает shared.ErrEnrollmentNotFound, если запись не найдена.
	GetByID(ctx context.Context, id string) (*Enrollment, error)

	// GetForUpdate возвращает запись и блокирует её до конца транзакции.
	GetForUpdate(ctx context.Context, id string) (*Enrollment, error)

	// Update сохраняет изменения.
	Update(ctx context.Context, e *Enrollment) error

	// CountByAccount возвращает количество записей аккаунта за всё время.
	CountByAccount(ctx context.Context, accountID string) (int, error)

	// ListDetailed возвращает записи вместе с названием курса.
	// Порядок: enrolledAt по убыванию, затем id.
	ListDetailed(ctx context.Context, filter ListFilter) ([]Detail, error)
}

// ListFilter ограничивает выборку ListDetailed. Пустые поля не фильтруют.
type ListFilter struct {
	AccountIDs []string
	Status     Status
}

// Detail - запись вместе с проекцией курса.
type Detail struct {
	Enrollment     *Enrollment
	CourseTitle    string
	CourseCategory string
}

// SortNewestFirst сортирует записи по enrolledAt (новые первыми), при равенстве по id.
func SortNewestFirst(details []Detail) {
	sort.SliceStable(details, func(i, j int) bool {
		a, b := details[i].Enrollment, details[j].Enrollment
		if !a.EnrolledAt.Equal(b.EnrolledAt) {
			return a.EnrolledAt.After(b.EnrolledAt)
		}
		return a.ID < b.ID
	})
}

// SortOldestFirst сортирует записи по enrolledAt (старые первыми), при равенстве по id.
func SortOldestFirst(details []Detail) {
	sort.SliceStable(details, func(i, j int) bool {
		a, b := details[i].Enrollment, details[j].Enrollment
		if !a.EnrolledAt.Equal(b.EnrolledAt) {
			return a.EnrolledAt.Before(b.EnrolledAt)
		}
		return a.ID < b.ID
	})
}

// Top возвращает запись с наибольшим прогрессом.
// При равенстве выигрывает более ранняя запись, затем меньший id.
func Top(details []Detail) (Detail, bool) {
	if len(details) == 0 {
		return Detail{}, false
	}
	best := details[0]
	for _, d := range details[1:] {
		a, b := d.Enrollment, best.Enrollment
		switch {
		case a.Progress > b.Progress:
			best = d
		case a.Progress < b.Progress:
		case a.EnrolledAt.Before(b.EnrolledAt):
			best = d
		case a.EnrolledAt.Equal(b.EnrolledAt) && a.ID < b.ID:
			best = d
		}
	}
	return best, true
}
