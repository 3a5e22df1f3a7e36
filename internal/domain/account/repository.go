package account

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// Все методы вызываются внутри транзакции хранилища.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции с учётными записями.
type Repository interface {
	// Create создаёт учётную запись.
	// Возвращает shared.ErrEmailTaken, если email уже занят.
	Create(ctx context.Context, account *Account) error

	// GetByID возвращает учётную запись по ID.
	// Возвращает shared.ErrAccountNotFound, если запись не найдена.
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByEmail ищет учётную запись по email без учёта регистра.
	// Возвращает shared.ErrAccountNotFound, если запись не найдена.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetForUpdate возвращает учётную запись и блокирует её до конца транзакции.
	// Все изменения очков и значков идут через эту блокировку.
	GetForUpdate(ctx context.Context, id string) (*Account, error)

	// Update сохраняет изменения.
	Update(ctx context.Context, account *Account) error

	// ListByRole возвращает все учётные записи с указанной ролью.
	ListByRole(ctx context.Context, role Role) ([]*Account, error)

	// SummarizeRole возвращает количество записей роли и сумму их очков.
	SummarizeRole(ctx context.Context, role Role) (RoleSummary, error)
}

// RoleSummary - агрегат по роли.
type RoleSummary struct {
	Count       int
	TotalPoints int
}
