package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/course"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/domain/shared"
)

// UnitOfWork implements port.UnitOfWork over a pgx transaction.
type UnitOfWork struct {
	conn *Connection
}

// NewUnitOfWork creates a new UnitOfWork.
func NewUnitOfWork(conn *Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn}
}

var _ port.UnitOfWork = (*UnitOfWork)(nil)

// Write implements port.UnitOfWork.
func (u *UnitOfWork) Write(ctx context.Context, fn port.TxFunc) error {
	return u.run(ctx, "Write", DefaultTxOptions(), fn)
}

// Read implements port.UnitOfWork.
func (u *UnitOfWork) Read(ctx context.Context, fn port.TxFunc) error {
	return u.run(ctx, "Read", ReadOnlyTxOptions(), fn)
}

// Ping checks the database; used by health checks.
func (u *UnitOfWork) Ping(ctx context.Context) error {
	return u.conn.Ping(ctx)
}

func (u *UnitOfWork) run(ctx context.Context, op string, opts TxOptions, fn port.TxFunc) error {
	err := u.conn.WithTx(ctx, opts, func(tx pgx.Tx) error {
		return fn(ctx, &repositories{q: tx})
	})
	if err == nil {
		return nil
	}

	// Domain errors raised inside fn pass through; everything else is a storage failure.
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && !errors.Is(err, ErrTransactionFailed) {
		return err
	}
	return shared.StorageError("storage", op, err)
}

type repositories struct {
	q Querier
}

func (r *repositories) Accounts() account.Repository {
	return NewAccountRepository(r.q)
}

func (r *repositories) Courses() course.Repository {
	return NewCourseRepository(r.q)
}

func (r *repositories) Enrollments() enrollment.Repository {
	return NewEnrollmentRepository(r.q)
}
