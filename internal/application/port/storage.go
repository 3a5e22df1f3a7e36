// Package port defines what the application layer needs from the storage
// collaborator. Every core operation runs inside exactly one unit of work.
package port

import (
	"context"

	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/course"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
)

// Repositories gives access to repositories bound to one transaction.
type Repositories interface {
	Accounts() account.Repository
	Courses() course.Repository
	Enrollments() enrollment.Repository
}

// TxFunc is the body of a unit of work.
type TxFunc func(ctx context.Context, repos Repositories) error

// UnitOfWork runs a function inside a storage transaction.
type UnitOfWork interface {
	// Write runs fn in a read-write transaction. If fn returns an error,
	// nothing it did is persisted.
	Write(ctx context.Context, fn TxFunc) error

	// Read runs fn in a read-only transaction that sees one consistent snapshot.
	Read(ctx context.Context, fn TxFunc) error
}
