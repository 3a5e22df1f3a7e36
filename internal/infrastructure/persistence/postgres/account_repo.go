package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const accountColumns = `
	id::text, name, email, password_hash, role, status, points, badges,
	courses_completed, bio, specialty, created_at, updated_at`

// AccountRepository implements account.Repository on one transaction.
type AccountRepository struct {
	q Querier
}

// NewAccountRepository creates a repository bound to q.
func NewAccountRepository(q Querier) *AccountRepository {
	return &AccountRepository{q: q}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	badges, err := json.Marshal(a.Badges.Clone())
	if err != nil {
		return shared.WrapError("account", "Create", shared.ErrValidation, "badges cannot be encoded", err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO accounts (
			id, name, email, password_hash, role, status, points, badges,
			courses_completed, bio, specialty, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.Name, a.Email, a.PasswordHash, string(a.Role), string(a.Status), a.Points, badges,
		a.CoursesCompleted, a.Bio, a.Specialty, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			if ConstraintName(err) == "accounts_email_key" {
				return shared.ErrEmailTaken
			}
			return shared.WrapError("account", "Create", shared.ErrConflict, "account already exists", err)
		}
		return shared.StorageError("account", "Create", err)
	}
	return nil
}

// GetByID returns an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return r.getOne(ctx, "GetByID", `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetByEmail returns an account by email. Emails are stored lower-cased.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	a, err := scanAccount(r.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = lower($1)`, strings.TrimSpace(email)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAccountNotFound
		}
		return nil, shared.StorageError("account", "GetByEmail", err)
	}
	return a, nil
}

// GetForUpdate returns an account and holds its row lock until the transaction ends.
func (r *AccountRepository) GetForUpdate(ctx context.Context, id string) (*account.Account, error) {
	return r.getOne(ctx, "GetForUpdate", `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

func (r *AccountRepository) getOne(ctx context.Context, op, query, id string) (*account.Account, error) {
	if !isUUID(id) {
		return nil, shared.ErrAccountNotFound
	}
	a, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAccountNotFound
		}
		return nil, shared.StorageError("account", op, err)
	}
	return a, nil
}

// Update persists mutable fields. Level is a generated column.
func (r *AccountRepository) Update(ctx context.Context, a *account.Account) error {
	badges, err := json.Marshal(a.Badges.Clone())
	if err != nil {
		return shared.WrapError("account", "Update", shared.ErrValidation, "badges cannot be encoded", err)
	}
	if !isUUID(a.ID) {
		return shared.ErrAccountNotFound
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE accounts SET
			name = $2, email = $3, password_hash = $4, role = $5, status = $6,
			points = $7, badges = $8, courses_completed = $9, bio = $10,
			specialty = $11, updated_at = $12
		WHERE id = $1`,
		a.ID, a.Name, a.Email, a.PasswordHash, string(a.Role), string(a.Status),
		a.Points, badges, a.CoursesCompleted, a.Bio, a.Specialty, a.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrEmailTaken
		}
		return shared.StorageError("account", "Update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

// ListByRole returns accounts of a role ordered by creation time.
func (r *AccountRepository) ListByRole(ctx context.Context, role account.Role) ([]*account.Account, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE role = $1 ORDER BY created_at, id`, string(role))
	if err != nil {
		return nil, shared.StorageError("account", "ListByRole", err)
	}
	defer rows.Close()

	out := make([]*account.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, shared.StorageError("account", "ListByRole", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("account", "ListByRole", err)
	}
	return out, nil
}

// SummarizeRole counts accounts of a role and sums their points.
func (r *AccountRepository) SummarizeRole(ctx context.Context, role account.Role) (account.RoleSummary, error) {
	var sum account.RoleSummary
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(points), 0) FROM accounts WHERE role = $1`, string(role),
	).Scan(&sum.Count, &sum.TotalPoints)
	if err != nil {
		return account.RoleSummary{}, shared.StorageError("account", "SummarizeRole", err)
	}
	return sum, nil
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		a      account.Account
		role   string
		status string
		badges []byte
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role, &status, &a.Points, &badges,
		&a.CoursesCompleted, &a.Bio, &a.Specialty, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Role = account.Role(role)
	a.Status = account.Status(status)
	a.Badges = account.BadgeSet{}
	if len(badges) > 0 {
		if err := json.Unmarshal(badges, &a.Badges); err != nil {
			return nil, err
		}
	}
	return &a, nil
}
