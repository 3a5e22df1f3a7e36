package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const enrollmentColumns = `
	e.id::text, e.account_id::text, e.course_id::text, e.status, e.progress,
	e.completed_modules, e.time_spent, e.average_score, e.quizzes_taken,
	e.quizzes_passed, e.enrolled_at, e.completed_at, e.last_accessed,
	e.rewarded_at, e.updated_at`

// EnrollmentRepository implements enrollment.Repository on one transaction.
type EnrollmentRepository struct {
	q Querier
}

// NewEnrollmentRepository creates a repository bound to q.
func NewEnrollmentRepository(q Querier) *EnrollmentRepository {
	return &EnrollmentRepository{q: q}
}

// Create inserts an enrollment. The (account, course) pair is unique.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO enrollments (
			id, account_id, course_id, status, progress, completed_modules, time_spent,
			average_score, quizzes_taken, quizzes_passed, enrolled_at, completed_at,
			last_accessed, rewarded_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, e.AccountID, e.CourseID, string(e.Status), e.Progress, modules(e.CompletedModules), e.TimeSpent,
		e.AverageScore, e.QuizzesTaken, e.QuizzesPassed, e.EnrolledAt, e.CompletedAt,
		e.LastAccessed, e.RewardedAt, e.UpdatedAt,
	)
	if err != nil {
		switch {
		case IsUniqueViolation(err) && ConstraintName(err) == "enrollments_account_course_key":
			return shared.ErrAlreadyEnrolled
		case IsUniqueViolation(err):
			return shared.WrapError("enrollment", "Create", shared.ErrConflict, "enrollment already exists", err)
		case IsForeignKeyViolation(err):
			return shared.WrapError("enrollment", "Create", shared.ErrNotFound, "account or course not found", err)
		}
		return shared.StorageError("enrollment", "Create", err)
	}
	return nil
}

// GetByID returns an enrollment by ID.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*enrollment.Enrollment, error) {
	return r.getOne(ctx, "GetByID", `SELECT `+enrollmentColumns+` FROM enrollments e WHERE e.id = $1`, id)
}

// GetForUpdate returns an enrollment and holds its row lock until the transaction ends.
func (r *EnrollmentRepository) GetForUpdate(ctx context.Context, id string) (*enrollment.Enrollment, error) {
	return r.getOne(ctx, "GetForUpdate", `SELECT `+enrollmentColumns+` FROM enrollments e WHERE e.id = $1 FOR UPDATE`, id)
}

func (r *EnrollmentRepository) getOne(ctx context.Context, op, query, id string) (*enrollment.Enrollment, error) {
	if !isUUID(id) {
		return nil, shared.ErrEnrollmentNotFound
	}
	e, err := scanEnrollment(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, shared.StorageError("enrollment", op, err)
	}
	return e, nil
}

// Update persists the mutable part of an enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	if !isUUID(e.ID) {
		return shared.ErrEnrollmentNotFound
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE enrollments SET
			status = $2, progress = $3, completed_modules = $4, time_spent = $5,
			average_score = $6, quizzes_taken = $7, quizzes_passed = $8,
			completed_at = $9, last_accessed = $10, rewarded_at = $11, updated_at = $12
		WHERE id = $1`,
		e.ID, string(e.Status), e.Progress, modules(e.CompletedModules), e.TimeSpent,
		e.AverageScore, e.QuizzesTaken, e.QuizzesPassed,
		e.CompletedAt, e.LastAccessed, e.RewardedAt, e.UpdatedAt,
	)
	if err != nil {
		return shared.StorageError("enrollment", "Update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEnrollmentNotFound
	}
	return nil
}

// CountByAccount returns how many enrollments the account has.
func (r *EnrollmentRepository) CountByAccount(ctx context.Context, accountID string) (int, error) {
	if !isUUID(accountID) {
		return 0, nil
	}
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM enrollments WHERE account_id = $1`, accountID).Scan(&n); err != nil {
		return 0, shared.StorageError("enrollment", "CountByAccount", err)
	}
	return n, nil
}

// ListDetailed returns enrollments joined with course title and category,
// newest first.
func (r *EnrollmentRepository) ListDetailed(ctx context.Context, filter enrollment.ListFilter) ([]enrollment.Detail, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.AccountIDs) > 0 {
		ids := make([]string, 0, len(filter.AccountIDs))
		for _, id := range filter.AccountIDs {
			if isUUID(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return []enrollment.Detail{}, nil
		}
		args = append(args, ids)
		where = append(where, fmt.Sprintf("e.account_id = ANY($%d::uuid[])", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("e.status = $%d", len(args)))
	}

	query := `SELECT ` + enrollmentColumns + `, c.title, c.category
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.enrolled_at DESC, e.id"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.StorageError("enrollment", "ListDetailed", err)
	}
	defer rows.Close()

	out := make([]enrollment.Detail, 0)
	for rows.Next() {
		var d enrollment.Detail
		e, err := scanEnrollment(rows, &d.CourseTitle, &d.CourseCategory)
		if err != nil {
			return nil, shared.StorageError("enrollment", "ListDetailed", err)
		}
		d.Enrollment = e
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("enrollment", "ListDetailed", err)
	}
	return out, nil
}

func scanEnrollment(row pgx.Row, extra ...any) (*enrollment.Enrollment, error) {
	var (
		e      enrollment.Enrollment
		status string
	)
	dest := []any{
		&e.ID, &e.AccountID, &e.CourseID, &status, &e.Progress,
		&e.CompletedModules, &e.TimeSpent, &e.AverageScore, &e.QuizzesTaken,
		&e.QuizzesPassed, &e.EnrolledAt, &e.CompletedAt, &e.LastAccessed,
		&e.RewardedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	e.Status = enrollment.Status(status)
	if e.CompletedModules == nil {
		e.CompletedModules = []string{}
	}
	return &e, nil
}

func modules(m []string) []string {
	if m == nil {
		return []string{}
	}
	return m
}
