// Package memory implements the storage collaborator in process memory.
// It is used for local development (STORAGE_DRIVER=memory) and in tests.
//
// Write transactions are serialized by a single lock and work on a copy of
// the state that replaces the live state only when the function succeeds, so
// a failed operation leaves no partial mutation. Read transactions share the
// lock in read mode and therefore observe one consistent snapshot.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/course"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/domain/shared"
)

var errReadOnly = shared.NewDomainError("memory", "Write", shared.ErrStorageUnavailable, "write attempted in read-only transaction")

type pairKey struct {
	accountID string
	courseID  string
}

type state struct {
	accounts    map[string]*account.Account
	emails      map[string]string
	courses     map[string]*course.Course
	enrollments map[string]*enrollment.Enrollment
	pairs       map[pairKey]string
}

func newState() *state {
	return &state{
		accounts:    make(map[string]*account.Account),
		emails:      make(map[string]string),
		courses:     make(map[string]*course.Course),
		enrollments: make(map[string]*enrollment.Enrollment),
		pairs:       make(map[pairKey]string),
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts:    make(map[string]*account.Account, len(s.accounts)),
		emails:      make(map[string]string, len(s.emails)),
		courses:     make(map[string]*course.Course, len(s.courses)),
		enrollments: make(map[string]*enrollment.Enrollment, len(s.enrollments)),
		pairs:       make(map[pairKey]string, len(s.pairs)),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v.Clone()
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.courses {
		c.courses[k] = v.Clone()
	}
	for k, v := range s.enrollments {
		c.enrollments[k] = v.Clone()
	}
	for k, v := range s.pairs {
		c.pairs[k] = v
	}
	return c
}

// Store is an in-memory port.UnitOfWork.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

var _ port.UnitOfWork = (*Store)(nil)

// Write implements port.UnitOfWork.
func (s *Store) Write(ctx context.Context, fn port.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return shared.StorageError("memory", "Write", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &repositories{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Read implements port.UnitOfWork.
func (s *Store) Read(ctx context.Context, fn port.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return shared.StorageError("memory", "Read", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(ctx, &repositories{st: s.state, readOnly: true})
}

// Ping always succeeds; used by health checks.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORIES
// ══════════════════════════════════════════════════════════════════════════════

type repositories struct {
	st       *state
	readOnly bool
}

func (r *repositories) Accounts() account.Repository {
	return &accountRepo{st: r.st, readOnly: r.readOnly}
}

func (r *repositories) Courses() course.Repository {
	return &courseRepo{st: r.st, readOnly: r.readOnly}
}

func (r *repositories) Enrollments() enrollment.Repository {
	return &enrollmentRepo{st: r.st, readOnly: r.readOnly}
}

// ─────────────────────────────────────────────────────────────────────────────
// Accounts
// ─────────────────────────────────────────────────────────────────────────────

type accountRepo struct {
	st       *state
	readOnly bool
}

func (r *accountRepo) Create(ctx context.Context, a *account.Account) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.emails[a.Email]; ok {
		return shared.ErrEmailTaken
	}
	if _, ok := r.st.accounts[a.ID]; ok {
		return shared.NewDomainError("account", "Create", shared.ErrConflict, "account id already exists")
	}
	r.st.accounts[a.ID] = a.Clone()
	r.st.emails[a.Email] = a.ID
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*account.Account, error) {
	a, ok := r.st.accounts[id]
	if !ok {
		return nil, shared.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	id, ok := r.st.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, shared.ErrAccountNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *accountRepo) GetForUpdate(ctx context.Context, id string) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *accountRepo) Update(ctx context.Context, a *account.Account) error {
	if r.readOnly {
		return errReadOnly
	}
	prev, ok := r.st.accounts[a.ID]
	if !ok {
		return shared.ErrAccountNotFound
	}
	if prev.Email != a.Email {
		if owner, taken := r.st.emails[a.Email]; taken && owner != a.ID {
			return shared.ErrEmailTaken
		}
		delete(r.st.emails, prev.Email)
		r.st.emails[a.Email] = a.ID
	}
	r.st.accounts[a.ID] = a.Clone()
	return nil
}

func (r *accountRepo) ListByRole(ctx context.Context, role account.Role) ([]*account.Account, error) {
	out := make([]*account.Account, 0)
	for _, a := range r.st.accounts {
		if a.Role == role {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *accountRepo) SummarizeRole(ctx context.Context, role account.Role) (account.RoleSummary, error) {
	var sum account.RoleSummary
	for _, a := range r.st.accounts {
		if a.Role == role {
			sum.Count++
			sum.TotalPoints += a.Points
		}
	}
	return sum, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Courses
// ─────────────────────────────────────────────────────────────────────────────

type courseRepo struct {
	st       *state
	readOnly bool
}

func (r *courseRepo) Create(ctx context.Context, c *course.Course) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.courses[c.ID]; ok {
		return shared.NewDomainError("course", "Create", shared.ErrConflict, "course already exists")
	}
	r.st.courses[c.ID] = c.Clone()
	return nil
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*course.Course, error) {
	c, ok := r.st.courses[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return c.Clone(), nil
}

func (r *courseRepo) IncrementEnrollmentCount(ctx context.Context, id string) error {
	if r.readOnly {
		return errReadOnly
	}
	c, ok := r.st.courses[id]
	if !ok {
		return shared.ErrCourseNotFound
	}
	c.EnrollmentCount++
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrollments
// ─────────────────────────────────────────────────────────────────────────────

type enrollmentRepo struct {
	st       *state
	readOnly bool
}

func (r *enrollmentRepo) Create(ctx context.Context, e *enrollment.Enrollment) error {
	if r.readOnly {
		return errReadOnly
	}
	key := pairKey{accountID: e.AccountID, courseID: e.CourseID}
	if _, ok := r.st.pairs[key]; ok {
		return shared.ErrAlreadyEnrolled
	}
	if _, ok := r.st.enrollments[e.ID]; ok {
		return shared.NewDomainError("enrollment", "Create", shared.ErrConflict, "enrollment id already exists")
	}
	r.st.enrollments[e.ID] = e.Clone()
	r.st.pairs[key] = e.ID
	return nil
}

func (r *enrollmentRepo) GetByID(ctx context.Context, id string) (*enrollment.Enrollment, error) {
	e, ok := r.st.enrollments[id]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	return e.Clone(), nil
}

func (r *enrollmentRepo) GetForUpdate(ctx context.Context, id string) (*enrollment.Enrollment, error) {
	return r.GetByID(ctx, id)
}

func (r *enrollmentRepo) Update(ctx context.Context, e *enrollment.Enrollment) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.enrollments[e.ID]; !ok {
		return shared.ErrEnrollmentNotFound
	}
	r.st.enrollments[e.ID] = e.Clone()
	return nil
}

func (r *enrollmentRepo) CountByAccount(ctx context.Context, accountID string) (int, error) {
	n := 0
	for _, e := range r.st.enrollments {
		if e.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (r *enrollmentRepo) ListDetailed(ctx context.Context, filter enrollment.ListFilter) ([]enrollment.Detail, error) {
	var accounts map[string]struct{}
	if len(filter.AccountIDs) > 0 {
		accounts = make(map[string]struct{}, len(filter.AccountIDs))
		for _, id := range filter.AccountIDs {
			accounts[id] = struct{}{}
		}
	}

	out := make([]enrollment.Detail, 0)
	for _, e := range r.st.enrollments {
		if accounts != nil {
			if _, ok := accounts[e.AccountID]; !ok {
				continue
			}
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		d := enrollment.Detail{Enrollment: e.Clone()}
		if c, ok := r.st.courses[e.CourseID]; ok {
			d.CourseTitle = c.Title
			d.CourseCategory = c.Category
		}
		out = append(out, d)
	}
	enrollment.SortNewestFirst(out)
	return out, nil
}
