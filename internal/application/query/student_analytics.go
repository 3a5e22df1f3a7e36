package query

import (
	"context"
	"sort"
	"time"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// NoTopCourse - значение topCourse для студента без записей.
const NoTopCourse = "None"

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT ANALYTICS QUERY
// Сводка по каждому студенту для панели преподавателя/администратора.
// Студенты упорядочены по очкам (убывание), затем по имени и id.
// ══════════════════════════════════════════════════════════════════════════════

// StudentAnalyticsQuery содержит параметры запроса.
type StudentAnalyticsQuery struct {
	RequesterID string
}

// EnrollmentSummary - строка детализации записи студента.
type EnrollmentSummary struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
	CourseTitle string  `json:"courseTitle"`
}

// StudentSummary - агрегат по одному студенту.
type StudentSummary struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Email            string              `json:"email"`
	Points           int                 `json:"points"`
	Level            int                 `json:"level"`
	Status           string              `json:"status"`
	CoursesEnrolled  int                 `json:"coursesEnrolled"`
	CoursesCompleted int                 `json:"coursesCompleted"`
	AverageProgress  int                 `json:"averageProgress"`
	TopCourse        string              `json:"topCourse"`
	Enrollments      []EnrollmentSummary `json:"enrollments"`
}

// StudentAnalyticsResult - результат запроса.
type StudentAnalyticsResult struct {
	Students []StudentSummary `json:"students"`
}

// StudentAnalyticsHandler обрабатывает StudentAnalyticsQuery.
type StudentAnalyticsHandler struct {
	uow port.UnitOfWork
	log *logger.Logger
}

// NewStudentAnalyticsHandler создаёт обработчик.
func NewStudentAnalyticsHandler(uow port.UnitOfWork, log *logger.Logger) *StudentAnalyticsHandler {
	return &StudentAnalyticsHandler{uow: uow, log: componentLogger(log, "student_analytics")}
}

// Handle выполняет запрос.
func (h *StudentAnalyticsHandler) Handle(ctx context.Context, q StudentAnalyticsQuery) (*StudentAnalyticsResult, error) {
	result := &StudentAnalyticsResult{Students: []StudentSummary{}}

	err := h.uow.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		if err := requirePrivileged(ctx, repos, q.RequesterID); err != nil {
			return err
		}
		roster, err := loadRoster(ctx, repos, enrollment.ListFilter{})
		if err != nil {
			return err
		}
		for _, entry := range roster {
			result.Students = append(result.Students, summarize(entry))
		}
		return nil
	})
	if err != nil {
		logFailure(h.log, "StudentAnalytics", err)
		return nil, err
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PENDING ENROLLMENT QUEUE QUERY
// Все записи в статусе pending: сначала в порядке студентов, затем по дате записи.
// ══════════════════════════════════════════════════════════════════════════════

// PendingEnrollmentQueueQuery содержит параметры запроса.
type PendingEnrollmentQueueQuery struct {
	RequesterID string
}

// PendingEnrollment - запись, ожидающая одобрения.
type PendingEnrollment struct {
	StudentName  string    `json:"studentName"`
	StudentID    string    `json:"studentId"`
	EnrollmentID string    `json:"enrollmentId"`
	CourseTitle  string    `json:"courseTitle"`
	EnrolledAt   time.Time `json:"enrolledAt"`
}

// PendingEnrollmentQueueResult - результат запроса.
type PendingEnrollmentQueueResult struct {
	Pending []PendingEnrollment `json:"pending"`
}

// PendingEnrollmentQueueHandler обрабатывает PendingEnrollmentQueueQuery.
type PendingEnrollmentQueueHandler struct {
	uow port.UnitOfWork
	log *logger.Logger
}

// NewPendingEnrollmentQueueHandler создаёт обработчик.
func NewPendingEnrollmentQueueHandler(uow port.UnitOfWork, log *logger.Logger) *PendingEnrollmentQueueHandler {
	return &PendingEnrollmentQueueHandler{uow: uow, log: componentLogger(log, "pending_enrollments")}
}

// Handle выполняет запрос.
func (h *PendingEnrollmentQueueHandler) Handle(ctx context.Context, q PendingEnrollmentQueueQuery) (*PendingEnrollmentQueueResult, error) {
	result := &PendingEnrollmentQueueResult{Pending: []PendingEnrollment{}}

	err := h.uow.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		if err := requirePrivileged(ctx, repos, q.RequesterID); err != nil {
			return err
		}
		roster, err := loadRoster(ctx, repos, enrollment.ListFilter{Status: enrollment.StatusPending})
		if err != nil {
			return err
		}
		for _, entry := range roster {
			for _, d := range entry.details {
				result.Pending = append(result.Pending, PendingEnrollment{
					StudentName:  entry.student.Name,
					StudentID:    entry.student.ID,
					EnrollmentID: d.Enrollment.ID,
					CourseTitle:  d.CourseTitle,
					EnrolledAt:   d.Enrollment.EnrolledAt,
				})
			}
		}
		return nil
	})
	if err != nil {
		logFailure(h.log, "PendingEnrollmentQueue", err)
		return nil, err
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER
// ══════════════════════════════════════════════════════════════════════════════

type rosterEntry struct {
	student *account.Account
	details []enrollment.Detail // enrolledAt по возрастанию
}

// loadRoster загружает всех студентов в порядке аналитики вместе с их записями.
func loadRoster(ctx context.Context, repos port.Repositories, filter enrollment.ListFilter) ([]rosterEntry, error) {
	students, err := repos.Accounts().ListByRole(ctx, account.RoleStudent)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, nil
	}
	sortStudents(students)

	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	filter.AccountIDs = ids

	details, err := repos.Enrollments().ListDetailed(ctx, filter)
	if err != nil {
		return nil, err
	}
	byAccount := make(map[string][]enrollment.Detail, len(students))
	for _, d := range details {
		byAccount[d.Enrollment.AccountID] = append(byAccount[d.Enrollment.AccountID], d)
	}

	roster := make([]rosterEntry, len(students))
	for i, s := range students {
		own := byAccount[s.ID]
		enrollment.SortOldestFirst(own)
		roster[i] = rosterEntry{student: s, details: own}
	}
	return roster, nil
}

// sortStudents: очки по убыванию, затем имя, затем id.
func sortStudents(students []*account.Account) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

func summarize(entry rosterEntry) StudentSummary {
	s := entry.student
	summary := StudentSummary{
		ID:               s.ID,
		Name:             s.Name,
		Email:            s.Email,
		Points:           s.Points,
		Level:            s.Level(),
		Status:           string(s.Status),
		CoursesEnrolled:  len(entry.details),
		CoursesCompleted: s.CoursesCompleted,
		TopCourse:        NoTopCourse,
		Enrollments:      make([]EnrollmentSummary, 0, len(entry.details)),
	}

	var total float64
	for _, d := range entry.details {
		total += d.Enrollment.Progress
		summary.Enrollments = append(summary.Enrollments, EnrollmentSummary{
			ID:          d.Enrollment.ID,
			Status:      string(d.Enrollment.Status),
			Progress:    d.Enrollment.Progress,
			CourseTitle: d.CourseTitle,
		})
	}
	if n := len(entry.details); n > 0 {
		summary.AverageProgress = shared.RoundPercent(total / float64(n))
	}
	if top, ok := enrollment.Top(entry.details); ok {
		summary.TopCourse = top.CourseTitle
	}
	return summary
}
