package command

import (
	"context"

	"github.com/alem-hub/learnhub/internal/application/gamification"
	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL COMMAND
// Creates a pending enrollment for (account, course). The first enrollment an
// account ever makes earns the "First Steps" badge.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollCommand contains the data to enroll an account in a course.
type EnrollCommand struct {
	AccountID string `validate:"required"`
	CourseID  string `validate:"required"`
}

// Validate validates the command.
func (c EnrollCommand) Validate() error {
	return validateStruct("enrollment", "Enroll", c)
}

// EnrollResult contains the result of enrolling.
type EnrollResult struct {
	Enrollment *enrollment.Enrollment

	// FirstEnrollment is true when this was the account's first enrollment.
	FirstEnrollment bool

	// Gamification is set when the first-enrollment badge was granted.
	Gamification *gamification.Outcome

	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// EnrollHandler handles the EnrollCommand.
type EnrollHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewEnrollHandler creates a new EnrollHandler.
func NewEnrollHandler(deps Deps) *EnrollHandler {
	deps = deps.withDefaults()
	return &EnrollHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("enroll")),
	}
}

// Handle executes the enroll command.
func (h *EnrollHandler) Handle(ctx context.Context, cmd EnrollCommand) (*EnrollResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.deps.Clock()
	result := &EnrollResult{}

	err := h.deps.UoW.Write(ctx, func(ctx context.Context, repos port.Repositories) error {
		// Step 1: lock the account first; badge grants below need the lock
		acc, err := repos.Accounts().GetForUpdate(ctx, cmd.AccountID)
		if err != nil {
			return err
		}

		// Step 2: the course must exist
		if _, err := repos.Courses().GetByID(ctx, cmd.CourseID); err != nil {
			return err
		}

		// Step 3: insert; the (account, course) pair is unique
		e := enrollment.New(h.deps.NewID(), acc.ID, cmd.CourseID, now)
		if err := repos.Enrollments().Create(ctx, e); err != nil {
			return err
		}
		if err := repos.Courses().IncrementEnrollmentCount(ctx, cmd.CourseID); err != nil {
			return err
		}
		result.Enrollment = e
		result.Events = append(result.Events,
			shared.NewEnrollmentCreatedEvent(e.ID, acc.ID, e.CourseID, string(e.Status), now))

		// Step 4: first enrollment ever
		count, err := repos.Enrollments().CountByAccount(ctx, acc.ID)
		if err != nil {
			return err
		}
		if count != 1 {
			return nil
		}
		result.FirstEnrollment = true

		out, err := gamification.Grant(acc, gamification.Award{
			Badges: []account.Badge{account.BadgeFirstSteps},
		}, now)
		if err != nil {
			return err
		}
		if err := repos.Accounts().Update(ctx, acc); err != nil {
			return err
		}
		result.Gamification = &out
		result.Events = append(result.Events, out.Events(now)...)
		return nil
	})
	if err != nil {
		logFailure(h.log, "Enroll", err, logger.AccountID(cmd.AccountID), logger.CourseID(cmd.CourseID))
		return nil, err
	}

	h.log.Info("enrollment created",
		logger.EnrollmentID(result.Enrollment.ID),
		logger.AccountID(cmd.AccountID),
		logger.CourseID(cmd.CourseID),
		logger.Bool("first_enrollment", result.FirstEnrollment),
	)
	h.deps.publish(result.Events)
	return result, nil
}
