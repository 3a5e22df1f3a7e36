package command

import (
	"context"

	"github.com/alem-hub/learnhub/internal/application/gamification"
	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET ENROLLMENT STATUS COMMAND
// Instructor/admin override of an enrollment status. Moving into completed
// runs the regular completion path; moving out of completed clears completedAt
// and the completed-courses counter but never takes points or badges back.
// ══════════════════════════════════════════════════════════════════════════════

// SetEnrollmentStatusCommand contains the override request.
type SetEnrollmentStatusCommand struct {
	EnrollmentID string `validate:"required"`
	RequesterID  string
	Status       string
}

// Validate validates the command envelope.
func (c SetEnrollmentStatusCommand) Validate() error {
	if err := requireRequester("enrollment", "SetStatus", c.RequesterID); err != nil {
		return err
	}
	return validateStruct("enrollment", "SetStatus", c)
}

// SetEnrollmentStatusResult contains the result of the override.
type SetEnrollmentStatusResult struct {
	Enrollment *enrollment.Enrollment
	Change     enrollment.StatusChange

	Rewarded     bool
	Gamification *gamification.Outcome
	Events       []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SetEnrollmentStatusHandler handles the SetEnrollmentStatusCommand.
type SetEnrollmentStatusHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewSetEnrollmentStatusHandler creates a new SetEnrollmentStatusHandler.
func NewSetEnrollmentStatusHandler(deps Deps) *SetEnrollmentStatusHandler {
	deps = deps.withDefaults()
	return &SetEnrollmentStatusHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("set_enrollment_status")),
	}
}

// Handle executes the status override.
func (h *SetEnrollmentStatusHandler) Handle(ctx context.Context, cmd SetEnrollmentStatusCommand) (*SetEnrollmentStatusResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.deps.Clock()
	result := &SetEnrollmentStatusResult{}

	err := h.deps.UoW.Write(ctx, func(ctx context.Context, repos port.Repositories) error {
		if err := requirePrivileged(ctx, repos, cmd.RequesterID); err != nil {
			return err
		}

		status, err := enrollment.ParseStatus(cmd.Status)
		if err != nil {
			return err
		}

		e, err := repos.Enrollments().GetForUpdate(ctx, cmd.EnrollmentID)
		if err != nil {
			return err
		}

		change, err := e.ChangeStatus(status, now)
		if err != nil {
			return err
		}
		result.Change = change
		result.Enrollment = e
		if !change.Changed() {
			return nil
		}

		switch {
		case change.Completion.Completed:
			effects, err := settleCompletion(ctx, repos, e, change.Completion, h.deps.CompletionPoints, now)
			if err != nil {
				return err
			}
			result.Rewarded = effects.Rewarded
			result.Gamification = effects.Gamification
			result.Events = append(result.Events, effects.Events...)

		case change.Uncompleted:
			acc, err := repos.Accounts().GetForUpdate(ctx, e.AccountID)
			if err != nil {
				return err
			}
			acc.DecrementCoursesCompleted(now)
			if err := repos.Accounts().Update(ctx, acc); err != nil {
				return err
			}
		}

		if err := repos.Enrollments().Update(ctx, e); err != nil {
			return err
		}
		result.Events = append([]shared.Event{
			shared.NewEnrollmentStatusChangedEvent(e.ID, e.AccountID, string(change.From), string(change.To), cmd.RequesterID, now),
		}, result.Events...)
		return nil
	})
	if err != nil {
		logFailure(h.log, "SetEnrollmentStatus", err,
			logger.EnrollmentID(cmd.EnrollmentID), logger.RequesterID(cmd.RequesterID))
		return nil, err
	}

	if result.Change.Changed() {
		h.log.Info("enrollment status changed",
			logger.EnrollmentID(result.Enrollment.ID),
			logger.RequesterID(cmd.RequesterID),
			logger.String("from", string(result.Change.From)),
			logger.String("to", string(result.Change.To)),
		)
	}
	h.deps.publish(result.Events)
	return result, nil
}

// requirePrivileged checks that the requester is an instructor or admin.
// An unknown requester is treated the same as an unprivileged one.
func requirePrivileged(ctx context.Context, repos port.Repositories, requesterID string) error {
	requester, err := repos.Accounts().GetByID(ctx, requesterID)
	if shared.IsNotFound(err) {
		return shared.ErrPrivilegedOnly
	}
	if err != nil {
		return err
	}
	if !requester.Role.IsPrivileged() {
		return shared.ErrPrivilegedOnly
	}
	return nil
}
