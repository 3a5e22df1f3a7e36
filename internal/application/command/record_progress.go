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
// RECORD PROGRESS COMMAND
// Applies a partial progress update sent by the enrollment owner. Reaching 100%
// from pending or active completes the course in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// RecordProgressCommand contains a progress update. Nil fields are left as is.
type RecordProgressCommand struct {
	EnrollmentID string `validate:"required"`
	RequesterID  string

	ModuleID  *string
	Progress  *float64
	TimeSpent *int
	Quiz      *enrollment.QuizAttempt
}

// Validate validates the command envelope. Field ranges are checked after the
// enrollment is loaded, so a missing or foreign enrollment is reported first.
func (c RecordProgressCommand) Validate() error {
	if err := requireRequester("enrollment", "RecordProgress", c.RequesterID); err != nil {
		return err
	}
	return validateStruct("enrollment", "RecordProgress", c)
}

func (c RecordProgressCommand) update() enrollment.ProgressUpdate {
	return enrollment.ProgressUpdate{
		ModuleID:  c.ModuleID,
		Progress:  c.Progress,
		TimeSpent: c.TimeSpent,
		Quiz:      c.Quiz,
	}
}

// RecordProgressResult contains the updated enrollment.
type RecordProgressResult struct {
	Enrollment *enrollment.Enrollment

	// Completed is true when this update completed the course.
	Completed bool

	// Rewarded is true when the completion award was paid by this update.
	Rewarded bool

	Gamification *gamification.Outcome
	Events       []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordProgressHandler handles the RecordProgressCommand.
type RecordProgressHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewRecordProgressHandler creates a new RecordProgressHandler.
func NewRecordProgressHandler(deps Deps) *RecordProgressHandler {
	deps = deps.withDefaults()
	return &RecordProgressHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("record_progress")),
	}
}

// Handle executes the record progress command.
func (h *RecordProgressHandler) Handle(ctx context.Context, cmd RecordProgressCommand) (*RecordProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.deps.Clock()
	result := &RecordProgressResult{}

	err := h.deps.UoW.Write(ctx, func(ctx context.Context, repos port.Repositories) error {
		e, err := repos.Enrollments().GetForUpdate(ctx, cmd.EnrollmentID)
		if err != nil {
			return err
		}
		if !e.IsOwnedBy(cmd.RequesterID) {
			return shared.ErrNotEnrollmentOwner
		}

		completion, err := e.RecordProgress(cmd.update(), now)
		if err != nil {
			return err
		}

		if completion.Completed {
			effects, err := settleCompletion(ctx, repos, e, completion, h.deps.CompletionPoints, now)
			if err != nil {
				return err
			}
			result.Completed = true
			result.Rewarded = effects.Rewarded
			result.Gamification = effects.Gamification
			result.Events = effects.Events
		}

		if err := repos.Enrollments().Update(ctx, e); err != nil {
			return err
		}
		result.Enrollment = e
		return nil
	})
	if err != nil {
		logFailure(h.log, "RecordProgress", err,
			logger.EnrollmentID(cmd.EnrollmentID), logger.RequesterID(cmd.RequesterID))
		return nil, err
	}

	if result.Completed {
		h.log.Info("enrollment completed",
			logger.EnrollmentID(result.Enrollment.ID),
			logger.AccountID(result.Enrollment.AccountID),
			logger.Bool("rewarded", result.Rewarded),
		)
	} else {
		h.log.Debug("progress recorded",
			logger.EnrollmentID(result.Enrollment.ID),
			logger.Float64("progress", result.Enrollment.Progress),
		)
	}
	h.deps.publish(result.Events)
	return result, nil
}
