// Package command contains write operations (CQRS - Commands).
// Every handler runs exactly one storage write transaction and publishes
// its domain events only after that transaction has committed.
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/learnhub/internal/application/gamification"
	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// Deps are the collaborators shared by all command handlers.
type Deps struct {
	UoW       port.UnitOfWork
	Publisher shared.EventPublisher
	Logger    *logger.Logger
	Clock     port.Clock
	NewID     func() string

	// CompletionPoints is the reward for completing a course.
	CompletionPoints int
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = port.SystemClock
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.CompletionPoints <= 0 {
		d.CompletionPoints = gamification.DefaultCompletionPoints
	}
	return d
}

// publish sends committed events. Failures are logged and never undo the commit.
func (d Deps) publish(events []shared.Event) {
	if err := shared.PublishAll(d.Publisher, events...); err != nil {
		d.Logger.Warn("publish events failed", logger.Err(err), logger.Int("count", len(events)))
	}
}

// logFailure logs a failed command: storage errors at Error, rejected preconditions at Debug.
func logFailure(log *logger.Logger, op string, err error, fields ...logger.Field) {
	fields = append(fields, logger.Operation(op), logger.Err(err))
	if shared.IsStorageUnavailable(err) {
		log.Error("command failed", fields...)
		return
	}
	log.Debug("command rejected", fields...)
}

func requireRequester(domain, op, requesterID string) error {
	if requesterID == "" {
		return shared.NewDomainError(domain, op, shared.ErrUnauthorized, "requester identity is required")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION
// ══════════════════════════════════════════════════════════════════════════════

// completionEffects is what completing an enrollment did to its owner.
type completionEffects struct {
	Rewarded     bool
	Gamification *gamification.Outcome
	Events       []shared.Event
}

// settleCompletion applies the account side of a completion inside the caller's
// transaction: the completed-courses counter always moves, the award is paid only
// when the enrollment has not been rewarded before. The enrollment row must already
// be locked; the account lock is taken here.
func settleCompletion(
	ctx context.Context,
	repos port.Repositories,
	e *enrollment.Enrollment,
	c enrollment.Completion,
	points int,
	at time.Time,
) (*completionEffects, error) {
	acc, err := repos.Accounts().GetForUpdate(ctx, e.AccountID)
	if err != nil {
		return nil, err
	}

	acc.IncrementCoursesCompleted(at)
	effects := &completionEffects{}

	if c.Rewardable {
		out, err := gamification.Grant(acc, gamification.CompletionAward(points), at)
		if err != nil {
			return nil, err
		}
		e.MarkRewarded(at)
		effects.Rewarded = true
		effects.Gamification = &out
	}

	if err := repos.Accounts().Update(ctx, acc); err != nil {
		return nil, err
	}

	effects.Events = append(effects.Events,
		shared.NewEnrollmentCompletedEvent(e.ID, e.AccountID, e.CourseID, effects.Rewarded, at))
	if effects.Gamification != nil {
		effects.Events = append(effects.Events, effects.Gamification.Events(at)...)
	}
	return effects, nil
}
