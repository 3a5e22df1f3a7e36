// Package gamification applies points and badges to accounts.
//
// Grant is the pure mutation used by the enrollment lifecycle inside its own
// transaction. Engine wraps Grant in a dedicated transaction for callers that
// award points or badges on their own.
package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// DefaultCompletionPoints is the reward for completing a course.
const DefaultCompletionPoints = 500

// Reasons recorded on points_awarded events.
const (
	ReasonCourseCompleted = "course_completed"
	ReasonManual          = "manual"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD
// ══════════════════════════════════════════════════════════════════════════════

// Award describes what an account receives. Zero Points means no points.
type Award struct {
	Points int
	Badges []account.Badge
	Reason string
}

// CompletionAward is paid once per enrollment when it is completed.
func CompletionAward(points int) Award {
	return Award{
		Points: points,
		Badges: []account.Badge{account.BadgeCourseComplete},
		Reason: ReasonCourseCompleted,
	}
}

// Outcome is the effect an award had on an account.
type Outcome struct {
	AccountID    string
	Reason       string
	PointsAdded  int
	TotalPoints  int
	LevelBefore  int
	LevelAfter   int
	BadgesEarned []account.Badge
}

// LeveledUp reports whether the award crossed a level boundary.
func (o Outcome) LeveledUp() bool {
	return o.LevelAfter > o.LevelBefore
}

// Events returns the domain events describing the outcome.
func (o Outcome) Events(now time.Time) []shared.Event {
	var events []shared.Event
	if o.PointsAdded > 0 {
		events = append(events, shared.NewPointsAwardedEvent(o.AccountID, o.PointsAdded, o.TotalPoints, o.Reason, now))
	}
	if o.LeveledUp() {
		events = append(events, shared.NewLevelUpEvent(o.AccountID, o.LevelBefore, o.LevelAfter, now))
	}
	for _, b := range o.BadgesEarned {
		events = append(events, shared.NewBadgeEarnedEvent(o.AccountID, b.Name, b.Icon, b.Category, now))
	}
	return events
}

// Grant applies the award to acc. The caller must hold the account lock and
// persist acc afterwards. On error acc is left untouched.
func Grant(acc *account.Account, award Award, now time.Time) (Outcome, error) {
	if award.Points < 0 {
		return Outcome{}, shared.ValidationError("gamification", "Grant",
			fmt.Sprintf("points delta must be positive, got %d", award.Points))
	}

	out := Outcome{
		AccountID:   acc.ID,
		Reason:      award.Reason,
		LevelBefore: acc.Level(),
	}

	if award.Points > 0 {
		if err := acc.AddPoints(award.Points, now); err != nil {
			return Outcome{}, err
		}
		out.PointsAdded = award.Points
	}

	for _, badge := range award.Badges {
		if earned, added := acc.AddBadge(badge, now); added {
			out.BadgesEarned = append(out.BadgesEarned, earned)
		}
	}

	out.TotalPoints = acc.Points
	out.LevelAfter = acc.Level()
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine runs standalone gamification mutations.
type Engine struct {
	uow       port.UnitOfWork
	publisher shared.EventPublisher
	log       *logger.Logger
	now       port.Clock
}

// NewEngine creates a new Engine.
func NewEngine(uow port.UnitOfWork, publisher shared.EventPublisher, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		uow:       uow,
		publisher: publisher,
		log:       log.With(logger.Component("gamification")),
		now:       port.SystemClock,
	}
}

// WithClock replaces the clock.
func (e *Engine) WithClock(clock port.Clock) *Engine {
	e.now = clock
	return e
}

// AddPoints adds a positive delta to the account and recomputes its level.
func (e *Engine) AddPoints(ctx context.Context, accountID string, delta int) (*Outcome, error) {
	if delta <= 0 {
		return nil, shared.ValidationError("gamification", "AddPoints",
			fmt.Sprintf("points delta must be positive, got %d", delta))
	}
	return e.apply(ctx, "AddPoints", accountID, Award{Points: delta, Reason: ReasonManual})
}

// AddBadge grants a badge. Granting a badge the account already has is a no-op.
func (e *Engine) AddBadge(ctx context.Context, accountID string, badge account.Badge) (*Outcome, error) {
	if badge.Name == "" {
		return nil, shared.ValidationError("gamification", "AddBadge", "badge name is required")
	}
	return e.apply(ctx, "AddBadge", accountID, Award{Badges: []account.Badge{badge}, Reason: ReasonManual})
}

func (e *Engine) apply(ctx context.Context, op, accountID string, award Award) (*Outcome, error) {
	now := e.now()
	var out Outcome

	err := e.uow.Write(ctx, func(ctx context.Context, repos port.Repositories) error {
		acc, err := repos.Accounts().GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		out, err = Grant(acc, award, now)
		if err != nil {
			return err
		}
		return repos.Accounts().Update(ctx, acc)
	})
	if err != nil {
		if shared.IsStorageUnavailable(err) {
			e.log.Error("gamification write failed", logger.Operation(op), logger.AccountID(accountID), logger.Err(err))
		}
		return nil, err
	}

	e.log.Info("award applied",
		logger.Operation(op),
		logger.AccountID(accountID),
		logger.PointsAmount(out.PointsAdded),
		logger.Int("level", out.LevelAfter),
	)
	if err := shared.PublishAll(e.publisher, out.Events(now)...); err != nil {
		e.log.Warn("publish gamification events", logger.AccountID(accountID), logger.Err(err))
	}
	return &out, nil
}
