package command

import (
	"context"

	"github.com/alem-hub/learnhub/internal/application/gamification"
	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRANT AWARD COMMAND
// Manual points or badge from an admin. Each part is applied by the
// gamification engine in its own transaction.
// ══════════════════════════════════════════════════════════════════════════════

// BadgeInput describes a badge to grant.
type BadgeInput struct {
	Name        string `validate:"required,max=100"`
	Icon        string `validate:"max=16"`
	Description string `validate:"max=500"`
	Category    string `validate:"omitempty,oneof=milestone achievement"`
}

// GrantAwardCommand contains the award. At least one of Points and Badge is set.
type GrantAwardCommand struct {
	AccountID   string `validate:"required"`
	RequesterID string
	Points      int         `validate:"gte=0"`
	Badge       *BadgeInput `validate:"omitempty"`
}

// Validate validates the command.
func (c GrantAwardCommand) Validate() error {
	if err := requireRequester("gamification", "GrantAward", c.RequesterID); err != nil {
		return err
	}
	if err := validateStruct("gamification", "GrantAward", c); err != nil {
		return err
	}
	if c.Points == 0 && c.Badge == nil {
		return shared.ValidationError("gamification", "GrantAward", "points or badge is required")
	}
	return nil
}

// GrantAwardResult contains the applied outcomes.
type GrantAwardResult struct {
	Points *gamification.Outcome
	Badge  *gamification.Outcome
}

// GrantAwardHandler handles the GrantAwardCommand. Admin only.
type GrantAwardHandler struct {
	uow    port.UnitOfWork
	engine *gamification.Engine
	log    *logger.Logger
}

// NewGrantAwardHandler creates a new GrantAwardHandler.
func NewGrantAwardHandler(deps Deps, engine *gamification.Engine) *GrantAwardHandler {
	deps = deps.withDefaults()
	return &GrantAwardHandler{
		uow:    deps.UoW,
		engine: engine,
		log:    deps.Logger.With(logger.Component("grant_award")),
	}
}

// Handle executes the command.
func (h *GrantAwardHandler) Handle(ctx context.Context, cmd GrantAwardCommand) (*GrantAwardResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	err := h.uow.Read(ctx, func(ctx context.Context, repos port.Repositories) error {
		requester, err := repos.Accounts().GetByID(ctx, cmd.RequesterID)
		if shared.IsNotFound(err) {
			return shared.ErrAdminOnly
		}
		if err != nil {
			return err
		}
		if requester.Role != account.RoleAdmin {
			return shared.ErrAdminOnly
		}
		return nil
	})
	if err != nil {
		logFailure(h.log, "GrantAward", err, logger.RequesterID(cmd.RequesterID))
		return nil, err
	}

	result := &GrantAwardResult{}
	if cmd.Points > 0 {
		if result.Points, err = h.engine.AddPoints(ctx, cmd.AccountID, cmd.Points); err != nil {
			return nil, err
		}
	}
	if cmd.Badge != nil {
		category := cmd.Badge.Category
		if category == "" {
			category = account.CategoryAchievement
		}
		result.Badge, err = h.engine.AddBadge(ctx, cmd.AccountID, account.Badge{
			Name:        cmd.Badge.Name,
			Icon:        cmd.Badge.Icon,
			Description: cmd.Badge.Description,
			Category:    category,
		})
		if err != nil {
			return result, err
		}
	}

	h.log.Info("manual award granted",
		logger.AccountID(cmd.AccountID),
		logger.RequesterID(cmd.RequesterID),
		logger.PointsAmount(cmd.Points),
	)
	return result, nil
}
