// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"fmt"

	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ACTIVITY LOG HANDLER
// Пишет журнал активности по доменным событиям, опубликованным после
// коммита транзакции. Достижения (завершение курса, новый уровень, бейдж)
// пишутся на уровне Info, остальное на Debug.
// ═══════════════════════════════════════════════════════════════════════════

// ActivityLogHandler логирует доменные события.
type ActivityLogHandler struct {
	log *logger.Logger
}

// NewActivityLogHandler создаёт обработчик журнала активности.
func NewActivityLogHandler(log *logger.Logger) *ActivityLogHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ActivityLogHandler{log: log.Named("activity")}
}

// Register подписывает обработчик на все события шины.
func (h *ActivityLogHandler) Register(bus shared.EventSubscriber) error {
	if err := bus.SubscribeAll(h.Handle); err != nil {
		return fmt.Errorf("subscribe activity log: %w", err)
	}
	return nil
}

// Handle реализует shared.EventHandler.
func (h *ActivityLogHandler) Handle(event shared.Event) error {
	fields := []logger.Field{
		logger.String("event_type", string(event.EventType())),
		logger.String("aggregate_id", event.AggregateID()),
		logger.Time("occurred_at", event.OccurredAt()),
	}
	for k, v := range event.Payload() {
		fields = append(fields, logger.Any(k, v))
	}

	if isMilestone(event.EventType()) {
		h.log.Info(describe(event), fields...)
		return nil
	}
	h.log.Debug(describe(event), fields...)
	return nil
}

func isMilestone(t shared.EventType) bool {
	switch t {
	case shared.EventEnrollmentCompleted, shared.EventLevelUp, shared.EventBadgeEarned:
		return true
	}
	return false
}

func describe(event shared.Event) string {
	switch event.EventType() {
	case shared.EventAccountRegistered:
		return "account registered"
	case shared.EventAccountStatusChanged:
		return "account status changed"
	case shared.EventEnrollmentCreated:
		return "student enrolled"
	case shared.EventEnrollmentCompleted:
		return "course completed"
	case shared.EventEnrollmentStatusChanged:
		return "enrollment status changed"
	case shared.EventPointsAwarded:
		return "points awarded"
	case shared.EventLevelUp:
		return "level up"
	case shared.EventBadgeEarned:
		return "badge earned"
	default:
		return string(event.EventType())
	}
}
