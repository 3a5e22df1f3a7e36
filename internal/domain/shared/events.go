// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"errors"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Events are published after the transaction that
// produced them has committed.
const (
	// Account events
	EventAccountRegistered    EventType = "account.registered"
	EventAccountStatusChanged EventType = "account.status_changed"

	// Enrollment events
	EventEnrollmentCreated       EventType = "enrollment.created"
	EventEnrollmentCompleted     EventType = "enrollment.completed"
	EventEnrollmentStatusChanged EventType = "enrollment.status_changed"

	// Gamification events
	EventPointsAwarded EventType = "gamification.points_awarded"
	EventLevelUp       EventType = "gamification.level_up"
	EventBadgeEarned   EventType = "gamification.badge_earned"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// newBaseEvent stamps a zero time with the current UTC time.
func newBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Account Events
// ═══════════════════════════════════════════════════════════════════════════

// AccountRegisteredEvent is emitted when a new account registers.
type AccountRegisteredEvent struct {
	BaseEvent
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// Payload implements Event interface.
func (e AccountRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"email":  e.Email,
		"role":   e.Role,
		"status": e.Status,
	}
}

// NewAccountRegisteredEvent creates a new AccountRegisteredEvent.
func NewAccountRegisteredEvent(accountID, email, role, status string, at time.Time) AccountRegisteredEvent {
	return AccountRegisteredEvent{
		BaseEvent: newBaseEvent(EventAccountRegistered, accountID, at),
		Email:     email,
		Role:      role,
		Status:    status,
	}
}

// AccountStatusChangedEvent is emitted when an admin approves or rejects an account.
type AccountStatusChangedEvent struct {
	BaseEvent
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedBy string `json:"changed_by"`
}

// Payload implements Event interface.
func (e AccountStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"from":       e.From,
		"to":         e.To,
		"changed_by": e.ChangedBy,
	}
}

// NewAccountStatusChangedEvent creates a new AccountStatusChangedEvent.
func NewAccountStatusChangedEvent(accountID, from, to, changedBy string, at time.Time) AccountStatusChangedEvent {
	return AccountStatusChangedEvent{
		BaseEvent: newBaseEvent(EventAccountStatusChanged, accountID, at),
		From:      from,
		To:        to,
		ChangedBy: changedBy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// EnrollmentCreatedEvent is emitted when an account enrolls in a course.
type EnrollmentCreatedEvent struct {
	BaseEvent
	AccountID string `json:"account_id"`
	CourseID  string `json:"course_id"`
	Status    string `json:"status"`
}

// Payload implements Event interface.
func (e EnrollmentCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_id": e.AccountID,
		"course_id":  e.CourseID,
		"status":     e.Status,
	}
}

// NewEnrollmentCreatedEvent creates a new EnrollmentCreatedEvent.
func NewEnrollmentCreatedEvent(enrollmentID, accountID, courseID, status string, at time.Time) EnrollmentCreatedEvent {
	return EnrollmentCreatedEvent{
		BaseEvent: newBaseEvent(EventEnrollmentCreated, enrollmentID, at),
		AccountID: accountID,
		CourseID:  courseID,
		Status:    status,
	}
}

// EnrollmentCompletedEvent is emitted when an enrollment transitions into completed.
type EnrollmentCompletedEvent struct {
	BaseEvent
	AccountID string `json:"account_id"`
	CourseID  string `json:"course_id"`
	Rewarded  bool   `json:"rewarded"`
}

// Payload implements Event interface.
func (e EnrollmentCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_id": e.AccountID,
		"course_id":  e.CourseID,
		"rewarded":   e.Rewarded,
	}
}

// NewEnrollmentCompletedEvent creates a new EnrollmentCompletedEvent.
func NewEnrollmentCompletedEvent(enrollmentID, accountID, courseID string, rewarded bool, at time.Time) EnrollmentCompletedEvent {
	return EnrollmentCompletedEvent{
		BaseEvent: newBaseEvent(EventEnrollmentCompleted, enrollmentID, at),
		AccountID: accountID,
		CourseID:  courseID,
		Rewarded:  rewarded,
	}
}

// EnrollmentStatusChangedEvent is emitted on an instructor/admin status override.
type EnrollmentStatusChangedEvent struct {
	BaseEvent
	AccountID string `json:"account_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedBy string `json:"changed_by"`
}

// Payload implements Event interface.
func (e EnrollmentStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_id": e.AccountID,
		"from":       e.From,
		"to":         e.To,
		"changed_by": e.ChangedBy,
	}
}

// NewEnrollmentStatusChangedEvent creates a new EnrollmentStatusChangedEvent.
func NewEnrollmentStatusChangedEvent(enrollmentID, accountID, from, to, changedBy string, at time.Time) EnrollmentStatusChangedEvent {
	return EnrollmentStatusChangedEvent{
		BaseEvent: newBaseEvent(EventEnrollmentStatusChanged, enrollmentID, at),
		AccountID: accountID,
		From:      from,
		To:        to,
		ChangedBy: changedBy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Gamification Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsAwardedEvent is emitted when an account gains points.
type PointsAwardedEvent struct {
	BaseEvent
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Reason   string `json:"reason"`
}

// Payload implements Event interface.
func (e PointsAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"reason":    e.Reason,
	}
}

// NewPointsAwardedEvent creates a new PointsAwardedEvent.
func NewPointsAwardedEvent(accountID string, amount, newTotal int, reason string, at time.Time) PointsAwardedEvent {
	return PointsAwardedEvent{
		BaseEvent: newBaseEvent(EventPointsAwarded, accountID, at),
		Amount:    amount,
		NewTotal:  newTotal,
		Reason:    reason,
	}
}

// LevelUpEvent is emitted when an account crosses a level boundary.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(accountID string, oldLevel, newLevel int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: newBaseEvent(EventLevelUp, accountID, at),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// BadgeEarnedEvent is emitted the first time an account earns a badge.
type BadgeEarnedEvent struct {
	BaseEvent
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Category string `json:"category"`
}

// Payload implements Event interface.
func (e BadgeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":     e.Name,
		"icon":     e.Icon,
		"category": e.Category,
	}
}

// NewBadgeEarnedEvent creates a new BadgeEarnedEvent.
func NewBadgeEarnedEvent(accountID, name, icon, category string, at time.Time) BadgeEarnedEvent {
	return BadgeEarnedEvent{
		BaseEvent: newBaseEvent(EventBadgeEarned, accountID, at),
		Name:      name,
		Icon:      icon,
		Category:  category,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Version     int             `json:"version"`
	Payload     json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// PublishAll publishes events in order and joins every publish failure.
// A nil publisher is a no-op.
func PublishAll(publisher EventPublisher, events ...Event) error {
	if publisher == nil {
		return nil
	}
	var errs []error
	for _, event := range events {
		if err := publisher.Publish(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
