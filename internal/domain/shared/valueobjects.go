// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"math"
)

// ═══════════════════════════════════════════════════════════════════════════
// Points Value Object
// ═══════════════════════════════════════════════════════════════════════════

// PointsPerLevel is the width of one level band.
const PointsPerLevel = 1000

// MaxPoints is the largest total an account can hold.
const MaxPoints = math.MaxInt

// Points represents gamification points earned by an account.
type Points int

// IsValid checks if the points value is non-negative.
func (p Points) IsValid() bool {
	return p >= 0
}

// Int returns the underlying int value.
func (p Points) Int() int {
	return int(p)
}

// Add adds a positive delta. Non-positive deltas and deltas that would
// overflow the total are rejected.
func (p Points) Add(delta int) (Points, error) {
	if delta <= 0 {
		return p, NewDomainError("gamification", "AddPoints", ErrValidation,
			fmt.Sprintf("points delta must be positive, got %d", delta))
	}
	if delta > MaxPoints-int(p) {
		return p, NewDomainError("gamification", "AddPoints", ErrValidation,
			fmt.Sprintf("points total would exceed %d", MaxPoints))
	}
	return p + Points(delta), nil
}

// Level derives the level: floor(points / 1000) + 1.
func (p Points) Level() Level {
	if p <= 0 {
		return MinLevel
	}
	return Level(int(p)/PointsPerLevel + 1)
}

// ToNextLevel returns how many points are missing for the next level.
func (p Points) ToNextLevel() int {
	return p.Level().RequiredPoints() + PointsPerLevel - int(p)
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents an account level. It is never stored on its own.
type Level int

// MinLevel is the level of an account with zero points.
const MinLevel Level = 1

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// RequiredPoints returns the total points required to reach this level.
func (l Level) RequiredPoints() int {
	if l <= MinLevel {
		return 0
	}
	return (int(l) - 1) * PointsPerLevel
}

// ═══════════════════════════════════════════════════════════════════════════
// Percent Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Percent is a course progress value in [0, 100].
type Percent float64

// CompletionThreshold is the progress at which an enrollment completes.
const CompletionThreshold Percent = 100

// IsValid checks the [0, 100] range.
func (p Percent) IsValid() bool {
	return !math.IsNaN(float64(p)) && p >= 0 && p <= 100
}

// IsComplete reports whether the completion threshold is reached.
func (p Percent) IsComplete() bool {
	return p >= CompletionThreshold
}

// Float64 returns the underlying value.
func (p Percent) Float64() float64 {
	return float64(p)
}

// NewPercent validates and returns a progress value.
func NewPercent(v float64) (Percent, error) {
	p := Percent(v)
	if !p.IsValid() {
		return 0, NewDomainError("enrollment", "Validate", ErrValidation,
			fmt.Sprintf("progress must be between 0 and 100, got %v", v))
	}
	return p, nil
}

// RoundPercent rounds half away from zero to the nearest integer.
func RoundPercent(v float64) int {
	return int(math.Round(v))
}
