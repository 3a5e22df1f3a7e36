package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags toggles optional surfaces of the API.
// Each flag can be overridden with FEATURE_<NAME>, where NAME is the flag
// name upper-cased with dots replaced by underscores.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

// Predefined feature flag names.
const (
	FeaturePublicRegistration = "accounts.public_registration" // POST /api/v1/accounts without a token
	FeaturePublicStats        = "analytics.public_stats"       // GET /api/v1/analytics/public-stats
	FeatureEventLog           = "events.activity_log"          // log every domain event
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	ff.loadFromEnvironment()
	return ff
}

// NewFeatureFlags returns flags with their default values.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.define(FeaturePublicRegistration, "Allow self-service registration", true)
	ff.define(FeaturePublicStats, "Expose aggregated public statistics", true)
	ff.define(FeatureEventLog, "Write domain events to the activity log", true)
	return ff
}

func (ff *FeatureFlags) define(name, description string, enabled bool) {
	ff.features[name] = &Feature{Name: name, Description: description, Enabled: enabled}
}

func (ff *FeatureFlags) loadFromEnvironment() {
	for name, f := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			f.Enabled = b
		}
	}
}

// featureNameToEnvKey converts "analytics.public_stats" to FEATURE_ANALYTICS_PUBLIC_STATS.
func featureNameToEnvKey(name string) string {
	return "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

// IsEnabled reports whether a feature is on. Unknown features are off.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	if ff == nil {
		return false
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[name]
	return ok && f.Enabled
}

// Set switches a feature on or off.
func (ff *FeatureFlags) Set(name string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[name]
	if !ok {
		return &FeatureFlagError{Feature: name, Message: "feature not found"}
	}
	f.Enabled = enabled
	return nil
}

// GetAllFeatures returns a copy of all flags ordered by name.
func (ff *FeatureFlags) GetAllFeatures() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FeatureFlagError is returned for operations on unknown flags.
type FeatureFlagError struct {
	Feature string
	Message string
}

func (e *FeatureFlagError) Error() string {
	return fmt.Sprintf("feature %s: %s", e.Feature, e.Message)
}
