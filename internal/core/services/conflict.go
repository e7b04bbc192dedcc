package services

import (
	"fmt"
	"math"
	"time"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
)

// ConflictPolicy holds the thresholds of the conflict heuristic.
type ConflictPolicy struct {
	// TemperatureThreshold is the absolute change, in snapshot units, that counts as suspicious
	TemperatureThreshold float64

	// Window is how recent the previous snapshot must be for the change to be compared
	Window time.Duration
}

// DefaultConflictPolicy flags a change of more than 10 degrees within 6 hours.
func DefaultConflictPolicy() ConflictPolicy {
	return ConflictPolicy{
		TemperatureThreshold: 10,
		Window:               6 * time.Hour,
	}
}

// ConflictDetector flags implausible temperature jumps between consecutive snapshots.
// It is a heuristic only: a flagged snapshot is still stored and served.
type ConflictDetector struct {
	policy ConflictPolicy
}

// NewConflictDetector creates a detector; zero policy fields fall back to the defaults.
func NewConflictDetector(policy ConflictPolicy) *ConflictDetector {
	defaults := DefaultConflictPolicy()

	if policy.TemperatureThreshold <= 0 {
		policy.TemperatureThreshold = defaults.TemperatureThreshold
	}

	if policy.Window <= 0 {
		policy.Window = defaults.Window
	}

	return &ConflictDetector{policy: policy}
}

// Detect compares a freshly fetched snapshot with the previous one for the same location.
// It returns false when there is no previous snapshot or either temperature is missing.
func (d *ConflictDetector) Detect(previous, candidate *domain.WeatherSnapshot, now time.Time) (bool, string) {
	if previous == nil {
		return false, ""
	}

	previousTemp, ok := previous.CurrentTemperature()
	if !ok {
		return false, ""
	}

	candidateTemp, ok := candidate.CurrentTemperature()
	if !ok {
		return false, ""
	}

	elapsed := now.Sub(previous.FetchedAt)
	if elapsed >= d.policy.Window {
		return false, ""
	}

	delta := candidateTemp - previousTemp
	if math.Abs(delta) <= d.policy.TemperatureThreshold {
		return false, ""
	}

	description := fmt.Sprintf(
		"Temperature changed from %.1f to %.1f (%+.1f) within %.1f hours of the previous fetch at %s",
		previousTemp,
		candidateTemp,
		delta,
		elapsed.Hours(),
		previous.FetchedAt.UTC().Format(time.RFC3339),
	)

	return true, description
}
