package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for recoverable conditions. Callers should test with
// errors.Is; both are absorbed locally where a degraded result is possible
// (flat low-confidence forecast, cached snapshot) and surfaced as metadata
// rather than failing a batch.
var (
	// ErrInsufficientHistory indicates fewer than two history points were
	// available for trend computation.
	ErrInsufficientHistory = errors.New("insufficient history: need at least 2 points")

	// ErrProviderUnavailable indicates an upstream history or weather
	// provider was unreachable or timed out.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNotFound indicates an unknown (disease, location) pair at a
	// provider.
	ErrNotFound = errors.New("not found")
)

// ValidationError rejects bad caller input (unknown identifiers, negative
// horizons) synchronously. Never absorbed or coerced.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConfigurationError reports a defect in engine configuration, such as a
// missing seasonal-multiplier entry. Raised at startup, not per request.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Reason)
}
