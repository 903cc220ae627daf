package usecase

import (
	"errors"

	"github.com/riskibarqy/mlb-betting/internal/domain/comps"
)

// Sentinels returned by the services. Transports map them to status codes;
// engine errors from the comps package pass through wrapped.
var (
	// ErrInvalidInput marks a request the caller has to fix: a bad season
	// range, an empty batch, a malformed row.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned for internal job calls without a valid token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDependencyUnavailable covers FanGraphs, the odds feed and the history
	// store being unreachable or rejected by an open circuit.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrFeatureDisabled       = errors.New("feature disabled")
)

// IsEngineInputError reports whether err comes from the caller's row rather
// than from the data layer.
func IsEngineInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, comps.ErrInvalidNeighbors) ||
		errors.Is(err, comps.ErrInvalidRollingWeight)
}
