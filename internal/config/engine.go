package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/riskibarqy/mlb-betting/internal/domain/comps"
)

// EngineProfile holds the comps engine tuning knobs that may live in a TOML file:
//
//	k = 15
//	rolling_weight = 0.4
//	include_handedness = false
type EngineProfile struct {
	K                 int     `toml:"k"`
	RollingWeight     float64 `toml:"rolling_weight"`
	IncludeHandedness bool    `toml:"include_handedness"`
}

func DefaultEngineProfile() EngineProfile {
	return EngineProfile{
		K:             comps.DefaultNeighbors,
		RollingWeight: comps.DefaultRollingWeight,
	}
}

// LoadEngineProfile decodes path over the defaults. Keys absent from the file
// keep their default value. An empty path returns the defaults.
func LoadEngineProfile(path string) (EngineProfile, error) {
	profile := DefaultEngineProfile()
	if strings.TrimSpace(path) == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return EngineProfile{}, fmt.Errorf("read engine profile: %w", err)
	}
	if err := toml.Unmarshal(data, &profile); err != nil {
		return EngineProfile{}, fmt.Errorf("parse engine profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return EngineProfile{}, err
	}

	return profile, nil
}

func (p EngineProfile) Validate() error {
	if p.K < 1 {
		return fmt.Errorf("engine profile: k must be >= 1, got %d", p.K)
	}
	if p.RollingWeight < 0 || p.RollingWeight > 1 {
		return fmt.Errorf("engine profile: rolling_weight must be within [0, 1], got %v", p.RollingWeight)
	}
	return nil
}

func (p EngineProfile) Options() comps.Options {
	return comps.Options{K: p.K, Handedness: p.IncludeHandedness}
}
