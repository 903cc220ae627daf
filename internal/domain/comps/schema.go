package comps

import (
	"strings"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

// Defaults applied when a row lacks the value.
const (
	DefaultAge       = 25.0
	DefaultSeason    = 2026
	DefaultDebutYear = 2020
	DefaultStat      = 100.0
	DefaultMonth     = "apr"
)

const (
	ColumnAge         = "age"
	ColumnServiceTime = "service_time"
	unknownCategory   = "unknown"
)

var (
	batterFeatures = []string{ColumnAge, ColumnServiceTime, "pa", "wrc+", "iso", "k%", "bb%", "babip", "hardhit%", "barrel%", "spd"}
	batterTargets  = []string{"wrc+", "iso", "k%", "bb%", "babip", "hardhit%", "barrel%"}

	pitcherFeatures = []string{ColumnAge, ColumnServiceTime, "ip", "fip", "k%", "bb%", "gb%", "hardhit%", "barrel%"}
	pitcherTargets  = []string{"fip", "k%", "bb%", "gb%", "hardhit%", "barrel%"}

	handednessCategories = []struct {
		label  string
		values []string
	}{
		{label: season.KeyBats, values: []string{"l", "r", "s", unknownCategory}},
		{label: season.KeyThrows, values: []string{"l", "r", unknownCategory}},
	}
)

// Schema fixes the feature layout of one role. Two projections with the same
// schema always produce the same columns in the same order.
type Schema struct {
	Role       season.Role
	Features   []string
	Targets    []string
	Handedness bool
}

func SchemaFor(role season.Role, handedness bool) Schema {
	s := Schema{Role: role, Handedness: handedness}
	if role.IsBatter() {
		s.Features = append([]string(nil), batterFeatures...)
		s.Targets = append([]string(nil), batterTargets...)
	} else {
		s.Features = append([]string(nil), pitcherFeatures...)
		s.Targets = append([]string(nil), pitcherTargets...)
	}
	return s
}

// Primary is the stat the blended projection is expressed in.
func (s Schema) Primary() string {
	return s.Targets[0]
}

// Columns lists the numeric features followed by the one-hot handedness columns.
func (s Schema) Columns() []string {
	cols := append([]string(nil), s.Features...)
	if !s.Handedness {
		return cols
	}
	for _, cat := range handednessCategories {
		for _, v := range cat.values {
			cols = append(cols, cat.label+"_"+v)
		}
	}
	return cols
}

func (s Schema) columnIndex(name string) int {
	for i, col := range s.Features {
		if col == name {
			return i
		}
	}
	return -1
}

func handednessCategory(label string, raw string, known []string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if label == season.KeyBats && (v == "b" || v == "both") {
		v = "s"
	}
	for _, candidate := range known {
		if candidate == v && candidate != unknownCategory {
			return v
		}
	}
	return unknownCategory
}
