package comps

import (
	"strings"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

const (
	DefaultRollingWeight = 0.4

	lateSeasonFactor = 0.96
	rookieWallFactor = 1.07
	rookieMaxAge     = 24
	rookieMaxPA      = 250
)

var lateSeasonMonths = map[string]struct{}{"sep": {}, "oct": {}}

// Comps is the neighbor set of one query plus weighted target summaries.
type Comps struct {
	Neighbors     []Neighbor
	WeightedMean  map[string]float64
	WeightedDelta map[string]float64
	TotalWeight   float64
}

// GetComps finds the neighbors of rec and summarizes the schema targets.
// WeightedDelta is measured against the query's own value of each target,
// after gap filling.
func GetComps(ix *FittedIndex, rec season.Record, k int) (Comps, error) {
	if k < 0 {
		return Comps{}, ErrInvalidNeighbors
	}
	raw, err := ix.ProjectQuery(rec)
	if err != nil {
		return Comps{}, err
	}
	neighbors, err := ix.nearest(raw, k)
	if err != nil {
		return Comps{}, err
	}

	weights := make([]float64, len(neighbors))
	total := 0.0
	for i, n := range neighbors {
		weights[i] = n.Weight
		total += n.Weight
	}
	if total <= 0 {
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(weights))
	}

	out := Comps{
		Neighbors:     neighbors,
		WeightedMean:  make(map[string]float64, len(ix.schema.Targets)),
		WeightedDelta: make(map[string]float64, len(ix.schema.Targets)),
		TotalWeight:   total,
	}
	for _, target := range ix.schema.Targets {
		ref := referenceValue(ix, rec, raw, target)
		var mean, delta float64
		for i, n := range neighbors {
			v := targetValue(ix, n, target)
			mean += weights[i] * v
			delta += weights[i] * (v - ref)
		}
		out.WeightedMean[target] = mean / total
		out.WeightedDelta[target] = delta / total
	}
	return out, nil
}

// targetValue reads a neighbor's target, falling back to the fitted median.
func targetValue(ix *FittedIndex, n Neighbor, target string) float64 {
	if v, ok := n.Record.Value(target); ok {
		return v
	}
	if j := ix.schema.columnIndex(target); j >= 0 {
		return ix.medians[j]
	}
	return DefaultStat
}

func referenceValue(ix *FittedIndex, rec season.Record, projected []float64, target string) float64 {
	if j := ix.schema.columnIndex(target); j >= 0 {
		return projected[j]
	}
	if v, ok := rec.Value(target); ok {
		return v
	}
	return DefaultStat
}

// Adjustment is a named multiplicative correction applied to the blend.
type Adjustment struct {
	Name   string
	Factor float64
}

// Projection is the blended forecast of a query's primary stat.
type Projection struct {
	PlayerName    string
	Role          season.Role
	Stat          string
	Base          float64
	Rolling       float64
	Delta         float64
	Blended       float64
	Final         float64
	RollingWeight float64
	Adjustments   []Adjustment
	Comps         Comps
}

// Predict blends the comps delta with the rolling form of the primary stat:
//
//	final = (1-rw)*(base+delta) + rw*rolling
//
// then applies the late-season fade and the rookie wall.
func Predict(ix *FittedIndex, rec season.Record, rollingWeight float64) (Projection, error) {
	if rollingWeight < 0 || rollingWeight > 1 {
		return Projection{}, ErrInvalidRollingWeight
	}

	comps, err := GetComps(ix, rec, 0)
	if err != nil {
		return Projection{}, err
	}

	primary := ix.schema.Primary()
	base, ok := rec.Value(primary)
	if !ok {
		base = DefaultStat
	}
	rolling, ok := rec.Value("rolling_" + primary)
	if !ok {
		rolling = base
	}
	delta := comps.WeightedDelta[primary]
	blended := (1-rollingWeight)*(base+delta) + rollingWeight*rolling

	p := Projection{
		PlayerName:    rec.DisplayName(),
		Role:          ix.schema.Role,
		Stat:          primary,
		Base:          base,
		Rolling:       rolling,
		Delta:         delta,
		Blended:       blended,
		Final:         blended,
		RollingWeight: rollingWeight,
		Comps:         comps,
	}
	for _, adj := range Adjustments(rec) {
		p.Final *= adj.Factor
		p.Adjustments = append(p.Adjustments, adj)
	}
	return p, nil
}

// Adjustments lists the context corrections that apply to rec.
func Adjustments(rec season.Record) []Adjustment {
	var out []Adjustment

	month, ok := rec.Label(season.KeyMonth)
	if !ok {
		month = DefaultMonth
	}
	if _, late := lateSeasonMonths[strings.ToLower(strings.TrimSpace(month))]; late {
		out = append(out, Adjustment{Name: "late_season_fade", Factor: lateSeasonFactor})
	}

	age := valueOr(rec, ColumnAge, DefaultAge)
	pa := valueOr(rec, "pa", 0)
	if age <= rookieMaxAge && pa < rookieMaxPA {
		out = append(out, Adjustment{Name: "rookie_wall", Factor: rookieWallFactor})
	}
	return out
}
