package comps

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

func batterRow(i int) season.Record {
	offset := float64(i%5) - 2
	return season.Record{
		PlayerName: fmt.Sprintf("Batter %02d", i),
		Season:     2015 + i%10,
		DebutYear:  2012 + i%4,
		IsBatter:   true,
		Stats: map[string]float64{
			"age":      24 + float64(i%8),
			"pa":       400 + 15*float64(i),
			"wrc+":     100 + offset,
			"iso":      0.160 + offset/100,
			"k%":       0.22 - offset/200,
			"bb%":      0.085 + offset/300,
			"babip":    0.295 + offset/500,
			"hardhit%": 0.38 + offset/100,
			"barrel%":  0.07 + offset/200,
			"spd":      4 + offset/2,
		},
	}
}

func pitcherRow(i int) season.Record {
	return season.Record{
		PlayerName: fmt.Sprintf("Pitcher %02d", i),
		Season:     2016 + i%8,
		DebutYear:  2014,
		IsBatter:   false,
		Stats: map[string]float64{
			"age":      27 + float64(i%5),
			"ip":       120 + 5*float64(i),
			"fip":      3.8 + float64(i%3)/10,
			"k%":       0.23,
			"bb%":      0.08,
			"gb%":      0.44 + float64(i%4)/100,
			"hardhit%": 0.36,
			"barrel%":  0.075,
		},
	}
}

func fixtureDataset(batters, pitchers int) season.Dataset {
	ds := season.Dataset{StartYear: 2015, EndYear: 2025}
	for i := 0; i < batters; i++ {
		ds.Records = append(ds.Records, batterRow(i))
	}
	for i := 0; i < pitchers; i++ {
		ds.Records = append(ds.Records, pitcherRow(i))
	}
	return ds
}

func rookieQuery(month string, age, pa float64) season.Record {
	return season.Record{
		PlayerName: "Test Rookie",
		IsBatter:   true,
		Stats: map[string]float64{
			"age":          age,
			"pa":           pa,
			"wrc+":         98,
			"rolling_wrc+": 104,
			"iso":          0.150,
			"k%":           0.24,
			"bb%":          0.08,
		},
		Labels: map[string]string{season.KeyMonth: month},
	}
}

func TestProject_FallbackDefaults(t *testing.T) {
	t.Parallel()

	schema := SchemaFor(season.RoleBatter, false)
	matrix, err := Project([]season.Record{{Stats: map[string]float64{"pa": 10}}}, schema, make([]float64, len(schema.Columns())))
	require.NoError(t, err)
	require.Len(t, matrix.Rows, 1)

	assert.Equal(t, 25.0, matrix.Rows[0][0])
	assert.Equal(t, 6.0, matrix.Rows[0][1])
	assert.Equal(t, 10.0, matrix.Rows[0][2])
}

func TestProject_SchemaStability(t *testing.T) {
	t.Parallel()

	for _, handedness := range []bool{false, true} {
		schema := SchemaFor(season.RolePitcher, handedness)
		sparse := []season.Record{{Stats: map[string]float64{"fip": 4.1}}}
		full := []season.Record{pitcherRow(1), pitcherRow(2)}
		full[0].Labels = map[string]string{season.KeyThrows: "L"}

		fallback := make([]float64, len(schema.Columns()))
		a, err := Project(sparse, schema, fallback)
		require.NoError(t, err)
		b, err := Project(full, schema, fallback)
		require.NoError(t, err)

		assert.Equal(t, a.Columns, b.Columns)
		assert.Len(t, a.Rows[0], len(a.Columns))
		assert.Len(t, b.Rows[1], len(b.Columns))
	}
}

func TestProject_MedianImpute(t *testing.T) {
	t.Parallel()

	rows := []season.Record{batterRow(0), batterRow(1), batterRow(2), batterRow(3)}
	delete(rows[3].Stats, "spd")
	rows[0].Stats["spd"] = 1
	rows[1].Stats["spd"] = 3
	rows[2].Stats["spd"] = 8

	schema := SchemaFor(season.RoleBatter, false)
	matrix, err := Project(rows, schema, nil)
	require.NoError(t, err)

	spd := schema.columnIndex("spd")
	assert.Equal(t, 3.0, matrix.Rows[3][spd])
	assert.Equal(t, 3.0, matrix.Medians[spd])
}

func TestProject_SchemaDrift(t *testing.T) {
	t.Parallel()

	rows := []season.Record{batterRow(0), batterRow(1)}
	for _, r := range rows {
		delete(r.Stats, "barrel%")
	}
	_, err := Project(rows, SchemaFor(season.RoleBatter, false), nil)
	require.ErrorIs(t, err, ErrSchemaDrift)
}

func TestProject_HandednessOneHot(t *testing.T) {
	t.Parallel()

	schema := SchemaFor(season.RoleBatter, true)
	rec := batterRow(0)
	rec.Labels = map[string]string{season.KeyBats: "Both"}

	matrix, err := Project([]season.Record{rec}, schema, nil)
	require.NoError(t, err)

	got := map[string]float64{}
	for j, col := range matrix.Columns {
		got[col] = matrix.Rows[0][j]
	}
	assert.Equal(t, 1.0, got["bats_s"])
	assert.Equal(t, 0.0, got["bats_unknown"])
	assert.Equal(t, 1.0, got["throws_unknown"])
}

func TestFitScaler_ConstantColumn(t *testing.T) {
	t.Parallel()

	s := FitScaler([][]float64{{1, 5}, {3, 5}})
	assert.Equal(t, []float64{2, 5}, s.Mean)
	assert.Equal(t, []float64{1, 1}, s.Scale)
	assert.Equal(t, []float64{1, 0}, s.Transform([]float64{3, 5}))
}

func TestFit_Errors(t *testing.T) {
	t.Parallel()

	_, err := Fit(fixtureDataset(3, 0), season.RolePitcher, DefaultOptions())
	require.ErrorIs(t, err, ErrEmptyPartition)

	_, err = Fit(fixtureDataset(3, 0), season.RoleBatter, Options{K: -1})
	require.ErrorIs(t, err, ErrInvalidNeighbors)
}

func TestQuery_RoleIsolationAndOrdering(t *testing.T) {
	t.Parallel()

	ds := fixtureDataset(12, 9)
	for _, role := range []season.Role{season.RoleBatter, season.RolePitcher} {
		ix, err := Fit(ds, role, DefaultOptions())
		require.NoError(t, err)

		query := batterRow(3)
		if role == season.RolePitcher {
			query = pitcherRow(4)
		}
		neighbors, err := ix.Query(query, 0)
		require.NoError(t, err)
		require.Len(t, neighbors, ix.Size())

		for i, n := range neighbors {
			assert.Equal(t, role.IsBatter(), n.Record.IsBatter)
			assert.InDelta(t, math.Exp(-n.Distance/2), n.Weight, 1e-12)
			if i > 0 {
				assert.GreaterOrEqual(t, n.Distance, neighbors[i-1].Distance)
			}
		}
		assert.InDelta(t, 0.0, neighbors[0].Distance, 1e-9)
	}
}

func TestQuery_InvalidK(t *testing.T) {
	t.Parallel()

	ix, err := Fit(fixtureDataset(5, 0), season.RoleBatter, DefaultOptions())
	require.NoError(t, err)

	_, err = ix.Query(batterRow(1), -3)
	require.True(t, errors.Is(err, ErrInvalidNeighbors))

	neighbors, err := ix.Query(batterRow(1), 2)
	require.NoError(t, err)
	assert.Len(t, neighbors, 2)
}

func TestGetComps_WeightBounds(t *testing.T) {
	t.Parallel()

	ix, err := Fit(fixtureDataset(20, 0), season.RoleBatter, DefaultOptions())
	require.NoError(t, err)

	comps, err := GetComps(ix, rookieQuery("apr", 23, 180), 15)
	require.NoError(t, err)
	require.Len(t, comps.Neighbors, 15)
	assert.Greater(t, comps.TotalWeight, 0.0)

	for _, target := range ix.Schema().Targets {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, n := range comps.Neighbors {
			v, _ := n.Record.Value(target)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		mean := comps.WeightedMean[target]
		assert.GreaterOrEqual(t, mean, lo-1e-9, target)
		assert.LessOrEqual(t, mean, hi+1e-9, target)
	}
}

func TestProjectQuery_FillsGapsWithFittedMedians(t *testing.T) {
	t.Parallel()

	ix, err := Fit(fixtureDataset(20, 0), season.RoleBatter, DefaultOptions())
	require.NoError(t, err)

	query := rookieQuery("apr", 23, 180)
	require.NotContains(t, query.Stats, "spd")

	row, err := ix.ProjectQuery(query)
	require.NoError(t, err)

	medians := ix.Medians()
	for _, col := range []string{"spd", "babip", "hardhit%", "barrel%"} {
		j := ix.Schema().columnIndex(col)
		require.GreaterOrEqual(t, j, 0, col)
		assert.Equal(t, medians[j], row[j], col)
	}
	assert.Equal(t, 4.0, row[ix.Schema().columnIndex("spd")])
	assert.Equal(t, 98.0, row[ix.Schema().columnIndex("wrc+")])
}

func TestGetComps_MatchesQueryAndMeasuresFromProjectedValue(t *testing.T) {
	t.Parallel()

	ix, err := Fit(fixtureDataset(20, 0), season.RoleBatter, DefaultOptions())
	require.NoError(t, err)
	query := rookieQuery("apr", 23, 180)

	neighbors, err := ix.Query(query, 7)
	require.NoError(t, err)
	comps, err := GetComps(ix, query, 7)
	require.NoError(t, err)
	assert.Equal(t, neighbors, comps.Neighbors)

	// babip is missing from the query, so its reference is the fitted median.
	babip := ix.Schema().columnIndex("babip")
	assert.InDelta(t, comps.WeightedMean["babip"]-ix.Medians()[babip], comps.WeightedDelta["babip"], 1e-9)
	assert.InDelta(t, comps.WeightedMean["wrc+"]-98, comps.WeightedDelta["wrc+"], 1e-9)

	_, err = GetComps(ix, query, -1)
	assert.ErrorIs(t, err, ErrInvalidNeighbors)
}

func TestPredict_EndToEnd(t *testing.T) {
	t.Parallel()

	ix, err := Fit(fixtureDataset(20, 0), season.RoleBatter, DefaultOptions())
	require.NoError(t, err)

	query := rookieQuery("apr", 23, 180)
	p, err := Predict(ix, query, DefaultRollingWeight)
	require.NoError(t, err)

	assert.Equal(t, "Test Rookie", p.PlayerName)
	assert.Equal(t, "wrc+", p.Stat)
	assert.InDelta(t, 0.0, p.Delta, 5)
	assert.InDelta(t, 0.6*(98+p.Delta)+0.4*104, p.Blended, 1e-9)
	assert.InDelta(t, p.Blended*1.07, p.Final, 1e-9)
	require.Len(t, p.Adjustments, 1)
	assert.Equal(t, "rookie_wall", p.Adjustments[0].Name)

	again, err := Predict(ix, query, DefaultRollingWeight)
	require.NoError(t, err)
	assert.Equal(t, p.Final, again.Final)
}

func TestPredict_AdjustmentComposition(t *testing.T) {
	t.Parallel()

	ix, err := Fit(fixtureDataset(20, 0), season.RoleBatter, DefaultOptions())
	require.NoError(t, err)

	p, err := Predict(ix, rookieQuery(" OCT ", 23, 100), DefaultRollingWeight)
	require.NoError(t, err)
	assert.InDelta(t, p.Blended*0.96*1.07, p.Final, 1e-9)

	veteran, err := Predict(ix, rookieQuery("jul", 30, 600), DefaultRollingWeight)
	require.NoError(t, err)
	assert.Empty(t, veteran.Adjustments)
	assert.Equal(t, veteran.Blended, veteran.Final)
}

func TestPredict_RollingFallbacks(t *testing.T) {
	t.Parallel()

	ix, err := Fit(fixtureDataset(8, 0), season.RoleBatter, DefaultOptions())
	require.NoError(t, err)

	bare := season.Record{IsBatter: true, Stats: map[string]float64{"age": 30, "pa": 500}}
	p, err := Predict(ix, bare, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultStat, p.Base)
	assert.Equal(t, DefaultStat, p.Rolling)
	assert.Equal(t, DefaultStat, p.Final)
	assert.Equal(t, "Player", p.PlayerName)

	_, err = Predict(ix, bare, 1.5)
	require.ErrorIs(t, err, ErrInvalidRollingWeight)
}
