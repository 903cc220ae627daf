package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

func TestPlayerSeasonModelRoundTrip(t *testing.T) {
	t.Parallel()

	ds := season.Dataset{RunID: "hist-1", StartYear: 2015, EndYear: 2025, BuiltAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	rec := season.Record{
		PlayerName: "Hitter",
		PlayerID:   "19755",
		Season:     2024,
		DebutYear:  2018,
		IsBatter:   true,
		Stats:      map[string]float64{"wrc+": 131},
		Labels:     map[string]string{"bats": "L"},
	}

	model, err := modelFromRecord(ds, 7, rec)
	require.NoError(t, err)
	assert.Equal(t, 7, model.RowIndex)
	assert.True(t, model.PlayerID.Valid)
	assert.JSONEq(t, `{"wrc+":131}`, model.Stats)

	got, err := recordFromModel(model)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestPlayerSeasonModelNulls(t *testing.T) {
	t.Parallel()

	model, err := modelFromRecord(season.Dataset{}, 0, season.Record{PlayerName: "Arm", Season: 2020})
	require.NoError(t, err)
	assert.False(t, model.PlayerID.Valid)
	assert.False(t, model.DebutYear.Valid)
	assert.Equal(t, "{}", model.Labels)

	got, err := recordFromModel(model)
	require.NoError(t, err)
	assert.Nil(t, got.Labels)
	assert.Empty(t, got.Stats)
}

func TestPlayerSeasonInsertQuery(t *testing.T) {
	t.Parallel()

	models := []playerSeasonTableModel{{PlayerName: "A", Stats: "{}", Labels: "{}"}, {PlayerName: "B", Stats: "{}", Labels: "{}"}}
	query, args, err := playerSeasons.Insert(models, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(query, "INSERT INTO player_seasons (run_id, start_year, end_year, built_at, row_index, player_name, player_id, season, debut_year, is_batter, stats, labels) VALUES"))
	assert.Len(t, args, 2*len(playerSeasons.Columns()))
}
