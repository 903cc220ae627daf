package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/mlb-betting/internal/app"
	"github.com/riskibarqy/mlb-betting/internal/config"
	"github.com/riskibarqy/mlb-betting/internal/domain/comps"
	"github.com/riskibarqy/mlb-betting/internal/domain/odds"
	"github.com/riskibarqy/mlb-betting/internal/domain/season"
	"github.com/riskibarqy/mlb-betting/internal/infrastructure/repository/memory"
	oddsmock "github.com/riskibarqy/mlb-betting/internal/mocks/domain/odds"
	seasonmock "github.com/riskibarqy/mlb-betting/internal/mocks/domain/season"
	"github.com/riskibarqy/mlb-betting/internal/platform/id"
	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
	"github.com/riskibarqy/mlb-betting/internal/usecase"
)

const testRookie = `{"player_name":"Test Rookie","is_batter":true,"age":23,"pa":180,"wRC+":98,"rolling_wRC+":104,"month":"apr"}`

type harness struct {
	source      *seasonmock.Source
	oddsSource  *oddsmock.Source
	oddsStore   *oddsmock.Store
	repo        *memory.DatasetRepository
	cfg         config.Config
	buildCalled int
}

func seedDataset() *season.Dataset {
	ds := &season.Dataset{RunID: "seed", StartYear: 2015, EndYear: 2025}
	for i := 0; i < 20; i++ {
		ds.Records = append(ds.Records, season.Record{
			PlayerName: fmt.Sprintf("Batter %d", i),
			Season:     2016 + i%9,
			DebutYear:  2015,
			IsBatter:   true,
			Stats: map[string]float64{
				"age": 23 + float64(i%7), "pa": 300 + 15*float64(i), "wrc+": 90 + float64(i),
				"iso": 0.15, "k%": 0.22, "bb%": 0.08, "babip": 0.3,
				"hardhit%": 0.37, "barrel%": 0.07, "spd": 4.5,
			},
		})
	}
	for i := 0; i < 4; i++ {
		ds.Records = append(ds.Records, season.Record{
			PlayerName: fmt.Sprintf("Pitcher %d", i),
			Season:     2020 + i,
			DebutYear:  2020,
			Stats: map[string]float64{
				"age": 28, "ip": 150 + float64(i), "fip": 3.5 + float64(i)/10,
				"k%": 0.25, "bb%": 0.07, "gb%": 0.45, "hardhit%": 0.34, "barrel%": 0.06,
			},
		})
	}
	return ds
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		source:     seasonmock.NewSource(t),
		oddsSource: oddsmock.NewSource(t),
		oddsStore:  oddsmock.NewStore(t),
		repo:       memory.NewDatasetRepository(seedDataset()),
		cfg: config.Config{
			HistoryStartYear: 2015,
			HistoryEndYear:   2025,
			Engine:           config.DefaultEngineProfile(),
		},
	}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	loadConfig := func() (config.Config, error) { return h.cfg, nil }
	build := func(cfg config.Config, _ *logging.Logger) (*app.Container, error) {
		h.buildCalled++
		logger := logging.NewNop()
		history := usecase.NewHistoryService(h.source, h.repo, id.NewRunIDGenerator("hist"), logger)
		return &app.Container{
			Config:  cfg,
			Logger:  logger,
			History: history,
			Projections: usecase.NewProjectionService(history, nil, usecase.ProjectionConfig{
				StartYear:     cfg.HistoryStartYear,
				EndYear:       cfg.HistoryEndYear,
				Options:       cfg.Engine.Options(),
				RollingWeight: cfg.Engine.RollingWeight,
				MaxWorkers:    2,
			}, logger),
			Odds: usecase.NewOddsService(h.oddsSource, h.oddsStore, "baseball_mlb", logger),
		}, nil
	}

	root := newRootCmd(loadConfig, build)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPredict_TestRookieFromStdin(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, testRookie, "predict")
	require.NoError(t, err)
	assert.Equal(t, 1, h.buildCalled)
	assert.Contains(t, out, "Test Rookie")
	assert.Contains(t, out, "wrc+")
	assert.Contains(t, out, "rookie_wallx1.07")
	// header, rule, projection row, blank, neighbor header, rule, 15 neighbors
	assert.Equal(t, 2+1+1+2+comps.DefaultNeighbors, strings.Count(out, "\n"))
}

func TestPredict_RowWithoutRoleIsBatter(t *testing.T) {
	h := newHarness(t)

	demo := `{"player_name":"Test Rookie","age":23,"season":2026,"pa":180,"wrc+":98,` +
		`"iso":0.145,"k%":0.27,"bb%":0.09,"babip":0.305,"hardhit%":0.39,"barrel%":0.085,` +
		`"spd":5.1,"rolling_wrc+":105,"month":"apr"}`
	out, err := h.run(t, demo, "predict")
	require.NoError(t, err)
	assert.Contains(t, out, "batter")
	assert.Contains(t, out, "wrc+")
	assert.NotContains(t, out, "fip")
	assert.NotContains(t, out, "Pitcher")
	assert.Contains(t, out, "rookie_wallx1.07")
}

func TestPredict_BatchReportsRowFailures(t *testing.T) {
	h := newHarness(t)

	input := `[` + testRookie + `,{"player_name":"Arm","is_batter":false,"age":27,"ip":140,"fip":3.9}]`
	out, err := h.run(t, input, "predict", "--rolling-weight", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Rookie")
	assert.Contains(t, out, "Arm")
	assert.Contains(t, out, "fip")
}

func TestPredict_RejectsBadRollingWeight(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, testRookie, "predict", "--rolling-weight", "1.5")
	require.Error(t, err)
	assert.ErrorIs(t, err, comps.ErrInvalidRollingWeight)
}

func TestComps_ClampsKToPartition(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, `{"age":28,"ip":151,"fip":3.6}`, "comps", "--role", "pitcher", "--k", "40")
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		assert.Contains(t, out, fmt.Sprintf("Pitcher %d", i))
	}
	assert.NotContains(t, out, "Batter")
	assert.Contains(t, out, "weighted_delta")
}

func TestComps_RejectsMultipleRows(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, `[{"age":28},{"age":29}]`, "comps")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one row")
}

func TestFit_ReportsBothRoles(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "fit")
	require.NoError(t, err)
	assert.Contains(t, out, "batter")
	assert.Contains(t, out, "pitcher")
	assert.Contains(t, out, "20")
	assert.Contains(t, out, "fip")
}

func TestBuild_UsesFlagRange(t *testing.T) {
	h := newHarness(t)
	h.source.On("FetchBatting", mock.Anything, 2023, 2024).Return(season.Table{
		Records: []season.Record{{PlayerName: "New Bat", Season: 2023, Stats: map[string]float64{"wrc+": 105}}},
	}, nil).Once()
	h.source.On("FetchPitching", mock.Anything, 2023, 2024).Return(season.Table{Skipped: 2}, nil).Once()

	out, err := h.run(t, "", "build", "--start-year", "2023", "--end-year", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, "2023-2024")
	assert.Contains(t, out, "hist-")
	assert.Equal(t, 1, h.repo.Saves())
}

func TestOddsSnapshot_WritesTable(t *testing.T) {
	h := newHarness(t)
	snapshot := odds.Snapshot{
		Sport:     "baseball_mlb",
		FetchedAt: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
		Lines: []odds.Line{
			{GameID: "g1", Market: odds.MarketMoneyline, OutcomeName: "Yankees", Price: -120},
			{GameID: "g1", Market: odds.MarketMoneyline, OutcomeName: "Red Sox", Price: 110},
		},
		Quota: odds.Quota{Used: 1, Remaining: 499},
	}
	h.oddsSource.On("FetchOdds", mock.Anything, "baseball_mlb").Return(snapshot, nil).Once()
	h.oddsStore.On("SaveSnapshot", mock.Anything, snapshot).Return("data/raw/odds/2025-06-01/odds_180000.json", nil).Once()

	out, err := h.run(t, "", "odds", "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, "499")
	assert.Contains(t, out, "odds_180000.json")
}
