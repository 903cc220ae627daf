package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
	"github.com/riskibarqy/mlb-betting/internal/platform/id"
	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
	"github.com/riskibarqy/mlb-betting/internal/platform/resilience"
)

type BuildResult struct {
	Dataset  season.Dataset `json:"-"`
	RunID    string         `json:"run_id"`
	Batters  int            `json:"batters"`
	Pitchers int            `json:"pitchers"`
	Skipped  int            `json:"skipped"`
	Duration time.Duration  `json:"duration"`
}

// HistoryService owns the cached historical dataset.
type HistoryService struct {
	source season.Source
	repo   season.Repository
	ids    id.Generator
	logger *logging.Logger
	now    func() time.Time
	flight resilience.SingleFlight[season.Dataset]
}

func NewHistoryService(source season.Source, repo season.Repository, ids id.Generator, logger *logging.Logger) *HistoryService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewRunIDGenerator("hist")
	}
	return &HistoryService{
		source: source,
		repo:   repo,
		ids:    ids,
		logger: logger,
		now:    time.Now,
	}
}

// Build fetches both role tables for [startYear, endYear], derives debut years,
// and replaces the stored dataset. Nothing is saved when any fetch fails.
func (s *HistoryService) Build(ctx context.Context, startYear, endYear int) (BuildResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.HistoryService.Build")
	defer span.End()

	if startYear <= 0 || endYear <= 0 || startYear > endYear {
		return BuildResult{}, fmt.Errorf("%w: invalid season range %d-%d", ErrInvalidInput, startYear, endYear)
	}
	if s.source == nil {
		return BuildResult{}, fmt.Errorf("%w: statistics source is not configured", ErrDependencyUnavailable)
	}

	started := s.now()
	batting, err := s.source.FetchBatting(ctx, startYear, endYear)
	if err != nil {
		return BuildResult{}, fmt.Errorf("fetch batting %d-%d: %w", startYear, endYear, err)
	}
	pitching, err := s.source.FetchPitching(ctx, startYear, endYear)
	if err != nil {
		return BuildResult{}, fmt.Errorf("fetch pitching %d-%d: %w", startYear, endYear, err)
	}

	batters := tagRole(batting.Records, true)
	pitchers := tagRole(pitching.Records, false)
	season.AssignDebutYears(batters)
	season.AssignDebutYears(pitchers)

	runID, err := s.ids.NewID()
	if err != nil {
		return BuildResult{}, fmt.Errorf("generate run id: %w", err)
	}

	dataset := season.NormalizeDataset(season.Dataset{
		RunID:     runID,
		StartYear: startYear,
		EndYear:   endYear,
		BuiltAt:   s.now().UTC(),
		Records:   append(batters, pitchers...),
	})
	if err := dataset.Validate(); err != nil {
		return BuildResult{}, fmt.Errorf("validate dataset: %w", err)
	}
	if err := s.repo.Save(ctx, dataset); err != nil {
		return BuildResult{}, fmt.Errorf("save dataset: %w", err)
	}

	result := BuildResult{
		Dataset:  dataset,
		RunID:    runID,
		Batters:  len(batters),
		Pitchers: len(pitchers),
		Skipped:  batting.Skipped + pitching.Skipped,
		Duration: s.now().Sub(started),
	}
	s.logger.InfoContext(ctx, "built historical dataset",
		"run_id", runID,
		"start_year", startYear,
		"end_year", endYear,
		"batters", result.Batters,
		"pitchers", result.Pitchers,
		"skipped", result.Skipped,
		"duration_ms", result.Duration.Milliseconds(),
	)
	if result.Skipped > 0 {
		s.logger.WarnContext(ctx, "source rows skipped during build", "run_id", runID, "skipped", result.Skipped)
	}
	return result, nil
}

// LoadOrBuild returns the stored dataset, building it when nothing is stored.
// The stored range is not compared with the requested one.
func (s *HistoryService) LoadOrBuild(ctx context.Context, startYear, endYear int) (season.Dataset, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.HistoryService.LoadOrBuild")
	defer span.End()

	key := strconv.Itoa(startYear) + "-" + strconv.Itoa(endYear)
	dataset, _, err := s.flight.Do(ctx, key, func() (season.Dataset, error) {
		stored, ok, err := s.repo.Load(ctx)
		if err != nil {
			return season.Dataset{}, fmt.Errorf("load dataset: %w", err)
		}
		if ok {
			s.logger.DebugContext(ctx, "loaded cached historical dataset",
				"run_id", stored.RunID,
				"records", len(stored.Records),
			)
			return season.NormalizeDataset(stored), nil
		}

		result, err := s.Build(ctx, startYear, endYear)
		if err != nil {
			return season.Dataset{}, err
		}
		return result.Dataset, nil
	})
	return dataset, err
}

func tagRole(records []season.Record, isBatter bool) []season.Record {
	out := make([]season.Record, len(records))
	for i, rec := range records {
		rec.IsBatter = isBatter
		out[i] = rec
	}
	return out
}
