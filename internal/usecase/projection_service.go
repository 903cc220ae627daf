package usecase

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/mlb-betting/internal/domain/comps"
	"github.com/riskibarqy/mlb-betting/internal/domain/season"
	"github.com/riskibarqy/mlb-betting/internal/platform/cache"
	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
)

const indexCachePrefix = "comps:index:"

type datasetLoader interface {
	LoadOrBuild(ctx context.Context, startYear, endYear int) (season.Dataset, error)
}

type ProjectionConfig struct {
	StartYear     int
	EndYear       int
	Options       comps.Options
	RollingWeight float64
	MaxWorkers    int
}

// BatchItem is the outcome of one row of a batch prediction. Exactly one of
// Projection or Err is set.
type BatchItem struct {
	Index      int
	Projection comps.Projection
	Err        error
}

// ProjectionService fits per-role indexes on demand and answers comps and
// projection queries against them.
type ProjectionService struct {
	history datasetLoader
	indexes *cache.Store[*comps.FittedIndex]
	cfg     ProjectionConfig
	logger  *logging.Logger
}

func NewProjectionService(
	history datasetLoader,
	indexes *cache.Store[*comps.FittedIndex],
	cfg ProjectionConfig,
	logger *logging.Logger,
) *ProjectionService {
	if logger == nil {
		logger = logging.Default()
	}
	if indexes == nil {
		indexes = cache.NewStore[*comps.FittedIndex](0)
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	return &ProjectionService{
		history: history,
		indexes: indexes,
		cfg:     cfg,
		logger:  logger,
	}
}

// Index returns the fitted index of role, fitting it once when absent.
func (s *ProjectionService) Index(ctx context.Context, role season.Role) (ix *comps.FittedIndex, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProjectionService.Index", roleAttr(role))
	defer func() { endSpan(span, err) }()

	return s.indexes.GetOrLoad(ctx, indexCachePrefix+string(role), func(ctx context.Context) (*comps.FittedIndex, error) {
		dataset, err := s.history.LoadOrBuild(ctx, s.cfg.StartYear, s.cfg.EndYear)
		if err != nil {
			return nil, fmt.Errorf("load historical dataset: %w", err)
		}
		ix, err := comps.Fit(dataset, role, s.cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("fit %s index: %w", role, err)
		}
		s.logger.InfoContext(ctx, "knn fitted",
			"role", string(role),
			"records", ix.Size(),
			"k", ix.K(),
			"features", len(ix.Schema().Columns()),
		)
		return ix, nil
	})
}

// FitAll fits both role indexes concurrently.
func (s *ProjectionService) FitAll(ctx context.Context) (map[season.Role]*comps.FittedIndex, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProjectionService.FitAll")
	defer span.End()

	var mu sync.Mutex
	out := make(map[season.Role]*comps.FittedIndex, 2)

	p := pool.New().WithErrors().WithContext(ctx)
	for _, role := range []season.Role{season.RoleBatter, season.RolePitcher} {
		role := role
		p.Go(func(ctx context.Context) error {
			ix, err := s.Index(ctx, role)
			if err != nil {
				return err
			}
			mu.Lock()
			out[role] = ix
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProjectionService) GetComps(ctx context.Context, rec season.Record, k int) (result comps.Comps, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProjectionService.GetComps",
		roleAttr(rec.Role()),
		attribute.Int("mlb.k", k),
	)
	defer func() { endSpan(span, err) }()

	if k < 0 {
		return comps.Comps{}, fmt.Errorf("%w: k=%d", ErrInvalidInput, k)
	}
	ix, err := s.Index(ctx, rec.Role())
	if err != nil {
		return comps.Comps{}, err
	}
	return comps.GetComps(ix, rec, k)
}

// Predict projects one row. A nil rollingWeight uses the configured default.
func (s *ProjectionService) Predict(ctx context.Context, rec season.Record, rollingWeight *float64) (_ comps.Projection, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProjectionService.Predict", roleAttr(rec.Role()))
	defer func() { endSpan(span, err) }()

	rw, err := s.rollingWeight(rollingWeight)
	if err != nil {
		return comps.Projection{}, err
	}
	ix, err := s.Index(ctx, rec.Role())
	if err != nil {
		return comps.Projection{}, err
	}

	projection, err := comps.Predict(ix, rec, rw)
	if err != nil {
		return comps.Projection{}, err
	}
	s.logProjection(ctx, projection)
	return projection, nil
}

// PredictBatch projects rows concurrently. Results keep input order and carry
// per-row errors; the returned error is set only when the batch cannot run.
func (s *ProjectionService) PredictBatch(ctx context.Context, records []season.Record, rollingWeight *float64) ([]BatchItem, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProjectionService.PredictBatch", attribute.Int("mlb.rows", len(records)))
	defer span.End()

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: at least one row is required", ErrInvalidInput)
	}
	rw, err := s.rollingWeight(rollingWeight)
	if err != nil {
		return nil, err
	}

	indexes := make(map[season.Role]*comps.FittedIndex, 2)
	for _, rec := range records {
		role := rec.Role()
		if _, ok := indexes[role]; ok {
			continue
		}
		ix, err := s.Index(ctx, role)
		if err != nil {
			return nil, err
		}
		indexes[role] = ix
	}

	workerCount := s.cfg.MaxWorkers
	if workerCount > len(records) {
		workerCount = len(records)
	}
	workers, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer workers.Release()

	items := make([]BatchItem, len(records))
	var wg sync.WaitGroup
	for i, rec := range records {
		i, rec := i, rec
		wg.Add(1)
		if err := workers.Submit(func() {
			defer wg.Done()
			items[i].Index = i
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return
			}
			items[i].Projection, items[i].Err = comps.Predict(indexes[rec.Role()], rec, rw)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit prediction to worker pool: %w", err)
		}
	}
	wg.Wait()

	rejected, failed := 0, 0
	for _, item := range items {
		switch {
		case item.Err == nil:
			s.logProjection(ctx, item.Projection)
		case IsEngineInputError(item.Err):
			rejected++
		default:
			failed++
		}
	}
	if rejected+failed > 0 {
		s.logger.WarnContext(ctx, "batch predictions failed",
			"rejected", rejected,
			"failed", failed,
			"total", len(records),
		)
	}
	return items, nil
}

// Invalidate drops every cached index. It returns how many were removed.
func (s *ProjectionService) Invalidate(ctx context.Context) int {
	return s.indexes.DeletePrefix(ctx, indexCachePrefix)
}

func (s *ProjectionService) rollingWeight(override *float64) (float64, error) {
	rw := s.cfg.RollingWeight
	if override != nil {
		rw = *override
	}
	if rw < 0 || rw > 1 {
		return 0, fmt.Errorf("%w: %w (got %v)", ErrInvalidInput, comps.ErrInvalidRollingWeight, rw)
	}
	return rw, nil
}

func (s *ProjectionService) logProjection(ctx context.Context, p comps.Projection) {
	adjustments := make([]string, 0, len(p.Adjustments))
	for _, adj := range p.Adjustments {
		adjustments = append(adjustments, adj.Name)
	}
	s.logger.InfoContext(ctx, "adjusted projection",
		"player_name", p.PlayerName,
		"role", string(p.Role),
		"stat", p.Stat,
		"final", p.Final,
		"blended", p.Blended,
		"delta", p.Delta,
		"adjustments", adjustments,
	)
}

func roleAttr(role season.Role) attribute.KeyValue {
	return attribute.String("mlb.role", string(role))
}
