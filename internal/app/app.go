package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/mlb-betting/external/fangraphs"
	"github.com/riskibarqy/mlb-betting/external/oddsapi"
	"github.com/riskibarqy/mlb-betting/internal/config"
	"github.com/riskibarqy/mlb-betting/internal/domain/comps"
	"github.com/riskibarqy/mlb-betting/internal/domain/odds"
	"github.com/riskibarqy/mlb-betting/internal/domain/season"
	repocache "github.com/riskibarqy/mlb-betting/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/mlb-betting/internal/infrastructure/repository/file"
	"github.com/riskibarqy/mlb-betting/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/mlb-betting/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/mlb-betting/internal/interfaces/httpapi"
	"github.com/riskibarqy/mlb-betting/internal/platform/cache"
	idgen "github.com/riskibarqy/mlb-betting/internal/platform/id"
	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
	"github.com/riskibarqy/mlb-betting/internal/usecase"
)

// Container holds the services shared by the HTTP server and the CLI.
type Container struct {
	Config      config.Config
	Logger      *logging.Logger
	History     *usecase.HistoryService
	Projections *usecase.ProjectionService
	Odds        *usecase.OddsService

	closers []func() error
}

// Build wires repositories, upstream clients and services from cfg.
func Build(cfg config.Config, logger *logging.Logger) (*Container, error) {
	if logger == nil {
		logger = logging.Default()
	}

	c := &Container{Config: cfg, Logger: logger}

	repo, err := c.datasetRepository()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if cfg.CacheEnabled && cfg.HistoryBackend != config.HistoryBackendMemory {
		repo = repocache.NewDatasetRepository(repo, cfg.CacheTTL)
	}

	source := fangraphs.NewClient(fangraphs.ClientConfig{
		BaseURL:        cfg.FanGraphsBaseURL,
		Timeout:        cfg.FanGraphsTimeout,
		MaxRetries:     cfg.FanGraphsMaxRetries,
		RatePerMinute:  cfg.FanGraphsRatePerMinute,
		MinQualified:   cfg.FanGraphsMinQualified,
		Logger:         logger.Named("fangraphs"),
		CircuitBreaker: cfg.FanGraphsCircuit,
	})
	c.History = usecase.NewHistoryService(source, repo, idgen.NewRunIDGenerator("hist"), logger)

	c.Projections = usecase.NewProjectionService(
		c.History,
		cache.NewStore[*comps.FittedIndex](cfg.CacheTTL),
		usecase.ProjectionConfig{
			StartYear:     cfg.HistoryStartYear,
			EndYear:       cfg.HistoryEndYear,
			Options:       cfg.Engine.Options(),
			RollingWeight: cfg.Engine.RollingWeight,
			MaxWorkers:    cfg.PredictMaxWorkers,
		},
		logger,
	)

	oddsSvc, err := c.oddsService()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Odds = oddsSvc

	logger.Info("app wired",
		"history_backend", cfg.HistoryBackend,
		"start_year", cfg.HistoryStartYear,
		"end_year", cfg.HistoryEndYear,
		"k", cfg.Engine.K,
		"rolling_weight", cfg.Engine.RollingWeight,
		"odds_enabled", oddsSvc.Enabled(),
	)

	return c, nil
}

// Close releases database handles opened by Build.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) datasetRepository() (season.Repository, error) {
	switch c.Config.HistoryBackend {
	case config.HistoryBackendMemory:
		return memory.NewDatasetRepository(nil), nil
	case config.HistoryBackendPostgres:
		db, err := openDB(c.Config)
		if err != nil {
			return nil, err
		}
		c.Logger.Info("postgres history backend", "db_url", RedactDBURL(c.Config.DBURL))
		c.closers = append(c.closers, db.Close)
		return postgres.NewDatasetRepository(db), nil
	default:
		repo, err := file.NewDatasetRepository(c.Config.HistoryCachePath)
		if err != nil {
			return nil, fmt.Errorf("open history cache: %w", err)
		}
		return repo, nil
	}
}

func (c *Container) oddsService() (*usecase.OddsService, error) {
	var (
		source odds.Source
		store  odds.Store
	)
	if c.Config.OddsAPIEnabled {
		client, err := oddsapi.NewClient(oddsapi.ClientConfig{
			BaseURL:        c.Config.OddsAPIBaseURL,
			APIKey:         c.Config.OddsAPIKey,
			Regions:        c.Config.OddsAPIRegions,
			Markets:        c.Config.OddsAPIMarkets,
			Timeout:        c.Config.OddsAPITimeout,
			Logger:         c.Logger.Named("oddsapi"),
			CircuitBreaker: c.Config.OddsAPICircuit,
		})
		if err != nil {
			return nil, fmt.Errorf("build odds client: %w", err)
		}
		snapshots, err := file.NewOddsSnapshotStore(c.Config.OddsSnapshotDir)
		if err != nil {
			return nil, fmt.Errorf("open odds snapshot dir: %w", err)
		}
		source, store = client, snapshots
	}
	return usecase.NewOddsService(source, store, c.Config.OddsAPISport, c.Logger), nil
}

// NewHTTPServer builds the API server. The returned close func releases the
// container's resources once the server has shut down.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, func() error, error) {
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	c, err := Build(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	handler := httpapi.NewHandler(c.Projections, c.History, httpapi.HandlerConfig{
		StartYear: cfg.HistoryStartYear,
		EndYear:   cfg.HistoryEndYear,
	}, c.Logger)
	router := httpapi.NewRouter(handler, c.Logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server, c.Close, nil
}
