package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/mlb-betting/internal/domain/odds"
	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
)

type SnapshotResult struct {
	Path     string        `json:"path,omitempty"`
	Written  bool          `json:"written"`
	Games    int           `json:"games"`
	Lines    int           `json:"lines"`
	Skipped  int           `json:"skipped"`
	Quota    odds.Quota    `json:"quota"`
	Snapshot odds.Snapshot `json:"-"`
}

// OddsService captures point-in-time odds snapshots.
type OddsService struct {
	source odds.Source
	store  odds.Store
	sport  string
	logger *logging.Logger
}

// NewOddsService returns a service that rejects every call when source is nil.
func NewOddsService(source odds.Source, store odds.Store, sport string, logger *logging.Logger) *OddsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &OddsService{
		source: source,
		store:  store,
		sport:  strings.TrimSpace(sport),
		logger: logger,
	}
}

func (s *OddsService) Enabled() bool {
	return s != nil && s.source != nil
}

// Snapshot fetches the configured sport and stores the flattened lines.
// Empty snapshots are reported but not written.
func (s *OddsService) Snapshot(ctx context.Context) (SnapshotResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OddsService.Snapshot")
	defer span.End()

	if !s.Enabled() {
		return SnapshotResult{}, fmt.Errorf("%w: odds feed is not configured", ErrFeatureDisabled)
	}
	if s.sport == "" {
		return SnapshotResult{}, fmt.Errorf("%w: sport key is required", ErrInvalidInput)
	}

	snapshot, err := s.source.FetchOdds(ctx, s.sport)
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("fetch odds sport=%s: %w", s.sport, err)
	}

	result := SnapshotResult{
		Games:    snapshot.Games(),
		Lines:    len(snapshot.Lines),
		Skipped:  snapshot.Skipped,
		Quota:    snapshot.Quota,
		Snapshot: snapshot,
	}
	if snapshot.Skipped > 0 {
		s.logger.WarnContext(ctx, "odds outcomes skipped", "sport", s.sport, "skipped", snapshot.Skipped)
	}
	if snapshot.Empty() {
		s.logger.InfoContext(ctx, "odds snapshot empty, nothing written", "sport", s.sport)
		return result, nil
	}

	path, err := s.store.SaveSnapshot(ctx, snapshot)
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("save odds snapshot: %w", err)
	}
	result.Path = path
	result.Written = true

	s.logger.InfoContext(ctx, "odds snapshot saved",
		"sport", s.sport,
		"path", path,
		"games", result.Games,
		"lines", result.Lines,
		"requests_remaining", snapshot.Quota.Remaining,
	)
	return result, nil
}
