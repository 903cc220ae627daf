package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/mlb-betting/internal/domain/odds"
)

// OddsSnapshotStore writes one JSON file per snapshot under
// <dir>/<YYYY-MM-DD>/odds_<HHMMSS>.json, keyed by the snapshot fetch time.
type OddsSnapshotStore struct {
	dir string
}

func NewOddsSnapshotStore(dir string) (*OddsSnapshotStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("odds snapshot directory is required")
	}
	return &OddsSnapshotStore{dir: dir}, nil
}

func (s *OddsSnapshotStore) SaveSnapshot(ctx context.Context, snapshot odds.Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if snapshot.FetchedAt.IsZero() {
		return "", fmt.Errorf("snapshot fetch time is required")
	}

	data, err := sonic.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode odds snapshot: %w", err)
	}

	at := snapshot.FetchedAt.UTC()
	path := filepath.Join(s.dir, at.Format("2006-01-02"), "odds_"+at.Format("150405")+".json")
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}
