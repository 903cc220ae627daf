package cache

import (
	"context"
	"time"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
	basecache "github.com/riskibarqy/mlb-betting/internal/platform/cache"
)

const datasetKey = "dataset:current"

type cachedDataset struct {
	value  season.Dataset
	exists bool
}

// DatasetRepository caches Load results of the wrapped repository. Save
// writes through and replaces the cached copy.
type DatasetRepository struct {
	next  season.Repository
	cache *basecache.Store[cachedDataset]
}

var _ season.Repository = (*DatasetRepository)(nil)

// NewDatasetRepository wraps next. A non-positive ttl keeps the cached
// dataset until the next Save.
func NewDatasetRepository(next season.Repository, ttl time.Duration) *DatasetRepository {
	return &DatasetRepository{next: next, cache: basecache.NewStore[cachedDataset](ttl)}
}

func (r *DatasetRepository) Load(ctx context.Context) (season.Dataset, bool, error) {
	cached, err := r.cache.GetOrLoad(ctx, datasetKey, func(ctx context.Context) (cachedDataset, error) {
		dataset, exists, err := r.next.Load(ctx)
		if err != nil {
			return cachedDataset{}, err
		}
		return cachedDataset{value: dataset, exists: exists}, nil
	})
	if err != nil {
		return season.Dataset{}, false, err
	}
	if !cached.exists {
		// Absence is not cached so a build by another process is picked up.
		r.cache.Delete(ctx, datasetKey)
		return season.Dataset{}, false, nil
	}
	return cached.value.Clone(), true, nil
}

func (r *DatasetRepository) Save(ctx context.Context, dataset season.Dataset) error {
	if err := r.next.Save(ctx, dataset); err != nil {
		r.cache.Delete(ctx, datasetKey)
		return err
	}
	r.cache.Set(ctx, datasetKey, cachedDataset{value: dataset.Clone(), exists: true})
	return nil
}
