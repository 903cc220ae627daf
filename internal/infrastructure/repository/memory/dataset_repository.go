package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

// DatasetRepository keeps the dataset in process. Stored and returned
// datasets are deep copies.
type DatasetRepository struct {
	mu      sync.RWMutex
	dataset season.Dataset
	ok      bool
	saves   int
}

func NewDatasetRepository(seed *season.Dataset) *DatasetRepository {
	r := &DatasetRepository{}
	if seed != nil {
		r.dataset = seed.Clone()
		r.ok = true
	}
	return r
}

func (r *DatasetRepository) Load(_ context.Context) (season.Dataset, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.ok {
		return season.Dataset{}, false, nil
	}
	return r.dataset.Clone(), true, nil
}

func (r *DatasetRepository) Save(_ context.Context, dataset season.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dataset = dataset.Clone()
	r.ok = true
	r.saves++
	return nil
}

// Saves reports how many times Save was called.
func (r *DatasetRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
