package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

const artifactVersion = 1

// columnarArtifact stores one array per column. Missing values are null.
type columnarArtifact struct {
	Version    int                   `json:"version"`
	RunID      string                `json:"run_id"`
	StartYear  int                   `json:"start_year"`
	EndYear    int                   `json:"end_year"`
	BuiltAt    time.Time             `json:"built_at"`
	Rows       int                   `json:"rows"`
	PlayerName []string              `json:"player_name"`
	PlayerID   []string              `json:"player_id"`
	Season     []int                 `json:"season"`
	DebutYear  []*int                `json:"debut_year"`
	IsBatter   []bool                `json:"is_batter"`
	Stats      map[string][]*float64 `json:"stats"`
	Labels     map[string][]*string  `json:"labels"`
}

// DatasetRepository keeps the historical dataset in a single columnar JSON
// file. Every Save overwrites the file regardless of the season range.
type DatasetRepository struct {
	mu   sync.RWMutex
	path string
}

func NewDatasetRepository(path string) (*DatasetRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("dataset cache path is required")
	}
	return &DatasetRepository{path: path}, nil
}

func (r *DatasetRepository) Path() string {
	return r.path
}

func (r *DatasetRepository) Load(ctx context.Context) (season.Dataset, bool, error) {
	if err := ctx.Err(); err != nil {
		return season.Dataset{}, false, err
	}

	r.mu.RLock()
	data, err := os.ReadFile(r.path)
	r.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return season.Dataset{}, false, nil
	}
	if err != nil {
		return season.Dataset{}, false, fmt.Errorf("read dataset artifact %s: %w", r.path, err)
	}

	var artifact columnarArtifact
	if err := sonic.Unmarshal(data, &artifact); err != nil {
		return season.Dataset{}, false, fmt.Errorf("decode dataset artifact %s: %w", r.path, err)
	}
	dataset, err := artifact.toDataset()
	if err != nil {
		return season.Dataset{}, false, fmt.Errorf("dataset artifact %s: %w", r.path, err)
	}
	return dataset, true, nil
}

func (r *DatasetRepository) Save(ctx context.Context, dataset season.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := sonic.Marshal(fromDataset(dataset))
	if err != nil {
		return fmt.Errorf("encode dataset artifact: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return writeFileAtomic(r.path, data)
}

func fromDataset(d season.Dataset) columnarArtifact {
	n := len(d.Records)
	statKeys, labelKeys := d.Columns()
	a := columnarArtifact{
		Version:    artifactVersion,
		RunID:      d.RunID,
		StartYear:  d.StartYear,
		EndYear:    d.EndYear,
		BuiltAt:    d.BuiltAt,
		Rows:       n,
		PlayerName: make([]string, n),
		PlayerID:   make([]string, n),
		Season:     make([]int, n),
		DebutYear:  make([]*int, n),
		IsBatter:   make([]bool, n),
		Stats:      make(map[string][]*float64, len(statKeys)),
		Labels:     make(map[string][]*string, len(labelKeys)),
	}
	for _, key := range statKeys {
		a.Stats[key] = make([]*float64, n)
	}
	for _, key := range labelKeys {
		a.Labels[key] = make([]*string, n)
	}

	for i, rec := range d.Records {
		a.PlayerName[i] = rec.PlayerName
		a.PlayerID[i] = rec.PlayerID
		a.Season[i] = rec.Season
		a.IsBatter[i] = rec.IsBatter
		if rec.DebutYear != 0 {
			year := rec.DebutYear
			a.DebutYear[i] = &year
		}
		for key, v := range rec.Stats {
			v := v
			a.Stats[key][i] = &v
		}
		for key, v := range rec.Labels {
			v := v
			a.Labels[key][i] = &v
		}
	}
	return a
}

func (a columnarArtifact) toDataset() (season.Dataset, error) {
	if a.Version != artifactVersion {
		return season.Dataset{}, fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	n := a.Rows
	if len(a.PlayerName) != n || len(a.Season) != n || len(a.IsBatter) != n {
		return season.Dataset{}, fmt.Errorf("column length mismatch: rows=%d", n)
	}
	for key, col := range a.Stats {
		if len(col) != n {
			return season.Dataset{}, fmt.Errorf("stat column %q has %d values, want %d", key, len(col), n)
		}
	}
	for key, col := range a.Labels {
		if len(col) != n {
			return season.Dataset{}, fmt.Errorf("label column %q has %d values, want %d", key, len(col), n)
		}
	}

	records := make([]season.Record, n)
	for i := 0; i < n; i++ {
		rec := season.Record{
			PlayerName: a.PlayerName[i],
			Season:     a.Season[i],
			IsBatter:   a.IsBatter[i],
			Stats:      map[string]float64{},
		}
		if i < len(a.PlayerID) {
			rec.PlayerID = a.PlayerID[i]
		}
		if i < len(a.DebutYear) && a.DebutYear[i] != nil {
			rec.DebutYear = *a.DebutYear[i]
		}
		for key, col := range a.Stats {
			if col[i] != nil {
				rec.Stats[key] = *col[i]
			}
		}
		for key, col := range a.Labels {
			if col[i] == nil {
				continue
			}
			if rec.Labels == nil {
				rec.Labels = map[string]string{}
			}
			rec.Labels[key] = *col[i]
		}
		records[i] = rec
	}

	return season.Dataset{
		RunID:     a.RunID,
		StartYear: a.StartYear,
		EndYear:   a.EndYear,
		BuiltAt:   a.BuiltAt,
		Records:   records,
	}, nil
}
