package comps

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

const DefaultNeighbors = 15

// Options tunes how an index is fitted and queried.
type Options struct {
	K          int
	Handedness bool
}

func DefaultOptions() Options {
	return Options{K: DefaultNeighbors}
}

// FittedIndex is an immutable per-role neighbor index. It is safe for
// concurrent queries.
type FittedIndex struct {
	schema  Schema
	scaler  Scaler
	medians []float64
	vectors [][]float64
	records []season.Record
	k       int
}

// Neighbor is one historical comparable of a query row.
type Neighbor struct {
	Record   season.Record
	Index    int
	Distance float64
	Weight   float64
}

// Fit projects and standardizes the role's partition of dataset.
func Fit(dataset season.Dataset, role season.Role, opts Options) (*FittedIndex, error) {
	if opts.K < 0 {
		return nil, ErrInvalidNeighbors
	}
	if opts.K == 0 {
		opts.K = DefaultNeighbors
	}

	records := dataset.Partition(role)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPartition, role)
	}

	schema := SchemaFor(role, opts.Handedness)
	matrix, err := Project(records, schema, nil)
	if err != nil {
		return nil, err
	}

	scaler := FitScaler(matrix.Rows)
	vectors := make([][]float64, len(matrix.Rows))
	for i, row := range matrix.Rows {
		vectors[i] = scaler.Transform(row)
	}

	kept := make([]season.Record, len(records))
	for i, rec := range records {
		kept[i] = rec.Clone()
	}

	return &FittedIndex{
		schema:  schema,
		scaler:  scaler,
		medians: matrix.Medians,
		vectors: vectors,
		records: kept,
		k:       opts.K,
	}, nil
}

func (ix *FittedIndex) Schema() Schema     { return ix.schema }
func (ix *FittedIndex) Role() season.Role  { return ix.schema.Role }
func (ix *FittedIndex) Size() int          { return len(ix.records) }
func (ix *FittedIndex) K() int             { return ix.k }
func (ix *FittedIndex) Medians() []float64 { return append([]float64(nil), ix.medians...) }

// ProjectQuery returns the unscaled feature vector of rec. Gaps are filled
// with the medians learned at fit time.
func (ix *FittedIndex) ProjectQuery(rec season.Record) ([]float64, error) {
	matrix, err := Project([]season.Record{rec}, ix.schema, ix.medians)
	if err != nil {
		return nil, err
	}
	return matrix.Rows[0], nil
}

// Query returns the k nearest historical rows ordered by distance, ties broken
// by historical order. k == 0 uses the fitted default; k larger than the
// partition is clamped.
func (ix *FittedIndex) Query(rec season.Record, k int) ([]Neighbor, error) {
	if k < 0 {
		return nil, ErrInvalidNeighbors
	}
	raw, err := ix.ProjectQuery(rec)
	if err != nil {
		return nil, err
	}
	return ix.nearest(raw, k)
}

// nearest searches with an already projected, unscaled vector.
func (ix *FittedIndex) nearest(raw []float64, k int) ([]Neighbor, error) {
	if k < 0 {
		return nil, ErrInvalidNeighbors
	}
	if k == 0 {
		k = ix.k
	}
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}
	query := ix.scaler.Transform(raw)

	order := make([]int, len(ix.vectors))
	dist := make([]float64, len(ix.vectors))
	for i, v := range ix.vectors {
		order[i] = i
		dist[i] = floats.Distance(query, v, 2)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dist[order[a]] < dist[order[b]]
	})

	out := make([]Neighbor, k)
	for n, i := range order[:k] {
		out[n] = Neighbor{
			Record:   ix.records[i],
			Index:    i,
			Distance: dist[i],
			Weight:   math.Exp(-dist[i] / 2),
		}
	}
	return out, nil
}
