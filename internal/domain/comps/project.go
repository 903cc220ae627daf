package comps

import (
	"fmt"
	"math"
	"sort"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

// Matrix is a projected batch: one row per input record, columns per Schema.Columns.
type Matrix struct {
	Columns []string
	Rows    [][]float64
	// Medians holds the per-column value used to fill gaps in this batch.
	Medians []float64
}

// Project maps records onto the schema's feature layout.
//
// Missing age and service-time inputs take fixed defaults. Any other missing
// value is filled with the column median over records. When every record lacks
// a column, fallback supplies the value; without a fallback that is schema
// drift and an error.
func Project(records []season.Record, schema Schema, fallback []float64) (Matrix, error) {
	columns := schema.Columns()
	if fallback != nil && len(fallback) != len(columns) {
		return Matrix{}, fmt.Errorf("fallback has %d values, schema has %d columns", len(fallback), len(columns))
	}

	rows := make([][]float64, len(records))
	for i, rec := range records {
		rows[i] = rawFeatures(rec, schema, len(columns))
	}

	medians := make([]float64, len(columns))
	for j, col := range columns {
		present := make([]float64, 0, len(rows))
		for _, row := range rows {
			if !math.IsNaN(row[j]) {
				present = append(present, row[j])
			}
		}

		switch {
		case len(present) > 0:
			medians[j] = median(present)
		case len(rows) == 0:
			medians[j] = math.NaN()
			continue
		case fallback != nil:
			medians[j] = fallback[j]
		default:
			return Matrix{}, fmt.Errorf("%w: %q (%s)", ErrSchemaDrift, col, schema.Role)
		}

		for _, row := range rows {
			if math.IsNaN(row[j]) {
				row[j] = medians[j]
			}
		}
	}

	return Matrix{Columns: columns, Rows: rows, Medians: medians}, nil
}

func rawFeatures(rec season.Record, schema Schema, width int) []float64 {
	row := make([]float64, 0, width)
	for _, col := range schema.Features {
		switch col {
		case ColumnAge:
			row = append(row, valueOr(rec, ColumnAge, DefaultAge))
		case ColumnServiceTime:
			row = append(row, valueOr(rec, season.KeySeason, DefaultSeason)-valueOr(rec, season.KeyDebutYear, DefaultDebutYear))
		default:
			if v, ok := rec.Value(col); ok {
				row = append(row, v)
			} else {
				row = append(row, math.NaN())
			}
		}
	}

	if schema.Handedness {
		for _, cat := range handednessCategories {
			raw, _ := rec.Label(cat.label)
			hit := handednessCategory(cat.label, raw, cat.values)
			for _, v := range cat.values {
				if v == hit {
					row = append(row, 1)
				} else {
					row = append(row, 0)
				}
			}
		}
	}
	return row
}

func valueOr(rec season.Record, key string, fallback float64) float64 {
	if v, ok := rec.Value(key); ok {
		return v
	}
	return fallback
}

// median averages the two middle values for even-length input.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
