package season

import "context"

// Repository persists the historical dataset. Save replaces whatever was stored.
type Repository interface {
	Load(ctx context.Context) (Dataset, bool, error)
	Save(ctx context.Context, dataset Dataset) error
}

// Table is one fetched role table. Skipped counts source rows that could not
// be turned into records.
type Table struct {
	Records []Record
	Skipped int
}

// Source supplies raw per-role statistics for an inclusive season range.
type Source interface {
	FetchBatting(ctx context.Context, startYear, endYear int) (Table, error)
	FetchPitching(ctx context.Context, startYear, endYear int) (Table, error)
}
