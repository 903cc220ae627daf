package postgres

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

const insertBatchSize = 500

// DatasetRepository stores the historical dataset in player_seasons. Save
// replaces the whole table in one transaction.
type DatasetRepository struct {
	db *sqlx.DB
}

func NewDatasetRepository(db *sqlx.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

func (r *DatasetRepository) Load(ctx context.Context) (season.Dataset, bool, error) {
	var rows []playerSeasonTableModel
	if err := r.db.SelectContext(ctx, &rows, playerSeasons.SelectAll("row_index")); err != nil {
		return season.Dataset{}, false, wrapSchemaError(err, "select player seasons")
	}
	if len(rows) == 0 {
		return season.Dataset{}, false, nil
	}

	out := season.Dataset{
		RunID:     rows[0].RunID,
		StartYear: rows[0].StartYear,
		EndYear:   rows[0].EndYear,
		BuiltAt:   rows[0].BuiltAt,
		Records:   make([]season.Record, 0, len(rows)),
	}
	for _, row := range rows {
		rec, err := recordFromModel(row)
		if err != nil {
			return season.Dataset{}, false, err
		}
		out.Records = append(out.Records, rec)
	}
	return out, true, nil
}

func (r *DatasetRepository) Save(ctx context.Context, dataset season.Dataset) error {
	models := make([]playerSeasonTableModel, 0, len(dataset.Records))
	for i, rec := range dataset.Records {
		model, err := modelFromRecord(dataset, i, rec)
		if err != nil {
			return err
		}
		models = append(models, model)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace player seasons: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := execWithRetry(ctx, tx, playerSeasons.DeleteAll()); err != nil {
		return wrapSchemaError(err, "clear player seasons")
	}

	for start := 0; start < len(models); start += insertBatchSize {
		end := min(start+insertBatchSize, len(models))
		query, args, err := playerSeasons.Insert(models[start:end], "")
		if err != nil {
			return fmt.Errorf("build insert player seasons query: %w", err)
		}
		if err := execWithRetry(ctx, tx, query, args...); err != nil {
			return fmt.Errorf("insert player seasons rows=%d-%d: %w", start, end-1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace player seasons tx: %w", err)
	}
	return nil
}

func modelFromRecord(d season.Dataset, idx int, rec season.Record) (playerSeasonTableModel, error) {
	stats := rec.Stats
	if stats == nil {
		stats = map[string]float64{}
	}
	labels := rec.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	statsJSON, err := sonic.MarshalString(stats)
	if err != nil {
		return playerSeasonTableModel{}, fmt.Errorf("encode stats row=%d: %w", idx, err)
	}
	labelsJSON, err := sonic.MarshalString(labels)
	if err != nil {
		return playerSeasonTableModel{}, fmt.Errorf("encode labels row=%d: %w", idx, err)
	}

	return playerSeasonTableModel{
		RunID:      d.RunID,
		StartYear:  d.StartYear,
		EndYear:    d.EndYear,
		BuiltAt:    d.BuiltAt,
		RowIndex:   idx,
		PlayerName: rec.PlayerName,
		PlayerID:   nullString(rec.PlayerID),
		Season:     rec.Season,
		DebutYear:  nullInt(rec.DebutYear),
		IsBatter:   rec.IsBatter,
		Stats:      statsJSON,
		Labels:     labelsJSON,
	}, nil
}

func recordFromModel(row playerSeasonTableModel) (season.Record, error) {
	rec := season.Record{
		PlayerName: row.PlayerName,
		PlayerID:   row.PlayerID.String,
		Season:     row.Season,
		DebutYear:  int(row.DebutYear.Int64),
		IsBatter:   row.IsBatter,
	}
	if row.Stats != "" {
		if err := sonic.UnmarshalString(row.Stats, &rec.Stats); err != nil {
			return season.Record{}, fmt.Errorf("decode stats row=%d: %w", row.RowIndex, err)
		}
	}
	if row.Labels != "" && row.Labels != "{}" {
		if err := sonic.UnmarshalString(row.Labels, &rec.Labels); err != nil {
			return season.Record{}, fmt.Errorf("decode labels row=%d: %w", row.RowIndex, err)
		}
	}
	return rec, nil
}
