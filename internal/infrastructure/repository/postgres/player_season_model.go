package postgres

import (
	"database/sql"
	"time"

	qb "github.com/riskibarqy/mlb-betting/internal/platform/querybuilder"
)

var playerSeasons = qb.MustTable[playerSeasonTableModel]("player_seasons")

// playerSeasonTableModel is one dataset row. stats and labels are JSONB objects.
type playerSeasonTableModel struct {
	RunID      string         `db:"run_id"`
	StartYear  int            `db:"start_year"`
	EndYear    int            `db:"end_year"`
	BuiltAt    time.Time      `db:"built_at"`
	RowIndex   int            `db:"row_index"`
	PlayerName string         `db:"player_name"`
	PlayerID   sql.NullString `db:"player_id"`
	Season     int            `db:"season"`
	DebutYear  sql.NullInt64  `db:"debut_year"`
	IsBatter   bool           `db:"is_batter"`
	Stats      string         `db:"stats"`
	Labels     string         `db:"labels"`
}
