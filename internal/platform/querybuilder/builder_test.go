package querybuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seasonRow struct {
	Name   string `db:"player_name"`
	Season int    `db:"season,omitempty"`
	Skip   string `db:"-"`
	Note   string
	hidden int
}

func TestNewTable_ReadsTaggedColumns(t *testing.T) {
	t.Parallel()

	table, err := NewTable[seasonRow]("player_seasons")
	require.NoError(t, err)
	assert.Equal(t, "player_seasons", table.Name())
	assert.Equal(t, []string{"player_name", "season"}, table.Columns())

	cols := table.Columns()
	cols[0] = "mutated"
	assert.Equal(t, "player_name", table.Columns()[0])
}

func TestNewTable_Errors(t *testing.T) {
	t.Parallel()

	type untagged struct{ A int }

	_, err := NewTable[seasonRow](" ")
	assert.Error(t, err)
	_, err = NewTable[untagged]("t")
	assert.Error(t, err)
	_, err = NewTable[int]("t")
	assert.Error(t, err)
	assert.Panics(t, func() { MustTable[untagged]("t") })
}

func TestTable_SelectAndDelete(t *testing.T) {
	t.Parallel()

	table := MustTable[seasonRow]("player_seasons")
	assert.Equal(t, "SELECT player_name, season FROM player_seasons ORDER BY row_index", table.SelectAll("row_index"))
	assert.Equal(t, "SELECT player_name, season FROM player_seasons", table.SelectAll())
	assert.Equal(t, "DELETE FROM player_seasons", table.DeleteAll())
}

func TestTable_Insert(t *testing.T) {
	t.Parallel()

	table := MustTable[seasonRow]("player_seasons")
	query, args, err := table.Insert([]seasonRow{
		{Name: "A", Season: 2020, Skip: "x"},
		{Name: "B", Season: 2021},
	}, " ON CONFLICT DO NOTHING ")
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO player_seasons (player_name, season) VALUES ($1, $2), ($3, $4) ON CONFLICT DO NOTHING", query)
	assert.Equal(t, []any{"A", 2020, "B", 2021}, args)

	_, _, err = table.Insert(nil, "")
	assert.Error(t, err)
}
