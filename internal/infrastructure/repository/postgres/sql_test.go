package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsStalePreparedStatement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil},
		{name: "invalid statement name code", err: &pq.Error{Code: codeInvalidStatementName, Message: "prepared statement missing"}, want: true},
		{
			name: "bind mismatch code",
			err:  &pq.Error{Code: codeProtocolViolation, Message: `bind message supplies 2 parameters, but prepared statement "" requires 1`},
			want: true,
		},
		{name: "other protocol violation", err: &pq.Error{Code: codeProtocolViolation, Message: "unexpected message type"}},
		{name: "wrapped pq error", err: fmt.Errorf("insert: %w", &pq.Error{Code: codeInvalidStatementName}), want: true},
		{name: "plain text from pooler", err: errors.New("pq: unnamed prepared statement does not exist"), want: true},
		{name: "unrelated", err: errors.New("pq: relation player_seasons does not exist")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, isStalePreparedStatement(tc.err))
		})
	}
}

func TestWrapSchemaError(t *testing.T) {
	t.Parallel()

	missing := &pq.Error{Code: codeUndefinedTable, Message: `relation "player_seasons" does not exist`}
	err := wrapSchemaError(missing, "select player seasons")
	assert.ErrorIs(t, err, missing)
	assert.Contains(t, err.Error(), "migration up")

	other := errors.New("connection refused")
	err = wrapSchemaError(other, "select player seasons")
	assert.ErrorIs(t, err, other)
	assert.NotContains(t, err.Error(), "migration up")
}

func TestNullHelpers(t *testing.T) {
	t.Parallel()

	assert.False(t, nullString("  ").Valid)
	assert.Equal(t, "19755", nullString(" 19755 ").String)
	assert.False(t, nullInt(0).Valid)
	v := nullInt(2018)
	assert.True(t, v.Valid)
	assert.EqualValues(t, 2018, v.Int64)
}
