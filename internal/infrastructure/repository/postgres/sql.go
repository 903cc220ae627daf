package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	codeProtocolViolation    pq.ErrorCode = "08P01"
	codeInvalidStatementName pq.ErrorCode = "26000"
	codeUndefinedTable       pq.ErrorCode = "42P01"
)

const bindMismatchMessagePrefix = "bind message supplies"

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// isStalePreparedStatement matches the errors a transaction-mode pooler
// surfaces when the unnamed statement was parsed on another backend: either
// it is gone (26000) or the bind does not fit it (08P01).
func isStalePreparedStatement(err error) bool {
	if err == nil {
		return false
	}
	switch pqCode(err) {
	case codeInvalidStatementName:
		return true
	case codeProtocolViolation:
		return strings.Contains(err.Error(), bindMismatchMessagePrefix)
	}
	msg := err.Error()
	return strings.Contains(msg, "unnamed prepared statement does not exist") ||
		(strings.Contains(msg, bindMismatchMessagePrefix) && strings.Contains(msg, "requires"))
}

// wrapSchemaError points at the migration command when player_seasons is missing.
func wrapSchemaError(err error, op string) error {
	if pqCode(err) == codeUndefinedTable {
		return fmt.Errorf("%s: %s table is missing, run `migration up`: %w", op, playerSeasons.Name(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// execWithRetry re-runs a statement once when the pooler lost the prepared statement.
func execWithRetry(ctx context.Context, tx *sqlx.Tx, query string, args ...any) error {
	_, err := tx.ExecContext(ctx, query, args...)
	if isStalePreparedStatement(err) {
		_, err = tx.ExecContext(ctx, query, args...)
	}
	return err
}

func nullString(v string) sql.NullString {
	v = strings.TrimSpace(v)
	return sql.NullString{String: v, Valid: v != ""}
}

// nullInt stores zero as NULL; a zero debut year means unknown.
func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}
