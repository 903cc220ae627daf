package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

// readInput opens path, or stdin when path is "-" or empty.
func readInput(path string, stdin io.Reader) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// decodeRows accepts either one JSON object or an array of objects.
func decodeRows(raw []byte) ([]map[string]any, error) {
	var payload any
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	switch v := payload.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for i, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("decode rows: element %d is not an object", i)
			}
			rows = append(rows, row)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("decode rows: empty array")
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("decode rows: expected object or array")
	}
}

// parseRecords converts decoded rows; role, when set, overrides is_batter.
// Rows with neither are batters.
func parseRecords(rows []map[string]any, role string) ([]season.Record, error) {
	var override season.Role
	if role = strings.TrimSpace(role); role != "" {
		parsed, err := season.ParseRole(role)
		if err != nil {
			return nil, err
		}
		override = parsed
	}

	records := make([]season.Record, 0, len(rows))
	for i, row := range rows {
		rec, err := season.QueryRecordFromMap(row, override)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
