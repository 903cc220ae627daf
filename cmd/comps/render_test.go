package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/riskibarqy/mlb-betting/internal/domain/comps"
	"github.com/riskibarqy/mlb-betting/internal/domain/season"
	"github.com/riskibarqy/mlb-betting/internal/usecase"
)

func TestWriteTable_AlignsColumns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := writeTable(&buf, []string{"a", "long header"}, [][]string{{"wide value", "x"}, {"y"}})
	if err != nil {
		t.Fatalf("writeTable: %v", err)
	}

	want := "a           long header\n" +
		"----------  -----------\n" +
		"wide value  x\n" +
		"y           \n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected table:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteBatch_MarksFailedRows(t *testing.T) {
	t.Parallel()

	items := []usecase.BatchItem{
		{Index: 0, Projection: comps.Projection{PlayerName: "Ok", Role: season.RoleBatter, Stat: "wrc+", Final: 101.5}},
		{Index: 1, Err: errors.New("boom")},
	}
	var buf bytes.Buffer
	if err := writeBatch(&buf, items); err != nil {
		t.Fatalf("writeBatch: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[2], "101.500") {
		t.Fatalf("unexpected projection row: %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "boom") {
		t.Fatalf("unexpected failed row: %q", lines[3])
	}
}
