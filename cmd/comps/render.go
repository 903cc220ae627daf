package main

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/mlb-betting/internal/domain/comps"
	"github.com/riskibarqy/mlb-betting/internal/usecase"
)

// writeTable renders rows as left aligned columns separated by two spaces.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], utf8.RuneCountInString(row[i]))
		}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	writeRow := func(cells []string) {
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			_, _ = buf.WriteString(cell)
			if i < len(widths)-1 {
				_, _ = buf.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)+2))
			}
		}
		_ = buf.WriteByte('\n')
	}

	writeRow(headers)
	rule := make([]string, len(widths))
	for i, width := range widths {
		rule[i] = strings.Repeat("-", width)
	}
	writeRow(rule)
	for _, row := range rows {
		writeRow(row)
	}

	_, err := buf.WriteTo(w)
	return err
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func neighborRows(neighbors []comps.Neighbor) [][]string {
	rows := make([][]string, 0, len(neighbors))
	for i, n := range neighbors {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			n.Record.DisplayName(),
			strconv.Itoa(n.Record.Season),
			formatFloat(n.Distance, 4),
			formatFloat(n.Weight, 4),
		})
	}
	return rows
}

var neighborHeaders = []string{"#", "player", "season", "distance", "weight"}

func writeComps(w io.Writer, c comps.Comps) error {
	if err := writeTable(w, neighborHeaders, neighborRows(c.Neighbors)); err != nil {
		return err
	}

	targets := make([]string, 0, len(c.WeightedMean))
	for target := range c.WeightedMean {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	rows := make([][]string, 0, len(targets))
	for _, target := range targets {
		rows = append(rows, []string{
			target,
			formatFloat(c.WeightedMean[target], 4),
			formatFloat(c.WeightedDelta[target], 4),
		})
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return writeTable(w, []string{"target", "weighted_mean", "weighted_delta"}, rows)
}

func projectionRow(p comps.Projection) []string {
	names := make([]string, 0, len(p.Adjustments))
	for _, adj := range p.Adjustments {
		names = append(names, adj.Name+"x"+formatFloat(adj.Factor, 2))
	}
	adjustments := strings.Join(names, ",")
	if adjustments == "" {
		adjustments = "-"
	}
	return []string{
		p.PlayerName,
		string(p.Role),
		p.Stat,
		formatFloat(p.Base, 3),
		formatFloat(p.Rolling, 3),
		formatFloat(p.Delta, 3),
		formatFloat(p.Blended, 3),
		formatFloat(p.Final, 3),
		adjustments,
	}
}

var projectionHeaders = []string{"player", "role", "stat", "base", "rolling", "delta", "blended", "final", "adjustments"}

func writeProjection(w io.Writer, p comps.Projection) error {
	if err := writeTable(w, projectionHeaders, [][]string{projectionRow(p)}); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return writeTable(w, neighborHeaders, neighborRows(p.Comps.Neighbors))
}

func writeBatch(w io.Writer, items []usecase.BatchItem) error {
	headers := append([]string{"row"}, projectionHeaders...)
	headers = append(headers, "error")

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := []string{strconv.Itoa(item.Index)}
		if item.Err != nil {
			row = append(row, make([]string, len(projectionHeaders))...)
			row = append(row, item.Err.Error())
		} else {
			row = append(row, projectionRow(item.Projection)...)
			row = append(row, "")
		}
		rows = append(rows, row)
	}
	return writeTable(w, headers, rows)
}
