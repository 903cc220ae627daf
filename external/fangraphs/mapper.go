package fangraphs

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// rowKey identifies a player-season across boards.
func rowKey(row map[string]any) (string, bool) {
	year, ok := season.ExtractValue(lookup(row, "Season"))
	if !ok || year <= 0 {
		return "", false
	}
	if id := lookup(row, "playerid"); id != nil {
		if text := strings.TrimSpace(fmt.Sprint(id)); text != "" {
			return fmt.Sprintf("id:%s:%d", text, int(year)), true
		}
	}
	name := playerName(row)
	if name == "" {
		return "", false
	}
	return fmt.Sprintf("name:%s:%d", name, int(year)), true
}

// normalizeRow maps provider column names onto record keys. Markup-bearing
// name and team columns are reduced to their text.
func normalizeRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		key := season.NormalizeKey(k)
		switch key {
		case "name", "playername", "playerid", "season", "team", "teamname", "teamnameabb":
			continue
		}
		if text, ok := v.(string); ok && strings.Contains(text, "<") {
			continue
		}
		out[key] = v
	}

	out[season.KeyPlayerName] = playerName(row)
	if id := lookup(row, "playerid"); id != nil {
		out[season.KeyPlayerID] = id
	}
	out[season.KeySeason] = lookup(row, "Season")
	if team := stripHTML(fmt.Sprint(firstNonNil(lookup(row, "TeamNameAbb"), lookup(row, "TeamName"), lookup(row, "Team")))); team != "" && team != "<nil>" {
		out["team"] = team
	}
	return out
}

func playerName(row map[string]any) string {
	if v := lookup(row, "PlayerName"); v != nil {
		if name := stripHTML(fmt.Sprint(v)); name != "" {
			return name
		}
	}
	if v := lookup(row, "Name"); v != nil {
		return stripHTML(fmt.Sprint(v))
	}
	return ""
}

// lookup finds key case-insensitively.
func lookup(row map[string]any, key string) any {
	if v, ok := row[key]; ok {
		return v
	}
	for k, v := range row {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func stripHTML(v string) string {
	return strings.TrimSpace(html.UnescapeString(htmlTagRegex.ReplaceAllString(v, "")))
}

func firstNonNil(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
