package season

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// NormalizeKey is the canonical column form: trimmed and lowercased.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// NormalizeRecord lowercases stat and label keys. When two raw keys collapse
// to one canonical key the first value seen in sorted raw-key order wins.
func NormalizeRecord(rec Record) Record {
	out := rec
	out.PlayerName = strings.TrimSpace(rec.PlayerName)
	out.PlayerID = strings.TrimSpace(rec.PlayerID)

	if rec.Stats != nil {
		out.Stats = make(map[string]float64, len(rec.Stats))
		for _, raw := range sortedKeys(rec.Stats) {
			key := NormalizeKey(raw)
			if _, exists := out.Stats[key]; exists || key == "" {
				continue
			}
			out.Stats[key] = rec.Stats[raw]
		}
	}
	if rec.Labels != nil {
		out.Labels = make(map[string]string, len(rec.Labels))
		for _, raw := range sortedKeys(rec.Labels) {
			key := NormalizeKey(raw)
			if _, exists := out.Labels[key]; exists || key == "" {
				continue
			}
			out.Labels[key] = rec.Labels[raw]
		}
	}
	return out
}

// NormalizeDataset re-normalizes every record; used after loading a cached artifact.
func NormalizeDataset(d Dataset) Dataset {
	out := d
	out.Records = make([]Record, len(d.Records))
	for i, rec := range d.Records {
		out.Records[i] = NormalizeRecord(rec)
	}
	return out
}

// AssignDebutYears sets DebutYear to the earliest season observed for the same
// player name within records. Records without a season are left untouched.
func AssignDebutYears(records []Record) {
	first := make(map[string]int, len(records))
	for _, rec := range records {
		if rec.Season <= 0 {
			continue
		}
		if current, ok := first[rec.PlayerName]; !ok || rec.Season < current {
			first[rec.PlayerName] = rec.Season
		}
	}
	for i := range records {
		if year, ok := first[records[i].PlayerName]; ok {
			records[i].DebutYear = year
		}
	}
}

// RecordFromMap converts a loosely typed row (decoded JSON, CLI input) into a
// Record. Keys are normalized. Numbers and numeric strings become stats;
// other strings become labels; null values are treated as missing.
func RecordFromMap(raw map[string]any) (Record, error) {
	rec := Record{
		Stats:  make(map[string]float64, len(raw)),
		Labels: make(map[string]string, 4),
	}

	for _, rawKey := range sortedKeys(raw) {
		key := NormalizeKey(rawKey)
		value := raw[rawKey]
		if key == "" || value == nil {
			continue
		}

		switch key {
		case KeyPlayerName, "name", "playername":
			if rec.PlayerName == "" {
				rec.PlayerName = strings.TrimSpace(fmt.Sprint(value))
			}
			continue
		case KeyPlayerID, "playerid", "idfg":
			if rec.PlayerID == "" {
				rec.PlayerID = formatID(value)
			}
			continue
		case KeyIsBatter:
			b, err := toBool(value)
			if err != nil {
				return Record{}, fmt.Errorf("%s: %w", rawKey, err)
			}
			rec.IsBatter = b
			continue
		case KeySeason, KeyDebutYear:
			v, ok := ExtractValue(value)
			if !ok {
				return Record{}, fmt.Errorf("%s: expected a year, got %T", rawKey, value)
			}
			if key == KeySeason {
				rec.Season = int(v)
			} else {
				rec.DebutYear = int(v)
			}
			continue
		}

		if text, isText := value.(string); isText && isLabelKey(key) {
			rec.Labels[key] = strings.TrimSpace(text)
			continue
		}
		if v, ok := ExtractValue(value); ok {
			if _, exists := rec.Stats[key]; !exists {
				rec.Stats[key] = v
			}
			continue
		}
		if text, isText := value.(string); isText {
			rec.Labels[key] = strings.TrimSpace(text)
			continue
		}
		return Record{}, fmt.Errorf("%s: unsupported value type %T", rawKey, value)
	}

	return rec, nil
}

// QueryRecordFromMap converts a query row. A non-empty override sets the role;
// otherwise the row's is_batter flag is used, and a row without one is a
// batter.
func QueryRecordFromMap(raw map[string]any, override Role) (Record, error) {
	rec, err := RecordFromMap(raw)
	if err != nil {
		return Record{}, err
	}
	switch {
	case override != "":
		rec.IsBatter = override.IsBatter()
	case !hasRoleFlag(raw):
		rec.IsBatter = true
	}
	return rec, nil
}

func hasRoleFlag(raw map[string]any) bool {
	for key, value := range raw {
		if value != nil && NormalizeKey(key) == KeyIsBatter {
			return true
		}
	}
	return false
}

// ToMap flattens a record back into normalized column form.
func ToMap(rec Record) map[string]any {
	out := make(map[string]any, len(rec.Stats)+len(rec.Labels)+5)
	for k, v := range rec.Stats {
		out[k] = v
	}
	for k, v := range rec.Labels {
		out[k] = v
	}
	out[KeyPlayerName] = rec.PlayerName
	if rec.PlayerID != "" {
		out[KeyPlayerID] = rec.PlayerID
	}
	if rec.Season != 0 {
		out[KeySeason] = rec.Season
	}
	if rec.DebutYear != 0 {
		out[KeyDebutYear] = rec.DebutYear
	}
	out[KeyIsBatter] = rec.IsBatter
	return out
}

// ExtractValue normalizes a numeric value from the shapes JSON decoders and
// providers produce. NaN and infinities are reported as missing.
func ExtractValue(val any) (float64, bool) {
	var out float64
	switch v := val.(type) {
	case nil:
		return 0, false
	case float64:
		out = v
	case float32:
		out = float64(v)
	case int:
		out = float64(v)
	case int32:
		out = float64(v)
	case int64:
		out = float64(v)
	case uint64:
		out = float64(v)
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		out = f
	case string:
		trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		out = f
	default:
		return 0, false
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, false
	}
	return out, true
}

func isLabelKey(key string) bool {
	switch key {
	case KeyBats, KeyThrows, KeyMonth, "team", "teamname", "pos", "position":
		return true
	default:
		return false
	}
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		if f, ok := ExtractValue(v); ok {
			return f != 0, nil
		}
		return false, fmt.Errorf("expected a boolean, got %T", value)
	}
}

func formatID(value any) string {
	if f, ok := ExtractValue(value); ok && f == math.Trunc(f) {
		if _, isText := value.(string); !isText {
			return strconv.FormatInt(int64(f), 10)
		}
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
