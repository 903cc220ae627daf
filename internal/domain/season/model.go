package season

import (
	"fmt"
	"strings"
	"time"
)

// Role partitions the historical table. Batters and pitchers never mix in one index.
type Role string

const (
	RoleBatter  Role = "batter"
	RolePitcher Role = "pitcher"
)

func RoleOf(isBatter bool) Role {
	if isBatter {
		return RoleBatter
	}
	return RolePitcher
}

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleBatter, "batters", "bat", "hitter":
		return RoleBatter, nil
	case RolePitcher, "pitchers", "pit", "pitching":
		return RolePitcher, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

func (r Role) IsBatter() bool {
	return r == RoleBatter
}

// Well-known keys of a normalized record.
const (
	KeyPlayerName = "player_name"
	KeyPlayerID   = "player_id"
	KeySeason     = "season"
	KeyDebutYear  = "debut_year"
	KeyIsBatter   = "is_batter"
	KeyMonth      = "month"
	KeyBats       = "bats"
	KeyThrows     = "throws"
)

// Record is one player-season (historical) or one query row (current season).
// Stats holds only present numeric values keyed by lowercase name; an absent
// key means missing. Season and DebutYear use 0 for missing.
type Record struct {
	PlayerName string
	PlayerID   string
	Season     int
	DebutYear  int
	IsBatter   bool
	Stats      map[string]float64
	Labels     map[string]string
}

func (r Record) Role() Role {
	return RoleOf(r.IsBatter)
}

// Value resolves a numeric field by normalized name, including season and debut_year.
func (r Record) Value(key string) (float64, bool) {
	key = NormalizeKey(key)
	switch key {
	case KeySeason:
		if r.Season != 0 {
			return float64(r.Season), true
		}
	case KeyDebutYear:
		if r.DebutYear != 0 {
			return float64(r.DebutYear), true
		}
	}
	v, ok := r.Stats[key]
	return v, ok
}

func (r Record) Label(key string) (string, bool) {
	v, ok := r.Labels[NormalizeKey(key)]
	return v, ok
}

// DisplayName is the label used in logs and responses.
func (r Record) DisplayName() string {
	if name := strings.TrimSpace(r.PlayerName); name != "" {
		return name
	}
	return "Player"
}

func (r Record) Clone() Record {
	out := r
	if r.Stats != nil {
		out.Stats = make(map[string]float64, len(r.Stats))
		for k, v := range r.Stats {
			out.Stats[k] = v
		}
	}
	if r.Labels != nil {
		out.Labels = make(map[string]string, len(r.Labels))
		for k, v := range r.Labels {
			out.Labels[k] = v
		}
	}
	return out
}

// Dataset is the cached historical table for both roles.
type Dataset struct {
	RunID     string
	StartYear int
	EndYear   int
	BuiltAt   time.Time
	Records   []Record
}

// Clone deep-copies the records so callers may mutate the result.
func (d Dataset) Clone() Dataset {
	out := d
	out.Records = make([]Record, len(d.Records))
	for i, rec := range d.Records {
		out.Records[i] = rec.Clone()
	}
	return out
}

func (d Dataset) Validate() error {
	if d.StartYear != 0 && d.EndYear != 0 && d.StartYear > d.EndYear {
		return fmt.Errorf("start year %d is after end year %d", d.StartYear, d.EndYear)
	}
	for i, rec := range d.Records {
		if strings.TrimSpace(rec.PlayerName) == "" {
			return fmt.Errorf("record %d: player name is required", i)
		}
		if rec.Season <= 0 {
			return fmt.Errorf("record %d (%s): season is required", i, rec.PlayerName)
		}
	}
	return nil
}

// Partition returns the records of one role in dataset order.
func (d Dataset) Partition(role Role) []Record {
	out := make([]Record, 0, len(d.Records))
	for _, rec := range d.Records {
		if rec.Role() == role {
			out = append(out, rec)
		}
	}
	return out
}

func (d Dataset) Count(role Role) int {
	n := 0
	for _, rec := range d.Records {
		if rec.Role() == role {
			n++
		}
	}
	return n
}

// Columns lists every normalized stat and label key present in the dataset, sorted.
func (d Dataset) Columns() (stats []string, labels []string) {
	statSet := map[string]struct{}{}
	labelSet := map[string]struct{}{}
	for _, rec := range d.Records {
		for k := range rec.Stats {
			statSet[k] = struct{}{}
		}
		for k := range rec.Labels {
			labelSet[k] = struct{}{}
		}
	}
	return sortedKeys(statSet), sortedKeys(labelSet)
}
