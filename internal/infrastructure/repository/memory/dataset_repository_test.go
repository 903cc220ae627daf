package memory

import (
	"context"
	"testing"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
)

func TestDatasetRepository_IsolatesCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewDatasetRepository(nil)
	if _, ok, _ := repo.Load(ctx); ok {
		t.Fatalf("expected empty repository")
	}

	ds := season.Dataset{RunID: "r1", Records: []season.Record{{PlayerName: "A", Season: 2020, Stats: map[string]float64{"pa": 500}}}}
	if err := repo.Save(ctx, ds); err != nil {
		t.Fatalf("save: %v", err)
	}
	ds.Records[0].Stats["pa"] = 1

	got, ok, err := repo.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Records[0].Stats["pa"] != 500 {
		t.Fatalf("stored dataset was mutated through caller map: %v", got.Records[0].Stats["pa"])
	}
	got.Records[0].Stats["pa"] = 2

	again, _, _ := repo.Load(ctx)
	if again.Records[0].Stats["pa"] != 500 {
		t.Fatalf("stored dataset was mutated through loaded copy")
	}
	if repo.Saves() != 1 {
		t.Fatalf("expected one save, got %d", repo.Saves())
	}
}
