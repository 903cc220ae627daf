package id

import (
	"strings"
	"testing"
	"time"
)

func TestRunIDGenerator_NewID(t *testing.T) {
	t.Parallel()

	g := NewRunIDGenerator(" build- ")
	g.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	got, err := g.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if !strings.HasPrefix(got, "build-20260301T093000Z-") {
		t.Fatalf("unexpected id: %q", got)
	}
	if len(got) != len("build-20260301T093000Z-")+8 {
		t.Fatalf("unexpected id length: %q", got)
	}

	other, err := g.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if other == got {
		t.Fatalf("expected distinct ids, got %q twice", got)
	}
}
