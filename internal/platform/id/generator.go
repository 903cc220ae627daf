package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Generator creates identifiers for dataset builds and odds snapshots.
type Generator interface {
	NewID() (string, error)
}

// RunIDGenerator yields "<prefix>-<UTC timestamp>-<random hex>" so IDs sort by creation time.
type RunIDGenerator struct {
	prefix string
	now    func() time.Time
}

func NewRunIDGenerator(prefix string) *RunIDGenerator {
	return &RunIDGenerator{
		prefix: strings.Trim(strings.TrimSpace(prefix), "-"),
		now:    time.Now,
	}
}

func (g *RunIDGenerator) NewID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	stamp := g.now().UTC().Format("20060102T150405Z")
	if g.prefix == "" {
		return stamp + "-" + hex.EncodeToString(buf), nil
	}
	return g.prefix + "-" + stamp + "-" + hex.EncodeToString(buf), nil
}
