// Package uuid generates crawl pass identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/chess-graph-crawler/internal/crawler"
)

var _ crawler.IDGenerator = Generator{}

// Generator creates UUIDv7 strings. Pass IDs minted later sort after earlier
// ones, so log lines and pub/sub payloads order naturally by pass.
type Generator struct{}

// New creates a new Generator.
func New() Generator {
	return Generator{}
}

// NewID returns a UUIDv7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate pass id: %w", err)
	}
	return id.String(), nil
}
