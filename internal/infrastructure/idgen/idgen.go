// Package idgen provides the identifier generators used for accounts, records and events.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Supported formats.
const (
	FormatULID = "ulid"
	FormatUUID = "uuid"
)

// Generator generates unique IDs.
type Generator interface {
	Generate() string
}

// ULIDGenerator generates ULID-based IDs. ULIDs sort by creation time.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}

// UUIDGenerator generates time-ordered UUIDv7 IDs.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate generates a new UUID, falling back to a random one if the clock source fails.
func (g *UUIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// New returns the generator for format.
func New(format string) (Generator, error) {
	switch format {
	case "", FormatULID:
		return NewULIDGenerator(), nil
	case FormatUUID:
		return NewUUIDGenerator(), nil
	}
	return nil, fmt.Errorf("unknown id format %q", format)
}
