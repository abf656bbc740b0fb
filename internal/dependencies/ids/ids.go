package ids

import "github.com/google/uuid"

// Generator produces unique identifiers and can be mocked for testing
type Generator interface {
	// NewID returns a new unique identifier
	NewID() string
}

// UUIDGenerator implements Generator with random (v4) UUIDs
type UUIDGenerator struct{}

// New creates a new UUIDGenerator
func New() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID returns a random UUID string
func (g *UUIDGenerator) NewID() string {
	return uuid.NewString()
}
