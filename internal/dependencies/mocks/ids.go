package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/comicguess/internal/dependencies/ids"
)

// MockIDs is a mock implementation of ids.Generator for testing
type MockIDs struct {
	mu sync.Mutex

	// Queued is a queue of IDs to return from NewID
	Queued []string
	index  int

	// fallback counter once the queue is drained
	seq int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a new MockIDs
func NewMockIDs() *MockIDs {
	return &MockIDs{}
}

// NewID returns the next queued ID, or a sequential "id-N" once the queue is empty
func (g *MockIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.index < len(g.Queued) {
		id := g.Queued[g.index]
		g.index++
		return id
	}
	g.seq++
	return fmt.Sprintf("id-%d", g.seq)
}

// Queue adds values to the NewID result queue
func (g *MockIDs) Queue(values ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Queued = append(g.Queued, values...)
}

// Reset clears all queued results
func (g *MockIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Queued = nil
	g.index = 0
	g.seq = 0
}
