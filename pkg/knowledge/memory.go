package knowledge

import (
	"context"
	"fmt"
	"sync"
)

// MemoryIndex is an Index held in process memory, keyed by tenant
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string][]Candidate
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{chunks: make(map[string][]Candidate)}
}

// Add stores an embedded chunk for a tenant
func (m *MemoryIndex) Add(tenantID, content, source string, embedding []float64) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id cannot be empty")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding cannot be empty")
	}

	vector := make([]float64, len(embedding))
	copy(vector, embedding)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[tenantID] = append(m.chunks[tenantID], Candidate{Content: content, Source: source, Embedding: vector})

	return nil
}

// Nearest implements Index
func (m *MemoryIndex) Nearest(ctx context.Context, tenantID string, vector []float64, k int) ([]Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return TopK(m.chunks[tenantID], vector, k), nil
}
