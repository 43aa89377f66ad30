// Package knowledge retrieves tenant specific snippets used to ground replies
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// DefaultTopK is the number of snippets fetched per caller utterance
const DefaultTopK = 3

// ErrUnavailable wraps failures of the embedding service or the index
var ErrUnavailable = errors.New("knowledge retrieval unavailable")

// Snippet is a piece of tenant knowledge with its relevance to a query
// Score is 1 - distance, higher is more relevant. Only relative ordering is meaningful
type Snippet struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// Retriever finds the snippets most relevant to a query
type Retriever interface {
	// Search returns at most k snippets ordered by descending score. A tenant without
	// indexed knowledge yields an empty slice and no error
	Search(ctx context.Context, tenantID, query string, k int) ([]Snippet, error)
}

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Index answers nearest neighbour queries over stored vectors
type Index interface {
	Nearest(ctx context.Context, tenantID string, vector []float64, k int) ([]Snippet, error)
}

// EmbeddingRetriever embeds the query and looks it up in an Index
type EmbeddingRetriever struct {
	embedder Embedder
	index    Index
}

// NewEmbeddingRetriever creates a Retriever from an embedder and an index
func NewEmbeddingRetriever(embedder Embedder, index Index) *EmbeddingRetriever {
	return &EmbeddingRetriever{embedder: embedder, index: index}
}

// Search implements Retriever
func (r *EmbeddingRetriever) Search(ctx context.Context, tenantID, query string, k int) ([]Snippet, error) {
	if k <= 0 {
		return []Snippet{}, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", ErrUnavailable, err)
	}

	snippets, err := r.index.Nearest(ctx, tenantID, vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if snippets == nil {
		snippets = []Snippet{}
	}

	return snippets, nil
}

// CosineDistance returns 1 - cosine similarity. Vectors of different length or zero
// magnitude are maximally distant
func CosineDistance(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 1
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}

	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Score converts a distance into a relevance score clamped to [0,1]
func Score(distance float64) float64 {
	return math.Max(0, math.Min(1, 1-distance))
}

// Candidate is a stored chunk considered by TopK
type Candidate struct {
	Content   string
	Source    string
	Embedding []float64
}

// TopK scores candidates against vector and returns the best k, highest score first.
// Ties keep the candidates' original order
func TopK(candidates []Candidate, vector []float64, k int) []Snippet {
	snippets := make([]Snippet, 0, len(candidates))
	for _, c := range candidates {
		snippets = append(snippets, Snippet{
			Content: c.Content,
			Source:  c.Source,
			Score:   Score(CosineDistance(vector, c.Embedding)),
		})
	}

	sort.SliceStable(snippets, func(i, j int) bool {
		return snippets[i].Score > snippets[j].Score
	})

	if k >= 0 && len(snippets) > k {
		snippets = snippets[:k]
	}
	return snippets
}
