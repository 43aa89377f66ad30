package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocumentsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
documents:
  - tenant_id: smile
    source: hours.txt
    content: We are open 9 to 5 on weekdays.
  - tenant_id: smile
    source: prices.pdf
    content: Whitening costs $200.
`), 0o600))

	docs, err := LoadDocumentsFile(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, Document{TenantID: "smile", Source: "prices.pdf", Content: "Whitening costs $200."}, docs[1])

	_, err = LoadDocumentsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestIngest(t *testing.T) {
	embedder := &staticEmbedder{vectors: map[string][]float64{
		"We are open 9 to 5 on weekdays.": {1, 0, 0},
		"Whitening costs $200.":           {0, 1, 0},
	}}
	index := NewMemoryIndex()

	stored, err := Ingest(context.Background(), embedder, index.AddTo(), []Document{
		{TenantID: "smile", Source: "hours.txt", Content: "We are open 9 to 5 on weekdays."},
		{TenantID: "smile", Source: "blank.txt", Content: "   "},
		{TenantID: "", Source: "orphan.txt", Content: "no tenant"},
		{TenantID: "smile", Source: "prices.pdf", Content: "Whitening costs $200."},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	snippets, err := NewEmbeddingRetriever(embedder, index).Search(context.Background(), "smile", "Whitening costs $200.", 1)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "prices.pdf", snippets[0].Source)
}

func TestIngest_EmbedFailure(t *testing.T) {
	embedder := &staticEmbedder{err: errors.New("quota exceeded")}

	stored, err := Ingest(context.Background(), embedder, NewMemoryIndex().AddTo(), []Document{
		{TenantID: "smile", Source: "hours.txt", Content: "open"},
	})
	require.Error(t, err)
	assert.Zero(t, stored)
	assert.Contains(t, err.Error(), "hours.txt")
}
