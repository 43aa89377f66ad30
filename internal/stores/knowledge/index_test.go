package knowledge

import (
	"context"
	"os"
	"testing"

	"github.com/ethanbaker/receptionist/internal/stores/db"
	"github.com/ethanbaker/receptionist/pkg/knowledge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	entries := []Entry{
		{TenantID: "t", Content: "north", Source: "a.md", Embedding: []float64{0, 1}},
		{TenantID: "t", Content: "east", Source: "b.md", Embedding: []float64{1, 0}},
	}

	snippets := knowledge.TopK(candidates(entries), []float64{1, 0.1}, 1)
	require.Len(t, snippets, 1)
	assert.Equal(t, "east", snippets[0].Content)
	assert.Equal(t, "b.md", snippets[0].Source)
}

func TestMySqlIndex_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	dsn, err := db.NormalizeDSN(dsn)
	require.NoError(t, err)
	conn, err := db.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })

	index, err := NewMySqlIndex(conn)
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.NewString()
	t.Cleanup(func() { _ = index.DeleteTenant(ctx, tenantID) })

	require.NoError(t, index.Add(ctx, tenantID, "hours", "hours.md", []float64{1, 0, 0}))
	require.NoError(t, index.Add(ctx, tenantID, "parking", "parking.md", []float64{0, 1, 0}))

	snippets, err := index.Nearest(ctx, tenantID, []float64{0.1, 0.9, 0}, 3)
	require.NoError(t, err)
	require.Len(t, snippets, 2)
	assert.Equal(t, "parking", snippets[0].Content)

	empty, err := index.Nearest(ctx, "no-such-tenant", []float64{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
