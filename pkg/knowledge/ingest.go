package knowledge

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a chunk of tenant knowledge before it is embedded
type Document struct {
	TenantID string `yaml:"tenant_id"`
	Content  string `yaml:"content"`
	Source   string `yaml:"source"`
}

// AddFunc stores an embedded document in an index
type AddFunc func(ctx context.Context, tenantID, content, source string, embedding []float64) error

// LoadDocumentsFile reads a YAML file of the form `documents: [...]`
func LoadDocumentsFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}

	var file struct {
		Documents []Document `yaml:"documents"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge file: %w", err)
	}

	return file.Documents, nil
}

// Ingest embeds each document and hands it to add. It stops at the first failure and
// reports how many documents were stored
func Ingest(ctx context.Context, embedder Embedder, add AddFunc, docs []Document) (int, error) {
	stored := 0
	for _, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if doc.TenantID == "" || content == "" {
			continue
		}

		vector, err := embedder.Embed(ctx, content)
		if err != nil {
			return stored, fmt.Errorf("failed to embed %q: %w", doc.Source, err)
		}
		if err := add(ctx, doc.TenantID, content, doc.Source, vector); err != nil {
			return stored, fmt.Errorf("failed to store %q: %w", doc.Source, err)
		}
		stored++
	}

	return stored, nil
}

// AddTo adapts a MemoryIndex to an AddFunc
func (m *MemoryIndex) AddTo() AddFunc {
	return func(_ context.Context, tenantID, content, source string, embedding []float64) error {
		return m.Add(tenantID, content, source, embedding)
	}
}
