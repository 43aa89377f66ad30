// Package knowledge is the MySQL backed knowledge index
package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/ethanbaker/receptionist/pkg/knowledge"
	"gorm.io/gorm"
)

// Entry is a stored knowledge chunk with its embedding
type Entry struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`

	TenantID  string    `gorm:"column:tenant_id;size:128;not null;index"`
	Content   string    `gorm:"column:content;type:text;not null"`
	Source    string    `gorm:"column:source;size:255"`
	Embedding []float64 `gorm:"column:embedding;type:mediumtext;serializer:json;not null"`
}

// TableName overrides the default table name
func (Entry) TableName() string {
	return "knowledge_entries"
}

// MySqlIndex keeps embeddings in MySQL and ranks a tenant's entries in process
type MySqlIndex struct {
	db *gorm.DB
}

var _ knowledge.Index = (*MySqlIndex)(nil)

// NewMySqlIndex creates an index on an open connection and migrates its table
func NewMySqlIndex(db *gorm.DB) (*MySqlIndex, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}
	return &MySqlIndex{db: db}, nil
}

// Add stores an embedded chunk for a tenant
func (i *MySqlIndex) Add(ctx context.Context, tenantID, content, source string, embedding []float64) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id cannot be empty")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding cannot be empty")
	}

	entry := Entry{TenantID: tenantID, Content: content, Source: source, Embedding: embedding}
	if err := i.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to save knowledge entry: %w", err)
	}
	return nil
}

// Nearest implements knowledge.Index
func (i *MySqlIndex) Nearest(ctx context.Context, tenantID string, vector []float64, k int) ([]knowledge.Snippet, error) {
	var entries []Entry
	if err := i.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to query knowledge entries: %w", err)
	}

	return knowledge.TopK(candidates(entries), vector, k), nil
}

// DeleteTenant removes all of a tenant's entries
func (i *MySqlIndex) DeleteTenant(ctx context.Context, tenantID string) error {
	if err := i.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("failed to delete knowledge entries: %w", err)
	}
	return nil
}

func candidates(entries []Entry) []knowledge.Candidate {
	out := make([]knowledge.Candidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, knowledge.Candidate{Content: e.Content, Source: e.Source, Embedding: e.Embedding})
	}
	return out
}
