// Package tenant is the MySQL backed tenant directory
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethanbaker/receptionist/pkg/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MySqlDirectory reads tenant profiles from MySQL
type MySqlDirectory struct {
	db *gorm.DB
}

var _ tenant.Directory = (*MySqlDirectory)(nil)

// NewMySqlDirectory creates a directory on an open connection and migrates its table
func NewMySqlDirectory(db *gorm.DB) (*MySqlDirectory, error) {
	if err := db.AutoMigrate(&TenantModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}
	return &MySqlDirectory{db: db}, nil
}

// Get returns an active tenant by identifier
func (d *MySqlDirectory) Get(ctx context.Context, tenantID string) (*tenant.Profile, error) {
	return d.first(ctx, "id = ? AND active = ?", tenantID, true)
}

// GetByPhone returns an active tenant by dialled number
func (d *MySqlDirectory) GetByPhone(ctx context.Context, phoneNumber string) (*tenant.Profile, error) {
	return d.first(ctx, "phone_number = ? AND active = ?", phoneNumber, true)
}

// Put creates or updates a tenant
func (d *MySqlDirectory) Put(ctx context.Context, p tenant.Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("tenant id cannot be empty")
	}
	if strings.TrimSpace(p.BusinessName) == "" {
		return fmt.Errorf("tenant %s: business_name cannot be empty", p.ID)
	}

	model := fromProfile(p)
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}

	return nil
}

func (d *MySqlDirectory) first(ctx context.Context, query string, args ...any) (*tenant.Profile, error) {
	var model TenantModel
	result := d.db.WithContext(ctx).Where(query, args...).First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", tenant.ErrNotFound, args[0])
		}
		return nil, fmt.Errorf("failed to get tenant: %w", result.Error)
	}

	return model.toProfile(), nil
}
