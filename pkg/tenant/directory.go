package tenant

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// MemoryDirectory is an in-process Directory, usually seeded from a YAML file
type MemoryDirectory struct {
	mu      sync.RWMutex
	byID    map[string]*Profile
	byPhone map[string]string // phone number -> tenant ID
}

// directoryFile is the on-disk layout read by LoadDirectoryFile
type directoryFile struct {
	Tenants []Profile `yaml:"tenants"`
}

// NewMemoryDirectory creates a directory holding the given profiles
func NewMemoryDirectory(profiles ...Profile) (*MemoryDirectory, error) {
	d := &MemoryDirectory{
		byID:    make(map[string]*Profile),
		byPhone: make(map[string]string),
	}

	for _, p := range profiles {
		if err := d.Put(p); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// LoadDirectoryFile reads a YAML file of the form `tenants: [...]` into a MemoryDirectory
func LoadDirectoryFile(path string) (*MemoryDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenants file: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tenants file: %w", err)
	}

	return NewMemoryDirectory(file.Tenants...)
}

// Put adds or replaces a profile
func (d *MemoryDirectory) Put(p Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("tenant id cannot be empty")
	}
	if strings.TrimSpace(p.BusinessName) == "" {
		return fmt.Errorf("tenant %s: business_name cannot be empty", p.ID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.byID[p.ID]; ok && old.PhoneNumber != "" {
		delete(d.byPhone, old.PhoneNumber)
	}
	if p.PhoneNumber != "" {
		if owner, ok := d.byPhone[p.PhoneNumber]; ok && owner != p.ID {
			return fmt.Errorf("phone number %s already registered to tenant %s", p.PhoneNumber, owner)
		}
		d.byPhone[p.PhoneNumber] = p.ID
	}
	d.byID[p.ID] = p.Clone()

	return nil
}

// Get returns an active tenant by identifier
func (d *MemoryDirectory) Get(ctx context.Context, tenantID string) (*Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.byID[tenantID]
	if !ok || !p.Active {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tenantID)
	}
	return p.Clone(), nil
}

// GetByPhone returns an active tenant by the phone number callers dial
func (d *MemoryDirectory) GetByPhone(ctx context.Context, phoneNumber string) (*Profile, error) {
	d.mu.RLock()
	id, ok := d.byPhone[phoneNumber]
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no tenant for %s", ErrNotFound, phoneNumber)
	}
	return d.Get(ctx, id)
}

// All returns every profile, active or not, ordered by identifier
func (d *MemoryDirectory) All() []Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Profile, 0, len(d.byID))
	for _, p := range d.byID {
		out = append(out, *p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}
