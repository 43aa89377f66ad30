package tenant

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantsYAML = `
tenants:
  - id: smile-dental
    business_name: Smile Dental
    phone_number: "+15550001111"
    industry: dentistry
    services: Cleanings, whitening, fillings
    faq: "Do you take walk-ins? Only on Fridays."
    webhook_url: https://hooks.example.com/smile
    active: true
    business_hours:
      monday: {open: "09:00", close: "17:00"}
      sunday: {closed: true}
  - id: closed-shop
    business_name: Closed Shop
    phone_number: "+15550002222"
    active: false
`

func writeTenantsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tenantsYAML), 0644))
	return path
}

func TestLoadDirectoryFile(t *testing.T) {
	dir, err := LoadDirectoryFile(writeTenantsFile(t))
	require.NoError(t, err)

	ctx := context.Background()

	p, err := dir.Get(ctx, "smile-dental")
	require.NoError(t, err)
	assert.Equal(t, "Smile Dental", p.BusinessName)
	assert.Equal(t, "09:00", p.Hours["monday"].Open)
	assert.True(t, p.Hours["sunday"].Closed)
	assert.True(t, p.HasWebhook())

	byPhone, err := dir.GetByPhone(ctx, "+15550001111")
	require.NoError(t, err)
	assert.Equal(t, "smile-dental", byPhone.ID)
}

func TestMemoryDirectory_NotFound(t *testing.T) {
	dir, err := LoadDirectoryFile(writeTenantsFile(t))
	require.NoError(t, err)

	ctx := context.Background()

	tests := []struct {
		name string
		get  func() (*Profile, error)
	}{
		{name: "unknown id", get: func() (*Profile, error) { return dir.Get(ctx, "nobody") }},
		{name: "inactive tenant", get: func() (*Profile, error) { return dir.Get(ctx, "closed-shop") }},
		{name: "inactive by phone", get: func() (*Profile, error) { return dir.GetByPhone(ctx, "+15550002222") }},
		{name: "unknown phone", get: func() (*Profile, error) { return dir.GetByPhone(ctx, "+10000000000") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.get()
			assert.Nil(t, p)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryDirectory_Put(t *testing.T) {
	dir, err := NewMemoryDirectory()
	require.NoError(t, err)

	assert.Error(t, dir.Put(Profile{BusinessName: "No ID"}))
	assert.Error(t, dir.Put(Profile{ID: "no-name"}))

	require.NoError(t, dir.Put(Profile{ID: "a", BusinessName: "A", PhoneNumber: "+1", Active: true}))
	assert.Error(t, dir.Put(Profile{ID: "b", BusinessName: "B", PhoneNumber: "+1", Active: true}))

	// Re-registering a tenant under a new number frees the old one
	require.NoError(t, dir.Put(Profile{ID: "a", BusinessName: "A", PhoneNumber: "+2", Active: true}))
	require.NoError(t, dir.Put(Profile{ID: "b", BusinessName: "B", PhoneNumber: "+1", Active: true}))
}

func TestProfile_CloneIsolation(t *testing.T) {
	dir, err := NewMemoryDirectory(Profile{
		ID:           "a",
		BusinessName: "A",
		Active:       true,
		Hours:        map[string]Hours{"monday": {Open: "08:00", Close: "12:00"}},
	})
	require.NoError(t, err)

	p, err := dir.Get(context.Background(), "a")
	require.NoError(t, err)
	p.Hours["monday"] = Hours{Open: "00:00", Close: "00:00"}
	p.BusinessName = "mutated"

	again, err := dir.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "A", again.BusinessName)
	assert.Equal(t, "08:00", again.Hours["monday"].Open)
}

func TestProfile_HoursDays(t *testing.T) {
	p := Profile{Hours: map[string]Hours{
		"sunday":   {Closed: true},
		"holidays": {Closed: true},
		"monday":   {Open: "09:00", Close: "17:00"},
		"friday":   {Open: "09:00", Close: "13:00"},
		"notes":    {},
	}}

	assert.Equal(t, []string{"monday", "friday", "sunday", "holidays", "notes"}, p.HoursDays())
}

func TestMemoryDirectory_All(t *testing.T) {
	dir, err := LoadDirectoryFile(writeTenantsFile(t))
	require.NoError(t, err)

	all := dir.All()
	require.Len(t, all, 2)
	assert.Equal(t, "closed-shop", all[0].ID)
	assert.Equal(t, "smile-dental", all[1].ID)
	assert.False(t, all[0].Active)
}
