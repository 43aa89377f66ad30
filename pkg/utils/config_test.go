package utils

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("with nil values", func(t *testing.T) {
		config := NewConfig(nil)
		require.NotNil(t, config)
		assert.Len(t, config.Keys(), 0)
	})

	t.Run("copies values", func(t *testing.T) {
		values := map[string]string{"MODEL": "gpt-4o"}
		config := NewConfig(values)

		values["MODEL"] = "modified"
		assert.Equal(t, "gpt-4o", config.Get("MODEL"))
	})
}

func TestNewConfigFromEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte("RECEPTIONIST_TEST_KEY=from_file\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("RECEPTIONIST_TEST_KEY") })

	config := NewConfigFromEnv(file, filepath.Join(t.TempDir(), "missing.env"))

	require.NotNil(t, config)
	assert.Equal(t, "from_file", config.Get("RECEPTIONIST_TEST_KEY"))
}

func TestConfigGetWithDefault(t *testing.T) {
	config := NewConfig(map[string]string{
		"existing": "value",
		"empty":    "",
	})

	assert.Equal(t, "value", config.GetWithDefault("existing", "default"))
	assert.Equal(t, "default", config.GetWithDefault("missing", "default"))
	assert.Equal(t, "default", config.GetWithDefault("empty", "default"))
}

func TestConfigGetBool(t *testing.T) {
	config := NewConfig(map[string]string{
		"true_bool":      "true",
		"false_bool":     "false",
		"true_1":         "1",
		"true_yes":       "YES",
		"true_enabled":   "enabled",
		"false_disabled": "disabled",
		"invalid":        "invalid_bool",
	})

	tests := []struct {
		key      string
		expected bool
	}{
		{"true_bool", true},
		{"false_bool", false},
		{"true_1", true},
		{"true_yes", true},
		{"true_enabled", true},
		{"false_disabled", false},
		{"invalid", false},
		{"missing", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, config.GetBool(tt.key))
		})
	}
}

func TestConfigNumericGetters(t *testing.T) {
	config := NewConfig(map[string]string{
		"MAX_TOKENS":  "500",
		"TEMPERATURE": "0.3",
		"BAD_INT":     "five",
		"BAD_FLOAT":   "warm",
	})

	assert.Equal(t, 500, config.GetIntWithDefault("MAX_TOKENS", 10))
	assert.Equal(t, 10, config.GetIntWithDefault("BAD_INT", 10))
	assert.Equal(t, 10, config.GetIntWithDefault("MISSING", 10))

	assert.InDelta(t, 0.3, config.GetFloatWithDefault("TEMPERATURE", 0.7), 1e-9)
	assert.InDelta(t, 0.7, config.GetFloatWithDefault("BAD_FLOAT", 0.7), 1e-9)
}

func TestConfigGetDurationWithDefault(t *testing.T) {
	config := NewConfig(map[string]string{
		"go_duration": "45s",
		"seconds":     "12",
		"negative":    "-5m",
		"garbage":     "soon",
	})

	tests := []struct {
		key  string
		want time.Duration
	}{
		{"go_duration", 45 * time.Second},
		{"seconds", 12 * time.Second},
		{"negative", time.Minute},
		{"garbage", time.Minute},
		{"missing", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, config.GetDurationWithDefault(tt.key, time.Minute))
		})
	}
}

func TestConfigSetHas(t *testing.T) {
	config := NewConfig(nil)
	assert.False(t, config.Has("API_PORT"))

	config.Set("API_PORT", "9090")
	assert.True(t, config.Has("API_PORT"))
	assert.Equal(t, "9090", config.Get("API_PORT"))
}

func TestConfigThreadSafety(t *testing.T) {
	config := NewConfig(nil)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			config.Set("key", string(rune('a'+i%26)))
		}()
		go func() {
			defer wg.Done()
			_ = config.GetWithDefault("key", "z")
		}()
	}
	wg.Wait()

	assert.True(t, config.Has("key"))
}
