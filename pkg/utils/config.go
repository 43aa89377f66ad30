package utils

import (
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config is a thread-safe view over environment style key/value settings
type Config struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewConfig creates a new Config instance with a copy of the provided key-value pairs
func NewConfig(values map[string]string) *Config {
	config := &Config{
		values: make(map[string]string, len(values)),
	}

	maps.Copy(config.values, values)

	return config
}

// NewConfigFromEnv creates a new Config instance from the process environment after
// loading the given .env files
func NewConfigFromEnv(files ...string) *Config {
	return NewConfig(LoadEnv(files...))
}

// Get retrieves a configuration value by key, or an empty string
func (c *Config) Get(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// GetWithDefault retrieves a configuration value by key with a fallback default
func (c *Config) GetWithDefault(key, defaultValue string) string {
	if value := c.Get(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBool retrieves a configuration value as a boolean
// Returns false if key doesn't exist or cannot be parsed as boolean
func (c *Config) GetBool(key string) bool {
	value := strings.ToLower(strings.TrimSpace(c.Get(key)))

	switch value {
	case "1", "yes", "on", "enabled":
		return true
	case "0", "no", "off", "disabled", "":
		return false
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return parsed
}

// GetIntWithDefault retrieves a configuration value as an integer with a fallback default
// The default is also used when the value cannot be parsed
func (c *Config) GetIntWithDefault(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(c.Get(key)))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetFloatWithDefault retrieves a configuration value as a float with a fallback default
func (c *Config) GetFloatWithDefault(key string, defaultValue float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(c.Get(key)), 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetDurationWithDefault retrieves a configuration value as a time.Duration ("30s", "5m")
// A bare integer is read as a number of seconds
func (c *Config) GetDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(c.Get(key))
	if value == "" {
		return defaultValue
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

// Set modifies a configuration value
func (c *Config) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Has checks if a configuration key exists
func (c *Config) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.values[key]
	return exists
}

// Keys returns all configuration keys
func (c *Config) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	return keys
}
