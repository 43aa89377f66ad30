package utils

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads the given .env files into the process environment and returns a snapshot
// of the whole environment. Files that do not exist are skipped; variables already set in
// the environment win over file values
func LoadEnv(files ...string) map[string]string {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			log.Printf("[UTILS]: Warning, could not load %s: %v", file, err)
		}
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok && key != "" {
			env[key] = value
		}
	}

	return env
}
