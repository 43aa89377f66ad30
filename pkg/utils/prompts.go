package utils

import (
	"fmt"
	"os"
	"strings"
)

// LoadPrompt reads prompt instructions from an exact file path and trims surrounding whitespace
// An empty file is reported as an error so callers never run with a blank persona
func LoadPrompt(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", filePath, err)
	}

	prompt := strings.TrimSpace(string(content))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %s is empty", filePath)
	}

	return prompt, nil
}

// LoadPromptWithFallback loads prompt instructions from filePath, returning fallback when the
// path is empty or the file cannot be used
func LoadPromptWithFallback(filePath, fallback string) string {
	if filePath == "" {
		return fallback
	}
	if content, err := LoadPrompt(filePath); err == nil {
		return content
	}
	return fallback
}
